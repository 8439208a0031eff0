package zone

import (
	"fmt"
	"strings"

	"github.com/nerrad567/gray-logic-access/internal/validation"
)

// Validate checks the topology reachable from root.
//
// The traversal is depth first and shares one visited set for the whole
// call, so a zone reached through two different parents under root is
// reported as a cycle just like a true loop. The first violation found is
// returned as a *validation.Error.
func Validate(root *Zone) error {
	if root == nil {
		return nil
	}
	return validate(root, make(map[int64]struct{}))
}

func validate(z *Zone, visited map[int64]struct{}) error {
	if _, seen := visited[z.ID]; seen {
		return validation.New(PointerChildren,
			fmt.Sprintf("zone %d (%s) is reached more than once", z.ID, z.Alias), ErrCycle)
	}
	visited[z.ID] = struct{}{}

	if !z.Type.Valid() {
		return validation.New(PointerType,
			fmt.Sprintf("zone type %q is not PHYSICAL or LOGICAL", z.Type), ErrInvalidType)
	}

	physical := z.physicalParents()
	switch {
	case z.Type == TypePhysical && physical > 1:
		return validation.New(PointerChildren,
			fmt.Sprintf("physical zone %s has %d physical parents, at most one is allowed", z.Alias, physical),
			ErrTooManyPhysicalParents)
	case z.Type == TypeLogical && physical > 0:
		return validation.New(PointerChildren,
			fmt.Sprintf("logical zone %s cannot have a physical parent", z.Alias),
			ErrLogicalWithPhysicalParent)
	}

	for _, child := range z.Children {
		if err := validate(child, visited); err != nil {
			return err
		}
	}
	return nil
}

// validateFields checks the zone's own attributes before it is written.
func validateFields(z *Zone) error {
	var errs validation.List
	if strings.TrimSpace(z.Alias) == "" {
		errs = append(errs, validation.New(PointerAlias, "alias must be non-empty", ErrEmptyAlias))
	}
	if !z.Type.Valid() {
		errs = append(errs, validation.New(PointerType,
			fmt.Sprintf("zone type %q is not PHYSICAL or LOGICAL", z.Type), ErrInvalidType))
	}
	return errs.Err()
}

func validateDoor(d *Door) error {
	if strings.TrimSpace(d.Alias) == "" {
		return validation.New(PointerAlias, "alias must be non-empty", ErrEmptyAlias)
	}
	return nil
}
