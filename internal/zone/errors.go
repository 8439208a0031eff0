package zone

import "errors"

// Domain errors for the zone package.
var (
	// ErrNotFound is returned when a zone or door ID does not exist.
	ErrNotFound = errors.New("zone: not found")

	// ErrCycle is returned when a zone is reached twice in one traversal.
	ErrCycle = errors.New("zone: cycle detected")

	// ErrInvalidType is returned when a zone type is neither PHYSICAL nor LOGICAL.
	ErrInvalidType = errors.New("zone: invalid type")

	// ErrTooManyPhysicalParents is returned when a PHYSICAL zone has more than
	// one PHYSICAL parent.
	ErrTooManyPhysicalParents = errors.New("zone: too many physical parents")

	// ErrLogicalWithPhysicalParent is returned when a LOGICAL zone has a
	// PHYSICAL parent.
	ErrLogicalWithPhysicalParent = errors.New("zone: logical zone with physical parent")

	// ErrEmptyAlias is returned when a zone or door alias is blank.
	ErrEmptyAlias = errors.New("zone: empty alias")

	// ErrUnknownReference is returned when a zone names a child zone, door or
	// access point that does not exist.
	ErrUnknownReference = errors.New("zone: unknown reference")

	// ErrVersionConflict is returned when an update was based on a stale version.
	ErrVersionConflict = errors.New("zone: version conflict")
)

// Source pointers used in validation errors.
const (
	PointerAlias       = "data/attributes/alias"
	PointerType        = "data/attributes/type"
	PointerChildren    = "data/attributes/children"
	PointerDoors       = "data/attributes/doors"
	PointerAccessPoint = "data/attributes/access_point"
)
