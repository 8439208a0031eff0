package zone

import (
	"fmt"
	"time"
)

// Type distinguishes physical areas from logical groupings.
type Type string

const (
	TypePhysical Type = "PHYSICAL"
	TypeLogical  Type = "LOGICAL"
)

// Valid reports whether t is one of the two zone types.
func (t Type) Valid() bool {
	return t == TypePhysical || t == TypeLogical
}

// ParseType converts a string to a Type, rejecting unknown values.
func ParseType(s string) (Type, error) {
	t := Type(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
	}
	return t, nil
}

// Zone is one node of the zone graph.
//
// Children and Doors are ordered. Parents is a back-reference populated by
// LoadGraph and is never written; the parent side owns the relation.
type Zone struct {
	ID          int64     `json:"id"`
	Alias       string    `json:"alias"`
	Description string    `json:"description"`
	Type        Type      `json:"type"`
	Children    []*Zone   `json:"-"`
	Doors       []Door    `json:"doors"`
	Parents     []*Zone   `json:"-"`
	Version     int       `json:"version"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ChildIDs returns the IDs of the zone's children in order.
func (z *Zone) ChildIDs() []int64 {
	ids := make([]int64, len(z.Children))
	for i, c := range z.Children {
		ids[i] = c.ID
	}
	return ids
}

// ParentIDs returns the IDs of the zone's parents.
func (z *Zone) ParentIDs() []int64 {
	ids := make([]int64, len(z.Parents))
	for i, p := range z.Parents {
		ids[i] = p.ID
	}
	return ids
}

// DoorIDs returns the IDs of the zone's doors in order.
func (z *Zone) DoorIDs() []int64 {
	ids := make([]int64, len(z.Doors))
	for i, d := range z.Doors {
		ids[i] = d.ID
	}
	return ids
}

// physicalParents counts the parents of type PHYSICAL.
func (z *Zone) physicalParents() int {
	n := 0
	for _, p := range z.Parents {
		if p.Type == TypePhysical {
			n++
		}
	}
	return n
}

// Door is an access point a zone can group. AccessPointID names the
// hardware device (usually an RFID reader) controlling it, or is empty.
type Door struct {
	ID            int64  `json:"id"`
	Alias         string `json:"alias"`
	Description   string `json:"description"`
	AccessPointID string `json:"access_point_id,omitempty"`
	Version       int    `json:"version"`
}
