// Package zone persists the zone hierarchy and guards its topology.
//
// Zones group doors into physical areas (a building, a floor, a room) and
// logical groupings (all fire exits). They form a parent/child graph that is
// validated inside the same transaction as every write:
//
//   - no zone may be reached twice from the zone being written
//   - a PHYSICAL zone has at most one PHYSICAL parent
//   - a LOGICAL zone has no PHYSICAL parent
//
// A failed check rolls the write back and surfaces as a validation.Error with
// a source pointer the API layer renders as field-level feedback.
package zone
