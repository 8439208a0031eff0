// Package api serves the access controller's HTTP REST API and WebSocket
// feed.
//
// It provides:
//   - CRUD for hardware devices, zones and doors
//   - device commands routed through the hardware facade
//   - credential decoding for enrolment tools
//   - a paginated audit log
//   - a WebSocket hub that relays access events from the dispatcher
//
// Errors use one body shape, {"errors":[{status, code, source, detail}]}.
// Validation failures are 422 and carry a source pointer such as
// "data/attributes/alias".
//
// # Graceful Degradation
//
// Without a hardware transport the API still serves reads and CRUD; only
// device commands fail, with 503.
package api
