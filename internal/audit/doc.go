// Package audit records device, zone and credential activity in the
// audit_logs table and lists it back for the API.
//
// Writes are best effort from the caller's point of view: Recorder logs a
// failed insert instead of failing the operation being audited.
package audit
