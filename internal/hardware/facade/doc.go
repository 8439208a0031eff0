// Package facade is the command side of the hardware layer.
//
// A facade (GPIO, LED, Buzzer, WiegandReader, ExternalServer, Alarm) turns
// method calls into Commands and sends them over a Channel to the actor
// that owns the device. Every command gets exactly one reply: OK or KO for
// actions, a state string for queries. Anything else means the actor is
// broken and SendCommand panics with ErrProtocolViolation.
//
// Channels come from a Transport:
//
//   - LocalTransport: in-process Pipes, used for built-in actors and tests
//   - MQTTTransport: graylogic/hw/cmd/{device} and graylogic/hw/reply/{device}
//   - NATSTransport: request/reply on graylogic.hw.{device}
//
// Actors register with Transport.Handle and answer through a Handler.
package facade
