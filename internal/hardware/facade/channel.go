package facade

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultTimeout bounds a command when the caller configures none.
const DefaultTimeout = 5 * time.Second

// Channel carries one request to a named device and returns its single
// textual reply.
type Channel interface {
	Request(ctx context.Context, frames []string) (string, error)
}

// Handler answers requests addressed to one device.
type Handler interface {
	Handle(ctx context.Context, frames []string) string
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, frames []string) string

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, frames []string) string { return f(ctx, frames) }

// Transport connects facades to device actors.
type Transport interface {
	// Channel returns the request side for device.
	Channel(device string) Channel

	// Handle registers h as the responder for device.
	Handle(device string, h Handler) error

	// Scheme names the transport in endpoints, e.g. "inproc".
	Scheme() string

	Close() error
}

// Endpoint is the address a device's actor is reached at.
func Endpoint(scheme, device string) string {
	return scheme + "://" + device
}

// SendCommand sends cmd on ch and waits at most timeout for the reply.
//
// It returns true for OK and false for KO. A timeout returns false with
// ErrTimeout. Any other reply means the device actor is broken:
// SendCommand panics with an error wrapping ErrProtocolViolation.
func SendCommand(ctx context.Context, ch Channel, timeout time.Duration, cmd Command) (bool, error) {
	reply, err := Query(ctx, ch, timeout, cmd)
	if err != nil {
		return false, err
	}
	switch reply {
	case ReplyOK:
		return true, nil
	case ReplyKO:
		return false, nil
	default:
		panic(fmt.Errorf("%w: %q in reply to %s", ErrProtocolViolation, reply, cmd.Verb()))
	}
}

// Query sends cmd on ch and returns the raw reply without interpreting
// it. Timeouts are reported as for SendCommand.
func Query(ctx context.Context, ch Channel, timeout time.Duration, cmd Command) (string, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	reply, err := ch.Request(ctx, cmd.Frames())
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrTimeout) {
			return "", fmt.Errorf("%w: %s after %s", ErrTimeout, cmd.Verb(), timeout)
		}
		return "", fmt.Errorf("sending %s: %w", cmd.Verb(), err)
	}
	return reply, nil
}
