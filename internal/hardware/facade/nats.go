package facade

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/nats-io/nats.go"
)

// NATSSubjectPrefix prefixes the subject of every device.
const NATSSubjectPrefix = "graylogic.hw."

var subjectEscaper = strings.NewReplacer(".", "_", " ", "_", "*", "_", ">", "_")

// NATSSubject returns the request subject of device. Characters NATS treats
// as token separators or wildcards are replaced with '_'.
func NATSSubject(device string) string {
	return NATSSubjectPrefix + subjectEscaper.Replace(device)
}

// NATSTransport carries commands as NATS requests. The connection is owned
// by the caller and is not closed by Close.
type NATSTransport struct {
	nc     *nats.Conn
	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	subs map[string]*nats.Subscription
}

// NewNATSTransport creates a transport over nc.
func NewNATSTransport(nc *nats.Conn) *NATSTransport {
	ctx, cancel := context.WithCancel(context.Background())
	return &NATSTransport{nc: nc, ctx: ctx, cancel: cancel, subs: make(map[string]*nats.Subscription)}
}

// Scheme implements Transport.
func (t *NATSTransport) Scheme() string { return "nats" }

// Channel implements Transport.
func (t *NATSTransport) Channel(device string) Channel {
	return natsChannel{nc: t.nc, device: device}
}

// Handle implements Transport. Malformed requests are answered with KO so
// the requester does not wait out its timeout.
func (t *NATSTransport) Handle(device string, h Handler) error {
	subject := NATSSubject(device)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ctx.Err() != nil {
		return ErrClosed
	}
	if _, exists := t.subs[subject]; exists {
		return fmt.Errorf("facade: responder already registered for %s", Endpoint(t.Scheme(), device))
	}

	sub, err := t.nc.Subscribe(subject, func(m *nats.Msg) {
		reply := ReplyKO
		if req, err := decodeRequest(m.Data); err == nil {
			reply = h.Handle(t.ctx, req.Frames)
		}
		_ = m.Respond([]byte(reply)) //nolint:errcheck // requester times out on loss
	})
	if err != nil {
		return fmt.Errorf("serving %s: %w", Endpoint(t.Scheme(), device), err)
	}
	t.subs[subject] = sub
	return nil
}

// Close drains every responder subscription.
func (t *NATSTransport) Close() error {
	t.cancel()
	t.mu.Lock()
	defer t.mu.Unlock()
	var errs []error
	for subject, sub := range t.subs {
		if err := sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			errs = append(errs, err)
		}
		delete(t.subs, subject)
	}
	return errors.Join(errs...)
}

type natsChannel struct {
	nc     *nats.Conn
	device string
}

func (c natsChannel) Request(ctx context.Context, frames []string) (string, error) {
	body, err := json.Marshal(wireRequest{Frames: frames})
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}
	msg, err := c.nc.RequestWithContext(ctx, NATSSubject(c.device), body)
	switch {
	case err == nil:
		return string(msg.Data), nil
	case errors.Is(err, nats.ErrNoResponders):
		return "", fmt.Errorf("%w: %s", ErrNoResponder, Endpoint("nats", c.device))
	case errors.Is(err, nats.ErrTimeout):
		return "", ErrTimeout
	default:
		return "", err
	}
}
