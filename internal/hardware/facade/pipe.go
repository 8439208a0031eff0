package facade

import (
	"context"
	"fmt"
	"sync"
)

type pipeRequest struct {
	frames []string
	reply  chan string
}

// Pipe is an in-process request/reply channel between one facade and one
// device actor. Requests are served one at a time, in arrival order.
type Pipe struct {
	requests chan pipeRequest
	done     chan struct{}
	once     sync.Once
}

// NewPipe returns an open pipe.
func NewPipe() *Pipe {
	return &Pipe{
		requests: make(chan pipeRequest),
		done:     make(chan struct{}),
	}
}

// Request implements Channel.
func (p *Pipe) Request(ctx context.Context, frames []string) (string, error) {
	req := pipeRequest{frames: frames, reply: make(chan string, 1)}
	select {
	case p.requests <- req:
	case <-p.done:
		return "", ErrClosed
	case <-ctx.Done():
		return "", ctx.Err()
	}
	select {
	case reply := <-req.reply:
		return reply, nil
	case <-p.done:
		return "", ErrClosed
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Close stops the pipe. Pending and future requests fail with ErrClosed.
func (p *Pipe) Close() {
	p.once.Do(func() { close(p.done) })
}

// Serve answers requests on p with h until ctx is cancelled or p is closed.
func Serve(ctx context.Context, p *Pipe, h Handler) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-p.done:
			return nil
		case req := <-p.requests:
			req.reply <- h.Handle(ctx, req.frames)
		}
	}
}

// LocalTransport connects facades to actors living in the same process.
type LocalTransport struct {
	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.RWMutex
	pipes  map[string]*Pipe
	wg     sync.WaitGroup
}

// NewLocalTransport creates an in-process transport.
func NewLocalTransport() *LocalTransport {
	ctx, cancel := context.WithCancel(context.Background())
	return &LocalTransport{ctx: ctx, cancel: cancel, pipes: make(map[string]*Pipe)}
}

// Scheme implements Transport.
func (t *LocalTransport) Scheme() string { return "inproc" }

// Channel implements Transport. The responder is resolved per request, so a
// channel may be created before its actor registers.
func (t *LocalTransport) Channel(device string) Channel {
	return localChannel{t: t, device: device}
}

// Handle implements Transport.
func (t *LocalTransport) Handle(device string, h Handler) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ctx.Err() != nil {
		return ErrClosed
	}
	if _, exists := t.pipes[device]; exists {
		return fmt.Errorf("facade: responder already registered for %s", Endpoint(t.Scheme(), device))
	}
	p := NewPipe()
	t.pipes[device] = p
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		_ = Serve(t.ctx, p, h) //nolint:errcheck // Serve only returns nil
	}()
	return nil
}

// Remove unregisters the responder for device, if any.
func (t *LocalTransport) Remove(device string) {
	t.mu.Lock()
	p, ok := t.pipes[device]
	delete(t.pipes, device)
	t.mu.Unlock()
	if ok {
		p.Close()
	}
}

// Close stops every responder and waits for them to return.
func (t *LocalTransport) Close() error {
	t.cancel()
	t.mu.Lock()
	for name, p := range t.pipes {
		p.Close()
		delete(t.pipes, name)
	}
	t.mu.Unlock()
	t.wg.Wait()
	return nil
}

type localChannel struct {
	t      *LocalTransport
	device string
}

func (c localChannel) Request(ctx context.Context, frames []string) (string, error) {
	c.t.mu.RLock()
	p, ok := c.t.pipes[c.device]
	c.t.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNoResponder, Endpoint(c.t.Scheme(), c.device))
	}
	return p.Request(ctx, frames)
}
