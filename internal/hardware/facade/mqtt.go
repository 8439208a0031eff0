package facade

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-access/internal/infrastructure/mqtt"
)

// MQTTClient is the part of the MQTT client the transport needs.
// *mqtt.Client satisfies it.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// mqttQueueSize bounds the requests buffered for one device actor.
const mqttQueueSize = 32

// MQTTTransport carries commands over the Gray Logic broker.
//
// A request is published on graylogic/hw/cmd/{device} with a fresh
// correlation id; the actor answers on graylogic/hw/reply/{device} echoing
// the id.
//
// The MQTT client delivers messages one at a time, so actors never run on
// its callback: each device has a worker that serves its requests in
// arrival order. An actor may then command another device over the same
// transport and receive the reply.
type MQTTTransport struct {
	client MQTTClient
	qos    byte
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	pending  map[string]chan string
	replies  map[string]struct{} // reply topics subscribed
	commands map[string]struct{} // command topics served
}

// NewMQTTTransport creates a transport over client using qos for every
// message.
func NewMQTTTransport(client MQTTClient, qos byte) *MQTTTransport {
	ctx, cancel := context.WithCancel(context.Background())
	return &MQTTTransport{
		client:   client,
		qos:      qos,
		ctx:      ctx,
		cancel:   cancel,
		pending:  make(map[string]chan string),
		replies:  make(map[string]struct{}),
		commands: make(map[string]struct{}),
	}
}

// Scheme implements Transport.
func (t *MQTTTransport) Scheme() string { return "mqtt" }

// Channel implements Transport.
func (t *MQTTTransport) Channel(device string) Channel {
	return mqttChannel{t: t, device: device}
}

// Handle implements Transport.
func (t *MQTTTransport) Handle(device string, h Handler) error {
	topic := mqtt.Topics{}.HardwareCommand(device)
	replyTopic := mqtt.Topics{}.HardwareReply(device)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ctx.Err() != nil {
		return ErrClosed
	}
	if _, exists := t.commands[topic]; exists {
		return fmt.Errorf("facade: responder already registered for %s", Endpoint(t.Scheme(), device))
	}

	queue := make(chan wireRequest, mqttQueueSize)
	err := t.client.Subscribe(topic, t.qos, func(_ string, payload []byte) error {
		req, err := decodeRequest(payload)
		if err != nil {
			return err
		}
		select {
		case queue <- req:
			return nil
		case <-t.ctx.Done():
			return ErrClosed
		default:
			return fmt.Errorf("facade: %s busy, dropping request %s", Endpoint(t.Scheme(), device), req.ID)
		}
	})
	if err != nil {
		return fmt.Errorf("serving %s: %w", Endpoint(t.Scheme(), device), err)
	}
	t.commands[topic] = struct{}{}

	t.wg.Add(1)
	go t.serve(replyTopic, h, queue)
	return nil
}

// serve answers queued requests for one device until the transport closes.
// A lost reply leaves the requester to its timeout.
func (t *MQTTTransport) serve(replyTopic string, h Handler, queue <-chan wireRequest) {
	defer t.wg.Done()
	for {
		select {
		case <-t.ctx.Done():
			return
		case req := <-queue:
			body, err := json.Marshal(wireReply{ID: req.ID, Reply: h.Handle(t.ctx, req.Frames)})
			if err != nil {
				continue
			}
			_ = t.client.Publish(replyTopic, body, t.qos, false) //nolint:errcheck // requester times out on loss
		}
	}
}

// Close stops serving, fails outstanding requests with ErrClosed and waits
// for the device workers to return.
func (t *MQTTTransport) Close() error {
	t.cancel()
	t.mu.Lock()
	topics := make([]string, 0, len(t.commands)+len(t.replies))
	for topic := range t.commands {
		topics = append(topics, topic)
	}
	for topic := range t.replies {
		topics = append(topics, topic)
	}
	t.commands = make(map[string]struct{})
	t.replies = make(map[string]struct{})
	t.mu.Unlock()

	var firstErr error
	for _, topic := range topics {
		if err := t.client.Unsubscribe(topic); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	t.wg.Wait()
	return firstErr
}

// listen subscribes to the reply topic of device once.
func (t *MQTTTransport) listen(device string) error {
	topic := mqtt.Topics{}.HardwareReply(device)

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.replies[topic]; ok {
		return nil
	}
	err := t.client.Subscribe(topic, t.qos, func(_ string, payload []byte) error {
		var reply wireReply
		if err := json.Unmarshal(payload, &reply); err != nil {
			return fmt.Errorf("decoding reply: %w", err)
		}
		t.mu.Lock()
		ch, ok := t.pending[reply.ID]
		delete(t.pending, reply.ID)
		t.mu.Unlock()
		if ok {
			ch <- reply.Reply
		}
		return nil
	})
	if err != nil {
		return err
	}
	t.replies[topic] = struct{}{}
	return nil
}

type mqttChannel struct {
	t      *MQTTTransport
	device string
}

func (c mqttChannel) Request(ctx context.Context, frames []string) (string, error) {
	t := c.t
	if t.ctx.Err() != nil {
		return "", ErrClosed
	}
	if err := t.listen(c.device); err != nil {
		return "", fmt.Errorf("listening for %s replies: %w", c.device, err)
	}

	id := uuid.NewString()
	body, err := json.Marshal(wireRequest{ID: id, Frames: frames})
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	replyCh := make(chan string, 1)
	t.mu.Lock()
	t.pending[id] = replyCh
	t.mu.Unlock()
	defer func() {
		t.mu.Lock()
		delete(t.pending, id)
		t.mu.Unlock()
	}()

	if err := t.client.Publish(mqtt.Topics{}.HardwareCommand(c.device), body, t.qos, false); err != nil {
		return "", err
	}

	select {
	case reply := <-replyCh:
		return reply, nil
	case <-t.ctx.Done():
		return "", ErrClosed
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
