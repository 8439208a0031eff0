package driver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/nerrad567/gray-logic-access/internal/hardware"
	"github.com/nerrad567/gray-logic-access/internal/hardware/facade"
	"github.com/nerrad567/gray-logic-access/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-access/internal/infrastructure/mqtt"
)

const (
	externalQoS = 1

	// payloadPlaceholder in a publish template is replaced by the value.
	payloadPlaceholder = "__PLACEHOLDER__"
)

// RemoteClient is a connection to an external MQTT server.
type RemoteClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Close() error
}

// Connector opens a RemoteClient for a server.
type Connector func(name string, spec hardware.ExternalServerSpec) (RemoteClient, error)

// MQTTConnector connects with the daemon's own MQTT client.
func MQTTConnector(name string, spec hardware.ExternalServerSpec) (RemoteClient, error) {
	clientID := spec.ClientID
	if clientID == "" {
		clientID = "graylogic-access-" + name
	}
	client, err := mqtt.Connect(config.MQTTConfig{
		Enabled: true,
		Broker: config.MQTTBrokerConfig{
			Host:     spec.Host,
			Port:     spec.Port,
			TLS:      spec.TLS,
			ClientID: clientID,
		},
		Auth:      config.MQTTAuthConfig{Username: spec.Username, Password: spec.Password},
		QoS:       externalQoS,
		Reconnect: config.MQTTReconnectConfig{InitialDelay: 10, MaxDelay: 60},
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

// VirtualEvent is a value seen on an external message: received from the
// server for subscribe messages, sent to it for publish messages.
type VirtualEvent struct {
	Server    string
	Message   string
	Class     hardware.Class
	Direction hardware.MessageDirection
	Value     string
}

// VirtualSink receives virtual device events.
type VirtualSink interface {
	HandleVirtual(ctx context.Context, ev VirtualEvent)
}

// VirtualSinkFunc adapts a function to VirtualSink.
type VirtualSinkFunc func(ctx context.Context, ev VirtualEvent)

// HandleVirtual implements VirtualSink.
func (f VirtualSinkFunc) HandleVirtual(ctx context.Context, ev VirtualEvent) { f(ctx, ev) }

// ExternalMessage is an external message device bound to its server.
type ExternalMessage struct {
	Name string
	Spec hardware.ExternalMessageSpec
}

// ExternalServer is the actor for an external MQTT server. It answers
// CONNECT and DISCONNECT; each publish message gets its own handler from
// MessageHandler.
type ExternalServer struct {
	name     string
	spec     hardware.ExternalServerSpec
	messages []ExternalMessage
	connect  Connector
	sink     VirtualSink
	logger   Logger

	mu     sync.Mutex
	client RemoteClient
}

// NewExternalServer creates the actor. sink may be nil.
func NewExternalServer(name string, spec hardware.ExternalServerSpec, messages []ExternalMessage, connect Connector, sink VirtualSink) *ExternalServer {
	if sink == nil {
		sink = VirtualSinkFunc(func(context.Context, VirtualEvent) {})
	}
	return &ExternalServer{
		name:     name,
		spec:     spec,
		messages: messages,
		connect:  connect,
		sink:     sink,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger.
func (s *ExternalServer) SetLogger(l Logger) { s.logger = orNoop(l) }

// Handle implements facade.Handler.
func (s *ExternalServer) Handle(ctx context.Context, frames []string) string {
	var err error
	switch frames[0] {
	case facade.VerbConnect:
		err = s.open(ctx)
	case facade.VerbDisconnect:
		err = s.Close()
	default:
		s.logger.Warn("unsupported external server command", "server", s.name, "verb", frames[0])
		return facade.ReplyKO
	}
	if err != nil {
		s.logger.Error("external server command failed", "server", s.name, "verb", frames[0], "error", err)
		return facade.ReplyKO
	}
	return facade.ReplyOK
}

func (s *ExternalServer) open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return nil
	}

	client, err := s.connect(s.name, s.spec)
	if err != nil {
		return fmt.Errorf("connecting to %s:%d: %w", s.spec.Host, s.spec.Port, err)
	}
	for _, m := range s.messages {
		if m.Spec.Direction != hardware.DirectionSubscribe {
			continue
		}
		topic := s.spec.SubscribePrefix + m.Spec.Subject
		if err := client.Subscribe(topic, externalQoS, func(_ string, payload []byte) error {
			return s.received(ctx, m, payload)
		}); err != nil {
			_ = client.Close() //nolint:errcheck // already failing
			return fmt.Errorf("subscribing to %s: %w", topic, err)
		}
	}
	s.client = client
	s.logger.Info("connected to external server", "server", s.name, "host", s.spec.Host, "port", s.spec.Port)
	return nil
}

// Close disconnects from the server. Closing a disconnected actor is not an
// error.
func (s *ExternalServer) Close() error {
	s.mu.Lock()
	client := s.client
	s.client = nil
	s.mu.Unlock()
	if client == nil {
		return nil
	}
	return client.Close()
}

// Connected reports whether CONNECT succeeded and no DISCONNECT followed.
func (s *ExternalServer) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client != nil
}

func (s *ExternalServer) received(ctx context.Context, m ExternalMessage, payload []byte) error {
	value, err := extractValue(m.Spec.Payload, payload)
	if err != nil {
		s.logger.Error("cannot extract value from external message", "message", m.Name, "error", err)
	}
	s.logger.Info("external message received", "message", m.Name, "value", value)

	switch m.Spec.VirtualClass {
	case hardware.ClassGPIO, hardware.ClassLED, hardware.ClassBuzzer:
		switch value {
		case "1":
			value = facade.VerbOn
		case "0":
			value = facade.VerbOff
		}
	case hardware.ClassRFIDReader:
	default:
		return fmt.Errorf("unsupported virtual class %q", m.Spec.VirtualClass)
	}
	s.sink.HandleVirtual(ctx, VirtualEvent{
		Server:    s.name,
		Message:   m.Name,
		Class:     m.Spec.VirtualClass,
		Direction: hardware.DirectionSubscribe,
		Value:     value,
	})
	return nil
}

// extractValue returns payload itself, or the string under key when the
// message declares a JSON key. A missing key falls back to the raw payload.
func extractValue(key string, payload []byte) (string, error) {
	raw := string(payload)
	if key == "" {
		return raw, nil
	}
	var doc map[string]any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return raw, fmt.Errorf("decoding payload: %w", err)
	}
	v, ok := doc[key]
	if !ok || v == nil {
		return raw, fmt.Errorf("json key %q not found", key)
	}
	if str, ok := v.(string); ok {
		return str, nil
	}
	return fmt.Sprint(v), nil
}

// MessageHandler returns the actor for publish message m. Each request's
// first frame (ON or OFF) is published on the server, substituted into the
// message's payload template when it has one.
func (s *ExternalServer) MessageHandler(m ExternalMessage) facade.Handler {
	return facade.HandlerFunc(func(ctx context.Context, frames []string) string {
		value := frames[0]
		if value != facade.VerbOn && value != facade.VerbOff {
			s.logger.Warn("unsupported external message value", "message", m.Name, "value", value)
			return facade.ReplyKO
		}

		payload := value
		if m.Spec.Payload != "" {
			payload = strings.ReplaceAll(m.Spec.Payload, payloadPlaceholder, value)
		}

		s.mu.Lock()
		client := s.client
		s.mu.Unlock()
		if client == nil {
			s.logger.Warn("publish before connect", "message", m.Name, "error", ErrNotConnected)
			return facade.ReplyKO
		}
		if err := client.Publish(s.spec.PublishPrefix+m.Spec.Subject, []byte(payload), externalQoS, false); err != nil {
			s.logger.Error("external publish failed", "message", m.Name, "error", err)
			return facade.ReplyKO
		}

		s.sink.HandleVirtual(ctx, VirtualEvent{
			Server:    s.name,
			Message:   m.Name,
			Class:     m.Spec.VirtualClass,
			Direction: hardware.DirectionPublish,
			Value:     value,
		})
		return facade.ReplyOK
	})
}
