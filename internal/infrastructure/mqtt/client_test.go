package mqtt

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-access/internal/infrastructure/config"
)

// testConfig returns a configuration for the broker at 127.0.0.1:1883.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "graylogic-access-test",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

// connectOrSkip connects to the local broker, skipping the test when none
// is running.
func connectOrSkip(t *testing.T, clientID string) *Client {
	t.Helper()
	cfg := testConfig()
	cfg.Broker.ClientID = clientID
	client, err := Connect(cfg)
	if err != nil {
		t.Skipf("no MQTT broker at 127.0.0.1:1883: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

type recordingLogger struct {
	mu     sync.Mutex
	errors []string
	warns  []string
}

func (l *recordingLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	l.errors = append(l.errors, msg)
	l.mu.Unlock()
}

func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
}

type stubMessage struct {
	topic   string
	payload []byte
}

func (m stubMessage) Duplicate() bool   { return false }
func (m stubMessage) Qos() byte         { return 1 }
func (m stubMessage) Retained() bool    { return false }
func (m stubMessage) Topic() string     { return m.topic }
func (m stubMessage) MessageID() uint16 { return 1 }
func (m stubMessage) Payload() []byte   { return m.payload }
func (m stubMessage) Ack()              {}

func TestTopicBuilders(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"HardwareCommand", Topics{}.HardwareCommand("led-front"), "graylogic/hw/cmd/led-front"},
		{"HardwareReply", Topics{}.HardwareReply("led-front"), "graylogic/hw/reply/led-front"},
		{"AccessCredential", Topics{}.AccessCredential("door-front"), "graylogic/access/credential/door-front"},
		{"AccessPulses", Topics{}.AccessPulses("door-front"), "graylogic/access/pulses/door-front"},
		{"AccessHealth", Topics{}.AccessHealth(), "graylogic/access/health"},
		{"SystemStatus", Topics{}.SystemStatus(), "graylogic/system/status"},
		{"AllAccessCredentials", Topics{}.AllAccessCredentials(), "graylogic/access/credential/+"},
		{"AllHardwareCommands", Topics{}.AllHardwareCommands(), "graylogic/hw/cmd/+"},
		{"AllTopics", Topics{}.AllTopics(), "graylogic/#"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s() = %q, want %q", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestStatusPayloads(t *testing.T) {
	online := buildOnlinePayload("access-01")
	if !strings.Contains(online, `"status":"online"`) || !strings.Contains(online, `"client_id":"access-01"`) {
		t.Errorf("buildOnlinePayload() = %s", online)
	}
	offline := buildOfflinePayload("access-01")
	if !strings.Contains(offline, `"reason":"graceful_shutdown"`) {
		t.Errorf("buildOfflinePayload() = %s", offline)
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.TLS = true
	cfg.Auth.Username = "access"
	cfg.Auth.Password = "secret"

	opts := buildClientOptions(cfg)
	if len(opts.Servers) != 1 || opts.Servers[0].String() != "ssl://127.0.0.1:1883" {
		t.Errorf("Servers = %v, want [ssl://127.0.0.1:1883]", opts.Servers)
	}
	if opts.Username != "access" || opts.Password != "secret" {
		t.Errorf("credentials = %q/%q", opts.Username, opts.Password)
	}
	if opts.TLSConfig == nil || opts.TLSConfig.MinVersion != tlsMinVersion {
		t.Error("TLS config not applied")
	}
	if !opts.CleanSession {
		t.Error("CleanSession = false, want true")
	}
}

func TestValidationWithoutBroker(t *testing.T) {
	client := &Client{subscriptions: make(map[string]subscription)}
	noop := func(string, []byte) error { return nil }

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"publish empty topic", client.Publish("", nil, 1, false), ErrInvalidTopic},
		{"publish qos 3", client.Publish("a", nil, 3, false), ErrInvalidQoS},
		{"publish oversize", client.Publish("a", make([]byte, maxPayloadSize+1), 1, false), ErrPublishFailed},
		{"publish disconnected", client.Publish("a", []byte("x"), 1, false), ErrNotConnected},
		{"subscribe empty topic", client.Subscribe("", 1, noop), ErrInvalidTopic},
		{"subscribe nil handler", client.Subscribe("a", 1, nil), ErrSubscribeFailed},
		{"subscribe disconnected", client.Subscribe("a", 1, noop), ErrNotConnected},
		{"unsubscribe empty topic", client.Unsubscribe(""), ErrInvalidTopic},
		{"unsubscribe disconnected", client.Unsubscribe("a"), ErrNotConnected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.want) {
				t.Errorf("error = %v, want %v", tt.err, tt.want)
			}
		})
	}
	if client.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", client.SubscriptionCount())
	}
}

func TestCloseNil(t *testing.T) {
	client := &Client{}
	if err := client.Close(); err != nil {
		t.Errorf("Close() on unconnected client error = %v, want nil", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true for unconnected client")
	}
}

func TestWrapHandler(t *testing.T) {
	logger := &recordingLogger{}
	client := &Client{}
	client.SetLogger(logger)

	panicking := client.wrapHandler(func(string, []byte) error { panic("boom") })
	panicking(nil, stubMessage{topic: "graylogic/access/pulses/door"})

	failing := client.wrapHandler(func(string, []byte) error { return errors.New("bad pulses") })
	failing(nil, stubMessage{topic: "graylogic/access/pulses/door"})

	if len(logger.errors) != 1 {
		t.Errorf("errors logged = %d, want 1 (recovered panic)", len(logger.errors))
	}
	if len(logger.warns) != 1 {
		t.Errorf("warnings logged = %d, want 1 (handler error)", len(logger.warns))
	}
}

func TestConnectRefused(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.Port = 19998

	_, err := Connect(cfg)
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestPublishSubscribeRoundtrip(t *testing.T) {
	pub := connectOrSkip(t, "graylogic-access-test-pub")
	sub := connectOrSkip(t, "graylogic-access-test-sub")

	topic := Topics{}.AccessCredential("roundtrip")
	received := make(chan string, 1)
	if err := sub.Subscribe(Topics{}.AllAccessCredentials(), 1, func(_ string, payload []byte) error {
		received <- string(payload)
		return nil
	}); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if !sub.HasSubscription(Topics{}.AllAccessCredentials()) {
		t.Error("HasSubscription() = false, want true")
	}

	time.Sleep(100 * time.Millisecond)
	if err := pub.PublishString(topic, `{"card":"00:00:00:ff"}`, 1, false); err != nil {
		t.Fatalf("PublishString() error = %v", err)
	}

	select {
	case got := <-received:
		if got != `{"card":"00:00:00:ff"}` {
			t.Errorf("payload = %q", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for message")
	}

	if err := sub.Unsubscribe(Topics{}.AllAccessCredentials()); err != nil {
		t.Fatalf("Unsubscribe() error = %v", err)
	}
	if sub.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", sub.SubscriptionCount())
	}
}
