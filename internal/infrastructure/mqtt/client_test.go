package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/entryguard/internal/infrastructure/config"
)

// testConfig returns a valid MQTT configuration for testing.
// Broker tests expect a Mosquitto broker at 127.0.0.1:1883 and skip otherwise.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "entryguard-test",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
			MaxAttempts:  1,
		},
		TopicPrefix: "entryguard-test",
	}
}

// connectOrSkip connects to the local broker or skips the test.
func connectOrSkip(t *testing.T, cfg config.MQTTConfig) *Client {
	t.Helper()
	client, err := Connect(context.Background(), cfg, "test-site", nil)
	if err != nil {
		t.Skipf("MQTT broker not available: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

// =============================================================================
// Connection Tests
// =============================================================================

func TestConnect(t *testing.T) {
	client := connectOrSkip(t, testConfig())

	if !client.IsConnected() {
		t.Error("IsConnected() = false, want true")
	}
	if client.Topics().Prefix() != "entryguard-test" {
		t.Errorf("Topics().Prefix() = %q, want entryguard-test", client.Topics().Prefix())
	}
}

func TestConnect_BrokerRefused(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.Port = 19998

	_, err := Connect(context.Background(), cfg, "test-site", nil)
	if err == nil {
		t.Fatal("Connect() should fail for refused connection")
	}
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestConnect_RetriesUntilCancelled(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.Port = 19998
	cfg.Reconnect.MaxAttempts = 0

	logger := &mockLogger{}
	ctx, cancel := context.WithTimeout(context.Background(), 2500*time.Millisecond)
	defer cancel()

	_, err := Connect(ctx, cfg, "test-site", logger)
	if !errors.Is(err, ErrConnectionFailed) {
		t.Fatalf("Connect() error = %v, want ErrConnectionFailed", err)
	}
	if logger.count("broker unreachable, retrying") == 0 {
		t.Error("no retry was logged before the context ended")
	}
}

func TestClose(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.ClientID = "entryguard-test-close"
	client := connectOrSkip(t, cfg)

	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close(), want false")
	}
	if err := client.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
	if err := client.Publish(client.Topics().Notifications(), []byte("z"), 1, false); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish() error = %v, want ErrNotConnected", err)
	}
}

func TestCloseNil(t *testing.T) {
	client := &Client{}
	if err := client.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v, want nil", err)
	}
}

func TestIsConnected_InitialState(t *testing.T) {
	client := &Client{}
	if client.IsConnected() {
		t.Error("IsConnected() should be false for uninitialised client")
	}
}

func TestHealthCheckCancelled(t *testing.T) {
	client := &Client{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := client.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck() error = %v, want context.Canceled", err)
	}
}

// =============================================================================
// Validation Tests (no broker required)
// =============================================================================

func TestPublish_Validation(t *testing.T) {
	client := &Client{topics: NewTopics("door")}

	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		wantErr error
	}{
		{name: "empty topic", topic: "", payload: []byte("x"), qos: 1, wantErr: ErrInvalidTopic},
		{name: "wildcard name", topic: "door/field/led/+", payload: []byte("x"), qos: 1, wantErr: ErrInvalidTopic},
		{name: "other prefix", topic: "elsewhere/notifications", payload: []byte("x"), qos: 1, wantErr: ErrForeignTopic},
		{name: "prefix only", topic: "door", payload: []byte("x"), qos: 1, wantErr: ErrForeignTopic},
		{name: "prefix lookalike", topic: "doorbell/notifications", payload: []byte("x"), qos: 1, wantErr: ErrForeignTopic},
		{name: "bad qos", topic: "door/notifications", payload: []byte("x"), qos: 3, wantErr: ErrInvalidQoS},
		{name: "oversized", topic: "door/notifications", payload: make([]byte, maxPayloadSize+1), qos: 1, wantErr: ErrPayloadTooLarge},
		{name: "disconnected", topic: "door/notifications", payload: []byte("x"), qos: 1, wantErr: ErrNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := client.Publish(tt.topic, tt.payload, tt.qos, false)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Publish() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSubscribe_Validation(t *testing.T) {
	client := &Client{topics: NewTopics("door")}
	noop := func(string, []byte) error { return nil }

	tests := []struct {
		name    string
		topic   string
		qos     byte
		handler MessageHandler
		wantErr error
	}{
		{"empty", "", 1, noop, ErrInvalidTopic},
		{"hash not last", "door/#/led", 1, noop, ErrInvalidTopic},
		{"partial plus", "door/field/led+", 1, noop, ErrInvalidTopic},
		{"other prefix", "other/lights", 1, noop, ErrForeignTopic},
		{"bad qos", "door/lights", 3, noop, ErrInvalidQoS},
		{"nil handler", "door/lights", 1, nil, ErrSubscribeFailed},
		{"disconnected", "door/field/led/+", 1, noop, ErrNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := client.Subscribe(tt.topic, tt.qos, tt.handler); !errors.Is(err, tt.wantErr) {
				t.Errorf("Subscribe() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
	if len(client.subs) != 0 {
		t.Errorf("remembered %d subscriptions, want 0", len(client.subs))
	}
	if err := client.Unsubscribe(""); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Unsubscribe(empty) error = %v, want ErrInvalidTopic", err)
	}
}

func TestValidateTopic(t *testing.T) {
	tests := []struct {
		topic  string
		filter bool
		valid  bool
	}{
		{"door/lights", false, true},
		{"door/field/led/+", true, true},
		{"door/#", true, true},
		{"door/+/led/#", true, true},
		{"door/#", false, false},
		{"door/#/x", true, false},
		{"door/le+d", true, false},
		{"door/a#", true, false},
	}

	for _, tt := range tests {
		err := validateTopic(tt.topic, tt.filter)
		if (err == nil) != tt.valid {
			t.Errorf("validateTopic(%q, filter=%v) = %v, want valid %v", tt.topic, tt.filter, err, tt.valid)
		}
	}
}

// =============================================================================
// Subscribe Tests (broker required)
// =============================================================================

func TestSubscribeUnsubscribe(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.ClientID = "entryguard-test-sub"
	client := connectOrSkip(t, cfg)

	topic := client.Topics().Lights()
	if err := client.Subscribe(topic, 1, func(string, []byte) error { return nil }); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if _, ok := client.subs[topic]; !ok {
		t.Error("subscription not remembered for reconnect")
	}

	if err := client.Unsubscribe(topic); err != nil {
		t.Fatalf("Unsubscribe() error = %v", err)
	}
	if _, ok := client.subs[topic]; ok {
		t.Error("subscription still remembered after Unsubscribe()")
	}
}

func TestPublishSubscribeRoundtrip(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.ClientID = "entryguard-test-pub"
	pubClient := connectOrSkip(t, cfg)

	cfg.Broker.ClientID = "entryguard-test-rt-sub"
	subClient := connectOrSkip(t, cfg)

	topic := subClient.Topics().Notifications()
	expected := "User detected at the door."
	received := make(chan string, 1)

	err := subClient.Subscribe(topic, 1, func(_ string, payload []byte) error {
		received <- string(payload)
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	if err := pubClient.Publish(topic, []byte(expected), pubClient.QoS(), false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case payload := <-received:
		if payload != expected {
			t.Errorf("Received payload = %q, want %q", payload, expected)
		}
	case <-time.After(5 * time.Second):
		t.Error("Timeout waiting for message")
	}
}

func TestWildcardSubscription(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.ClientID = "entryguard-test-wild-pub"
	pubClient := connectOrSkip(t, cfg)

	cfg.Broker.ClientID = "entryguard-test-wild-sub"
	subClient := connectOrSkip(t, cfg)

	topics := subClient.Topics()
	var mu sync.Mutex
	got := make(map[string]bool)

	err := subClient.Subscribe(topics.AllFieldLEDs(), 1, func(topic string, _ []byte) error {
		mu.Lock()
		got[topic] = true
		mu.Unlock()
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	for n := 1; n <= 3; n++ {
		if err := pubClient.Publish(topics.FieldLED(n), []byte(`{"on":true}`), 1, false); err != nil {
			t.Fatalf("Publish(%d) error = %v", n, err)
		}
	}

	time.Sleep(500 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for n := 1; n <= 3; n++ {
		if !got[topics.FieldLED(n)] {
			t.Errorf("Did not receive message for %s", topics.FieldLED(n))
		}
	}
}

// =============================================================================
// Handler Wrapping Tests
// =============================================================================

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

var _ pahomqtt.Message = fakeMessage{}

type mockLogger struct {
	mu       sync.Mutex
	messages []string
	errors   int
	warns    int
}

func (l *mockLogger) record(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
}

func (l *mockLogger) Debug(msg string, _ ...any) { l.record(msg) }
func (l *mockLogger) Info(msg string, _ ...any)  { l.record(msg) }

func (l *mockLogger) Warn(msg string, _ ...any) {
	l.record(msg)
	l.mu.Lock()
	l.warns++
	l.mu.Unlock()
}

func (l *mockLogger) Error(msg string, _ ...any) {
	l.record(msg)
	l.mu.Lock()
	l.errors++
	l.mu.Unlock()
}

func (l *mockLogger) count(msg string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, m := range l.messages {
		if m == msg {
			n++
		}
	}
	return n
}

func TestWrapHandler_RecoversPanic(t *testing.T) {
	logger := &mockLogger{}
	c := &Client{logger: logger}

	wrapped := c.wrapHandler(func(string, []byte) error {
		panic("boom")
	})
	wrapped(nil, fakeMessage{topic: "entryguard/lights", payload: []byte("LED1_ON")})

	if logger.errors != 1 {
		t.Fatalf("logged %d errors, want 1", logger.errors)
	}
}

func TestWrapHandler_LogsHandlerError(t *testing.T) {
	logger := &mockLogger{}
	c := &Client{logger: logger}

	var gotTopic, gotPayload string
	wrapped := c.wrapHandler(func(topic string, payload []byte) error {
		gotTopic, gotPayload = topic, string(payload)
		return errors.New("bad payload")
	})
	wrapped(nil, fakeMessage{topic: "entryguard/field/keypad", payload: []byte("7")})

	if gotTopic != "entryguard/field/keypad" || gotPayload != "7" {
		t.Errorf("handler got (%q, %q)", gotTopic, gotPayload)
	}
	if logger.count("message rejected") != 1 {
		t.Errorf("logged %v, want one rejection", logger.messages)
	}
}

func TestWrapHandler_NoLogger(t *testing.T) {
	c := &Client{}
	wrapped := c.wrapHandler(func(string, []byte) error { panic("boom") })
	// Must not propagate the panic.
	wrapped(nil, fakeMessage{topic: "t"})
}

// =============================================================================
// Options Tests
// =============================================================================

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Username = "door"
	cfg.Auth.Password = "secret"
	cfg.Broker.TLS = true

	will := newStatus(StatusOffline, ReasonLost, "front", "door-1", time.Now())
	opts := buildClientOptions(cfg, will, "home/front/status")

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "ssl://127.0.0.1:1883" {
		t.Errorf("Servers = %v, want [ssl://127.0.0.1:1883]", opts.Servers)
	}
	if opts.ClientID != "entryguard-test" {
		t.Errorf("ClientID = %q", opts.ClientID)
	}
	if opts.Username != "door" || opts.Password != "secret" {
		t.Errorf("credentials not applied")
	}
	if !opts.AutoReconnect || opts.ConnectRetry {
		t.Errorf("AutoReconnect = %v ConnectRetry = %v, want true false", opts.AutoReconnect, opts.ConnectRetry)
	}
	if opts.MaxReconnectInterval != 5*time.Second {
		t.Errorf("MaxReconnectInterval = %v, want 5s", opts.MaxReconnectInterval)
	}
	if opts.TLSConfig == nil || opts.TLSConfig.ServerName != "127.0.0.1" {
		t.Error("TLSConfig should be set with the broker host when TLS is enabled")
	}

	if !opts.WillEnabled || !opts.WillRetained || opts.WillTopic != "home/front/status" {
		t.Errorf("will = enabled:%v retained:%v topic:%q", opts.WillEnabled, opts.WillRetained, opts.WillTopic)
	}
	var got Status
	if err := json.Unmarshal(opts.WillPayload, &got); err != nil {
		t.Fatalf("will payload %s: %v", opts.WillPayload, err)
	}
	if got.Status != StatusOffline || got.Reason != ReasonLost || got.Site != "front" {
		t.Errorf("will = %+v", got)
	}
}

func TestBrokerURL(t *testing.T) {
	tests := []struct {
		broker config.MQTTBrokerConfig
		want   string
	}{
		{config.MQTTBrokerConfig{Host: "localhost", Port: 1883}, "tcp://localhost:1883"},
		{config.MQTTBrokerConfig{Host: "broker.lan", Port: 8883, TLS: true}, "ssl://broker.lan:8883"},
		{config.MQTTBrokerConfig{Host: "::1", Port: 1883}, "tcp://[::1]:1883"},
	}
	for _, tt := range tests {
		if got := brokerURL(tt.broker); got != tt.want {
			t.Errorf("brokerURL(%+v) = %q, want %q", tt.broker, got, tt.want)
		}
	}
}

func TestConnectBackoff(t *testing.T) {
	bounded := connectBackoff(context.Background(), config.MQTTReconnectConfig{InitialDelay: 1, MaxDelay: 2, MaxAttempts: 3})
	retries := 0
	for bounded.NextBackOff() != backoff.Stop {
		retries++
		if retries > 10 {
			break
		}
	}
	if retries != 2 {
		t.Errorf("retries = %d, want 2 for three attempts", retries)
	}

	ctx, cancel := context.WithCancel(context.Background())
	unbounded := connectBackoff(ctx, config.MQTTReconnectConfig{})
	if d := unbounded.NextBackOff(); d == backoff.Stop || d > 2*time.Second {
		t.Errorf("first wait = %v, want about the default initial delay", d)
	}
	cancel()
	if unbounded.NextBackOff() != backoff.Stop {
		t.Error("backoff should stop once the context is cancelled")
	}
}

func TestStatusPayloads(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 500, time.UTC)
	online := newStatus(StatusOnline, "", "front", `door"1`, at).payload()
	offline := newStatus(StatusOffline, ReasonShutdown, "front", "door-1", at).payload()

	var got Status
	if err := json.Unmarshal(online, &got); err != nil {
		t.Fatalf("online payload %s: %v", online, err)
	}
	if got.Status != StatusOnline || got.ClientID != `door"1` || got.Reason != "" || !got.Timestamp.Equal(at.Truncate(time.Second)) {
		t.Errorf("online = %+v", got)
	}
	if strings.Contains(string(online), "reason") {
		t.Errorf("online payload carries a reason: %s", online)
	}
	if !strings.Contains(string(offline), `"reason":"graceful_shutdown"`) {
		t.Errorf("offline payload = %s", offline)
	}
}

// =============================================================================
// Topics Tests
// =============================================================================

func TestTopicBuilders(t *testing.T) {
	topics := NewTopics("home/front-door/")

	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"Notifications", topics.Notifications(), "home/front-door/notifications"},
		{"Sensors", topics.Sensors(), "home/front-door/sensors"},
		{"Status", topics.Status(), "home/front-door/status"},
		{"Lights", topics.Lights(), "home/front-door/lights"},
		{"Display", topics.Display(), "home/front-door/display"},
		{"FieldSensors", topics.FieldSensors(), "home/front-door/field/sensors"},
		{"FieldKeypad", topics.FieldKeypad(), "home/front-door/field/keypad"},
		{"FieldLock", topics.FieldLock(), "home/front-door/field/lock"},
		{"FieldBuzzer", topics.FieldBuzzer(), "home/front-door/field/buzzer"},
		{"FieldLED", topics.FieldLED(3), "home/front-door/field/led/3"},
		{"FieldDisplay", topics.FieldDisplay(), "home/front-door/field/display"},
		{"AllFieldLEDs", topics.AllFieldLEDs(), "home/front-door/field/led/+"},
		{"All", topics.All(), "home/front-door/#"},
	}
	for _, tt := range tests {
		if !topics.Owns(tt.got) {
			t.Errorf("Owns(%q) = false", tt.got)
		}
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.expected)
			}
		})
	}
}

func TestTopics_DefaultPrefix(t *testing.T) {
	if got := NewTopics("").Notifications(); got != "entryguard/notifications" {
		t.Errorf("NewTopics(\"\").Notifications() = %q", got)
	}
	if got := (Topics{}).Status(); got != "entryguard/status" {
		t.Errorf("Topics{}.Status() = %q", got)
	}
}
