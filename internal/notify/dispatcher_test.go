package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/entryguard/internal/sensor"
)

type mqttMessage struct {
	topic    string
	payload  string
	qos      byte
	retained bool
}

type mockMQTT struct {
	mu       sync.Mutex
	messages []mqttMessage
	err      error
}

func (m *mockMQTT) Publish(topic string, payload []byte, qos byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, mqttMessage{topic: topic, payload: string(payload), qos: qos, retained: retained})
	return nil
}

func (m *mockMQTT) getMessages() []mqttMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mqttMessage(nil), m.messages...)
}

type storeWrite struct {
	path   string
	value  any
	fields map[string]any
}

type mockStore struct {
	mu     sync.Mutex
	writes []storeWrite
	err    error
	// block, when set, holds every write until closed.
	block chan struct{}
}

func (m *mockStore) Set(_ context.Context, path string, value any) error {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.writes = append(m.writes, storeWrite{path: path, value: value})
	return nil
}

func (m *mockStore) Update(_ context.Context, path string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.writes = append(m.writes, storeWrite{path: path, fields: fields})
	return nil
}

func (m *mockStore) getWrites() []storeWrite {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]storeWrite(nil), m.writes...)
}

func testOptions() Options {
	return Options{
		NotificationTopic: "door/notifications",
		SensorTopic:       "door/sensors",
		QoS:               1,
		NotificationPath:  "/notifications",
		SensorPath:        "/sensors",
	}
}

func TestPublish_BothChannels(t *testing.T) {
	broker, store := &mockMQTT{}, &mockStore{}
	d := NewDispatcher(broker, store, testOptions())

	ev := NewEvent(Presence, MsgPresence, time.Now())
	results := d.Publish(context.Background(), ev)

	for _, r := range results {
		if !r.OK || r.Err != nil {
			t.Errorf("%s result = %+v, want OK", r.Channel, r)
		}
	}
	if results[Broker].Channel != Broker || results[CloudStore].Channel != CloudStore {
		t.Errorf("results not indexed by channel: %+v", results)
	}

	msgs := broker.getMessages()
	if len(msgs) != 1 || msgs[0].topic != "door/notifications" || msgs[0].payload != MsgPresence {
		t.Errorf("broker messages = %+v", msgs)
	}
	if msgs[0].retained {
		t.Error("notifications must not be retained")
	}

	writes := store.getWrites()
	if len(writes) != 1 || writes[0].path != "/notifications" || writes[0].value != MsgPresence {
		t.Errorf("store writes = %+v", writes)
	}
}

func TestPublish_ChannelsIndependent(t *testing.T) {
	tests := []struct {
		name       string
		brokerErr  error
		storeErr   error
		wantBroker bool
		wantStore  bool
	}{
		{"broker down", errors.New("not connected"), nil, false, true},
		{"store down", nil, errors.New("503"), true, false},
		{"both down", errors.New("x"), errors.New("y"), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			broker := &mockMQTT{err: tt.brokerErr}
			store := &mockStore{err: tt.storeErr}
			d := NewDispatcher(broker, store, testOptions())

			results := d.Publish(context.Background(), NewEvent(HazardRaised, MsgFire, time.Now()))

			if results[Broker].OK != tt.wantBroker {
				t.Errorf("broker OK = %v, want %v", results[Broker].OK, tt.wantBroker)
			}
			if results[CloudStore].OK != tt.wantStore {
				t.Errorf("store OK = %v, want %v", results[CloudStore].OK, tt.wantStore)
			}
			if !results[Broker].OK && !errors.Is(results[Broker].Err, tt.brokerErr) {
				t.Errorf("broker Err = %v, want %v", results[Broker].Err, tt.brokerErr)
			}
			if !results[CloudStore].OK && !errors.Is(results[CloudStore].Err, tt.storeErr) {
				t.Errorf("store Err = %v, want %v", results[CloudStore].Err, tt.storeErr)
			}
			// A failing broker must not stop the store write, and vice versa.
			if tt.wantStore && len(store.getWrites()) != 1 {
				t.Errorf("store writes = %d, want 1", len(store.getWrites()))
			}
			if tt.wantBroker && len(broker.getMessages()) != 1 {
				t.Errorf("broker messages = %d, want 1", len(broker.getMessages()))
			}
		})
	}
}

func TestPublish_Concurrent(t *testing.T) {
	broker := &mockMQTT{}
	store := &mockStore{block: make(chan struct{})}
	d := NewDispatcher(broker, store, testOptions())

	done := make(chan [2]DeliveryResult, 1)
	go func() {
		done <- d.Publish(context.Background(), NewEvent(Presence, MsgPresence, time.Now()))
	}()

	// The broker publish must not wait for the blocked store write.
	deadline := time.After(2 * time.Second)
	for len(broker.getMessages()) == 0 {
		select {
		case <-deadline:
			t.Fatal("broker publish waited for the store")
		case <-time.After(5 * time.Millisecond):
		}
	}

	close(store.block)
	results := <-done
	if !results[Broker].OK || !results[CloudStore].OK {
		t.Errorf("results = %+v", results)
	}
}

func TestPublish_NilChannels(t *testing.T) {
	d := NewDispatcher(nil, nil, testOptions())

	results := d.Publish(context.Background(), NewEvent(Presence, MsgPresence, time.Now()))
	for _, r := range results {
		if r.OK || !errors.Is(r.Err, ErrChannelDisabled) {
			t.Errorf("%s result = %+v, want ErrChannelDisabled", r.Channel, r)
		}
	}
}

func TestPublishTelemetry(t *testing.T) {
	broker, store := &mockMQTT{}, &mockStore{}
	d := NewDispatcher(broker, store, testOptions())

	snap := sensor.Snapshot{
		HazardGas:     true,
		Temperature:   sensor.Known(21.46),
		Humidity:      sensor.Unknown(),
		PresenceLevel: sensor.Known(47),
	}
	d.PublishTelemetry(context.Background(), snap)

	msgs := broker.getMessages()
	if len(msgs) != 1 || msgs[0].topic != "door/sensors" {
		t.Fatalf("broker messages = %+v", msgs)
	}
	if msgs[0].payload != "21.5,,1,0,47" {
		t.Errorf("CSV = %q, want %q", msgs[0].payload, "21.5,,1,0,47")
	}

	writes := store.getWrites()
	if len(writes) != 1 || writes[0].path != "/sensors" {
		t.Fatalf("store writes = %+v", writes)
	}
	f := writes[0].fields
	if f["temperature"] != 21.46 || f["humidity"] != nil || f["gas"] != 1 || f["fire"] != 0 || f["distance"] != 47.0 {
		t.Errorf("fields = %v", f)
	}
}

func TestEvent(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	a := NewEvent(AccessLockout, MsgLockout, at)
	b := NewEvent(AccessLockout, MsgLockout, at)

	if a.ID == "" || a.ID == b.ID {
		t.Errorf("event IDs should be unique and non-empty: %q %q", a.ID, b.ID)
	}

	data, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if decoded["category"] != "access_lockout" || decoded["message"] != MsgLockout {
		t.Errorf("encoded event = %s", data)
	}
}

func TestCategoryAndChannelNames(t *testing.T) {
	if HazardCleared.String() != "hazard_cleared" {
		t.Errorf("HazardCleared.String() = %q", HazardCleared.String())
	}
	if Category(99).String() != "unknown" {
		t.Errorf("Category(99).String() = %q", Category(99).String())
	}
	if Broker.String() != "broker" || CloudStore.String() != "cloudstore" {
		t.Error("unexpected channel names")
	}
}
