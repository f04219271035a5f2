package fielddevice

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/entryguard/internal/controller"
	"github.com/nerrad567/entryguard/internal/credential"
	"github.com/nerrad567/entryguard/internal/infrastructure/mqtt"
	"github.com/nerrad567/entryguard/internal/sensor"
)

// maxPendingKeys bounds key presses waiting for the control loop.
const maxPendingKeys = 64

// Reading names, used as cache keys and in errors.
const (
	readingPresence    = "presence"
	readingFire        = "fire"
	readingGas         = "gas"
	readingTemperature = "temperature"
	readingHumidity    = "humidity"
)

// MQTTClient is the interface for MQTT operations.
// Satisfied by *mqtt.Client; mocked in tests.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// CommandSink accepts auxiliary indicator commands. Satisfied by
// *actuator.CommandQueue.
type CommandSink interface {
	Submit(payload string) bool
}

// TextSink accepts remote display text. Satisfied by *controller.MessageBox.
type TextSink interface {
	Post(text string)
}

// Logger defines the logging interface used by the bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// BridgeOptions holds configuration for creating a bridge.
type BridgeOptions struct {
	// MQTTClient is the broker connection. Required.
	MQTTClient MQTTClient

	// Topics names the deployment's topics.
	Topics mqtt.Topics

	// QoS is used for subscriptions and actuator commands.
	QoS byte

	// StaleAfter turns readings older than this into failed reads.
	// Zero disables the check.
	StaleAfter time.Duration

	// Commands receives payloads from the lights topic. Optional.
	Commands CommandSink

	// Messages receives payloads from the display topic. Optional.
	Messages TextSink

	// Logger is optional structured logger.
	Logger Logger

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// sample is the cached state of one reading.
type sample struct {
	value float64
	flag  bool
	ok    bool // false when the node reported null
	at    time.Time
}

// Bridge connects the controller to the peripheral node over MQTT.
//
// Inbound readings and key presses are cached behind a mutex and picked up
// by the control loop through the sensor.Source and Keypad methods.
// Outbound actuator and display commands are published as retained
// messages so a node that reconnects picks up the current state.
//
// Thread Safety: all methods are safe for concurrent use.
type Bridge struct {
	mqtt       MQTTClient
	topics     mqtt.Topics
	qos        byte
	staleAfter time.Duration
	commands   CommandSink
	messages   TextSink
	logger     Logger
	now        func() time.Time

	mu       sync.RWMutex
	readings map[string]sample
	lastSeen time.Time

	keysMu sync.Mutex
	keys   []credential.Key

	subscribed []string
}

// NewBridge creates a bridge. Call Start to subscribe.
func NewBridge(opts BridgeOptions) (*Bridge, error) {
	if opts.MQTTClient == nil {
		return nil, ErrMQTTRequired
	}
	b := &Bridge{
		mqtt:       opts.MQTTClient,
		topics:     opts.Topics,
		qos:        opts.QoS,
		staleAfter: opts.StaleAfter,
		commands:   opts.Commands,
		messages:   opts.Messages,
		logger:     opts.Logger,
		now:        opts.Now,
		readings:   make(map[string]sample),
	}
	if b.logger == nil {
		b.logger = noopLogger{}
	}
	if b.now == nil {
		b.now = time.Now
	}
	return b, nil
}

// Start subscribes to the field device topics and the observer command topics.
func (b *Bridge) Start(_ context.Context) error {
	subs := []struct {
		topic   string
		handler mqtt.MessageHandler
	}{
		{b.topics.FieldSensors(), b.handleSensors},
		{b.topics.FieldKeypad(), b.handleKeypad},
		{b.topics.Lights(), b.handleLights},
		{b.topics.Display(), b.handleDisplay},
	}
	for _, s := range subs {
		if err := b.mqtt.Subscribe(s.topic, b.qos, s.handler); err != nil {
			return fmt.Errorf("subscribe to %s: %w", s.topic, err)
		}
		b.subscribed = append(b.subscribed, s.topic)
		b.logger.Info("subscribed", "topic", s.topic)
	}
	return nil
}

// Stop removes the subscriptions made by Start.
func (b *Bridge) Stop() {
	for _, topic := range b.subscribed {
		if err := b.mqtt.Unsubscribe(topic); err != nil {
			b.logger.Warn("unsubscribe failed", "topic", topic, "error", err)
		}
	}
	b.subscribed = nil
}

// LastSeen returns when the node last published readings. Zero if never.
func (b *Bridge) LastSeen() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastSeen
}

// =============================================================================
// Inbound
// =============================================================================

func (b *Bridge) handleSensors(_ string, payload []byte) error {
	var msg SensorMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("parsing sensor message: %w", err)
	}
	now := b.now()

	updates := make(map[string]sample, 5)
	numbers := map[string]*json.RawMessage{
		readingPresence:    msg.Presence,
		readingTemperature: msg.Temperature,
		readingHumidity:    msg.Humidity,
	}
	for name, raw := range numbers {
		if raw == nil {
			continue
		}
		v, ok, err := decodeFloat(*raw)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		updates[name] = sample{value: v, ok: ok, at: now}
	}
	flags := map[string]*json.RawMessage{
		readingFire: msg.Fire,
		readingGas:  msg.Gas,
	}
	for name, raw := range flags {
		if raw == nil {
			continue
		}
		v, ok, err := decodeFlag(*raw)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		updates[name] = sample{flag: v, ok: ok, at: now}
	}

	b.mu.Lock()
	for name, s := range updates {
		b.readings[name] = s
	}
	b.lastSeen = now
	b.mu.Unlock()
	return nil
}

func (b *Bridge) handleKeypad(_ string, payload []byte) error {
	b.keysMu.Lock()
	defer b.keysMu.Unlock()

	dropped := 0
	for _, c := range payload {
		k := credential.Key(c)
		if !k.Valid() {
			continue
		}
		if len(b.keys) >= maxPendingKeys {
			dropped++
			continue
		}
		b.keys = append(b.keys, k)
	}
	if dropped > 0 {
		b.logger.Warn("keypad buffer full, keys dropped", "dropped", dropped)
	}
	return nil
}

func (b *Bridge) handleLights(_ string, payload []byte) error {
	if b.commands == nil {
		return nil
	}
	if !b.commands.Submit(string(payload)) {
		b.logger.Debug("ignoring unknown indicator command", "payload", string(payload))
	}
	return nil
}

func (b *Bridge) handleDisplay(_ string, payload []byte) error {
	if b.messages == nil {
		return nil
	}
	text := strings.TrimSpace(string(payload))
	if text == "" {
		return nil
	}
	b.messages.Post(text)
	return nil
}

// =============================================================================
// sensor.Source
// =============================================================================

func (b *Bridge) read(name string) (sample, error) {
	b.mu.RLock()
	s, seen := b.readings[name]
	b.mu.RUnlock()

	switch {
	case !seen:
		return sample{}, fmt.Errorf("%w: %s", sensor.ErrNoReading, name)
	case b.staleAfter > 0 && b.now().Sub(s.at) > b.staleAfter:
		return sample{}, fmt.Errorf("%w: %s", ErrStaleReading, name)
	case !s.ok:
		return sample{}, fmt.Errorf("%w: %s", ErrSensorFault, name)
	}
	return s, nil
}

// PresenceLevel returns the raw presence level.
func (b *Bridge) PresenceLevel() (float64, error) {
	s, err := b.read(readingPresence)
	return s.value, err
}

// Fire returns the fire sensor flag.
func (b *Bridge) Fire() (bool, error) {
	s, err := b.read(readingFire)
	return s.flag, err
}

// Gas returns the gas sensor flag.
func (b *Bridge) Gas() (bool, error) {
	s, err := b.read(readingGas)
	return s.flag, err
}

// Temperature returns the temperature in °C.
func (b *Bridge) Temperature() (float64, error) {
	s, err := b.read(readingTemperature)
	return s.value, err
}

// Humidity returns the relative humidity in %.
func (b *Bridge) Humidity() (float64, error) {
	s, err := b.read(readingHumidity)
	return s.value, err
}

// DrainKeys returns and clears the pending key presses.
func (b *Bridge) DrainKeys() []credential.Key {
	b.keysMu.Lock()
	defer b.keysMu.Unlock()
	keys := b.keys
	b.keys = nil
	return keys
}

// =============================================================================
// actuator.Hardware and controller.Display
// =============================================================================

func (b *Bridge) publish(topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", topic, err)
	}
	if err := b.mqtt.Publish(topic, payload, b.qos, true); err != nil {
		return fmt.Errorf("publishing %s: %w", topic, err)
	}
	return nil
}

// SetLock commands the lock servo.
func (b *Bridge) SetLock(open bool, angle int) error {
	return b.publish(b.topics.FieldLock(), LockMessage{Open: open, Angle: angle})
}

// SetBuzzer switches the buzzer.
func (b *Bridge) SetBuzzer(on bool) error {
	return b.publish(b.topics.FieldBuzzer(), SwitchMessage{On: on})
}

// SetIndicator switches indicator n.
func (b *Bridge) SetIndicator(n int, on bool) error {
	return b.publish(b.topics.FieldLED(n), SwitchMessage{On: on})
}

// Render sends a display frame.
func (b *Bridge) Render(frame controller.Frame) error {
	return b.publish(b.topics.FieldDisplay(), DisplayMessage{Lines: frame.Lines})
}
