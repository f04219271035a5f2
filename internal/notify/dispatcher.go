package notify

import (
	"context"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/entryguard/internal/sensor"
)

// Channel identifies a delivery channel.
type Channel int

const (
	// Broker is the MQTT notification topic.
	Broker Channel = iota
	// CloudStore is the remote document store.
	CloudStore
)

// String returns the channel name used in logs and metric labels.
func (c Channel) String() string {
	if c == CloudStore {
		return "cloudstore"
	}
	return "broker"
}

// DeliveryResult is the outcome of one channel for one event.
type DeliveryResult struct {
	Channel Channel
	OK      bool
	Err     error
}

// MQTTClient is the interface for publishing to the broker.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// DocumentStore is the interface for writing to the cloud store.
type DocumentStore interface {
	Set(ctx context.Context, path string, value any) error
	Update(ctx context.Context, path string, fields map[string]any) error
}

// Options names where notifications and telemetry go.
type Options struct {
	NotificationTopic string
	SensorTopic       string
	QoS               byte

	NotificationPath string
	SensorPath       string
}

// Dispatcher delivers events to both channels independently.
//
// There is no retry and no queue: each call attempts each channel once,
// concurrently, and reports both outcomes. A nil channel is reported as
// failed with ErrChannelDisabled.
//
// Thread Safety: all methods are safe for concurrent use.
type Dispatcher struct {
	broker MQTTClient
	store  DocumentStore
	opts   Options
}

// NewDispatcher creates a dispatcher. Either channel may be nil.
func NewDispatcher(broker MQTTClient, store DocumentStore, opts Options) *Dispatcher {
	return &Dispatcher{broker: broker, store: store, opts: opts}
}

// Publish sends ev's message to the notification topic and the notification
// document. The returned array is indexed by Channel.
func (d *Dispatcher) Publish(ctx context.Context, ev Event) [2]DeliveryResult {
	return d.fanOut(
		func() error {
			if d.broker == nil {
				return ErrChannelDisabled
			}
			return d.broker.Publish(d.opts.NotificationTopic, []byte(ev.Message), d.opts.QoS, false)
		},
		func() error {
			if d.store == nil {
				return ErrChannelDisabled
			}
			return d.store.Set(ctx, d.opts.NotificationPath, ev.Message)
		},
	)
}

// PublishTelemetry sends one sensor line to the broker and one key per field
// to the store. Unknown readings are empty CSV fields and null keys.
func (d *Dispatcher) PublishTelemetry(ctx context.Context, snap sensor.Snapshot) [2]DeliveryResult {
	return d.fanOut(
		func() error {
			if d.broker == nil {
				return ErrChannelDisabled
			}
			return d.broker.Publish(d.opts.SensorTopic, []byte(TelemetryCSV(snap)), d.opts.QoS, false)
		},
		func() error {
			if d.store == nil {
				return ErrChannelDisabled
			}
			return d.store.Update(ctx, d.opts.SensorPath, TelemetryFields(snap))
		},
	)
}

func (d *Dispatcher) fanOut(broker, store func() error) [2]DeliveryResult {
	var (
		results [2]DeliveryResult
		g       errgroup.Group
	)
	// Each result is recorded per channel; the group error stays nil so one
	// failing channel never masks the other.
	run := func(ch Channel, send func() error) func() error {
		return func() error {
			err := send()
			results[ch] = DeliveryResult{Channel: ch, OK: err == nil, Err: err}
			return nil
		}
	}

	g.Go(run(Broker, broker))
	g.Go(run(CloudStore, store))
	_ = g.Wait()

	return results
}

// TelemetryCSV renders "temperature,humidity,gas,fire,presence_level".
func TelemetryCSV(snap sensor.Snapshot) string {
	fields := []string{
		csvReading(snap.Temperature, 1),
		csvReading(snap.Humidity, 1),
		flag(snap.HazardGas),
		flag(snap.HazardFire),
		csvReading(snap.PresenceLevel, -1),
	}
	return strings.Join(fields, ",")
}

// TelemetryFields returns the per-key values written under the sensor path.
func TelemetryFields(snap sensor.Snapshot) map[string]any {
	return map[string]any{
		"temperature": snap.Temperature.JSON(),
		"humidity":    snap.Humidity.JSON(),
		"gas":         boolInt(snap.HazardGas),
		"fire":        boolInt(snap.HazardFire),
		"distance":    snap.PresenceLevel.JSON(),
	}
}

func csvReading(r sensor.Reading, prec int) string {
	if !r.Valid {
		return ""
	}
	return strconv.FormatFloat(r.Value, 'f', prec, 64)
}

func flag(b bool) string {
	return strconv.Itoa(boolInt(b))
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
