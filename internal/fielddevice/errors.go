package fielddevice

import "errors"

// Domain errors for the field device bridge.
var (
	// ErrStaleReading is returned when the last reading is older than the
	// configured staleness limit.
	ErrStaleReading = errors.New("fielddevice: reading is stale")

	// ErrSensorFault is returned when the node reported null for a sensor.
	ErrSensorFault = errors.New("fielddevice: sensor reported a fault")

	// ErrMQTTRequired is returned by NewBridge without an MQTT client.
	ErrMQTTRequired = errors.New("fielddevice: MQTT client is required")
)
