package mqtt

import "errors"

// Sentinel errors for broker operations. Callers check them with errors.Is;
// timeouts wrap both the operation error and ErrTimeout.
var (
	// ErrNotConnected means the broker session is down or was closed.
	// The notification dispatcher reports it as a failed broker delivery.
	ErrNotConnected = errors.New("mqtt: broker not connected")

	// ErrConnectionFailed means no startup connection attempt succeeded.
	ErrConnectionFailed = errors.New("mqtt: could not reach broker")

	// ErrPublishFailed means the broker did not acknowledge a publish.
	ErrPublishFailed = errors.New("mqtt: publish not acknowledged")

	// ErrSubscribeFailed means the broker refused or did not answer a
	// subscribe or unsubscribe.
	ErrSubscribeFailed = errors.New("mqtt: subscription not acknowledged")

	// ErrTimeout means the broker did not answer within the operation timeout.
	ErrTimeout = errors.New("mqtt: broker did not answer in time")

	// ErrInvalidQoS rejects a QoS other than 0, 1 or 2.
	ErrInvalidQoS = errors.New("mqtt: qos must be 0, 1 or 2")

	// ErrInvalidTopic rejects an empty topic, a wildcard in a topic name or a
	// wildcard that does not fill a whole level.
	ErrInvalidTopic = errors.New("mqtt: malformed topic")

	// ErrForeignTopic rejects a topic outside this door's prefix.
	ErrForeignTopic = errors.New("mqtt: topic outside deployment prefix")

	// ErrPayloadTooLarge rejects payloads over maxPayloadSize.
	ErrPayloadTooLarge = errors.New("mqtt: payload too large")
)
