package mqtt

import (
	"fmt"
	"strings"
)

// DefaultTopicPrefix is used when no prefix is configured.
const DefaultTopicPrefix = "entryguard"

// Topics provides builders for one deployment's MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
// Every topic lives under a single prefix so several doors can share a broker:
//
//	topics := mqtt.NewTopics("home/front-door")
//	topics.Notifications() // "home/front-door/notifications"
//	topics.FieldLED(2)     // "home/front-door/field/led/2"
type Topics struct {
	prefix string
}

// NewTopics returns a builder rooted at prefix. Trailing slashes are trimmed
// and an empty prefix falls back to DefaultTopicPrefix.
func NewTopics(prefix string) Topics {
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{prefix: prefix}
}

// Prefix returns the namespace root.
func (t Topics) Prefix() string {
	if t.prefix == "" {
		return DefaultTopicPrefix
	}
	return t.prefix
}

// Owns reports whether topic or filter lies under the prefix.
func (t Topics) Owns(topic string) bool {
	return strings.HasPrefix(topic, t.Prefix()+"/")
}

// validateTopic checks the MQTT topic rules. Names carry no wildcards;
// filters may use + as a whole level and # only as the last level.
func validateTopic(topic string, filter bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	levels := strings.Split(topic, "/")
	for i, level := range levels {
		if !strings.ContainsAny(level, "+#") {
			continue
		}
		if !filter {
			return fmt.Errorf("%w: wildcard in topic name %q", ErrInvalidTopic, topic)
		}
		if level != "+" && (level != "#" || i != len(levels)-1) {
			return fmt.Errorf("%w: misplaced wildcard in %q", ErrInvalidTopic, topic)
		}
	}
	return nil
}

// =============================================================================
// Observer Topics
// =============================================================================

// Notifications returns the topic human-readable event messages go to.
//
// Example: entryguard/notifications
func (t Topics) Notifications() string {
	return t.Prefix() + "/notifications"
}

// Sensors returns the telemetry topic carrying CSV sensor lines.
//
// Example: entryguard/sensors
func (t Topics) Sensors() string {
	return t.Prefix() + "/sensors"
}

// Status returns the retained online/offline status topic (also the LWT).
//
// Example: entryguard/status
func (t Topics) Status() string {
	return t.Prefix() + "/status"
}

// =============================================================================
// Command Topics (inbound from the observer)
// =============================================================================

// Lights returns the auxiliary indicator command topic (LED1_ON, LED2_OFF, ...).
//
// Example: entryguard/lights
func (t Topics) Lights() string {
	return t.Prefix() + "/lights"
}

// Display returns the topic for remote text shown on the door display.
//
// Example: entryguard/display
func (t Topics) Display() string {
	return t.Prefix() + "/display"
}

// =============================================================================
// Field Device Topics
// =============================================================================

// FieldSensors returns the topic the peripheral node publishes raw readings on.
//
// Example: entryguard/field/sensors
func (t Topics) FieldSensors() string {
	return t.Prefix() + "/field/sensors"
}

// FieldKeypad returns the topic the peripheral node publishes key presses on.
//
// Example: entryguard/field/keypad
func (t Topics) FieldKeypad() string {
	return t.Prefix() + "/field/keypad"
}

// FieldLock returns the lock actuator command topic.
//
// Example: entryguard/field/lock
func (t Topics) FieldLock() string {
	return t.Prefix() + "/field/lock"
}

// FieldBuzzer returns the buzzer command topic.
//
// Example: entryguard/field/buzzer
func (t Topics) FieldBuzzer() string {
	return t.Prefix() + "/field/buzzer"
}

// FieldLED returns the command topic for indicator n (1-based).
//
// Example: entryguard/field/led/1
func (t Topics) FieldLED(n int) string {
	return fmt.Sprintf("%s/field/led/%d", t.Prefix(), n)
}

// FieldDisplay returns the topic rendered display frames are sent to.
//
// Example: entryguard/field/display
func (t Topics) FieldDisplay() string {
	return t.Prefix() + "/field/display"
}

// =============================================================================
// Wildcards
// =============================================================================

// AllFieldLEDs returns a pattern matching every indicator command topic.
//
// Pattern: entryguard/field/led/+
func (t Topics) AllFieldLEDs() string {
	return t.Prefix() + "/field/led/+"
}

// All returns a pattern matching every topic of this deployment.
//
// Pattern: entryguard/#
func (t Topics) All() string {
	return t.Prefix() + "/#"
}
