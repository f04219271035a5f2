package fielddevice

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MQTT message types exchanged with the peripheral node.

// SensorMessage is published by the node with its latest raw readings.
// Topic: {prefix}/field/sensors
//
// Any field may be missing (no news, previous value still ages) or null
// (the node failed to read that sensor).
type SensorMessage struct {
	// Presence is the raw presence level (e.g. reflectance or distance).
	Presence *json.RawMessage `json:"presence"`

	// Fire and Gas accept true/false or 1/0.
	Fire *json.RawMessage `json:"fire"`
	Gas  *json.RawMessage `json:"gas"`

	// Temperature in °C and relative Humidity in %.
	Temperature *json.RawMessage `json:"temperature"`
	Humidity    *json.RawMessage `json:"humidity"`
}

// LockMessage commands the lock servo.
// Topic: {prefix}/field/lock
type LockMessage struct {
	Open  bool `json:"open"`
	Angle int  `json:"angle"`
}

// SwitchMessage commands an on/off output (buzzer or indicator).
// Topic: {prefix}/field/buzzer, {prefix}/field/led/{n}
type SwitchMessage struct {
	On bool `json:"on"`
}

// DisplayMessage carries one full display frame.
// Topic: {prefix}/field/display
type DisplayMessage struct {
	Lines [2]string `json:"lines"`
}

var jsonNull = []byte("null")

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), jsonNull)
}

// decodeFloat parses a number. ok is false for null.
func decodeFloat(raw json.RawMessage) (v float64, ok bool, err error) {
	if isNull(raw) {
		return 0, false, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, false, fmt.Errorf("decoding number: %w", err)
	}
	return v, true, nil
}

// decodeFlag parses true/false or 0/1. ok is false for null.
func decodeFlag(raw json.RawMessage) (v bool, ok bool, err error) {
	if isNull(raw) {
		return false, false, nil
	}
	if err := json.Unmarshal(raw, &v); err == nil {
		return v, true, nil
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		return false, false, fmt.Errorf("decoding flag: %w", err)
	}
	switch n {
	case 0:
		return false, true, nil
	case 1:
		return true, true, nil
	default:
		return false, false, fmt.Errorf("decoding flag: %v is not 0 or 1", n)
	}
}
