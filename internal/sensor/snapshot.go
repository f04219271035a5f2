package sensor

import (
	"math"
	"strconv"
)

// Reading is a numeric sensor value that may be unknown.
//
// A failed or NaN read is reported as Valid=false. A zero Reading is unknown,
// never a real zero.
type Reading struct {
	Value float64
	Valid bool
}

// Known returns a valid Reading, or an unknown one if v is NaN or infinite.
func Known(v float64) Reading {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Reading{}
	}
	return Reading{Value: v, Valid: true}
}

// Unknown returns an invalid Reading.
func Unknown() Reading {
	return Reading{}
}

// Format renders the value with one decimal, or "--" when unknown.
func (r Reading) Format() string {
	if !r.Valid {
		return "--"
	}
	return strconv.FormatFloat(r.Value, 'f', 1, 64)
}

// JSON returns the value for JSON encoding: a float64, or nil when unknown.
func (r Reading) JSON() any {
	if !r.Valid {
		return nil
	}
	return r.Value
}

// Snapshot is one cycle's debounced view of every input.
//
// Snapshots are values; the sampler hands out a fresh one every cycle.
type Snapshot struct {
	Presence   bool `json:"presence"`
	HazardFire bool `json:"hazard_fire"`
	HazardGas  bool `json:"hazard_gas"`

	Temperature   Reading `json:"-"`
	Humidity      Reading `json:"-"`
	PresenceLevel Reading `json:"-"`
}

// Hazard reports whether either hazard input is active.
func (s Snapshot) Hazard() bool {
	return s.HazardFire || s.HazardGas
}
