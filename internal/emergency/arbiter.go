package emergency

import (
	"time"

	"github.com/nerrad567/entryguard/internal/notify"
	"github.com/nerrad567/entryguard/internal/sensor"
)

// Cause is what keeps an emergency active.
type Cause int

const (
	None Cause = iota
	Fire
	Gas
	Both
)

// String returns the cause name.
func (c Cause) String() string {
	switch c {
	case Fire:
		return "fire"
	case Gas:
		return "gas"
	case Both:
		return "fire_and_gas"
	default:
		return "none"
	}
}

// MarshalText encodes the cause as its name.
func (c Cause) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Message is the alert text for the cause.
func (c Cause) Message() string {
	switch c {
	case Fire:
		return notify.MsgFire
	case Gas:
		return notify.MsgGas
	case Both:
		return notify.MsgFireAndGas
	default:
		return ""
	}
}

func (c Cause) hasGas() bool {
	return c == Gas || c == Both
}

// CauseOf derives the cause from the hazard flags.
func CauseOf(fire, gas bool) Cause {
	switch {
	case fire && gas:
		return Both
	case fire:
		return Fire
	case gas:
		return Gas
	default:
		return None
	}
}

// State is the emergency status carried between cycles.
type State struct {
	Active bool  `json:"active"`
	Cause  Cause `json:"cause"`
}

// Decision is the outcome of one evaluation.
type Decision struct {
	State State

	// Events holds at most one event: HazardRaised on activation or
	// HazardCleared on deactivation.
	Events []notify.Event

	// ForceUnlock is set on every rising edge of gas: on activation with gas
	// present, or when gas joins an emergency that was fire-only.
	ForceUnlock bool

	// Raised and Cleared mark the two edges.
	Raised  bool
	Cleared bool
}

// Evaluate computes the next emergency state from the previous one and the
// current snapshot. It has no side effects.
//
// While active, the cause follows the current flags and no event is repeated.
// Gas that appears during a fire-only emergency forces an unlock; gas that
// stays present does not force another.
func Evaluate(prev State, snap sensor.Snapshot, now time.Time) Decision {
	cause := CauseOf(snap.HazardFire, snap.HazardGas)

	switch {
	case !prev.Active && cause != None:
		return Decision{
			State:       State{Active: true, Cause: cause},
			Events:      []notify.Event{notify.NewEvent(notify.HazardRaised, cause.Message(), now)},
			ForceUnlock: snap.HazardGas,
			Raised:      true,
		}

	case prev.Active && cause == None:
		return Decision{
			State:   State{},
			Events:  []notify.Event{notify.NewEvent(notify.HazardCleared, notify.MsgHazardCleared, now)},
			Cleared: true,
		}

	case prev.Active:
		return Decision{
			State:       State{Active: true, Cause: cause},
			ForceUnlock: snap.HazardGas && !prev.Cause.hasGas(),
		}

	default:
		return Decision{State: State{}}
	}
}
