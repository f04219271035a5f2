package controller

// Mode is the top-level state of the door unit.
type Mode int

const (
	// Idle waits for a visitor and shows routine sensor text.
	Idle Mode = iota

	// Greeting runs the greeting script after a visitor is detected.
	Greeting

	// AwaitingCredential accepts keypad input.
	AwaitingCredential

	// Emergency is held while any hazard input is active.
	Emergency
)

// String returns the mode name used in logs, metrics and the API.
func (m Mode) String() string {
	switch m {
	case Idle:
		return "idle"
	case Greeting:
		return "greeting"
	case AwaitingCredential:
		return "awaiting_credential"
	case Emergency:
		return "emergency"
	default:
		return "unknown"
	}
}

// MarshalText encodes the mode as its name.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}
