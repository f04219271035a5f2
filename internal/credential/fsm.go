package credential

import (
	"crypto/subtle"
	"fmt"
	"strings"
)

// Alphabet is every key a 4x4 matrix keypad can produce.
const Alphabet = "0123456789ABCD*#"

// DefaultLockoutThreshold is the number of consecutive wrong entries that
// raise a lockout.
const DefaultLockoutThreshold = 3

// Key is one keypad press.
type Key byte

// Valid reports whether k is on the keypad.
func (k Key) Valid() bool {
	return strings.IndexByte(Alphabet, byte(k)) >= 0
}

// Outcome is the result of pushing one key.
type Outcome int

const (
	// Pending means the buffer is not full yet (or the key was ignored).
	Pending Outcome = iota
	// Accepted means the buffer matched the credential.
	Accepted
	// Rejected means the buffer was full and did not match.
	Rejected
)

// String returns the outcome name used in logs and metrics.
func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case Rejected:
		return "rejected"
	default:
		return "pending"
	}
}

// Result describes what one key press did.
type Result struct {
	Outcome Outcome

	// Lockout is set on the rejection that reached the threshold. The
	// failure counter has already been reset when it is reported.
	Lockout bool

	// FailedAttempts is the counter after this key.
	FailedAttempts int
}

// FSM accumulates keys and validates them against one secret.
//
// Validation happens the moment the buffer reaches the secret's length, so
// the buffer can never hold more keys than the secret. The buffer is
// cleared on every validation whatever the outcome.
//
// Thread Safety: an FSM belongs to the control loop and is not safe for
// concurrent use.
type FSM struct {
	secret    []byte
	threshold int

	buffer []byte
	failed int
}

// New creates an FSM for secret. A threshold below 1 uses DefaultLockoutThreshold.
//
// Returns:
//   - error: ErrEmptySecret or ErrInvalidSecret
func New(secret string, threshold int) (*FSM, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	for i := 0; i < len(secret); i++ {
		if !Key(secret[i]).Valid() {
			return nil, fmt.Errorf("%w: position %d", ErrInvalidSecret, i)
		}
	}
	if threshold < 1 {
		threshold = DefaultLockoutThreshold
	}
	return &FSM{
		secret:    []byte(secret),
		threshold: threshold,
		buffer:    make([]byte, 0, len(secret)),
	}, nil
}

// Push appends k and validates when the buffer is full.
//
// Keys that are not on the keypad are dropped and reported as Pending.
func (f *FSM) Push(k Key) Result {
	if !k.Valid() {
		return Result{Outcome: Pending, FailedAttempts: f.failed}
	}

	f.buffer = append(f.buffer, byte(k))
	if len(f.buffer) < len(f.secret) {
		return Result{Outcome: Pending, FailedAttempts: f.failed}
	}

	match := subtle.ConstantTimeCompare(f.buffer, f.secret) == 1
	f.clearBuffer()

	if match {
		f.failed = 0
		return Result{Outcome: Accepted}
	}

	f.failed++
	if f.failed >= f.threshold {
		f.failed = 0
		return Result{Outcome: Rejected, Lockout: true}
	}
	return Result{Outcome: Rejected, FailedAttempts: f.failed}
}

// Clear discards the buffer without counting a failure. Used when the
// visitor walks away or an emergency starts.
func (f *FSM) Clear() {
	f.clearBuffer()
}

// Reset discards the buffer and the failure counter. Used when the door opens.
func (f *FSM) Reset() {
	f.clearBuffer()
	f.failed = 0
}

// Len returns how many keys are buffered.
func (f *FSM) Len() int {
	return len(f.buffer)
}

// SecretLen returns the credential length.
func (f *FSM) SecretLen() int {
	return len(f.secret)
}

// FailedAttempts returns the consecutive failure count.
func (f *FSM) FailedAttempts() int {
	return f.failed
}

// Masked returns one '*' per buffered key, for display.
func (f *FSM) Masked() string {
	return strings.Repeat("*", len(f.buffer))
}

func (f *FSM) clearBuffer() {
	for i := range f.buffer {
		f.buffer[i] = 0
	}
	f.buffer = f.buffer[:0]
}
