package actuator

import (
	"fmt"
	"sync"
)

// Indicators is the number of status LEDs on the door unit.
const Indicators = 3

// Hardware is the low-level actuator surface.
//
// Implementations send one command per call and report transport failures.
// They do not need to suppress duplicates; Driver does that.
type Hardware interface {
	// SetLock drives the lock servo to angle. open is the logical state.
	SetLock(open bool, angle int) error

	// SetBuzzer switches the buzzer.
	SetBuzzer(on bool) error

	// SetIndicator switches indicator n (1-based).
	SetIndicator(n int, on bool) error
}

// Logger defines the logging interface used by the Driver.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// State is the last commanded value of every actuator.
type State struct {
	LockOpen   bool             `json:"lock_open"`
	Buzzer     bool             `json:"buzzer"`
	Indicators [Indicators]bool `json:"indicators"`
}

// Driver issues actuator commands idempotently.
//
// It remembers only the last value it successfully commanded for each
// actuator and skips a command that would not change it. On a hardware error
// the cache is left untouched so the next call retries. The first call for
// every actuator is always sent, since the physical state at startup is
// unknown.
//
// Thread Safety: all methods are safe for concurrent use.
type Driver struct {
	hw          Hardware
	logger      Logger
	openAngle   int
	closedAngle int

	mu     sync.Mutex
	state  State
	known  knownState
	issued uint64
}

type knownState struct {
	lock       bool
	buzzer     bool
	indicators [Indicators]bool
}

// NewDriver creates a driver for hw. Angles are the servo positions for the
// open and closed lock.
func NewDriver(hw Hardware, openAngle, closedAngle int, logger Logger) *Driver {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Driver{
		hw:          hw,
		logger:      logger,
		openAngle:   openAngle,
		closedAngle: closedAngle,
	}
}

// SetLock opens or closes the lock.
func (d *Driver) SetLock(open bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.known.lock && d.state.LockOpen == open {
		return
	}
	angle := d.closedAngle
	if open {
		angle = d.openAngle
	}
	if err := d.hw.SetLock(open, angle); err != nil {
		d.logger.Warn("lock command failed", "open", open, "angle", angle, "error", err)
		return
	}
	d.state.LockOpen = open
	d.known.lock = true
	d.issued++
	d.logger.Debug("lock commanded", "open", open, "angle", angle)
}

// SetBuzzer switches the buzzer.
func (d *Driver) SetBuzzer(on bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.known.buzzer && d.state.Buzzer == on {
		return
	}
	if err := d.hw.SetBuzzer(on); err != nil {
		d.logger.Warn("buzzer command failed", "on", on, "error", err)
		return
	}
	d.state.Buzzer = on
	d.known.buzzer = true
	d.issued++
}

// SetIndicator switches indicator n (1-based). Out-of-range n is ignored.
func (d *Driver) SetIndicator(n int, on bool) {
	if n < 1 || n > Indicators {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.setIndicatorLocked(n, on)
}

// SetIndicators switches every indicator to the same value.
func (d *Driver) SetIndicators(on bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for n := 1; n <= Indicators; n++ {
		d.setIndicatorLocked(n, on)
	}
}

func (d *Driver) setIndicatorLocked(n int, on bool) {
	i := n - 1
	if d.known.indicators[i] && d.state.Indicators[i] == on {
		return
	}
	if err := d.hw.SetIndicator(n, on); err != nil {
		d.logger.Warn("indicator command failed", "indicator", n, "on", on, "error", err)
		return
	}
	d.state.Indicators[i] = on
	d.known.indicators[i] = true
	d.issued++
}

// State returns the last commanded state.
func (d *Driver) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Issued returns how many commands have reached the hardware.
func (d *Driver) Issued() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.issued
}

// String is for logs.
func (s State) String() string {
	return fmt.Sprintf("lock_open=%v buzzer=%v indicators=%v", s.LockOpen, s.Buzzer, s.Indicators)
}
