package controller

import "time"

// GreetingScript describes the flash and tone pattern played for a visitor.
//
// The script is a pure function of elapsed time: flashes first, then beeps,
// then the greeting text is held. Each flash and beep is on for the first
// half of its period.
type GreetingScript struct {
	Flashes     int
	FlashPeriod time.Duration
	Beeps       int
	BeepPeriod  time.Duration
	Hold        time.Duration
}

func (g GreetingScript) flashTotal() time.Duration {
	return time.Duration(max(g.Flashes, 0)) * g.FlashPeriod
}

func (g GreetingScript) beepTotal() time.Duration {
	return time.Duration(max(g.Beeps, 0)) * g.BeepPeriod
}

// Duration is the full length of the script.
func (g GreetingScript) Duration() time.Duration {
	return g.flashTotal() + g.beepTotal() + g.Hold
}

// scriptOutput is what the greeting drives at one instant.
type scriptOutput struct {
	flashing   bool // still in the flash phase
	indicators bool
	buzzer     bool
	done       bool
}

func (g GreetingScript) at(elapsed time.Duration) scriptOutput {
	flash, beep := g.flashTotal(), g.beepTotal()

	switch {
	case elapsed < 0:
		return scriptOutput{}
	case elapsed < flash:
		return scriptOutput{flashing: true, indicators: elapsed%g.FlashPeriod < g.FlashPeriod/2}
	case elapsed < flash+beep:
		return scriptOutput{buzzer: (elapsed-flash)%g.BeepPeriod < g.BeepPeriod/2}
	default:
		return scriptOutput{done: elapsed >= g.Duration()}
	}
}

// greeting is the running instance of the script.
type greeting struct {
	active  bool
	started time.Time
	// flashing is true until the cycle that leaves the flash phase, so the
	// indicators are switched off exactly once afterwards.
	flashing bool
}

func (g *greeting) start(now time.Time) {
	*g = greeting{active: true, started: now, flashing: true}
}

func (g *greeting) stop() {
	*g = greeting{}
}

// doorPhase is the stage of the door sequence.
type doorPhase int

const (
	doorIdle doorPhase = iota
	doorOpen
	doorClosing // lock closed, "Door Closed." still shown
)

// door is the open, dwell, close sequence. Once open it always proceeds to
// closed, whatever the mode does in the meantime.
type door struct {
	phase  doorPhase
	until  time.Time
	forced bool
}

// open starts or restarts the dwell.
func (d *door) open(now time.Time, dwell time.Duration, forced bool) {
	d.phase = doorOpen
	d.until = now.Add(dwell)
	d.forced = d.forced || forced
}

// advance moves the sequence on and reports whether the lock closed on
// this call.
func (d *door) advance(now time.Time, closedFor time.Duration) (closed bool) {
	switch d.phase {
	case doorOpen:
		if now.Before(d.until) {
			return false
		}
		d.phase = doorClosing
		d.until = now.Add(closedFor)
		return true
	case doorClosing:
		if !now.Before(d.until) {
			*d = door{}
		}
	}
	return false
}

func (d *door) isOpen() bool {
	return d.phase == doorOpen
}

// overlay is a transient frame shown until a deadline.
type overlay struct {
	frame Frame
	until time.Time
}

func (o *overlay) show(frame Frame, now time.Time, d time.Duration) {
	o.frame, o.until = frame, now.Add(d)
}

func (o *overlay) clear() {
	*o = overlay{}
}

func (o *overlay) active(now time.Time) bool {
	return now.Before(o.until)
}
