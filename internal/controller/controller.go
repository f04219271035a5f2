package controller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/entryguard/internal/actuator"
	"github.com/nerrad567/entryguard/internal/credential"
	"github.com/nerrad567/entryguard/internal/emergency"
	"github.com/nerrad567/entryguard/internal/notify"
	"github.com/nerrad567/entryguard/internal/sensor"
)

// eventQueueSize bounds the events waiting for the delivery goroutine.
// Telemetry has its own single slot and never takes one of these.
const eventQueueSize = 64

// shutdownFlushTimeout bounds delivery of the events still queued at shutdown.
const shutdownFlushTimeout = 3 * time.Second

// Observer broadcast channels.
const (
	ChannelEvents = "events"
	ChannelMode   = "mode"
)

// Sampler produces one snapshot per cycle.
type Sampler interface {
	Sample() sensor.Snapshot
}

// Actuators is the idempotent actuator surface. Satisfied by *actuator.Driver.
type Actuators interface {
	SetLock(open bool)
	SetBuzzer(on bool)
	SetIndicator(n int, on bool)
	SetIndicators(on bool)
	State() actuator.State
}

// Display renders a frame on the two-line display.
type Display interface {
	Render(frame Frame) error
}

// Keypad hands over the keys pressed since the last call.
type Keypad interface {
	DrainKeys() []credential.Key
}

// CommandSource hands over queued auxiliary indicator commands.
// Satisfied by *actuator.CommandQueue.
type CommandSource interface {
	Drain() []actuator.Command
}

// MessageSource hands over remote display text. Satisfied by *MessageBox.
type MessageSource interface {
	Take() (string, bool)
}

// Notifier delivers events and telemetry. Satisfied by *notify.Dispatcher.
type Notifier interface {
	Publish(ctx context.Context, ev notify.Event) [2]notify.DeliveryResult
	PublishTelemetry(ctx context.Context, snap sensor.Snapshot) [2]notify.DeliveryResult
}

// Observer receives live updates for connected clients. Broadcast must not block.
type Observer interface {
	Broadcast(channel string, payload any)
}

// Metrics records controller activity.
type Metrics interface {
	ObserveCycle(mode string, emergency bool, duration time.Duration)
	CountCredential(outcome string, lockout bool)
	CountDelivery(channel, category string, ok bool)
}

// Logger defines the logging interface used by the controller.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

type noopObserver struct{}

func (noopObserver) Broadcast(string, any) {}

type noopMetrics struct{}

func (noopMetrics) ObserveCycle(string, bool, time.Duration) {}
func (noopMetrics) CountCredential(string, bool)             {}
func (noopMetrics) CountDelivery(string, string, bool)       {}

// Deps are the controller's collaborators. Sampler, Actuators, Display,
// Credential and Notifier are required; the rest may be nil.
type Deps struct {
	Sampler    Sampler
	Actuators  Actuators
	Display    Display
	Credential *credential.FSM
	Notifier   Notifier

	Keypad   Keypad
	Commands CommandSource
	Messages MessageSource
	Observer Observer
	Metrics  Metrics
	Logger   Logger
}

// CycleReport describes what one Step did.
type CycleReport struct {
	Previous  Mode
	Mode      Mode
	Snapshot  sensor.Snapshot
	Emergency emergency.State
	Events    []notify.Event
	DoorOpen  bool
	Rendered  bool
	Frame     Frame
}

// Controller is the coordination state machine of the door unit.
//
// All state is owned by the goroutine calling Step or Run. Inputs that
// arrive from other goroutines come in through the Keypad, CommandSource and
// MessageSource mailboxes. Notifications are handed to a delivery goroutine
// so a slow channel never delays a cycle.
//
// Thread Safety: Step and Run must not be called concurrently. Status is
// safe for concurrent use.
type Controller struct {
	sampler  Sampler
	act      Actuators
	display  Display
	fsm      *credential.FSM
	notifier Notifier
	keypad   Keypad
	commands CommandSource
	messages MessageSource
	observer Observer
	metrics  Metrics
	logger   Logger
	settings Settings

	mode         Mode
	em           emergency.State
	lastPresence bool
	greeting     greeting
	door         door
	alarmUntil   time.Time
	overlay      overlay
	lastFrame    Frame
	rendered     bool
	nextTelem    time.Time
	cycles       uint64

	events    chan notify.Event
	telemetry chan sensor.Snapshot // holds only the latest snapshot

	statusMu sync.RWMutex
	status   Status
}

// New creates a controller in Idle.
//
// Returns:
//   - error: ErrMissingDependency or ErrInvalidSettings
func New(deps Deps, settings Settings) (*Controller, error) {
	switch {
	case deps.Sampler == nil:
		return nil, fmt.Errorf("%w: sampler", ErrMissingDependency)
	case deps.Actuators == nil:
		return nil, fmt.Errorf("%w: actuators", ErrMissingDependency)
	case deps.Display == nil:
		return nil, fmt.Errorf("%w: display", ErrMissingDependency)
	case deps.Credential == nil:
		return nil, fmt.Errorf("%w: credential", ErrMissingDependency)
	case deps.Notifier == nil:
		return nil, fmt.Errorf("%w: notifier", ErrMissingDependency)
	}
	if settings.CyclePeriod <= 0 {
		return nil, fmt.Errorf("%w: cycle period must be positive", ErrInvalidSettings)
	}
	if settings.DoorDwell <= 0 {
		return nil, fmt.Errorf("%w: door dwell must be positive", ErrInvalidSettings)
	}

	c := &Controller{
		sampler:   deps.Sampler,
		act:       deps.Actuators,
		display:   deps.Display,
		fsm:       deps.Credential,
		notifier:  deps.Notifier,
		keypad:    deps.Keypad,
		commands:  deps.Commands,
		messages:  deps.Messages,
		observer:  deps.Observer,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		settings:  settings,
		events:    make(chan notify.Event, eventQueueSize),
		telemetry: make(chan sensor.Snapshot, 1),
	}
	if c.observer == nil {
		c.observer = noopObserver{}
	}
	if c.metrics == nil {
		c.metrics = noopMetrics{}
	}
	if c.logger == nil {
		c.logger = noopLogger{}
	}
	c.status = Status{Mode: Idle}
	return c, nil
}

// Run executes Step every CyclePeriod until ctx is cancelled, and delivers
// queued notifications in the background.
func (c *Controller) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.deliverLoop(ctx)
	}()
	defer func() {
		wg.Wait()
		// Events raised in the last cycles still go out, within a bound.
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownFlushTimeout)
		defer cancel()
		c.flush(flushCtx)
	}()

	ticker := time.NewTicker(c.settings.CyclePeriod)
	defer ticker.Stop()

	c.logger.Info("controller started", "cycle_period", c.settings.CyclePeriod)
	c.Step(ctx, time.Now())

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("controller stopped", "cycles", c.cycles)
			return
		case now := <-ticker.C:
			c.Step(ctx, now)
		}
	}
}

// Step runs one control cycle at now.
//
// The order is fixed: sample, evaluate hazards, advance running sequences,
// handle presence and keys, apply auxiliary commands, drive actuators,
// render once, then queue notifications.
func (c *Controller) Step(ctx context.Context, now time.Time) CycleReport {
	started := time.Now()
	prev := c.mode
	var events []notify.Event

	snap := c.sampler.Sample()

	decision := emergency.Evaluate(c.em, snap, now)
	c.em = decision.State
	events = append(events, decision.Events...)
	switch {
	case decision.Raised:
		c.enterEmergency(now, decision)
	case decision.Cleared:
		c.leaveEmergency(now, snap.Presence)
	}
	if decision.ForceUnlock {
		c.logger.Warn("gas detected, forcing door open", "cause", decision.State.Cause.String())
		c.startDoor(now, true)
	}

	if c.door.advance(now, c.settings.DoorClosedMessage) {
		c.logger.Info("door closed", "forced", c.door.forced)
		events = append(events, notify.NewEvent(notify.AccessGranted, notify.MsgDoorOpened, now))
	}

	if c.mode == Greeting && c.settings.Greeting.at(now.Sub(c.greeting.started)).done {
		c.finishGreeting(snap.Presence)
	}

	events = append(events, c.handlePresence(now, snap.Presence)...)
	events = append(events, c.handleKeys(now)...)
	c.applyCommands()
	c.takeRemoteMessage(now)

	c.driveOutputs(now)
	frame := c.frame(now, snap)
	rendered := c.render(frame)

	if c.settings.TelemetryInterval > 0 && !now.Before(c.nextTelem) {
		c.nextTelem = now.Add(c.settings.TelemetryInterval)
		c.offerTelemetry(snap)
	}
	for _, ev := range events {
		c.enqueue(ev)
		c.observer.Broadcast(ChannelEvents, ev)
	}
	if c.mode != prev {
		c.logger.Info("mode changed", "from", prev.String(), "to", c.mode.String())
		c.observer.Broadcast(ChannelMode, ModeChange{From: prev, To: c.mode, At: now})
	}

	c.lastPresence = snap.Presence
	c.cycles++
	c.publishStatus(now, snap)
	c.metrics.ObserveCycle(c.mode.String(), c.em.Active, time.Since(started))

	return CycleReport{
		Previous:  prev,
		Mode:      c.mode,
		Snapshot:  snap,
		Emergency: c.em,
		Events:    events,
		DoorOpen:  c.door.isOpen(),
		Rendered:  rendered,
		Frame:     frame,
	}
}

func (c *Controller) enterEmergency(now time.Time, d emergency.Decision) {
	c.logger.Warn("hazard raised", "cause", d.State.Cause.String(), "force_unlock", d.ForceUnlock)

	if c.greeting.active {
		if c.greeting.flashing {
			c.act.SetIndicators(false)
		}
		c.greeting.stop()
	}
	c.fsm.Clear()
	c.overlay.clear()
	c.alarmUntil = now.Add(c.settings.AlarmTone)
	c.mode = Emergency
}

func (c *Controller) leaveEmergency(now time.Time, present bool) {
	c.logger.Info("hazard cleared", "presence", present)

	c.alarmUntil = time.Time{}
	c.mode = Idle
	if present {
		c.mode = AwaitingCredential
	}
	c.overlay.show(NewFrame(textBanner, ""), now, bannerHold)
}

func (c *Controller) finishGreeting(present bool) {
	if c.greeting.flashing {
		c.act.SetIndicators(false)
	}
	c.greeting.stop()
	if present {
		c.mode = AwaitingCredential
		return
	}
	c.mode = Idle
}

func (c *Controller) handlePresence(now time.Time, present bool) []notify.Event {
	switch {
	case c.mode == Idle && present && !c.lastPresence:
		c.mode = Greeting
		c.greeting.start(now)
		c.logger.Info("visitor detected")
		return []notify.Event{notify.NewEvent(notify.Presence, notify.MsgPresence, now)}

	case c.mode == AwaitingCredential && !present:
		c.fsm.Clear()
		c.overlay.clear()
		c.mode = Idle
		c.logger.Debug("visitor left")
	}
	return nil
}

// handleKeys drains the keypad every cycle. Keys only count while a
// credential is awaited and the door is shut; the rest are discarded.
func (c *Controller) handleKeys(now time.Time) []notify.Event {
	if c.keypad == nil {
		return nil
	}
	keys := c.keypad.DrainKeys()
	if len(keys) == 0 {
		return nil
	}
	if c.mode != AwaitingCredential || c.door.isOpen() {
		c.logger.Debug("keys discarded", "count", len(keys), "mode", c.mode.String())
		return nil
	}

	var events []notify.Event
	for i, k := range keys {
		if !k.Valid() {
			continue
		}
		res := c.fsm.Push(k)
		switch res.Outcome {
		case credential.Pending:
			c.overlay.clear()

		case credential.Accepted:
			c.metrics.CountCredential(res.Outcome.String(), false)
			c.logger.Info("credential accepted")
			c.startDoor(now, false)
			if rest := len(keys) - i - 1; rest > 0 {
				c.logger.Debug("keys discarded", "count", rest, "reason", "door opening")
			}
			return events

		case credential.Rejected:
			c.metrics.CountCredential(res.Outcome.String(), res.Lockout)
			c.overlay.show(NewFrame(textWrongPassword, ""), now, c.settings.RejectMessage)
			if res.Lockout {
				c.logger.Warn("credential lockout threshold reached")
				events = append(events, notify.NewEvent(notify.AccessLockout, notify.MsgLockout, now))
				continue
			}
			c.logger.Info("credential rejected", "failed_attempts", res.FailedAttempts)
			if c.settings.NotifyAccessDenied {
				events = append(events, notify.NewEvent(notify.AccessDenied, notify.MsgAccessDenied, now))
			}
		}
	}
	return events
}

func (c *Controller) startDoor(now time.Time, forced bool) {
	c.fsm.Reset()
	c.overlay.clear()
	c.door.open(now, c.settings.DoorDwell, forced)
	c.logger.Info("door opening", "forced", forced, "dwell", c.settings.DoorDwell)
}

func (c *Controller) applyCommands() {
	if c.commands == nil {
		return
	}
	for _, cmd := range c.commands.Drain() {
		c.act.SetIndicator(cmd.Indicator, cmd.On)
		c.logger.Debug("indicator command applied", "indicator", cmd.Indicator, "on", cmd.On)
	}
}

func (c *Controller) takeRemoteMessage(now time.Time) {
	if c.messages == nil {
		return
	}
	text, ok := c.messages.Take()
	if !ok {
		return
	}
	if c.mode == Emergency {
		c.logger.Debug("remote message ignored during emergency")
		return
	}
	c.overlay.show(NewFrame(textRemoteHeading, text), now, c.settings.RemoteMessage)
}

// driveOutputs commands the lock, buzzer and greeting indicators from the
// current sub-states. The actuator driver drops repeated values.
func (c *Controller) driveOutputs(now time.Time) {
	c.act.SetLock(c.door.isOpen())

	buzzer := now.Before(c.alarmUntil)
	if c.greeting.active {
		out := c.settings.Greeting.at(now.Sub(c.greeting.started))
		switch {
		case out.flashing:
			c.act.SetIndicators(out.indicators)
		case c.greeting.flashing:
			c.act.SetIndicators(false)
			c.greeting.flashing = false
		}
		buzzer = buzzer || out.buzzer
	}
	c.act.SetBuzzer(buzzer)
}

// frame picks the display content by priority: emergency, door sequence,
// transient overlay, mode text, routine sensor text.
func (c *Controller) frame(now time.Time, snap sensor.Snapshot) Frame {
	switch {
	case c.mode == Emergency:
		return NewFrame(textAlert, c.em.Cause.Message())
	case c.door.phase == doorOpen:
		return NewFrame(textDoorOpening, "")
	case c.door.phase == doorClosing:
		return NewFrame(textDoorClosed, "")
	case c.overlay.active(now):
		return c.overlay.frame
	case c.mode == Greeting:
		return NewFrame(textGreeting, "")
	case c.mode == AwaitingCredential:
		return NewFrame(textPrompt, textInputPrefix+c.fsm.Masked())
	default:
		return routineFrame(snap)
	}
}

// render sends frame when it differs from what is on the display. A failed
// render is retried on the next cycle.
func (c *Controller) render(frame Frame) bool {
	if c.rendered && frame == c.lastFrame {
		return false
	}
	if err := c.display.Render(frame); err != nil {
		c.logger.Warn("display render failed", "error", err)
		return false
	}
	c.lastFrame, c.rendered = frame, true
	return true
}

func (c *Controller) enqueue(ev notify.Event) {
	select {
	case c.events <- ev:
	default:
		c.logger.Error("event queue full, dropping notification",
			"event_id", ev.ID,
			"category", ev.Category.String())
	}
}

// offerTelemetry replaces any snapshot still waiting for delivery. Only the
// control loop sends on c.telemetry, so after the receive the slot is free.
func (c *Controller) offerTelemetry(snap sensor.Snapshot) {
	select {
	case c.telemetry <- snap:
		return
	default:
	}
	select {
	case <-c.telemetry:
		c.logger.Debug("telemetry superseded before delivery")
	default:
	}
	select {
	case c.telemetry <- snap:
	default:
	}
}

// deliverLoop sends events ahead of telemetry whenever both are waiting.
func (c *Controller) deliverLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-c.events:
			c.deliverEvent(ctx, ev)
			continue
		default:
		}
		select {
		case <-ctx.Done():
			return
		case ev := <-c.events:
			c.deliverEvent(ctx, ev)
		case snap := <-c.telemetry:
			c.deliverTelemetry(ctx, snap)
		}
	}
}

// flush delivers everything queued so far on the calling goroutine.
func (c *Controller) flush(ctx context.Context) {
	for {
		select {
		case ev := <-c.events:
			c.deliverEvent(ctx, ev)
			continue
		default:
		}
		select {
		case snap := <-c.telemetry:
			c.deliverTelemetry(ctx, snap)
		default:
			return
		}
	}
}

func (c *Controller) deliverTelemetry(ctx context.Context, snap sensor.Snapshot) {
	for _, r := range c.notifier.PublishTelemetry(ctx, snap) {
		if !r.OK {
			c.logger.Debug("telemetry delivery failed", "channel", r.Channel.String(), "error", r.Err)
		}
	}
}

func (c *Controller) deliverEvent(ctx context.Context, ev notify.Event) {
	for _, r := range c.notifier.Publish(ctx, ev) {
		c.metrics.CountDelivery(r.Channel.String(), ev.Category.String(), r.OK)
		if !r.OK {
			c.logger.Warn("notification delivery failed",
				"event_id", ev.ID,
				"category", ev.Category.String(),
				"channel", r.Channel.String(),
				"error", r.Err)
			continue
		}
		c.logger.Debug("notification delivered",
			"event_id", ev.ID,
			"category", ev.Category.String(),
			"channel", r.Channel.String())
	}
}
