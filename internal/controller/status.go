package controller

import (
	"time"

	"github.com/nerrad567/entryguard/internal/actuator"
	"github.com/nerrad567/entryguard/internal/emergency"
	"github.com/nerrad567/entryguard/internal/sensor"
)

// Status is the read-only view of the controller published after each cycle.
type Status struct {
	Mode           Mode            `json:"mode"`
	Emergency      emergency.State `json:"emergency"`
	Actuators      actuator.State  `json:"actuators"`
	DoorOpen       bool            `json:"door_open"`
	FailedAttempts int             `json:"failed_attempts"`
	Snapshot       SnapshotView    `json:"snapshot"`
	Display        Frame           `json:"display"`
	Cycles         uint64          `json:"cycles"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// SnapshotView is the JSON form of a sensor snapshot. Unknown readings are null.
type SnapshotView struct {
	Presence      bool `json:"presence"`
	Fire          bool `json:"fire"`
	Gas           bool `json:"gas"`
	Temperature   any  `json:"temperature"`
	Humidity      any  `json:"humidity"`
	PresenceLevel any  `json:"presence_level"`
}

// NewSnapshotView converts snap for encoding.
func NewSnapshotView(snap sensor.Snapshot) SnapshotView {
	return SnapshotView{
		Presence:      snap.Presence,
		Fire:          snap.HazardFire,
		Gas:           snap.HazardGas,
		Temperature:   snap.Temperature.JSON(),
		Humidity:      snap.Humidity.JSON(),
		PresenceLevel: snap.PresenceLevel.JSON(),
	}
}

// ModeChange is broadcast to observers when the mode changes.
type ModeChange struct {
	From Mode      `json:"from"`
	To   Mode      `json:"to"`
	At   time.Time `json:"at"`
}

// Status returns the state as of the last completed cycle.
func (c *Controller) Status() Status {
	c.statusMu.RLock()
	defer c.statusMu.RUnlock()
	return c.status
}

func (c *Controller) publishStatus(now time.Time, snap sensor.Snapshot) {
	s := Status{
		Mode:           c.mode,
		Emergency:      c.em,
		Actuators:      c.act.State(),
		DoorOpen:       c.door.isOpen(),
		FailedAttempts: c.fsm.FailedAttempts(),
		Snapshot:       NewSnapshotView(snap),
		Display:        c.lastFrame,
		Cycles:         c.cycles,
		UpdatedAt:      now,
	}
	c.statusMu.Lock()
	c.status = s
	c.statusMu.Unlock()
}
