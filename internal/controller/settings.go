package controller

import (
	"time"

	"github.com/nerrad567/entryguard/internal/infrastructure/config"
)

// bannerHold is how long the start-up banner is shown after an emergency clears.
const bannerHold = 2 * time.Second

// Settings holds the controller's timing and policy.
type Settings struct {
	// CyclePeriod is the fixed loop period used by Run.
	CyclePeriod time.Duration

	Greeting GreetingScript

	// DoorDwell is how long the lock stays open.
	DoorDwell time.Duration
	// DoorClosedMessage is how long "Door Closed." is shown afterwards.
	DoorClosedMessage time.Duration

	AlarmTone     time.Duration
	RejectMessage time.Duration
	RemoteMessage time.Duration

	// TelemetryInterval is the period of sensor telemetry. Zero disables it.
	TelemetryInterval time.Duration

	// NotifyAccessDenied publishes an AccessDenied event for every wrong
	// entry below the lockout threshold.
	NotifyAccessDenied bool
}

// SettingsFromConfig maps the controller config section onto Settings.
func SettingsFromConfig(cfg config.ControllerConfig) Settings {
	return Settings{
		CyclePeriod: cfg.CyclePeriod,
		Greeting: GreetingScript{
			Flashes:     cfg.Greeting.Flashes,
			FlashPeriod: cfg.Greeting.FlashPeriod,
			Beeps:       cfg.Greeting.Beeps,
			BeepPeriod:  cfg.Greeting.BeepPeriod,
			Hold:        cfg.Greeting.Hold,
		},
		DoorDwell:          cfg.Door.Dwell,
		DoorClosedMessage:  cfg.Door.ClosedMessage,
		AlarmTone:          cfg.AlarmTone,
		RejectMessage:      cfg.RejectMessage,
		RemoteMessage:      cfg.RemoteMessage,
		TelemetryInterval:  cfg.TelemetryInterval,
		NotifyAccessDenied: cfg.NotifyAccessDenied,
	}
}
