package sensor

import (
	"fmt"

	"github.com/nerrad567/entryguard/internal/infrastructure/config"
)

// Source reads raw inputs from the door hardware.
//
// Each method reads one input and fails independently of the others. Reads
// must be bounded; the sampler calls every method once per cycle.
type Source interface {
	// PresenceLevel returns the raw proximity/intensity level.
	PresenceLevel() (float64, error)

	// Fire returns the fire detector's digital output.
	Fire() (bool, error)

	// Gas returns the gas detector's digital output.
	Gas() (bool, error)

	// Temperature returns degrees Celsius. NaN means the read failed.
	Temperature() (float64, error)

	// Humidity returns relative humidity in percent. NaN means the read failed.
	Humidity() (float64, error)
}

// Logger defines the logging interface used by the Sampler.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Comparison decides which side of the threshold means "present".
type Comparison int

const (
	// AtLeast means level >= threshold is present.
	AtLeast Comparison = iota
	// AtMost means level <= threshold is present.
	AtMost
)

// ParseComparison maps the config strings "gte" and "lte".
func ParseComparison(s string) (Comparison, error) {
	switch s {
	case "gte", "":
		return AtLeast, nil
	case "lte":
		return AtMost, nil
	default:
		return AtLeast, fmt.Errorf("%w: %q", ErrInvalidComparison, s)
	}
}

// Settings controls how raw levels become booleans.
type Settings struct {
	PresenceThreshold float64
	Comparison        Comparison
	DebounceSamples   int
}

// SettingsFromConfig converts the sensors section of the config.
func SettingsFromConfig(cfg config.SensorsConfig) (Settings, error) {
	cmp, err := ParseComparison(cfg.PresenceComparison)
	if err != nil {
		return Settings{}, err
	}
	return Settings{
		PresenceThreshold: cfg.PresenceThreshold,
		Comparison:        cmp,
		DebounceSamples:   cfg.DebounceSamples,
	}, nil
}

// Sampler turns raw reads into debounced Snapshots.
//
// Sample never fails: a read error degrades that input to false (booleans)
// or unknown (numeric readings) and the cycle carries on.
//
// Thread Safety: a Sampler belongs to the control loop and is not safe for
// concurrent use.
type Sampler struct {
	src      Source
	settings Settings
	logger   Logger

	presence debouncer
	fire     debouncer
	gas      debouncer

	// failing remembers which inputs failed last cycle so a stuck sensor
	// logs once instead of every cycle.
	failing map[string]bool
}

// NewSampler creates a sampler. A DebounceSamples below 1 is treated as 1.
func NewSampler(src Source, settings Settings, logger Logger) *Sampler {
	if logger == nil {
		logger = noopLogger{}
	}
	n := settings.DebounceSamples
	if n < 1 {
		n = 1
	}
	settings.DebounceSamples = n
	return &Sampler{
		src:      src,
		settings: settings,
		logger:   logger,
		presence: debouncer{need: n},
		fire:     debouncer{need: n},
		gas:      debouncer{need: n},
		failing:  make(map[string]bool),
	}
}

// Sample reads every input once and returns this cycle's snapshot.
func (s *Sampler) Sample() Snapshot {
	level := s.readFloat("presence_level", s.src.PresenceLevel)
	present := level.Valid && s.isPresent(level.Value)

	return Snapshot{
		Presence:      s.presence.update(present),
		HazardFire:    s.fire.update(s.readBool("fire", s.src.Fire)),
		HazardGas:     s.gas.update(s.readBool("gas", s.src.Gas)),
		Temperature:   s.readFloat("temperature", s.src.Temperature),
		Humidity:      s.readFloat("humidity", s.src.Humidity),
		PresenceLevel: level,
	}
}

func (s *Sampler) isPresent(level float64) bool {
	if s.settings.Comparison == AtMost {
		return level <= s.settings.PresenceThreshold
	}
	return level >= s.settings.PresenceThreshold
}

func (s *Sampler) readBool(name string, read func() (bool, error)) bool {
	v, err := read()
	s.track(name, err)
	if err != nil {
		return false
	}
	return v
}

func (s *Sampler) readFloat(name string, read func() (float64, error)) Reading {
	v, err := read()
	s.track(name, err)
	if err != nil {
		return Unknown()
	}
	return Known(v)
}

func (s *Sampler) track(name string, err error) {
	switch {
	case err != nil && !s.failing[name]:
		s.failing[name] = true
		s.logger.Warn("sensor read failed", "input", name, "error", err)
	case err == nil && s.failing[name]:
		delete(s.failing, name)
		s.logger.Debug("sensor read recovered", "input", name)
	}
}

// debouncer reports a new value only after it has been read need times in a row.
type debouncer struct {
	need      int
	stable    bool
	candidate bool
	count     int
}

func (d *debouncer) update(v bool) bool {
	if v == d.stable {
		d.count = 0
		return d.stable
	}
	if v != d.candidate || d.count == 0 {
		d.candidate = v
		d.count = 0
	}
	d.count++
	if d.count >= d.need {
		d.stable = v
		d.count = 0
	}
	return d.stable
}
