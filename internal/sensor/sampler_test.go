package sensor

import (
	"errors"
	"math"
	"testing"

	"github.com/nerrad567/entryguard/internal/infrastructure/config"
)

// fakeSource returns fixed values; a non-nil err field fails that input.
type fakeSource struct {
	level     float64
	fire, gas bool
	temp, hum float64
	levelErr  error
	fireErr   error
	gasErr    error
	tempErr   error
	humErr    error
}

func (f *fakeSource) PresenceLevel() (float64, error) { return f.level, f.levelErr }
func (f *fakeSource) Fire() (bool, error)             { return f.fire, f.fireErr }
func (f *fakeSource) Gas() (bool, error)              { return f.gas, f.gasErr }
func (f *fakeSource) Temperature() (float64, error)   { return f.temp, f.tempErr }
func (f *fakeSource) Humidity() (float64, error)      { return f.hum, f.humErr }

type countingLogger struct {
	warns int
}

func (l *countingLogger) Debug(string, ...any) {}
func (l *countingLogger) Warn(string, ...any)  { l.warns++ }

func TestSample_Values(t *testing.T) {
	src := &fakeSource{level: 47, fire: true, temp: 21.5, hum: 40}
	s := NewSampler(src, Settings{PresenceThreshold: 45, Comparison: AtLeast, DebounceSamples: 1}, nil)

	snap := s.Sample()

	if !snap.Presence {
		t.Error("Presence = false, want true (47 >= 45)")
	}
	if !snap.HazardFire || snap.HazardGas {
		t.Errorf("hazards = fire:%v gas:%v, want fire only", snap.HazardFire, snap.HazardGas)
	}
	if snap.Temperature != Known(21.5) || snap.Humidity != Known(40) {
		t.Errorf("climate = %+v %+v", snap.Temperature, snap.Humidity)
	}
	if snap.PresenceLevel != Known(47) {
		t.Errorf("PresenceLevel = %+v, want 47", snap.PresenceLevel)
	}
	if !snap.Hazard() {
		t.Error("Hazard() = false, want true")
	}
}

func TestSample_PresenceComparison(t *testing.T) {
	tests := []struct {
		name      string
		level     float64
		threshold float64
		cmp       Comparison
		want      bool
	}{
		{"gte above", 50, 45, AtLeast, true},
		{"gte equal", 45, 45, AtLeast, true},
		{"gte below", 44, 45, AtLeast, false},
		{"lte below", 300, 1000, AtMost, true},
		{"lte equal", 1000, 1000, AtMost, true},
		{"lte above", 3000, 1000, AtMost, false},
		{"digital high", 1, 1, AtLeast, true},
		{"digital low", 0, 1, AtLeast, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeSource{level: tt.level}
			s := NewSampler(src, Settings{PresenceThreshold: tt.threshold, Comparison: tt.cmp}, nil)
			if got := s.Sample().Presence; got != tt.want {
				t.Errorf("Presence = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSample_ReadFailuresDegrade(t *testing.T) {
	boom := errors.New("bus timeout")
	src := &fakeSource{
		level: 50, fire: true, gas: true, temp: 20, hum: 30,
		levelErr: boom, fireErr: boom, gasErr: boom, tempErr: boom,
	}
	logger := &countingLogger{}
	s := NewSampler(src, Settings{PresenceThreshold: 45}, logger)

	snap := s.Sample()

	if snap.Presence || snap.HazardFire || snap.HazardGas {
		t.Errorf("failed boolean inputs must read false, got %+v", snap)
	}
	if snap.Temperature.Valid || snap.PresenceLevel.Valid {
		t.Error("failed numeric inputs must be unknown")
	}
	if !snap.Humidity.Valid {
		t.Error("humidity did not fail and should stay valid")
	}
	if logger.warns != 4 {
		t.Errorf("warns = %d, want 4", logger.warns)
	}

	// A stuck sensor does not log again.
	s.Sample()
	if logger.warns != 4 {
		t.Errorf("warns after second cycle = %d, want 4", logger.warns)
	}
}

func TestSample_NaNIsUnknown(t *testing.T) {
	src := &fakeSource{temp: math.NaN(), hum: math.Inf(1)}
	s := NewSampler(src, Settings{}, nil)

	snap := s.Sample()
	if snap.Temperature.Valid || snap.Humidity.Valid {
		t.Errorf("NaN/Inf should be unknown, got %+v %+v", snap.Temperature, snap.Humidity)
	}
}

func TestSample_Debounce(t *testing.T) {
	src := &fakeSource{}
	s := NewSampler(src, Settings{DebounceSamples: 3}, nil)

	steps := []struct {
		gas  bool
		want bool
	}{
		{true, false},
		{true, false},
		{false, false}, // bounce resets the run
		{true, false},
		{true, false},
		{true, true},
		{false, true},
		{false, true},
		{false, false},
	}

	for i, step := range steps {
		src.gas = step.gas
		if got := s.Sample().HazardGas; got != step.want {
			t.Errorf("cycle %d: HazardGas = %v, want %v", i, got, step.want)
		}
	}
}

func TestReading_Format(t *testing.T) {
	if got := Known(21.54).Format(); got != "21.5" {
		t.Errorf("Format() = %q, want 21.5", got)
	}
	if got := Unknown().Format(); got != "--" {
		t.Errorf("Unknown().Format() = %q, want --", got)
	}
	if Unknown().JSON() != nil {
		t.Error("Unknown().JSON() should be nil")
	}
	if Known(3).JSON() != 3.0 {
		t.Error("Known(3).JSON() should be 3.0")
	}
}

func TestSettingsFromConfig(t *testing.T) {
	got, err := SettingsFromConfig(config.SensorsConfig{
		PresenceThreshold: 1000, PresenceComparison: "lte", DebounceSamples: 2,
	})
	if err != nil {
		t.Fatalf("SettingsFromConfig() error = %v", err)
	}
	if got.Comparison != AtMost || got.PresenceThreshold != 1000 || got.DebounceSamples != 2 {
		t.Errorf("SettingsFromConfig() = %+v", got)
	}

	if _, err := SettingsFromConfig(config.SensorsConfig{PresenceComparison: "gt"}); !errors.Is(err, ErrInvalidComparison) {
		t.Errorf("error = %v, want ErrInvalidComparison", err)
	}
}
