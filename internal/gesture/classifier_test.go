package gesture

import (
	"errors"
	"reflect"
	"testing"

	"github.com/ColonelBlimp/morsehat/internal/morse"
)

const baseTemp = 24.0

func newTestClassifier(t *testing.T) *Classifier {
	t.Helper()
	c, err := NewClassifier(DefaultThresholds())
	if err != nil {
		t.Fatalf("NewClassifier() error = %v", err)
	}
	// First sample captures the baseline: device resting on its edge, nothing classified.
	c.Classify(Sample{Accel: [3]float64{0.5, 0, 0.5}, Temp: baseTemp})
	return c
}

func TestNewClassifier_InvalidThresholds(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Thresholds)
		want   error
	}{
		{"quiet above strong", func(th *Thresholds) { th.QuietRate = 150 }, ErrInvalidRates},
		{"strong above panic", func(th *Thresholds) { th.StrongRate = 250 }, ErrInvalidRates},
		{"zero quiet", func(th *Thresholds) { th.QuietRate = 0 }, ErrInvalidRates},
		{"tilt above 1g", func(th *Thresholds) { th.Tilt = 1.5 }, ErrInvalidOrientation},
		{"zero level", func(th *Thresholds) { th.Level = 0 }, ErrInvalidOrientation},
		{"negative temp rise", func(th *Thresholds) { th.TempRise = -1 }, ErrInvalidTempRise},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th := DefaultThresholds()
			tt.modify(&th)
			_, err := NewClassifier(th)
			if !errors.Is(err, tt.want) {
				t.Errorf("NewClassifier() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestClassifier_Rules(t *testing.T) {
	warm := baseTemp + 2
	cold := baseTemp + 0.5

	tests := []struct {
		name  string
		s     Sample
		want  []morse.Symbol
		panic bool
	}{
		{"flat up", Sample{Accel: [3]float64{0, 0, 1}, Temp: cold}, []morse.Symbol{morse.SymDot}, false},
		{"flat inverted", Sample{Accel: [3]float64{0, 0, -1}, Temp: cold}, []morse.Symbol{morse.SymDash}, false},
		{"tilt right warm", Sample{Accel: [3]float64{0, 0.9, 0.3}, Temp: warm}, []morse.Symbol{morse.SymDot}, false},
		{"tilt left warm", Sample{Accel: [3]float64{0, -0.9, 0.3}, Temp: warm}, []morse.Symbol{morse.SymDash}, false},
		{"tilt right cold", Sample{Accel: [3]float64{0, 0.9, 0.3}, Temp: cold}, nil, false},
		{"tilt left cold", Sample{Accel: [3]float64{0, -0.9, 0.3}, Temp: cold}, nil, false},
		{"flick x negative", Sample{Accel: [3]float64{0.5, 0, 0.5}, Gyro: [3]float64{-150, 10, 10}, Temp: cold}, []morse.Symbol{morse.SymDot}, false},
		{"flick y positive", Sample{Accel: [3]float64{0.5, 0, 0.5}, Gyro: [3]float64{10, 150, -10}, Temp: cold}, []morse.Symbol{morse.SymDash}, false},
		{"flick x positive ignored", Sample{Accel: [3]float64{0.5, 0, 0.5}, Gyro: [3]float64{150, 0, 0}, Temp: cold}, nil, false},
		{"flick with noisy axis", Sample{Accel: [3]float64{0.5, 0, 0.5}, Gyro: [3]float64{-150, 80, 0}, Temp: cold}, nil, false},
		{"flick while flat", Sample{Accel: [3]float64{0, 0, 1}, Gyro: [3]float64{0, 150, 0}, Temp: cold}, []morse.Symbol{morse.SymDash, morse.SymDot}, false},
		{"panic", Sample{Accel: [3]float64{0, 0, 1}, Gyro: [3]float64{250, -210, 300}, Temp: warm}, nil, true},
		{"two axes fast is not panic", Sample{Accel: [3]float64{0.5, 0, 0.5}, Gyro: [3]float64{250, -210, 100}, Temp: cold}, nil, false},
		{"resting on edge", Sample{Accel: [3]float64{0.5, 0, 0.5}, Temp: warm}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClassifier(t)
			got := c.Classify(tt.s)
			if got.Panic != tt.panic {
				t.Errorf("Classify().Panic = %v, want %v", got.Panic, tt.panic)
			}
			if !reflect.DeepEqual(got.Symbols, tt.want) {
				t.Errorf("Classify().Symbols = %v, want %v", got.Symbols, tt.want)
			}
		})
	}
}

func TestClassifier_BaselineCapturedOnce(t *testing.T) {
	c, err := NewClassifier(DefaultThresholds())
	if err != nil {
		t.Fatalf("NewClassifier() error = %v", err)
	}
	if _, ok := c.Baseline(); ok {
		t.Fatal("Baseline() set before any sample")
	}

	c.Classify(Sample{Temp: 20})
	c.Classify(Sample{Temp: 30})

	b, ok := c.Baseline()
	if !ok || b != 20 {
		t.Errorf("Baseline() = %v, %v; want 20, true", b, ok)
	}
}

func TestClassifier_FirstSampleCannotPassTempGate(t *testing.T) {
	c, err := NewClassifier(DefaultThresholds())
	if err != nil {
		t.Fatalf("NewClassifier() error = %v", err)
	}
	got := c.Classify(Sample{Accel: [3]float64{0, 0.9, 0.3}, Temp: 40})
	if len(got.Symbols) != 0 {
		t.Errorf("Classify() on first sample = %v, want no symbols", got.Symbols)
	}
}

func TestClassifier_SetThresholds(t *testing.T) {
	c := newTestClassifier(t)

	th := DefaultThresholds()
	th.Flat = 0.99
	if err := c.SetThresholds(th); err != nil {
		t.Fatalf("SetThresholds() error = %v", err)
	}
	if got := c.Classify(Sample{Accel: [3]float64{0, 0, 0.95}, Temp: baseTemp}); len(got.Symbols) != 0 {
		t.Errorf("Classify() = %v after raising Flat, want none", got.Symbols)
	}

	bad := th
	bad.Tilt = 0
	if err := c.SetThresholds(bad); err == nil {
		t.Error("SetThresholds() accepted invalid thresholds")
	}
	if c.Thresholds().Flat != 0.99 {
		t.Error("invalid SetThresholds() replaced the active thresholds")
	}
	if b, _ := c.Baseline(); b != baseTemp {
		t.Errorf("Baseline() = %v after SetThresholds, want %v", b, baseTemp)
	}
}

func TestClassifier_HeldPoseYieldsOneSymbol(t *testing.T) {
	c := newTestClassifier(t)
	flat := Sample{Accel: [3]float64{0, 0, 1}, Temp: baseTemp}

	var got []morse.Symbol
	for i := 0; i < 50; i++ {
		got = append(got, c.Classify(flat).Symbols...)
	}
	if want := []morse.Symbol{morse.SymDot}; !reflect.DeepEqual(got, want) {
		t.Errorf("symbols over 50 flat samples = %v, want %v", got, want)
	}
}

func TestClassifier_GestureSequence(t *testing.T) {
	warm := baseTemp + 2
	flat := Sample{Accel: [3]float64{0, 0, 1}, Temp: warm}
	left := Sample{Accel: [3]float64{0, -0.9, 0.3}, Temp: warm}
	right := Sample{Accel: [3]float64{0, 0.9, 0.3}, Temp: warm}
	edge := Sample{Accel: [3]float64{0.5, 0, 0.5}, Temp: warm}
	flick := Sample{Accel: [3]float64{0.5, 0, 0.5}, Gyro: [3]float64{-150, 0, 0}, Temp: warm}

	tests := []struct {
		name  string
		poses []Sample
		want  []morse.Symbol
	}{
		{"flat left flat", []Sample{flat, flat, left, left, left, flat, flat},
			[]morse.Symbol{morse.SymDot, morse.SymDash, morse.SymDot}},
		{"same pose needs a break", []Sample{flat, flat, edge, flat},
			[]morse.Symbol{morse.SymDot, morse.SymDot}},
		{"different poses with the same symbol", []Sample{right, right, flat},
			[]morse.Symbol{morse.SymDot, morse.SymDot}},
		{"flick over several samples", []Sample{flick, flick, flick, edge, flick},
			[]morse.Symbol{morse.SymDot, morse.SymDot}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClassifier(t)
			var got []morse.Symbol
			for _, s := range tt.poses {
				got = append(got, c.Classify(s).Symbols...)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("symbols = %v, want %v", got, tt.want)
			}
		})
	}
}
