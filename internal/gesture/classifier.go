// Package gesture turns six-axis motion samples into Morse symbols.
package gesture

import (
	"errors"
	"math"
	"sync"

	"github.com/ColonelBlimp/morsehat/internal/morse"
)

// Default thresholds. Rates are in deg/s, orientation in g, temperature in °C.
const (
	DefaultPanicRate  = 200.0
	DefaultStrongRate = 120.0
	DefaultQuietRate  = 60.0
	DefaultTilt       = 0.7
	DefaultFlat       = 0.9
	DefaultLevel      = 0.3
	DefaultTempRise   = 1.0
)

var (
	// ErrInvalidRates indicates the rate thresholds are not ordered quiet < strong < panic
	ErrInvalidRates = errors.New("rate thresholds must satisfy 0 < quiet < strong < panic")
	// ErrInvalidOrientation indicates an orientation threshold is outside (0, 1]
	ErrInvalidOrientation = errors.New("tilt, flat and level thresholds must be in (0, 1]")
	// ErrInvalidTempRise indicates the temperature gate is negative
	ErrInvalidTempRise = errors.New("temperature rise must be non-negative")
)

// Sample is one motion sensor reading
type Sample struct {
	Accel [3]float64 // x, y, z in g
	Gyro  [3]float64 // x, y, z in deg/s
	Temp  float64    // °C
}

// Thresholds holds the classification limits
type Thresholds struct {
	// PanicRate is exceeded on all three gyro axes by the erase gesture
	PanicRate float64
	// StrongRate is the magnitude a deliberate flick must exceed
	StrongRate float64
	// QuietRate is the magnitude the other two axes must stay under during a flick
	QuietRate float64
	// Tilt is the lateral acceleration that counts as tilted
	Tilt float64
	// Flat is the vertical acceleration that counts as lying flat
	Flat float64
	// Level bounds the lateral acceleration while flat
	Level float64
	// TempRise is how far above the baseline the temperature must be for tilt gestures
	TempRise float64
}

// DefaultThresholds returns the stock thresholds
func DefaultThresholds() Thresholds {
	return Thresholds{
		PanicRate:  DefaultPanicRate,
		StrongRate: DefaultStrongRate,
		QuietRate:  DefaultQuietRate,
		Tilt:       DefaultTilt,
		Flat:       DefaultFlat,
		Level:      DefaultLevel,
		TempRise:   DefaultTempRise,
	}
}

// Validate checks the thresholds are usable
func (t Thresholds) Validate() error {
	var errs []error
	if !(t.QuietRate > 0 && t.QuietRate < t.StrongRate && t.StrongRate < t.PanicRate) {
		errs = append(errs, ErrInvalidRates)
	}
	for _, v := range []float64{t.Tilt, t.Flat, t.Level} {
		if v <= 0 || v > 1 {
			errs = append(errs, ErrInvalidOrientation)
			break
		}
	}
	if t.TempRise < 0 {
		errs = append(errs, ErrInvalidTempRise)
	}
	return errors.Join(errs...)
}

// Result is the outcome of classifying one sample
type Result struct {
	// Symbols holds at most one symbol from the rate rules and one from the orientation rules
	Symbols []morse.Symbol
	// Panic is set by the erase gesture; no symbols accompany it
	Panic bool
}

// motion is the classified state of one rule group; symbols are emitted on changes only
type motion int

const (
	still motion = iota
	flickX
	flickY
	tiltRight
	tiltLeft
	flatUp
	flatDown
)

func (m motion) symbol() morse.Symbol {
	switch m {
	case flickX, tiltRight, flatUp:
		return morse.SymDot
	case flickY, tiltLeft, flatDown:
		return morse.SymDash
	}
	return morse.SymNone
}

// Classifier applies the threshold rules. It captures the temperature
// baseline from the first sample it sees.
//
// A gesture yields one symbol when it starts: a held pose or a flick spread
// over several samples is reported once, and repeating it needs a different
// pose (or none) in between.
type Classifier struct {
	mu         sync.Mutex
	thresholds Thresholds

	baseline    float64
	hasBaseline bool

	lastRate motion
	lastPose motion
}

// NewClassifier creates a classifier with validated thresholds
func NewClassifier(t Thresholds) (*Classifier, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &Classifier{thresholds: t}, nil
}

// SetThresholds replaces the thresholds. The baseline is kept.
func (c *Classifier) SetThresholds(t Thresholds) error {
	if err := t.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.thresholds = t
	return nil
}

// Thresholds returns the active thresholds
func (c *Classifier) Thresholds() Thresholds {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.thresholds
}

// Baseline returns the captured temperature baseline
func (c *Classifier) Baseline() (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.baseline, c.hasBaseline
}

// Classify evaluates one sample
func (c *Classifier) Classify(s Sample) Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.hasBaseline {
		c.baseline = s.Temp
		c.hasBaseline = true
	}
	t := c.thresholds

	gx, gy, gz := s.Gyro[0], s.Gyro[1], s.Gyro[2]
	if math.Abs(gx) > t.PanicRate && math.Abs(gy) > t.PanicRate && math.Abs(gz) > t.PanicRate {
		c.lastRate = still
		return Result{Panic: true}
	}

	var res Result
	rate := classifyRate(t, gx, gy, gz)
	if rate != c.lastRate && rate != still {
		res.Symbols = append(res.Symbols, rate.symbol())
	}
	c.lastRate = rate

	warm := s.Temp > c.baseline+t.TempRise
	pose := classifyOrientation(t, s.Accel, warm)
	if pose != c.lastPose && pose != still {
		res.Symbols = append(res.Symbols, pose.symbol())
	}
	c.lastPose = pose
	return res
}

// classifyRate handles the single-axis flicks
func classifyRate(t Thresholds, gx, gy, gz float64) motion {
	switch {
	case gx < -t.StrongRate && math.Abs(gy) < t.QuietRate && math.Abs(gz) < t.QuietRate:
		return flickX
	case gy > t.StrongRate && math.Abs(gx) < t.QuietRate && math.Abs(gz) < t.QuietRate:
		return flickY
	}
	return still
}

// classifyOrientation handles held poses. Tilts need the warm-hand gate so a
// device left lying on its side is not read as a gesture.
func classifyOrientation(t Thresholds, a [3]float64, warm bool) motion {
	ax, ay, az := a[0], a[1], a[2]
	level := math.Abs(ax) < t.Level && math.Abs(ay) < t.Level

	switch {
	case ay > t.Tilt && warm:
		return tiltRight
	case ay < -t.Tilt && warm:
		return tiltLeft
	case az > t.Flat && level:
		return flatUp
	case az < -t.Flat && level:
		return flatDown
	}
	return still
}
