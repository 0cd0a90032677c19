package dsp

import (
	"errors"
	"time"
)

var (
	ErrInvalidThreshold  = errors.New("threshold must be between 0.0 and 1.0")
	ErrInvalidHysteresis = errors.New("hysteresis must be non-negative")
	ErrInvalidAGC        = errors.New("agc attack and decay must be between 0.0 and 1.0")
	ErrGoertzelRequired  = errors.New("goertzel instance is required")
)

// ToneEvent is a confirmed change of tone state. Duration is how long the
// previous state lasted, measured in sample time.
type ToneEvent struct {
	On        bool
	Duration  time.Duration
	Magnitude float64
}

// DetectorConfig holds the on/off decision settings
type DetectorConfig struct {
	// Threshold is the normalised magnitude above which a tone is present
	Threshold float64
	// Hysteresis is the number of consecutive blocks needed to confirm a change
	Hysteresis int
	AGC        bool
	AGCAttack  float64
	AGCDecay   float64
	// AGCWarmup blocks only calibrate the gain; no events are produced
	AGCWarmup int
}

// DefaultDetectorConfig suits a clean sidetone
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		Threshold:  0.4,
		Hysteresis: 2,
		AGC:        true,
		AGCAttack:  0.5,
		AGCDecay:   0.999,
		AGCWarmup:  4,
	}
}

// Detector turns blocks of audio into tone on/off events. Time is derived
// from the number of samples processed, so results do not depend on when
// blocks are delivered. A Detector is not safe for concurrent use.
type Detector struct {
	cfg      DetectorConfig
	g        *Goertzel
	blockDur time.Duration
	buf      []float32

	peak   float64
	warmed int

	tone      bool
	pending   int
	pendingAt time.Duration
	elapsed   time.Duration
}

// NewDetector validates cfg and binds it to g
func NewDetector(cfg DetectorConfig, g *Goertzel) (*Detector, error) {
	if g == nil {
		return nil, ErrGoertzelRequired
	}
	if cfg.Threshold < 0 || cfg.Threshold > 1 {
		return nil, ErrInvalidThreshold
	}
	if cfg.Hysteresis < 0 {
		return nil, ErrInvalidHysteresis
	}
	if cfg.AGCAttack < 0 || cfg.AGCAttack > 1 || cfg.AGCDecay < 0 || cfg.AGCDecay > 1 {
		return nil, ErrInvalidAGC
	}
	return &Detector{
		cfg:      cfg,
		g:        g,
		blockDur: time.Duration(float64(g.BlockSize()) / g.SampleRate() * float64(time.Second)),
		buf:      make([]float32, 0, 2*g.BlockSize()),
		peak:     1,
	}, nil
}

// BlockDuration is the sample time covered by one block
func (d *Detector) BlockDuration() time.Duration { return d.blockDur }

// Process consumes samples and returns the tone changes they confirm
func (d *Detector) Process(samples []float32) []ToneEvent {
	d.buf = append(d.buf, samples...)
	n := d.g.BlockSize()

	var events []ToneEvent
	for len(d.buf) >= n {
		if ev, ok := d.block(d.buf[:n]); ok {
			events = append(events, ev)
		}
		d.buf = append(d.buf[:0], d.buf[n:]...)
	}
	return events
}

func (d *Detector) block(b []float32) (ToneEvent, bool) {
	mag := d.g.magnitude(b)

	if d.warmed < d.cfg.AGCWarmup {
		d.warmed++
		if d.cfg.AGC && (d.warmed == 1 || mag > d.peak) && mag > 0.001 {
			d.peak = mag
		}
		return ToneEvent{}, false
	}

	if d.cfg.AGC {
		mag = d.agc(mag)
	}
	d.elapsed += d.blockDur

	present := mag > d.cfg.Threshold
	if present == d.tone {
		d.pending = 0
		return ToneEvent{}, false
	}
	if d.pending == 0 {
		d.pendingAt = d.elapsed - d.blockDur
	}
	d.pending++
	if d.pending < d.cfg.Hysteresis {
		return ToneEvent{}, false
	}

	ev := ToneEvent{On: present, Duration: d.pendingAt, Magnitude: mag}
	d.tone = present
	d.elapsed -= d.pendingAt
	d.pending = 0
	return ev, true
}

func (d *Detector) agc(mag float64) float64 {
	if mag > d.peak {
		d.peak += d.cfg.AGCAttack * (mag - d.peak)
	} else {
		d.peak *= d.cfg.AGCDecay
	}
	if d.peak < 0.001 {
		d.peak = 0.001
	}
	return min(mag/d.peak, 1)
}

// ToneOn reports the confirmed state
func (d *Detector) ToneOn() bool { return d.tone }

// Silence returns how long the tone has been off, or 0 while it is on
func (d *Detector) Silence() time.Duration {
	if d.tone {
		return 0
	}
	return d.elapsed
}

// Reset forgets all state except the configuration
func (d *Detector) Reset() {
	d.buf = d.buf[:0]
	d.peak = 1
	d.warmed = 0
	d.tone = false
	d.pending = 0
	d.pendingAt = 0
	d.elapsed = 0
}
