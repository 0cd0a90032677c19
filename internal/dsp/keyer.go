package dsp

import (
	"errors"
	"math"
	"time"

	"github.com/ColonelBlimp/morsehat/internal/morse"
)

// Decision boundaries in dit units
const (
	DefaultDahBoundary  = 2.0 // marks longer than this are dahs
	DefaultCharBoundary = 2.0 // gaps longer than this end a character
	DefaultWordBoundary = 5.0 // gaps longer than this end a word
	DefaultEndBoundary  = 14.0
	// adaptRate is the EMA weight given to each new mark when tracking speed
	adaptRate = 0.2
)

var ErrInvalidBoundary = errors.New("keyer boundaries must satisfy 0 < char < word < end and dah > 0")

// KeyerConfig sets the keying speed and the gap decisions
type KeyerConfig struct {
	WPM          int
	DahBoundary  float64
	CharBoundary float64
	WordBoundary float64
	// EndBoundary is the silence that finishes the message
	EndBoundary float64
	// Adaptive follows the sender's speed from the marks received
	Adaptive bool
}

// DefaultKeyerConfig returns ITU boundaries at wpm
func DefaultKeyerConfig(wpm int) KeyerConfig {
	return KeyerConfig{
		WPM:          wpm,
		DahBoundary:  DefaultDahBoundary,
		CharBoundary: DefaultCharBoundary,
		WordBoundary: DefaultWordBoundary,
		EndBoundary:  DefaultEndBoundary,
		Adaptive:     true,
	}
}

// Keyer converts tone events into the wire bytes the session receives:
// '.', '-', ' ' between letters, two spaces between words, '\n' at the end.
type Keyer struct {
	cfg     KeyerConfig
	dit     float64 // seconds
	initial float64
	started bool
}

// NewKeyer validates cfg
func NewKeyer(cfg KeyerConfig) (*Keyer, error) {
	dit, err := morse.DitDuration(cfg.WPM)
	if err != nil {
		return nil, err
	}
	if cfg.DahBoundary <= 0 || cfg.CharBoundary <= 0 ||
		cfg.WordBoundary <= cfg.CharBoundary || cfg.EndBoundary <= cfg.WordBoundary {
		return nil, ErrInvalidBoundary
	}
	return &Keyer{cfg: cfg, dit: dit.Seconds(), initial: dit.Seconds()}, nil
}

// Event classifies one tone change
func (k *Keyer) Event(ev ToneEvent) []byte {
	units := ev.Duration.Seconds() / k.dit

	if ev.On {
		// a gap just ended; gaps before the first mark belong to no message
		if !k.started {
			return nil
		}
		switch {
		case units > k.cfg.WordBoundary:
			return []byte{morse.Space, morse.Space}
		case units > k.cfg.CharBoundary:
			return []byte{morse.Space}
		}
		return nil
	}

	k.started = true
	dah := units > k.cfg.DahBoundary
	if k.cfg.Adaptive {
		k.adapt(ev.Duration.Seconds(), dah)
	}
	if dah {
		return []byte{morse.Dash}
	}
	return []byte{morse.Dot}
}

// Idle reports silence so far; it ends the message once the silence is long enough
func (k *Keyer) Idle(silence time.Duration) []byte {
	if !k.started || silence.Seconds()/k.dit <= k.cfg.EndBoundary {
		return nil
	}
	k.started = false
	return []byte{morse.Terminator}
}

func (k *Keyer) adapt(mark float64, dah bool) {
	est := mark
	if dah {
		est /= morse.DahDitRatio
	}
	k.dit = (1-adaptRate)*k.dit + adaptRate*est
}

// Dit returns the current dit estimate
func (k *Keyer) Dit() time.Duration {
	return time.Duration(math.Round(k.dit * float64(time.Second)))
}

// WPM returns the current speed estimate
func (k *Keyer) WPM() int {
	return int(time.Minute.Seconds()/(k.dit*morse.DitsPerWord) + 0.5)
}

// Reset returns to the configured speed and drops any partial message
func (k *Keyer) Reset() {
	k.dit = k.initial
	k.started = false
}
