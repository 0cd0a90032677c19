// Package dsp turns captured audio into keyed Morse for listen mode.
package dsp

import (
	"errors"
	"math"
)

var (
	ErrInvalidBlockSize    = errors.New("block size must be positive")
	ErrInvalidSampleRate   = errors.New("sample rate must be positive")
	ErrInvalidFrequency    = errors.New("tone frequency must be positive and below Nyquist")
	ErrInsufficientSamples = errors.New("fewer samples than the block size")
)

// GoertzelConfig selects the tone to listen for
type GoertzelConfig struct {
	Frequency  float64 // tone_frequency
	SampleRate float64 // sample_rate
	BlockSize  int     // block_size
}

// Goertzel measures the energy of one frequency bin per block
type Goertzel struct {
	cfg   GoertzelConfig
	coeff float64
	norm  float64
}

// NewGoertzel validates cfg and precomputes the filter coefficient
func NewGoertzel(cfg GoertzelConfig) (*Goertzel, error) {
	if cfg.BlockSize <= 0 {
		return nil, ErrInvalidBlockSize
	}
	if cfg.SampleRate <= 0 {
		return nil, ErrInvalidSampleRate
	}
	if cfg.Frequency <= 0 || cfg.Frequency >= cfg.SampleRate/2 {
		return nil, ErrInvalidFrequency
	}

	omega := 2 * math.Pi * cfg.Frequency / cfg.SampleRate
	return &Goertzel{
		cfg:   cfg,
		coeff: 2 * math.Cos(omega),
		norm:  2 / float64(cfg.BlockSize),
	}, nil
}

// Magnitude returns the normalised tone magnitude of the first BlockSize
// samples. A full-scale sine at the target frequency gives about 1.0.
func (g *Goertzel) Magnitude(samples []float32) (float64, error) {
	if len(samples) < g.cfg.BlockSize {
		return 0, ErrInsufficientSamples
	}
	return g.magnitude(samples[:g.cfg.BlockSize]), nil
}

func (g *Goertzel) magnitude(block []float32) float64 {
	var s1, s2 float64
	for _, x := range block {
		s0 := float64(x) + g.coeff*s1 - s2
		s2, s1 = s1, s0
	}
	power := s1*s1 + s2*s2 - g.coeff*s1*s2
	if power < 0 {
		power = 0
	}
	return math.Sqrt(power) * g.norm
}

// BlockSize returns the samples consumed per measurement
func (g *Goertzel) BlockSize() int { return g.cfg.BlockSize }

// SampleRate returns the configured rate in Hz
func (g *Goertzel) SampleRate() float64 { return g.cfg.SampleRate }
