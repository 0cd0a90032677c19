package audio

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
)

// PlayerConfig holds buzzer playback settings
type PlayerConfig struct {
	DeviceIndex int
	SampleRate  uint32
	// Volume is the peak amplitude, 0..1
	Volume float64
}

// DefaultPlayerConfig returns the default device at 48kHz, half volume
func DefaultPlayerConfig() PlayerConfig {
	return PlayerConfig{DeviceIndex: -1, SampleRate: 48000, Volume: 0.5}
}

// rampTime is the attack and release of each tone, long enough to avoid clicks
const rampTime = 4 * time.Millisecond

// oscillator is a phase-continuous sine with a linear gain ramp
type oscillator struct {
	mu     sync.Mutex
	rate   float64
	volume float64
	freq   float64
	phase  float64
	gain   float64
	target float64
	step   float64
}

func newOscillator(rate uint32, volume float64) *oscillator {
	r := float64(rate)
	return &oscillator{
		rate:   r,
		volume: volume,
		step:   1 / (rampTime.Seconds() * r),
	}
}

// set starts a tone at hz, or releases it when hz <= 0
func (o *oscillator) set(hz float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if hz <= 0 {
		o.target = 0
		return
	}
	o.freq = hz
	o.target = 1
}

func (o *oscillator) fill(out []float32) {
	o.mu.Lock()
	defer o.mu.Unlock()
	inc := 2 * math.Pi * o.freq / o.rate
	for i := range out {
		switch {
		case o.gain < o.target:
			o.gain = math.Min(o.target, o.gain+o.step)
		case o.gain > o.target:
			o.gain = math.Max(o.target, o.gain-o.step)
		}
		if o.gain == 0 {
			out[i] = 0
			continue
		}
		out[i] = float32(o.volume * o.gain * math.Sin(o.phase))
		o.phase += inc
		if o.phase >= 2*math.Pi {
			o.phase -= 2 * math.Pi
		}
	}
}

// Player is a ToneSink on an output device
type Player struct {
	backend *Backend
	cfg     PlayerConfig
	osc     *oscillator

	mu      sync.Mutex
	device  *malgo.Device
	scratch []float32
}

// NewPlayer creates a player on b
func NewPlayer(b *Backend, cfg PlayerConfig) *Player {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = DefaultPlayerConfig().SampleRate
	}
	return &Player{
		backend: b,
		cfg:     cfg,
		osc:     newOscillator(cfg.SampleRate, cfg.Volume),
	}
}

// Start opens the output device; it plays silence until Tone is called
func (p *Player) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.device != nil {
		return ErrAlreadyRunning
	}

	id, err := p.backend.deviceID(DirPlayback, p.cfg.DeviceIndex)
	if err != nil {
		return err
	}
	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.SampleRate = p.cfg.SampleRate
	cfg.Playback.Format = malgo.FormatF32
	cfg.Playback.Channels = 1
	cfg.Playback.DeviceID = id

	dev, err := p.backend.initDevice(cfg, malgo.DeviceCallbacks{Data: p.render})
	if err != nil {
		return err
	}
	if err := dev.Start(); err != nil {
		dev.Uninit()
		return fmt.Errorf("start playback: %w", err)
	}
	p.device = dev
	return nil
}

// render runs on the audio thread
func (p *Player) render(out, _ []byte, frames uint32) {
	n := int(frames)
	if cap(p.scratch) < n {
		p.scratch = make([]float32, n)
	}
	buf := p.scratch[:n]
	p.osc.fill(buf)
	encodeF32(out, buf)
}

// Tone sounds hz for d and then releases it. hz <= 0 is a rest.
func (p *Player) Tone(ctx context.Context, hz float64, d time.Duration) error {
	p.osc.set(hz)
	defer p.osc.set(0)

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Close stops the output device
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.device == nil {
		return nil
	}
	_ = p.device.Stop()
	p.device.Uninit()
	p.device = nil
	return nil
}
