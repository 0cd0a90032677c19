package audio

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"

	"github.com/ColonelBlimp/morsehat/internal/recovery"
)

// CaptureConfig holds listen-mode capture settings
type CaptureConfig struct {
	DeviceIndex int    // -1 for the default device
	SampleRate  uint32 // e.g. 48000
	BlockSize   uint32 // frames per callback
}

// DefaultCaptureConfig returns mono 48kHz capture in 512-frame blocks
func DefaultCaptureConfig() CaptureConfig {
	return CaptureConfig{
		DeviceIndex: -1,
		SampleRate:  48000,
		BlockSize:   512,
	}
}

// Capture streams mono float32 blocks from an input device
type Capture struct {
	backend *Backend
	cfg     CaptureConfig

	mu      sync.Mutex
	device  *malgo.Device
	samples chan []float32
	dropped atomic.Uint64
}

// NewCapture creates a capture on b
func NewCapture(b *Backend, cfg CaptureConfig) *Capture {
	return &Capture{
		backend: b,
		cfg:     cfg,
		samples: make(chan []float32, 64),
	}
}

// SampleRate returns the configured rate
func (c *Capture) SampleRate() uint32 { return c.cfg.SampleRate }

// Samples delivers captured blocks. It is never closed.
func (c *Capture) Samples() <-chan []float32 { return c.samples }

// Dropped counts blocks discarded because the consumer fell behind
func (c *Capture) Dropped() uint64 { return c.dropped.Load() }

// Start opens the device and captures until ctx is done or Stop is called
func (c *Capture) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device != nil {
		return ErrAlreadyRunning
	}

	id, err := c.backend.deviceID(DirCapture, c.cfg.DeviceIndex)
	if err != nil {
		return err
	}
	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.SampleRate = c.cfg.SampleRate
	cfg.PeriodSizeInFrames = c.cfg.BlockSize
	cfg.Capture.Format = malgo.FormatF32
	cfg.Capture.Channels = 1
	cfg.Capture.DeviceID = id

	dev, err := c.backend.initDevice(cfg, malgo.DeviceCallbacks{
		Data: func(_, in []byte, _ uint32) { c.deliver(in) },
	})
	if err != nil {
		return err
	}
	if err := dev.Start(); err != nil {
		dev.Uninit()
		return fmt.Errorf("start capture: %w", err)
	}
	c.device = dev

	recovery.Go("capture-stop", func() {
		<-ctx.Done()
		_ = c.Stop()
	})
	return nil
}

// deliver runs on the audio thread and must not block
func (c *Capture) deliver(in []byte) {
	if len(in) == 0 {
		return
	}
	select {
	case c.samples <- decodeF32(in):
	default:
		c.dropped.Add(1)
	}
}

// Stop closes the device
func (c *Capture) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return ErrNotRunning
	}
	_ = c.device.Stop()
	c.device.Uninit()
	c.device = nil
	return nil
}

// IsRunning reports whether the device is open
func (c *Capture) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.device != nil
}
