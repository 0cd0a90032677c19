// Package audio plays the buzzer tone and captures listen-mode audio on the
// host through miniaudio.
package audio

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"github.com/gen2brain/malgo"
)

var (
	ErrClosed         = errors.New("audio backend closed")
	ErrAlreadyRunning = errors.New("audio device already running")
	ErrNotRunning     = errors.New("audio device not running")
	ErrNoDevice       = errors.New("audio device index out of range")
)

// Direction selects playback or capture devices
type Direction int

const (
	DirPlayback Direction = iota
	DirCapture
)

func (d Direction) String() string {
	if d == DirCapture {
		return "capture"
	}
	return "playback"
}

func (d Direction) malgo() malgo.DeviceType {
	if d == DirCapture {
		return malgo.Capture
	}
	return malgo.Playback
}

// Device describes one audio endpoint
type Device struct {
	Index   int
	Name    string
	Default bool
}

// Backend owns the miniaudio context shared by the player and the capture
type Backend struct {
	mu  sync.Mutex
	ctx *malgo.AllocatedContext
}

// Open initialises the audio backend
func Open() (*Backend, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("init audio context: %w", err)
	}
	return &Backend{ctx: ctx}, nil
}

// Devices lists the endpoints in one direction
func (b *Backend) Devices(dir Direction) ([]Device, error) {
	infos, err := b.infos(dir)
	if err != nil {
		return nil, err
	}
	out := make([]Device, len(infos))
	for i, info := range infos {
		out[i] = Device{Index: i, Name: info.Name(), Default: info.IsDefault != 0}
	}
	return out, nil
}

func (b *Backend) infos(dir Direction) ([]malgo.DeviceInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ctx == nil {
		return nil, ErrClosed
	}
	infos, err := b.ctx.Devices(dir.malgo())
	if err != nil {
		return nil, fmt.Errorf("enumerate %s devices: %w", dir, err)
	}
	return infos, nil
}

// deviceID resolves index to a device id; a negative index means the system default
func (b *Backend) deviceID(dir Direction, index int) (unsafe.Pointer, error) {
	if index < 0 {
		return nil, nil
	}
	infos, err := b.infos(dir)
	if err != nil {
		return nil, err
	}
	if index >= len(infos) {
		return nil, fmt.Errorf("%w: %s index %d (have %d)", ErrNoDevice, dir, index, len(infos))
	}
	return infos[index].ID.Pointer(), nil
}

func (b *Backend) initDevice(cfg malgo.DeviceConfig, cb malgo.DeviceCallbacks) (*malgo.Device, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ctx == nil {
		return nil, ErrClosed
	}
	dev, err := malgo.InitDevice(b.ctx.Context, cfg, cb)
	if err != nil {
		return nil, fmt.Errorf("init device: %w", err)
	}
	return dev, nil
}

// Close releases the context. Devices must be stopped first.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ctx == nil {
		return nil
	}
	err := b.ctx.Uninit()
	b.ctx.Free()
	b.ctx = nil
	if err != nil {
		return fmt.Errorf("uninit audio context: %w", err)
	}
	return nil
}
