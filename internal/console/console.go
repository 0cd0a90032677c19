// Package console provides host stand-ins for the hat's actuators when the
// runtime is not attached to real hardware.
package console

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ColonelBlimp/morsehat/internal/ports"
)

// Light reports colour changes of the status light as log entries
type Light struct {
	log logrus.FieldLogger

	mu      sync.Mutex
	current ports.RGB
}

// NewLight creates a light that starts off
func NewLight(log logrus.FieldLogger) *Light {
	return &Light{log: log.WithField("component", "light")}
}

func (l *Light) SetColor(ctx context.Context, c ports.RGB) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if c == l.current {
		return nil
	}
	l.current = c
	l.log.WithField("color", Hex(c)).Trace("light")
	return nil
}

// Color returns the colour last set
func (l *Light) Color() ports.RGB {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}

// Hex formats c as #rrggbb
func Hex(c ports.RGB) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Text writes each message as one line
type Text struct {
	mu  sync.Mutex
	out io.Writer
}

// NewText creates a text sink on out
func NewText(out io.Writer) *Text {
	return &Text{out: out}
}

func (t *Text) ShowText(ctx context.Context, text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := fmt.Fprintln(t.out, text)
	return err
}

// Silent keeps tone timing without producing sound. It is used when audio is disabled.
type Silent struct{}

func (Silent) Tone(ctx context.Context, hz float64, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
