// Package ports declares the hardware and transport capabilities the hat
// runtime is driven by or calls into.
package ports

import (
	"context"
	"io"
	"time"

	"github.com/ColonelBlimp/morsehat/internal/gesture"
)

// MotionSensor delivers six-axis samples plus die temperature
type MotionSensor interface {
	ReadSample(ctx context.Context) (gesture.Sample, error)
}

// LightSensor delivers ambient light readings in lux-equivalent units
type LightSensor interface {
	ReadLux(ctx context.Context) (float64, error)
}

// Button identifies one of the two edge-triggered inputs
type Button int

const (
	ButtonPrimary Button = iota
	ButtonSecondary
)

func (b Button) String() string {
	if b == ButtonPrimary {
		return "primary"
	}
	return "secondary"
}

// ButtonEdge is one press reported by the hardware
type ButtonEdge struct {
	Button Button
	At     time.Time
}

// Buttons streams edges until ctx is done
type Buttons interface {
	Edges(ctx context.Context) <-chan ButtonEdge
}

// RGB is a colour for the status light
type RGB struct {
	R, G, B uint8
}

// ToneSink plays a tone for a duration, blocking until it ends. hz == 0 is silence.
type ToneSink interface {
	Tone(ctx context.Context, hz float64, d time.Duration) error
}

// LightSink drives the RGB light
type LightSink interface {
	SetColor(ctx context.Context, c RGB) error
}

// TextSink shows text on the screen
type TextSink interface {
	ShowText(ctx context.Context, text string) error
}

// Link is a bidirectional byte channel to the other side of the conversation
type Link interface {
	io.ReadWriteCloser
	Name() string
}
