package tasks

import (
	"context"
	"time"

	"github.com/ColonelBlimp/morsehat/internal/ports"
)

// Note is one step of a melody; Hz == 0 is a rest
type Note struct {
	Hz       float64
	Duration time.Duration
}

// EraseMelody is played when the panic gesture clears the message
var EraseMelody = []Note{
	{Hz: 1047, Duration: 90 * time.Millisecond},
	{Hz: 784, Duration: 90 * time.Millisecond},
	{Hz: 659, Duration: 90 * time.Millisecond},
	{Hz: 0, Duration: 40 * time.Millisecond},
	{Hz: 523, Duration: 220 * time.Millisecond},
}

// PlayMelody plays notes in order, stopping at the first error
func PlayMelody(ctx context.Context, sink ports.ToneSink, notes []Note) error {
	for _, n := range notes {
		if err := sink.Tone(ctx, n.Hz, n.Duration); err != nil {
			return err
		}
	}
	return nil
}
