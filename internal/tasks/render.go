package tasks

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ColonelBlimp/morsehat/internal/morse"
	"github.com/ColonelBlimp/morsehat/internal/ports"
	"github.com/ColonelBlimp/morsehat/internal/session"
)

// Signaller receives renderer completions. *session.Coordinator implements it.
type Signaller interface {
	Signal(ctx context.Context, c session.Completion) error
}

// Renderer draws one display cycle on one output
type Renderer interface {
	Output() session.Output
	Render(ctx context.Context, dc session.DisplayCycle) error
}

// RenderTask runs a renderer once per display cycle and reports completion.
// Completion is reported even when rendering fails so the display lane cannot stall.
type RenderTask struct {
	Renderer Renderer
	Cycles   <-chan session.DisplayCycle
	Done     Signaller
	Log      logrus.FieldLogger
}

// Run renders cycles until ctx is done or the cycle stream closes
func (r *RenderTask) Run(ctx context.Context) error {
	out := r.Renderer.Output()
	log := r.Log.WithFields(logrus.Fields{"component": "render", "output": out})

	for {
		var dc session.DisplayCycle
		var ok bool
		select {
		case <-ctx.Done():
			return nil
		case dc, ok = <-r.Cycles:
			if !ok {
				return nil
			}
		}

		entry := log.WithField("cycle", dc.ID)
		if err := r.Renderer.Render(ctx, dc); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			entry.WithError(err).Warn("render failed")
		}
		if err := r.Done.Signal(ctx, session.Completion{Cycle: dc.ID, Output: out}); err != nil {
			return nil
		}
		entry.Debug("rendered")
	}
}

// Keyer holds the shared keying speed for sound and light
type Keyer struct {
	Dit time.Duration
}

// NewKeyer returns a keyer for wpm
func NewKeyer(wpm int) (Keyer, error) {
	dit, err := morse.DitDuration(wpm)
	if err != nil {
		return Keyer{}, err
	}
	return Keyer{Dit: dit}, nil
}

// play walks the keying of text, calling on/off for each interval
func (k Keyer) play(ctx context.Context, text string, on func(time.Duration) error, off func(time.Duration) error) error {
	wire, _ := morse.EncodeText(text)
	for _, el := range morse.Keying(wire) {
		d := time.Duration(el.Dits) * k.Dit
		var err error
		if el.On {
			err = on(d)
		} else {
			err = off(d)
		}
		if err != nil {
			return err
		}
	}
	return ctx.Err()
}

// AudioRenderer sounds the decoded message on the buzzer
type AudioRenderer struct {
	Sink      ports.ToneSink
	Keyer     Keyer
	Frequency float64
}

func (a *AudioRenderer) Output() session.Output { return session.OutputAudio }

func (a *AudioRenderer) Render(ctx context.Context, dc session.DisplayCycle) error {
	return a.Keyer.play(ctx, dc.Text,
		func(d time.Duration) error { return a.Sink.Tone(ctx, a.Frequency, d) },
		func(d time.Duration) error { return a.Sink.Tone(ctx, 0, d) },
	)
}

// Status light colours
var (
	ColorOff   = ports.RGB{}
	ColorDot   = ports.RGB{R: 0, G: 80, B: 255}
	ColorDash  = ports.RGB{R: 255, G: 40, B: 0}
	ColorError = ports.RGB{R: 255, G: 0, B: 160}
)

// LightRenderer flashes the decoded message on the RGB light: blue for dits, orange for dahs
type LightRenderer struct {
	Sink  ports.LightSink
	Keyer Keyer
}

func (l *LightRenderer) Output() session.Output { return session.OutputLight }

func (l *LightRenderer) Render(ctx context.Context, dc session.DisplayCycle) error {
	dah := time.Duration(morse.DahDitRatio) * l.Keyer.Dit
	err := l.Keyer.play(ctx, dc.Text,
		func(d time.Duration) error {
			c := ColorDot
			if d >= dah {
				c = ColorDash
			}
			return l.flash(ctx, c, d)
		},
		func(d time.Duration) error { return l.flash(ctx, ColorOff, d) },
	)
	if err != nil {
		_ = l.Sink.SetColor(context.Background(), ColorOff)
		return err
	}
	if dc.Err != nil {
		if err := l.flash(ctx, ColorError, l.Keyer.Dit*time.Duration(morse.WordGap)); err != nil {
			return err
		}
	}
	return l.Sink.SetColor(ctx, ColorOff)
}

func (l *LightRenderer) flash(ctx context.Context, c ports.RGB, d time.Duration) error {
	if err := l.Sink.SetColor(ctx, c); err != nil {
		return err
	}
	return sleep(ctx, d)
}

// TextRenderer shows the decoded message on the screen
type TextRenderer struct {
	Sink ports.TextSink
}

func (t *TextRenderer) Output() session.Output { return session.OutputText }

func (t *TextRenderer) Render(ctx context.Context, dc session.DisplayCycle) error {
	return t.Sink.ShowText(ctx, dc.Text)
}

func sleep(ctx context.Context, d time.Duration) error {
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
