// Package tasks contains the long-running workers that connect the hat's
// sensors, actuators, and links to the session.
package tasks

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ColonelBlimp/morsehat/internal/gesture"
	"github.com/ColonelBlimp/morsehat/internal/message"
	"github.com/ColonelBlimp/morsehat/internal/ports"
	"github.com/ColonelBlimp/morsehat/internal/session"
)

// DefaultPollInterval is the sensor sampling period
const DefaultPollInterval = 100 * time.Millisecond

// GestureTask samples the motion sensor and feeds classified symbols to the session
type GestureTask struct {
	Sensor     ports.MotionSensor
	Classifier *gesture.Classifier
	Session    *session.Session
	// Melody plays the erase tune on the panic gesture; nil skips it
	Melody   ports.ToneSink
	Interval time.Duration
	Log      logrus.FieldLogger
}

// Run samples until ctx is done
func (g *GestureTask) Run(ctx context.Context) error {
	log := g.Log.WithField("component", "gesture")
	ticker := time.NewTicker(interval(g.Interval))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		sample, err := g.Sensor.ReadSample(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			log.WithError(err).Warn("motion sample discarded")
			continue
		}
		g.apply(ctx, log, g.Classifier.Classify(sample))
	}
}

func (g *GestureTask) apply(ctx context.Context, log logrus.Ext1FieldLogger, res gesture.Result) {
	if res.Panic {
		erased, err := g.Session.Panic()
		if err != nil {
			log.WithError(err).Debug("panic gesture ignored")
			return
		}
		if !erased {
			log.Trace("panic gesture with nothing to erase")
			return
		}
		log.Info("panic gesture, message erased")
		if g.Melody != nil {
			if err := PlayMelody(ctx, g.Melody, EraseMelody); err != nil {
				log.WithError(err).Warn("erase melody failed")
			}
		}
		return
	}

	for _, sym := range res.Symbols {
		err := g.Session.AddSymbol(sym)
		switch {
		case err == nil:
			log.WithField("symbol", sym).Debug("symbol added")
		case errors.Is(err, message.ErrFull):
			log.WithField("symbol", sym).Warn("outgoing message full, symbol dropped")
		default:
			log.WithError(err).Trace("symbol ignored")
		}
	}
}

// LightTask treats the light sensor going dark as a space trigger
type LightTask struct {
	Sensor    ports.LightSensor
	Session   *session.Session
	Threshold float64
	Interval  time.Duration
	Log       logrus.FieldLogger
}

// Run polls until ctx is done. Only the bright-to-dark edge triggers.
func (l *LightTask) Run(ctx context.Context) error {
	log := l.Log.WithField("component", "light")
	ticker := time.NewTicker(interval(l.Interval))
	defer ticker.Stop()

	dark := false
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		lux, err := l.Sensor.ReadLux(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			log.WithError(err).Warn("light reading discarded")
			continue
		}

		nowDark := lux < l.Threshold
		if nowDark && !dark {
			if err := l.Session.LightDark(); err != nil {
				log.WithError(err).Debug("light space ignored")
			} else {
				log.WithField("lux", lux).Debug("light space")
			}
		}
		dark = nowDark
	}
}

// ButtonTask forwards button edges to the session
type ButtonTask struct {
	Buttons ports.Buttons
	Session *session.Session
	Log     logrus.FieldLogger
}

// Run forwards edges until the stream closes or ctx is done
func (b *ButtonTask) Run(ctx context.Context) error {
	log := b.Log.WithField("component", "buttons")
	edges := b.Buttons.Edges(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case edge, ok := <-edges:
			if !ok {
				return nil
			}
			var err error
			if edge.Button == ports.ButtonPrimary {
				err = b.Session.PressPrimary()
			} else {
				err = b.Session.PressSecondary()
			}
			entry := log.WithField("button", edge.Button)
			switch {
			case err == nil:
				entry.Debug("button accepted")
			case errors.Is(err, session.ErrBounced):
				entry.Trace("button bounce")
			default:
				entry.WithError(err).Debug("button ignored")
			}
		}
	}
}

func interval(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultPollInterval
	}
	return d
}
