package tasks

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/ColonelBlimp/morsehat/internal/dsp"
	"github.com/ColonelBlimp/morsehat/internal/session"
)

// SampleSource delivers captured audio blocks. *audio.Capture implements it.
type SampleSource interface {
	Samples() <-chan []float32
}

// ListenTask keys audio heard on the microphone into the display lane,
// as if the bytes had arrived on a link
type ListenTask struct {
	Source   SampleSource
	Detector *dsp.Detector
	Keyer    *dsp.Keyer
	Session  *session.Session
	Log      logrus.FieldLogger
}

// Run consumes blocks until ctx is done
func (l *ListenTask) Run(ctx context.Context) error {
	log := l.Log.WithField("component", "listen")
	samples := l.Source.Samples()

	for {
		select {
		case <-ctx.Done():
			return nil
		case block := <-samples:
			for _, ev := range l.Detector.Process(block) {
				l.feed(log, l.Keyer.Event(ev))
			}
			if out := l.Keyer.Idle(l.Detector.Silence()); len(out) > 0 {
				l.feed(log, out)
				log.WithField("wpm", l.Keyer.WPM()).Debug("heard message")
			}
		}
	}
}

func (l *ListenTask) feed(log logrus.FieldLogger, out []byte) {
	for _, b := range out {
		if err := l.Session.ReceiveByte(b); err != nil {
			log.WithError(err).Trace("heard byte dropped")
		}
	}
}
