package tasks

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ColonelBlimp/morsehat/internal/ports"
	"github.com/ColonelBlimp/morsehat/internal/session"
)

// TransmitTask flushes each finished outgoing message to every link
type TransmitTask struct {
	Session *session.Session
	Links   []ports.Link
	// Echo, if set, shows what was sent
	Echo ports.TextSink
	Log  logrus.FieldLogger
}

// Run waits for the compose lane to reach Transmitting, sends, and returns it to Idle
func (t *TransmitTask) Run(ctx context.Context) error {
	log := t.Log.WithField("component", "transmit")

	for {
		if _, err := t.Session.WaitFor(ctx, func(s session.Snapshot) bool {
			return s.Compose == session.Transmitting
		}); err != nil {
			return nil
		}

		out, id, err := t.Session.BeginTransmit()
		if err != nil {
			log.WithError(err).Warn("transmit state lost")
			continue
		}

		entry := log.WithFields(logrus.Fields{"session": id, "bytes": len(out)})
		sent := 0
		for _, l := range t.Links {
			if _, err := l.Write(out); err != nil {
				entry.WithError(err).WithField("link", l.Name()).Warn("send failed")
				continue
			}
			sent++
		}
		if t.Echo != nil {
			if err := t.Echo.ShowText(ctx, "> "+string(out[:len(out)-1])); err != nil {
				entry.WithError(err).Debug("echo failed")
			}
		}
		entry.WithField("links", sent).Info("message transmitted")

		if err := t.Session.FinishTransmit(); err != nil {
			entry.WithError(err).Warn("could not return to idle")
		}
	}
}

// ReceiveTask copies inbound bytes from a link into the session
type ReceiveTask struct {
	Link    ports.Link
	Session *session.Session
	// Retry is the pause after a transient read error
	Retry time.Duration
	Log   logrus.FieldLogger
}

// Run reads until the link is closed or ctx is done
func (r *ReceiveTask) Run(ctx context.Context) error {
	log := r.Log.WithFields(logrus.Fields{"component": "receive", "link": r.Link.Name()})
	buf := make([]byte, 64)

	for {
		if ctx.Err() != nil {
			return nil
		}
		n, err := r.Link.Read(buf)
		if n > 0 {
			r.Session.ReceiveBytes(buf[:n])
		}
		if err == nil {
			continue
		}
		if closedErr(err) {
			log.Debug("link closed")
			return nil
		}
		if errors.Is(err, os.ErrDeadlineExceeded) {
			continue
		}
		log.WithError(err).Warn("read failed")
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval(r.Retry)):
		}
	}
}

func closedErr(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, os.ErrClosed)
}
