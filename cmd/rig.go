package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/ColonelBlimp/morsehat/internal/audio"
	"github.com/ColonelBlimp/morsehat/internal/config"
	"github.com/ColonelBlimp/morsehat/internal/console"
	"github.com/ColonelBlimp/morsehat/internal/dsp"
	"github.com/ColonelBlimp/morsehat/internal/feed"
	"github.com/ColonelBlimp/morsehat/internal/gesture"
	"github.com/ColonelBlimp/morsehat/internal/hat"
	"github.com/ColonelBlimp/morsehat/internal/ports"
	"github.com/ColonelBlimp/morsehat/internal/recovery"
	"github.com/ColonelBlimp/morsehat/internal/session"
	"github.com/ColonelBlimp/morsehat/internal/tasks"
	"github.com/ColonelBlimp/morsehat/internal/transport"
)

// rig is one assembled hat: the session, its inputs and outputs, and the
// runtime that connects them
type rig struct {
	settings   *config.Settings
	log        *logrus.Logger
	session    *session.Session
	classifier *gesture.Classifier
	runtime    *tasks.Runtime

	backend *audio.Backend
	tones   ports.ToneSink
	text    *console.Text
	link    ports.Link

	closers []func() error
}

// newRig builds a hat from settings. Inputs come from the event script and
// the IMU bus, text goes to out, sound to the sound card when enabled.
// The rig must be closed once its runtime has stopped.
func newRig(ctx context.Context, s *config.Settings, log *logrus.Logger, in io.Reader, out io.Writer) (r *rig, err error) {
	r = &rig{settings: s, log: log, tones: console.Silent{}, text: console.NewText(out)}
	defer func() {
		if err != nil {
			_ = r.Close()
		}
	}()

	if r.session, err = session.New(s.Session(), log); err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	if r.classifier, err = gesture.NewClassifier(s.Thresholds()); err != nil {
		return nil, fmt.Errorf("gesture: %w", err)
	}
	r.runtime = tasks.NewRuntime(r.session, log)

	if err = r.openAudio(); err != nil {
		return nil, err
	}
	if err = r.addInputs(ctx, in); err != nil {
		return nil, err
	}
	if err = r.addLink(ctx); err != nil {
		return nil, err
	}
	if err = r.addOutputs(); err != nil {
		return nil, err
	}
	if s.Listen {
		if err = r.addListener(ctx); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *rig) openAudio() error {
	s := r.settings
	if !s.AudioEnabled && !s.Listen {
		return nil
	}
	b, err := audio.Open()
	if err != nil {
		return fmt.Errorf("audio: %w", err)
	}
	r.backend = b
	r.closers = append(r.closers, b.Close)

	if !s.AudioEnabled {
		return nil
	}
	player := audio.NewPlayer(b, s.Player())
	if err := player.Start(); err != nil {
		return fmt.Errorf("audio: %w", err)
	}
	r.closers = append(r.closers, player.Close)
	r.tones = player
	return nil
}

func (r *rig) addInputs(ctx context.Context, in io.Reader) error {
	s := r.settings
	var (
		motion  ports.MotionSensor
		light   ports.LightSensor
		buttons ports.Buttons
	)

	if s.Events != "" {
		src := in
		if s.Events != "-" {
			f, err := os.Open(s.Events)
			if err != nil {
				return fmt.Errorf("events: %w", err)
			}
			r.closers = append(r.closers, f.Close)
			src = f
		}
		script := feed.New(src, r.log)
		recovery.Go("feed", func() {
			if err := script.Run(ctx); err != nil {
				r.log.WithError(err).Error("event script failed")
			}
		})
		motion, light, buttons = script, script, script
	}

	if s.IMUBus != "" {
		imu, closer, err := hat.OpenIMU(s.IMUBus)
		if err != nil {
			return fmt.Errorf("imu: %w", err)
		}
		r.closers = append(r.closers, closer.Close)
		motion = imu
	}

	if motion == nil && buttons == nil {
		r.log.Warn("no inputs configured, receiving only")
	}
	if motion != nil {
		r.runtime.Add("gesture", &tasks.GestureTask{
			Sensor:     motion,
			Classifier: r.classifier,
			Session:    r.session,
			Melody:     r.tones,
			Interval:   s.PollInterval,
			Log:        r.log,
		})
	}
	if light != nil && s.LightEnabled {
		r.runtime.Add("light", &tasks.LightTask{
			Sensor:    light,
			Session:   r.session,
			Threshold: s.LightThreshold,
			Interval:  s.PollInterval,
			Log:       r.log,
		})
	}
	if buttons != nil {
		r.runtime.Add("buttons", &tasks.ButtonTask{Buttons: buttons, Session: r.session, Log: r.log})
	}
	return nil
}

// addLink opens the peer link. Without one, transmitted messages are only
// echoed.
func (r *rig) addLink(ctx context.Context) error {
	s := r.settings
	switch s.Link {
	case config.LinkSerial:
		l, err := transport.OpenSerial(s.SerialPort, s.BaudRate, transport.DefaultReadTimeout)
		if err != nil {
			return fmt.Errorf("link: %w", err)
		}
		r.link = l
	case config.LinkTCP:
		r.link = transport.DialTCP(ctx, s.TCPAddress, s.ReconnectInterval, r.log)
	}

	var links []ports.Link
	if r.link != nil {
		r.closers = append(r.closers, r.link.Close)
		links = append(links, r.link)
		r.runtime.Add("receive", &tasks.ReceiveTask{
			Link:    r.link,
			Session: r.session,
			Retry:   s.ReconnectInterval,
			Log:     r.log,
		})
	}
	r.runtime.Add("transmit", &tasks.TransmitTask{
		Session: r.session,
		Links:   links,
		Echo:    r.text,
		Log:     r.log,
	})
	return nil
}

func (r *rig) addOutputs() error {
	keyer, err := tasks.NewKeyer(r.settings.WPM)
	if err != nil {
		return fmt.Errorf("keyer: %w", err)
	}
	r.runtime.AddRenderer(&tasks.AudioRenderer{Sink: r.tones, Keyer: keyer, Frequency: r.settings.ToneFrequency})
	r.runtime.AddRenderer(&tasks.LightRenderer{Sink: console.NewLight(r.log), Keyer: keyer})
	r.runtime.AddRenderer(&tasks.TextRenderer{Sink: r.text})
	return nil
}

// addListener decodes Morse heard on the microphone into the display lane
func (r *rig) addListener(ctx context.Context) error {
	s := r.settings
	g, err := dsp.NewGoertzel(s.Goertzel())
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	det, err := dsp.NewDetector(s.Detector(), g)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	keyer, err := dsp.NewKeyer(s.Keyer())
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	capture := audio.NewCapture(r.backend, s.Capture())
	if err := capture.Start(ctx); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	r.closers = append(r.closers, func() error {
		if !capture.IsRunning() {
			return nil
		}
		return capture.Stop()
	})

	r.runtime.Add("listen", &tasks.ListenTask{
		Source:   capture,
		Detector: det,
		Keyer:    keyer,
		Session:  r.session,
		Log:      r.log,
	})
	return nil
}

// applySettings takes the live-tunable parts of a reloaded config
func (r *rig) applySettings(s *config.Settings) {
	if err := r.classifier.SetThresholds(s.Thresholds()); err != nil {
		r.log.WithError(err).Warn("gesture thresholds not applied")
		return
	}
	r.log.WithField("thresholds", fmt.Sprintf("%+v", s.Thresholds())).Info("gesture thresholds updated")

	if lvl, err := logrus.ParseLevel(s.LogLevel); err == nil && !s.Debug {
		r.log.SetLevel(lvl)
	}
}

// Close releases everything the rig opened, newest first
func (r *rig) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}
