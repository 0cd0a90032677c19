// Package feed drives the hat's inputs from a line script instead of hardware.
//
// Each line is one command:
//
//	imu AX AY AZ GX GY GZ TEMP   queue one motion sample (g, dps, °C)
//	rest AX AY AZ GX GY GZ TEMP  set the sample returned when the queue is empty
//	button primary|secondary     press a button
//	light LUX                    set the ambient light level
//	wait DURATION                pause the script, e.g. "wait 250ms"
//
// Blank lines and lines starting with '#' are skipped.
package feed

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ColonelBlimp/morsehat/internal/gesture"
	"github.com/ColonelBlimp/morsehat/internal/ports"
)

// DefaultLux is the light level before any light command
const DefaultLux = 200

var (
	// ErrUnknownCommand indicates a line with an unrecognised verb
	ErrUnknownCommand = errors.New("unknown command")
	// ErrBadArgs indicates the wrong number or form of arguments
	ErrBadArgs = errors.New("bad arguments")
)

// LineError reports a script line that could not be applied
type LineError struct {
	Line int
	Text string
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

// RestSample is a device lying still, slightly tilted, at room temperature
var RestSample = gesture.Sample{Accel: [3]float64{0.5, 0, 0.5}, Temp: 22}

// Feed implements ports.MotionSensor, ports.LightSensor and ports.Buttons
type Feed struct {
	src   io.Reader
	log   logrus.FieldLogger
	clock func() time.Time

	mu      sync.Mutex
	queue   []gesture.Sample
	rest    gesture.Sample
	lux     float64
	lines   int
	skipped int

	edges chan ports.ButtonEdge
	done  chan struct{}
}

// New creates a feed reading commands from src
func New(src io.Reader, log logrus.FieldLogger) *Feed {
	return &Feed{
		src:   src,
		log:   log.WithField("component", "feed"),
		clock: time.Now,
		rest:  RestSample,
		lux:   DefaultLux,
		edges: make(chan ports.ButtonEdge, 16),
		done:  make(chan struct{}),
	}
}

// Run applies the script until it ends or ctx is done. Bad lines are logged and skipped.
func (f *Feed) Run(ctx context.Context) error {
	defer close(f.done)
	defer close(f.edges)

	scanner := bufio.NewScanner(f.src)
	n := 0
	for scanner.Scan() {
		n++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		if err := f.apply(ctx, text); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			f.mu.Lock()
			f.skipped++
			f.mu.Unlock()
			f.log.WithError(&LineError{Line: n, Text: text, Err: err}).Warn("script line skipped")
			continue
		}
		f.mu.Lock()
		f.lines++
		f.mu.Unlock()
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("read script: %w", err)
	}
	f.log.WithField("lines", n).Debug("script finished")
	return nil
}

// Done is closed once the script has been fully applied
func (f *Feed) Done() <-chan struct{} { return f.done }

// Stats returns the number of applied and skipped commands
func (f *Feed) Stats() (applied, skipped int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lines, f.skipped
}

func (f *Feed) apply(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	verb, args := strings.ToLower(fields[0]), fields[1:]

	switch verb {
	case "imu", "rest":
		s, err := parseSample(args)
		if err != nil {
			return err
		}
		f.mu.Lock()
		if verb == "imu" {
			f.queue = append(f.queue, s)
		} else {
			f.rest = s
		}
		f.mu.Unlock()

	case "button":
		if len(args) != 1 {
			return fmt.Errorf("%w: button takes one name", ErrBadArgs)
		}
		var b ports.Button
		switch strings.ToLower(args[0]) {
		case "primary", "p", "1":
			b = ports.ButtonPrimary
		case "secondary", "s", "2":
			b = ports.ButtonSecondary
		default:
			return fmt.Errorf("%w: button %q", ErrBadArgs, args[0])
		}
		select {
		case f.edges <- ports.ButtonEdge{Button: b, At: f.clock()}:
		case <-ctx.Done():
			return ctx.Err()
		}

	case "light":
		if len(args) != 1 {
			return fmt.Errorf("%w: light takes one level", ErrBadArgs)
		}
		lux, err := strconv.ParseFloat(args[0], 64)
		if err != nil || lux < 0 {
			return fmt.Errorf("%w: light level %q", ErrBadArgs, args[0])
		}
		f.mu.Lock()
		f.lux = lux
		f.mu.Unlock()

	case "wait":
		if len(args) != 1 {
			return fmt.Errorf("%w: wait takes one duration", ErrBadArgs)
		}
		d, err := time.ParseDuration(args[0])
		if err != nil || d < 0 {
			return fmt.Errorf("%w: duration %q", ErrBadArgs, args[0])
		}
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}

	default:
		return fmt.Errorf("%w: %s", ErrUnknownCommand, verb)
	}
	return nil
}

func parseSample(args []string) (gesture.Sample, error) {
	if len(args) != 7 {
		return gesture.Sample{}, fmt.Errorf("%w: want 7 values, got %d", ErrBadArgs, len(args))
	}
	var v [7]float64
	for i, a := range args {
		x, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return gesture.Sample{}, fmt.Errorf("%w: value %q", ErrBadArgs, a)
		}
		v[i] = x
	}
	return gesture.Sample{
		Accel: [3]float64{v[0], v[1], v[2]},
		Gyro:  [3]float64{v[3], v[4], v[5]},
		Temp:  v[6],
	}, nil
}

// ReadSample returns the next queued sample, or the resting sample
func (f *Feed) ReadSample(ctx context.Context) (gesture.Sample, error) {
	if err := ctx.Err(); err != nil {
		return gesture.Sample{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queue) == 0 {
		return f.rest, nil
	}
	s := f.queue[0]
	f.queue = f.queue[1:]
	return s, nil
}

// ReadLux returns the current light level
func (f *Feed) ReadLux(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lux, nil
}

// Edges returns the button stream. It closes when the script ends.
func (f *Feed) Edges(ctx context.Context) <-chan ports.ButtonEdge {
	return f.edges
}
