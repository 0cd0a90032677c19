package tasks

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/ColonelBlimp/morsehat/internal/gesture"
	"github.com/ColonelBlimp/morsehat/internal/ports"
	"github.com/ColonelBlimp/morsehat/internal/session"
)

func testLogger() (*logrus.Logger, *logtest.Hook) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.TraceLevel)
	return logger, hook
}

func newTestSession(t *testing.T) *session.Session {
	t.Helper()
	logger, _ := testLogger()
	s, err := session.New(session.DefaultConfig(), logger)
	if err != nil {
		t.Fatalf("session.New() error = %v", err)
	}
	return s
}

func waitFor(t *testing.T, s *session.Session, what string, match func(session.Snapshot) bool) session.Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	snap, err := s.WaitFor(ctx, match)
	if err != nil {
		t.Fatalf("timed out waiting for %s, last snapshot %+v", what, snap)
	}
	return snap
}

// scriptedMotion returns its samples in order, then idle samples
type scriptedMotion struct {
	mu      sync.Mutex
	samples []gesture.Sample
	errs    map[int]error
	reads   int
}

func (f *scriptedMotion) ReadSample(ctx context.Context) (gesture.Sample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.reads
	f.reads++
	if err, ok := f.errs[i]; ok {
		return gesture.Sample{}, err
	}
	if i < len(f.samples) {
		return f.samples[i], nil
	}
	return gesture.Sample{Accel: [3]float64{0.5, 0, 0.5}, Temp: 20}, nil
}

type scriptedLight struct {
	mu    sync.Mutex
	lux   []float64
	reads int
}

func (f *scriptedLight) ReadLux(ctx context.Context) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.reads
	f.reads++
	if i < len(f.lux) {
		return f.lux[i], nil
	}
	return 100, nil
}

type chanButtons struct {
	ch chan ports.ButtonEdge
}

func (c *chanButtons) Edges(ctx context.Context) <-chan ports.ButtonEdge { return c.ch }

type recordingTones struct {
	mu    sync.Mutex
	tones []Note
}

func (r *recordingTones) Tone(ctx context.Context, hz float64, d time.Duration) error {
	r.mu.Lock()
	r.tones = append(r.tones, Note{Hz: hz, Duration: d})
	r.mu.Unlock()
	return ctx.Err()
}

func (r *recordingTones) sounded() []Note {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Note
	for _, n := range r.tones {
		if n.Hz > 0 {
			out = append(out, n)
		}
	}
	return out
}

type recordingLight struct {
	mu     sync.Mutex
	colors []ports.RGB
}

func (r *recordingLight) SetColor(ctx context.Context, c ports.RGB) error {
	r.mu.Lock()
	r.colors = append(r.colors, c)
	r.mu.Unlock()
	return nil
}

func (r *recordingLight) history() []ports.RGB {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ports.RGB(nil), r.colors...)
}

type recordingText struct {
	mu    sync.Mutex
	shown []string
	err   error
}

func (r *recordingText) ShowText(ctx context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shown = append(r.shown, text)
	return r.err
}

func (r *recordingText) lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.shown...)
}

// bufferLink records writes and serves scripted reads, then EOF
type bufferLink struct {
	name     string
	mu       sync.Mutex
	written  bytes.Buffer
	reads    [][]byte
	writeErr error
}

func (b *bufferLink) Name() string { return b.name }

func (b *bufferLink) Read(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.reads) == 0 {
		return 0, io.EOF
	}
	n := copy(p, b.reads[0])
	if n < len(b.reads[0]) {
		b.reads[0] = b.reads[0][n:]
	} else {
		b.reads = b.reads[1:]
	}
	return n, nil
}

func (b *bufferLink) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.writeErr != nil {
		return 0, b.writeErr
	}
	return b.written.Write(p)
}

func (b *bufferLink) Close() error { return nil }

func (b *bufferLink) sent() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.written.String()
}

var errBroken = errors.New("broken link")
