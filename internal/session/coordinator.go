package session

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Output identifies one of the renderers taking part in a display cycle
type Output int

const (
	OutputAudio Output = iota
	OutputLight
	OutputText

	numOutputs
)

func (o Output) String() string {
	switch o {
	case OutputAudio:
		return "audio"
	case OutputLight:
		return "light"
	case OutputText:
		return "text"
	}
	return "unknown"
}

// Completion is sent by a renderer after one full pass over a cycle
type Completion struct {
	Cycle  uint64
	Output Output
}

// Completer receives the end of a display cycle. *Session implements it.
type Completer interface {
	CompleteDisplay(cycle uint64) error
}

// Coordinator waits for every output to finish a cycle before completing it.
// Each output latches once per cycle, so repeated or stale signals never
// complete a cycle early.
type Coordinator struct {
	target  Completer
	log     logrus.FieldLogger
	signals chan Completion

	mu            sync.Mutex
	cycle         uint64 // cycle being counted, 0 before the first signal
	lastCompleted uint64
	latched       [numOutputs]bool
	count         int
}

// NewCoordinator creates a coordinator completing cycles on target
func NewCoordinator(target Completer, log logrus.FieldLogger) *Coordinator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Coordinator{
		target:  target,
		log:     log.WithField("component", "coordinator"),
		signals: make(chan Completion, numOutputs),
	}
}

// Signal reports that an output finished rendering a cycle
func (c *Coordinator) Signal(ctx context.Context, comp Completion) error {
	select {
	case c.signals <- comp:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes signals until ctx is done
func (c *Coordinator) Run(ctx context.Context) error {
	for {
		select {
		case comp := <-c.signals:
			c.handle(comp)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Count returns the number of outputs latched for the current cycle
func (c *Coordinator) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// handle latches one completion and reports whether it completed the cycle
func (c *Coordinator) handle(comp Completion) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := c.log.WithFields(logrus.Fields{"cycle": comp.Cycle, "output": comp.Output})

	if comp.Output < 0 || comp.Output >= numOutputs {
		entry.Warn("completion from unknown output ignored")
		return false
	}
	if comp.Cycle <= c.lastCompleted || comp.Cycle < c.cycle {
		entry.Debug("stale completion ignored")
		return false
	}
	if comp.Cycle != c.cycle {
		if c.count > 0 {
			entry.WithField("abandoned", c.cycle).Warn("new cycle before previous completed")
		}
		c.reset(comp.Cycle)
	}
	if c.latched[comp.Output] {
		entry.Debug("duplicate completion ignored")
		return false
	}

	c.latched[comp.Output] = true
	c.count++
	if c.count < int(numOutputs) {
		return false
	}

	if err := c.target.CompleteDisplay(comp.Cycle); err != nil {
		entry.WithError(err).Warn("could not complete display cycle")
	}
	c.lastCompleted = comp.Cycle
	c.reset(0)
	return true
}

func (c *Coordinator) reset(cycle uint64) {
	c.cycle = cycle
	c.count = 0
	c.latched = [numOutputs]bool{}
}
