package tasks

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"

	"github.com/ColonelBlimp/morsehat/internal/session"
)

// Task is a long-running worker. Run returns nil when ctx is cancelled.
type Task interface {
	Run(ctx context.Context) error
}

// TaskFunc adapts a function to Task
type TaskFunc func(ctx context.Context) error

func (f TaskFunc) Run(ctx context.Context) error { return f(ctx) }

type namedTask struct {
	name string
	task Task
}

// Runtime runs one goroutine per concern around a shared session
type Runtime struct {
	Session     *session.Session
	Coordinator *session.Coordinator
	Log         logrus.FieldLogger

	tasks []namedTask
}

// NewRuntime creates a runtime with a coordinator bound to s
func NewRuntime(s *session.Session, log logrus.FieldLogger) *Runtime {
	return &Runtime{
		Session:     s,
		Coordinator: session.NewCoordinator(s, log),
		Log:         log,
	}
}

// Add registers a task
func (r *Runtime) Add(name string, t Task) {
	r.tasks = append(r.tasks, namedTask{name: name, task: t})
}

// AddRenderer subscribes a renderer to display cycles and registers its task
func (r *Runtime) AddRenderer(rend Renderer) {
	r.Add("render-"+rend.Output().String(), &RenderTask{
		Renderer: rend,
		Cycles:   r.Session.Subscribe(),
		Done:     r.Coordinator,
		Log:      r.Log,
	})
}

// Tasks returns the registered task names in order
func (r *Runtime) Tasks() []string {
	names := make([]string, 0, len(r.tasks))
	for _, t := range r.tasks {
		names = append(names, t.name)
	}
	return names
}

// Run starts every task and blocks until all have stopped. The first task
// error cancels the others. A panicking task is re-panicked here.
func (r *Runtime) Run(ctx context.Context) error {
	p := pool.New().WithErrors().WithContext(ctx).WithCancelOnError()

	p.Go(func(ctx context.Context) error {
		if err := r.Coordinator.Run(ctx); ctx.Err() == nil {
			return err
		}
		return nil
	})

	for _, t := range r.tasks {
		t := t
		p.Go(func(ctx context.Context) error {
			log := r.Log.WithField("task", t.name)
			log.Debug("task started")
			err := t.task.Run(ctx)
			if err != nil {
				log.WithError(err).Error("task failed")
				return err
			}
			log.Debug("task stopped")
			return nil
		})
	}

	err := p.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
