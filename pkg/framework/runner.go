package framework

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang/glog"
)

// ErrForcedExit is returned by Wait after a second stop signal.
var ErrForcedExit = errors.New("forced exit")

// RunFunc is the func form of Runnable.
type RunFunc func(context.Context) error

// Run implements Runnable.
func (f RunFunc) Run(ctx context.Context) error {
	return f(ctx)
}

type named struct {
	Runnable
	name string
}

func (n *named) Name() string { return n.name }

// NamedRun names a Runnable, its errors are reported in NamedError.
func NamedRun(name string, r Runnable) Runnable {
	return &named{Runnable: r, name: name}
}

// Runner starts Runnables in goroutines and waits for all of them.
type Runner struct {
	Context context.Context
	Runners []Runnable

	results chan error
	forced  chan struct{}
}

// NewRunner creates a Runner with a background context.
func NewRunner() *Runner {
	return NewRunnerWith(context.Background())
}

// NewRunnerWith creates a Runner with ctx.
func NewRunnerWith(ctx context.Context) *Runner {
	return &Runner{
		Context: ctx,
		results: make(chan error, 1),
		forced:  make(chan struct{}),
	}
}

// HandleSignals cancels the context on SIGINT or SIGTERM. A second signal
// makes Wait return without waiting.
func (r *Runner) HandleSignals() *Runner {
	ctx, cancel := context.WithCancel(r.Context)
	r.Context = ctx
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		glog.Infof("%v: stopping", <-sigCh)
		cancel()
		glog.Errorf("%v: exit now", <-sigCh)
		close(r.forced)
	}()
	return r
}

// Go starts Runnables with the Runner context.
func (r *Runner) Go(runnables ...Runnable) *Runner {
	return r.GoWith(r.Context, runnables...)
}

// GoWith starts Runnables with ctx.
func (r *Runner) GoWith(ctx context.Context, runnables ...Runnable) *Runner {
	for _, runnable := range runnables {
		r.Runners = append(r.Runners, runnable)
		go r.run(ctx, runnable, len(r.Runners)-1)
	}
	return r
}

func (r *Runner) run(ctx context.Context, runnable Runnable, index int) {
	name, isNamed := fmt.Sprintf("#%d", index), false
	if n, ok := runnable.(Named); ok {
		name, isNamed = n.Name(), true
	}
	glog.V(4).Infof("run %s", name)
	err := runnable.Run(ctx)
	glog.V(4).Infof("run %s done: %v", name, err)
	if isNamed && err != nil && err != context.Canceled {
		err = &NamedError{Name: name, Err: err}
	}
	r.results <- err
}

// Wait waits for all Runnables and aggregates their errors, ignoring
// context.Canceled.
func (r *Runner) Wait() error {
	var errs AggregatedError
	for n := len(r.Runners); n > 0; n-- {
		select {
		case err := <-r.results:
			if err != context.Canceled {
				errs.Add(err)
			}
		case <-r.forced:
			return ErrForcedExit
		}
	}
	return errs.Aggregate()
}
