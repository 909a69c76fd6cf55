package framework

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/golang/glog"
)

// ErrForcedExit is returned by Wait after a second stop signal.
var ErrForcedExit = errors.New("forced exit")

type named struct {
	Runnable
	name string
}

func (r *named) Name() string { return r.name }

// NamedRun gives a Runnable a name for logging.
func NamedRun(name string, r Runnable) Runnable {
	return &named{Runnable: r, name: name}
}

// RunFunc is the func form of Runnable.
type RunFunc func(context.Context) error

// Run implements Runnable.
func (f RunFunc) Run(ctx context.Context) error { return f(ctx) }

// Runner starts Runnables in goroutines and collects their errors.
type Runner struct {
	ctx    context.Context
	cancel context.CancelFunc

	wg     sync.WaitGroup
	lock   sync.Mutex
	errs   AggregatedError
	count  int
	forceC chan struct{}
}

// NewRunner creates a Runner on a background context.
func NewRunner() *Runner {
	return NewRunnerWith(context.Background())
}

// NewRunnerWith creates a Runner whose Runnables get a child of ctx.
func NewRunnerWith(ctx context.Context) *Runner {
	r := &Runner{forceC: make(chan struct{})}
	r.ctx, r.cancel = context.WithCancel(ctx)
	return r
}

// Context is passed to started Runnables.
func (r *Runner) Context() context.Context {
	return r.ctx
}

// Stop cancels the context of all Runnables.
func (r *Runner) Stop() {
	r.cancel()
}

// HandleSignals stops the Runner on SIGINT or SIGTERM. A second signal
// makes Wait return ErrForcedExit without waiting.
func (r *Runner) HandleSignals() *Runner {
	sigC := make(chan os.Signal, 2)
	signal.Notify(sigC, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigC
		glog.Infof("%v: stopping", sig)
		r.cancel()
		<-sigC
		glog.Error("stop requested again, exiting")
		close(r.forceC)
	}()
	return r
}

// Go starts runners.
func (r *Runner) Go(runners ...Runnable) *Runner {
	for _, runner := range runners {
		r.lock.Lock()
		name := fmt.Sprintf("#%d", r.count)
		r.count++
		r.lock.Unlock()
		if n, ok := runner.(Named); ok {
			name = n.Name()
		}
		r.wg.Add(1)
		go r.run(name, runner)
	}
	return r
}

func (r *Runner) run(name string, runner Runnable) {
	defer r.wg.Done()
	glog.V(4).Infof("runner %s started", name)
	err := runner.Run(r.ctx)
	glog.V(4).Infof("runner %s stopped: %v", name, err)
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	r.lock.Lock()
	r.errs.Add(fmt.Errorf("%s: %w", name, err))
	r.lock.Unlock()
}

// Wait blocks until all runners return.
func (r *Runner) Wait() error {
	doneC := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(doneC)
	}()
	select {
	case <-doneC:
	case <-r.forceC:
		return ErrForcedExit
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.errs.Aggregate()
}

// RunWithContextCloser runs fn, closing closer when ctx is canceled to
// unblock fn. closer is always closed before returning.
func RunWithContextCloser(ctx context.Context, closer io.Closer, fn func() error) error {
	errC := make(chan error, 1)
	go func() { errC <- fn() }()
	select {
	case err := <-errC:
		closer.Close()
		return err
	case <-ctx.Done():
		closer.Close()
		<-errC
		return ctx.Err()
	}
}
