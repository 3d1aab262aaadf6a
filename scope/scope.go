package scope

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
)

// ErrPanic wraps the value recovered from a panicking task.
var ErrPanic = errors.New("scope: task panicked")

type Option func(*Options)

type Options struct {
	PanicAsError bool
	Observer     Observer
}

func defaultOptions() Options { return Options{PanicAsError: true} }

func WithPanicAsError(v bool) Option { return func(o *Options) { o.PanicAsError = v } }

func WithObserver(obs Observer) Option { return func(o *Options) { o.Observer = obs } }

// Scope joins every task spawned through Go. A failing task never
// stops its siblings; Wait reports all failures together.
type Scope struct {
	ctx  context.Context
	wg   sync.WaitGroup
	mu   sync.Mutex
	errs error

	opts Options
	obs  Observer
}

func New(parent context.Context, optFns ...Option) *Scope {
	if parent == nil {
		parent = context.Background()
	}
	s := &Scope{ctx: parent, opts: defaultOptions()}
	for _, fn := range optFns {
		fn(&s.opts)
	}
	s.obs = s.opts.Observer
	if s.obs != nil {
		s.obs.ScopeCreated(s.ctx)
	}
	return s
}

func (s *Scope) Context() context.Context { return s.ctx }

// Go runs fn on its own goroutine and returns a Future resolved with
// fn's result. A nil fn yields an already resolved Future.
func (s *Scope) Go(fn func(ctx context.Context) error) *Future {
	fut, complete := NewFuture()
	if fn == nil {
		complete(nil)
		return fut
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		var (
			start    time.Time
			err      error
			panicked bool
		)
		defer func() {
			if r := recover(); r != nil {
				panicked = true
				if !s.opts.PanicAsError {
					s.finish(start, nil, true)
					complete(fmt.Errorf("%w: %v", ErrPanic, r))
					panic(r)
				}
				err = fmt.Errorf("%w: %v", ErrPanic, r)
			}
			s.record(err)
			s.finish(start, err, panicked)
			complete(err)
		}()

		if s.obs != nil {
			start = time.Now()
			s.obs.TaskStarted(s.ctx)
		}
		err = fn(s.ctx)
	}()
	return fut
}

// Wait blocks until every task spawned so far has returned and
// reports their failures combined. Wait may be called repeatedly.
func (s *Scope) Wait() error {
	var start time.Time
	if s.obs != nil {
		start = time.Now()
	}
	s.wg.Wait()
	if s.obs != nil {
		s.obs.ScopeJoined(s.ctx, time.Since(start))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errs
}

func (s *Scope) record(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	s.errs = multierr.Append(s.errs, err)
	s.mu.Unlock()
}

func (s *Scope) finish(start time.Time, err error, panicked bool) {
	if s.obs == nil {
		return
	}
	s.obs.TaskFinished(s.ctx, time.Since(start), err, panicked)
}
