// Package dispatch runs a fixed number of independent work units under
// one of several interchangeable execution strategies and waits until
// every unit has been accounted for.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/NetPo4ki/go-dispatch/counters"
	"github.com/NetPo4ki/go-dispatch/pool"
	"github.com/NetPo4ki/go-dispatch/scope"
)

const (
	// DefaultPollInterval is how often the callback strategies check
	// the completed count.
	DefaultPollInterval = 500 * time.Millisecond

	DefaultUnitDelay       = 1 * time.Second
	DefaultBlockingWork    = 2 * time.Second
	DefaultNonBlockingWork = 3 * time.Second
	DefaultDeferredWork    = 2 * time.Second
)

var (
	// ErrInvalidUnits is returned when a run is asked for fewer than one unit.
	ErrInvalidUnits = errors.New("dispatch: units must be at least 1")
	// ErrUnitPanicked wraps the value recovered from a panicking unit.
	ErrUnitPanicked = errors.New("dispatch: unit panicked")
)

// Config holds the timing of one unit of work for each strategy.
type Config struct {
	UnitDelay       time.Duration `yaml:"unit_delay"`
	BlockingWork    time.Duration `yaml:"blocking_work"`
	NonBlockingWork time.Duration `yaml:"nonblocking_work"`
	DeferredWork    time.Duration `yaml:"deferred_work"`
	PollInterval    time.Duration `yaml:"poll_interval"`
}

// DefaultConfig mirrors the timings of the classic thread pool demo.
func DefaultConfig() Config {
	return Config{
		UnitDelay:       DefaultUnitDelay,
		BlockingWork:    DefaultBlockingWork,
		NonBlockingWork: DefaultNonBlockingWork,
		DeferredWork:    DefaultDeferredWork,
		PollInterval:    DefaultPollInterval,
	}
}

type Option func(*Dispatcher)

func WithLogger(l *zap.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithObserver attaches a scope observer to TaskBased runs.
func WithObserver(obs scope.Observer) Option { return func(d *Dispatcher) { d.observer = obs } }

// WithWork replaces the CPU filler executed by every unit.
func WithWork(fn WorkFunc) Option {
	return func(d *Dispatcher) {
		if fn != nil {
			d.work = fn
		}
	}
}

// Report summarizes a finished run.
type Report struct {
	RunID     string
	Strategy  Strategy
	Units     int
	Completed int64
	Failed    int64
	Elapsed   time.Duration
}

// Dispatcher submits units to a shared pool and tracks them through
// Counters. Runs on one Dispatcher are serialized.
type Dispatcher struct {
	pool     *pool.Pool
	counters *counters.Counters
	cfg      Config
	work     WorkFunc
	observer scope.Observer
	logger   *zap.Logger

	runMu sync.Mutex
}

func New(p *pool.Pool, c *counters.Counters, cfg Config, opts ...Option) *Dispatcher {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	d := &Dispatcher{
		pool:     p,
		counters: c,
		cfg:      cfg,
		work:     Spin,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.Named("dispatch")
	return d
}

// Run executes n units with the given strategy and returns once all of
// them have completed. Counters are reset at the start of every run.
// Failed units still complete; their errors are returned combined.
func (d *Dispatcher) Run(strategy Strategy, n int) (Report, error) {
	if n < 1 {
		return Report{}, fmt.Errorf("%w: got %d", ErrInvalidUnits, n)
	}
	if !strategy.valid() {
		return Report{}, fmt.Errorf("%w: %v", ErrUnknownStrategy, strategy)
	}

	d.runMu.Lock()
	defer d.runMu.Unlock()

	d.counters.Reset()
	rep := Report{RunID: uuid.NewString(), Strategy: strategy, Units: n}
	log := d.logger.With(
		zap.String("run_id", rep.RunID),
		zap.Stringer("strategy", strategy),
		zap.Int("units", n),
	)
	log.Info("run started")

	start := time.Now()
	var err error
	switch strategy {
	case BlockingCallback:
		err = d.runCallbacks(n, d.blockingUnit)
	case NonBlockingCallback:
		err = d.runCallbacks(n, d.nonBlockingUnit)
	case TimerDeferredCallback:
		err = d.runCallbacks(n, d.deferredUnit)
	case TaskBased:
		err = d.runTasks(n)
	}
	rep.Elapsed = time.Since(start)

	snap := d.counters.Snapshot()
	rep.Completed = snap.Completed
	rep.Failed = snap.Failed
	if err != nil {
		log.Warn("run finished with failed units",
			zap.Int64("failed", rep.Failed), zap.Duration("elapsed", rep.Elapsed), zap.Error(err))
	} else {
		log.Info("run finished", zap.Int64("completed", rep.Completed), zap.Duration("elapsed", rep.Elapsed))
	}
	return rep, err
}

// failures collects unit errors from concurrent callbacks.
type failures struct {
	mu   sync.Mutex
	errs error
}

func (f *failures) add(err error) {
	if err == nil {
		return
	}
	f.mu.Lock()
	f.errs = multierr.Append(f.errs, err)
	f.mu.Unlock()
}

func (f *failures) err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errs
}

// callbackUnit starts one unit. It must eventually call end exactly once.
type callbackUnit func(end func(error))

func (d *Dispatcher) runCallbacks(n int, unit callbackUnit) error {
	var fails failures
	end := func(err error) {
		fails.add(err)
		d.counters.End(err)
	}
	for i := 0; i < n; i++ {
		if err := d.pool.Queue(func() {
			d.counters.Begin()
			unit(end)
		}); err != nil {
			d.counters.Begin()
			end(fmt.Errorf("dispatch: queue unit: %w", err))
		}
	}
	d.poll(int64(n))
	return fails.err()
}

func (d *Dispatcher) poll(n int64) {
	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()
	for d.counters.Completed() < n {
		<-ticker.C
	}
}

func (d *Dispatcher) blockingUnit(end func(error)) {
	end(guard(func() error {
		time.Sleep(d.cfg.UnitDelay)
		return d.work(d.cfg.BlockingWork)
	}))
}

func (d *Dispatcher) nonBlockingUnit(end func(error)) {
	end(guard(func() error {
		return d.work(d.cfg.NonBlockingWork)
	}))
}

func (d *Dispatcher) deferredUnit(end func(error)) {
	time.AfterFunc(d.cfg.UnitDelay, func() {
		err := d.pool.Queue(func() {
			end(guard(func() error {
				return d.work(d.cfg.DeferredWork)
			}))
		})
		if err != nil {
			end(fmt.Errorf("dispatch: queue deferred work: %w", err))
		}
	})
}

func (d *Dispatcher) runTasks(n int) error {
	s := scope.New(context.Background(), scope.WithObserver(d.observer))
	for i := 0; i < n; i++ {
		s.Go(d.task)
	}
	return s.Wait()
}

func (d *Dispatcher) task(_ context.Context) (err error) {
	d.counters.Begin()
	defer func() { d.counters.End(err) }()

	timer := time.NewTimer(d.cfg.UnitDelay)
	<-timer.C
	return d.pool.Do(func() error {
		return guard(func() error {
			return d.work(d.cfg.DeferredWork)
		})
	})
}

// guard runs fn and converts a panic into an error.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrUnitPanicked, r)
		}
	}()
	return fn()
}
