// Package monitor samples live work counters on a fixed interval and
// hands each sample to a sink until it is told to stop.
package monitor

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/NetPo4ki/go-dispatch/counters"
	"github.com/NetPo4ki/go-dispatch/pool"
)

// DefaultInterval is the sampling period.
const DefaultInterval = time.Second

// StatsSource reports worker utilization. *pool.Pool satisfies it.
type StatsSource interface {
	Stats() pool.Stats
}

// Snapshot is one immutable sample.
type Snapshot struct {
	At            time.Time
	Running       int64
	Completed     int64
	Failed        int64
	Workers       int
	ActiveWorkers int
	Queued        int
	Goroutines    int
}

type Option func(*Monitor)

func WithInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

func WithSink(s Sink) Option { return func(m *Monitor) { m.sink = s } }

func WithLogger(l *zap.Logger) Option {
	return func(m *Monitor) {
		if l != nil {
			m.logger = l
		}
	}
}

// Monitor reads Counters without locking. It never shares a goroutine
// with the work it observes.
type Monitor struct {
	counters *counters.Counters
	stats    StatsSource
	interval time.Duration
	sink     Sink
	logger   *zap.Logger

	stopped  atomic.Bool
	wake     chan struct{}
	stopOnce sync.Once
}

// New returns a Monitor over c. stats may be nil.
func New(c *counters.Counters, stats StatsSource, opts ...Option) *Monitor {
	m := &Monitor{
		counters: c,
		stats:    stats,
		interval: DefaultInterval,
		sink:     Discard,
		logger:   zap.NewNop(),
		wake:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.Named("monitor")
	return m
}

// Run emits one snapshot per interval until Stop is called. Run is
// meant to own its goroutine for the lifetime of a dispatcher run.
func (m *Monitor) Run() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	m.logger.Debug("monitor started", zap.Duration("interval", m.interval))
	defer m.logger.Debug("monitor stopped")

	for !m.stopped.Load() {
		select {
		case <-m.wake:
			return
		case <-ticker.C:
		}
		if m.stopped.Load() {
			return
		}
		s := m.Sample()
		if err := m.sink.Emit(s); err != nil {
			m.logger.Warn("progress sink failed", zap.Error(err))
		}
	}
}

// Stop signals Run to return. After Stop returns no new sample is
// started; one already being emitted may still finish. Stop is
// idempotent.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		m.stopped.Store(true)
		close(m.wake)
	})
}

// Sample reads the current state without waiting for the interval.
func (m *Monitor) Sample() Snapshot {
	c := m.counters.Snapshot()
	s := Snapshot{
		At:         time.Now(),
		Running:    c.Running,
		Completed:  c.Completed,
		Failed:     c.Failed,
		Goroutines: runtime.NumGoroutine(),
	}
	if m.stats != nil {
		ps := m.stats.Stats()
		s.Workers = ps.Workers
		s.ActiveWorkers = ps.Active
		s.Queued = ps.Queued
	}
	return s
}
