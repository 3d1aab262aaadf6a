// Package prom exports dispatcher progress and task lifecycle events
// as Prometheus metrics. Metrics is both a monitor.Sink and a
// scope.Observer, so one value can be wired to both.
package prom

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/NetPo4ki/go-dispatch/monitor"
)

const namespace = "dispatch"

type Metrics struct {
	// progress, refreshed from monitor snapshots
	running       prometheus.Gauge
	completed     prometheus.Gauge
	failed        prometheus.Gauge
	workers       prometheus.Gauge
	activeWorkers prometheus.Gauge
	queued        prometheus.Gauge
	goroutines    prometheus.Gauge

	// tasks
	tasksStarted  prometheus.Counter
	tasksFinished prometheus.Counter
	tasksErrored  prometheus.Counter
	tasksPanicked prometheus.Counter
	taskDuration  prometheus.Histogram

	// scopes
	scopesCreated prometheus.Counter
	joinWait      prometheus.Histogram
}

// New creates the metrics and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help})
	}
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help})
	}
	m := &Metrics{
		running:       gauge("units_running", "Units currently in flight."),
		completed:     gauge("units_completed", "Units completed in the current run."),
		failed:        gauge("units_failed", "Units that completed with an error in the current run."),
		workers:       gauge("pool_workers", "Worker pool capacity."),
		activeWorkers: gauge("pool_workers_active", "Workers currently executing an item."),
		queued:        gauge("pool_queued", "Items waiting for a worker."),
		goroutines:    gauge("goroutines", "Live goroutines at the last sample."),
		tasksStarted:  counter("tasks_started_total", "Tasks started."),
		tasksFinished: counter("tasks_finished_total", "Tasks finished."),
		tasksErrored:  counter("tasks_errored_total", "Tasks that returned an error."),
		tasksPanicked: counter("tasks_panicked_total", "Tasks that panicked."),
		taskDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Task run time from start to finish.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		scopesCreated: counter("scopes_created_total", "Task scopes created."),
		joinWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "join_wait_seconds",
			Help:      "Time spent waiting for all tasks of a scope.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
	}
	for _, c := range []prometheus.Collector{
		m.running, m.completed, m.failed, m.workers, m.activeWorkers, m.queued, m.goroutines,
		m.tasksStarted, m.tasksFinished, m.tasksErrored, m.tasksPanicked, m.taskDuration,
		m.scopesCreated, m.joinWait,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Emit records a monitor snapshot.
func (m *Metrics) Emit(s monitor.Snapshot) error {
	m.running.Set(float64(s.Running))
	m.completed.Set(float64(s.Completed))
	m.failed.Set(float64(s.Failed))
	m.workers.Set(float64(s.Workers))
	m.activeWorkers.Set(float64(s.ActiveWorkers))
	m.queued.Set(float64(s.Queued))
	m.goroutines.Set(float64(s.Goroutines))
	return nil
}

func (m *Metrics) ScopeCreated(_ context.Context) { m.scopesCreated.Inc() }

func (m *Metrics) ScopeJoined(_ context.Context, wait time.Duration) {
	m.joinWait.Observe(wait.Seconds())
}

func (m *Metrics) TaskStarted(_ context.Context) { m.tasksStarted.Inc() }

func (m *Metrics) TaskFinished(_ context.Context, dur time.Duration, err error, panicked bool) {
	m.tasksFinished.Inc()
	if err != nil {
		m.tasksErrored.Inc()
	}
	if panicked {
		m.tasksPanicked.Inc()
	}
	m.taskDuration.Observe(dur.Seconds())
}
