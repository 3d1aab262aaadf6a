package prom

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/NetPo4ki/go-dispatch/monitor"
	"github.com/NetPo4ki/go-dispatch/scope"
)

var (
	_ monitor.Sink   = (*Metrics)(nil)
	_ scope.Observer = (*Metrics)(nil)
)

func TestEmitSetsGauges(t *testing.T) {
	t.Parallel()
	r := require.New(t)

	m, err := New(prometheus.NewRegistry())
	r.NoError(err)
	r.NoError(m.Emit(monitor.Snapshot{
		Running: 3, Completed: 40, Failed: 2, Workers: 50, ActiveWorkers: 7, Queued: 11, Goroutines: 99,
	}))

	r.Equal(3.0, testutil.ToFloat64(m.running))
	r.Equal(40.0, testutil.ToFloat64(m.completed))
	r.Equal(2.0, testutil.ToFloat64(m.failed))
	r.Equal(50.0, testutil.ToFloat64(m.workers))
	r.Equal(7.0, testutil.ToFloat64(m.activeWorkers))
	r.Equal(11.0, testutil.ToFloat64(m.queued))
	r.Equal(99.0, testutil.ToFloat64(m.goroutines))
}

func TestObserverCountsTasks(t *testing.T) {
	t.Parallel()
	r := require.New(t)

	reg := prometheus.NewRegistry()
	m, err := New(reg)
	r.NoError(err)

	s := scope.New(context.Background(), scope.WithObserver(m))
	s.Go(func(context.Context) error { return nil })
	s.Go(func(context.Context) error { return errors.New("boom") })
	s.Go(func(context.Context) error { panic("bad") })
	r.Error(s.Wait())

	r.Equal(1.0, testutil.ToFloat64(m.scopesCreated))
	r.Equal(3.0, testutil.ToFloat64(m.tasksStarted))
	r.Equal(3.0, testutil.ToFloat64(m.tasksFinished))
	r.Equal(2.0, testutil.ToFloat64(m.tasksErrored))
	r.Equal(1.0, testutil.ToFloat64(m.tasksPanicked))

	n, err := testutil.GatherAndCount(reg, "dispatch_task_duration_seconds", "dispatch_join_wait_seconds")
	r.NoError(err)
	r.Equal(2, n)
}

func TestDoubleRegistrationFails(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)
	_, err = New(reg)
	require.Error(t, err)
}

func TestJoinWaitObserved(t *testing.T) {
	t.Parallel()
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)
	m.ScopeJoined(context.Background(), 10*time.Millisecond)
	require.Equal(t, 1, testutil.CollectAndCount(m.joinWait))
}
