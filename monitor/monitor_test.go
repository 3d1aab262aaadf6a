package monitor

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/NetPo4ki/go-dispatch/counters"
	"github.com/NetPo4ki/go-dispatch/pool"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func start(m *Monitor) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		m.Run()
	}()
	return done
}

func TestRunEmitsSnapshots(t *testing.T) {
	t.Parallel()
	r := require.New(t)

	c := counters.New()
	c.Begin()
	c.Begin()
	c.End(nil)
	p := pool.New(3)
	defer p.Close()

	h := NewHistory(0)
	m := New(c, p, WithInterval(5*time.Millisecond), WithSink(h))
	done := start(m)

	r.Eventually(func() bool { return h.Len() >= 3 }, time.Second, time.Millisecond)
	m.Stop()
	<-done

	last, ok := h.Last()
	r.True(ok)
	r.Equal(int64(1), last.Running)
	r.Equal(int64(1), last.Completed)
	r.Equal(3, last.Workers)
	r.Positive(last.Goroutines)

	snaps := h.Snapshots()
	for i := 1; i < len(snaps); i++ {
		r.False(snaps[i].At.Before(snaps[i-1].At))
	}
}

func TestNoSnapshotAfterStop(t *testing.T) {
	t.Parallel()
	r := require.New(t)

	const interval = 50 * time.Millisecond
	var emitted atomic.Int64
	m := New(counters.New(), nil, WithInterval(interval), WithSink(SinkFunc(func(Snapshot) error {
		emitted.Add(1)
		return nil
	})))
	done := start(m)

	r.Eventually(func() bool { return emitted.Load() >= 2 }, time.Second, time.Millisecond)
	stoppedAt := time.Now()
	m.Stop()
	m.Stop()
	<-done
	r.Less(time.Since(stoppedAt), interval)

	after := emitted.Load()
	time.Sleep(3 * interval)
	r.Equal(after, emitted.Load())
}

func TestStopBeforeRun(t *testing.T) {
	t.Parallel()
	var emitted atomic.Int64
	m := New(counters.New(), nil, WithInterval(time.Millisecond), WithSink(SinkFunc(func(Snapshot) error {
		emitted.Add(1)
		return nil
	})))
	m.Stop()
	<-start(m)
	require.Zero(t, emitted.Load())
}

func TestSinkErrorIsLoggedAndSkipped(t *testing.T) {
	t.Parallel()
	r := require.New(t)

	core, logs := observer.New(zapcore.WarnLevel)
	var calls atomic.Int64
	sink := SinkFunc(func(Snapshot) error {
		calls.Add(1)
		return errors.New("broken pipe")
	})
	m := New(counters.New(), nil,
		WithInterval(2*time.Millisecond), WithSink(sink), WithLogger(zap.New(core)))
	done := start(m)

	r.Eventually(func() bool { return calls.Load() >= 3 }, time.Second, time.Millisecond)
	m.Stop()
	<-done

	entries := logs.FilterMessage("progress sink failed").All()
	r.GreaterOrEqual(len(entries), 3)
	r.Equal("broken pipe", entries[0].ContextMap()["error"])
}

func TestSampleWithoutStats(t *testing.T) {
	t.Parallel()
	c := counters.New()
	c.Begin()
	s := New(c, nil).Sample()
	require.Equal(t, int64(1), s.Running)
	require.Zero(t, s.Workers)
	require.False(t, s.At.IsZero())
}
