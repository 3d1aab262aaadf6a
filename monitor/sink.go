package monitor

import (
	"fmt"
	"io"
	"sync"

	"github.com/gammazero/deque"
	"go.uber.org/multierr"
)

// Sink receives snapshots. Emit is called from the monitor goroutine
// only.
type Sink interface {
	Emit(Snapshot) error
}

type SinkFunc func(Snapshot) error

func (f SinkFunc) Emit(s Snapshot) error { return f(s) }

// Discard drops every snapshot.
var Discard Sink = SinkFunc(func(Snapshot) error { return nil })

type writerSink struct{ w io.Writer }

// WriterSink writes one line per snapshot to w.
func WriterSink(w io.Writer) Sink { return writerSink{w: w} }

func (ws writerSink) Emit(s Snapshot) error {
	_, err := fmt.Fprintf(ws.w,
		"%s running=%d completed=%d failed=%d workers=%d/%d queued=%d goroutines=%d\n",
		s.At.Format("15:04:05.000"), s.Running, s.Completed, s.Failed,
		s.ActiveWorkers, s.Workers, s.Queued, s.Goroutines)
	return err
}

type multiSink []Sink

// MultiSink emits to every sink, even after one fails, and returns
// the failures combined.
func MultiSink(sinks ...Sink) Sink {
	out := make(multiSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (ms multiSink) Emit(s Snapshot) error {
	var errs error
	for _, sink := range ms {
		errs = multierr.Append(errs, sink.Emit(s))
	}
	return errs
}

// History keeps the most recent snapshots in memory.
type History struct {
	mu    sync.Mutex
	limit int
	buf   deque.Deque[Snapshot]
}

// NewHistory retains at most limit snapshots; limit below one keeps
// everything.
func NewHistory(limit int) *History { return &History{limit: limit} }

func (h *History) Emit(s Snapshot) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.buf.PushBack(s)
	if h.limit > 0 {
		for h.buf.Len() > h.limit {
			h.buf.PopFront()
		}
	}
	return nil
}

// Snapshots returns the retained samples, oldest first.
func (h *History) Snapshots() []Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Snapshot, h.buf.Len())
	for i := range out {
		out[i] = h.buf.At(i)
	}
	return out
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.buf.Len()
}

// Last returns the newest snapshot.
func (h *History) Last() (Snapshot, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.buf.Len() == 0 {
		return Snapshot{}, false
	}
	return h.buf.Back(), true
}
