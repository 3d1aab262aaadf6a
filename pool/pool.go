// Package pool implements a fixed-capacity worker pool fed by an
// unbounded FIFO queue. Queue never blocks the submitter; when more
// work is queued than there are workers, items wait their turn.
package pool

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gammazero/deque"
)

// ErrClosed is returned when work is submitted after Close.
var ErrClosed = errors.New("pool: closed")

type Option func(*Options)

type Options struct {
	// PanicHandler receives values recovered from panicking items.
	PanicHandler func(any)
}

func WithPanicHandler(fn func(any)) Option { return func(o *Options) { o.PanicHandler = fn } }

// Stats describes the pool at one instant.
type Stats struct {
	Workers int
	Active  int
	Queued  int
}

type Pool struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  deque.Deque[func()]
	closed bool

	workers int
	active  atomic.Int64
	wg      sync.WaitGroup
	opts    Options
}

// New starts a pool with the given number of workers. workers below
// one is treated as one.
func New(workers int, optFns ...Option) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{workers: workers}
	for _, fn := range optFns {
		fn(&p.opts)
	}
	p.cond = sync.NewCond(&p.mu)
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

// Queue appends fn to the work queue and returns immediately.
func (p *Pool) Queue(fn func()) error {
	if fn == nil {
		return nil
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	p.queue.PushBack(fn)
	p.mu.Unlock()
	p.cond.Signal()
	return nil
}

// Do queues fn and blocks until a worker has run it. A panic in fn is
// returned as an error.
func (p *Pool) Do(fn func() error) error {
	done := make(chan error, 1)
	err := p.Queue(func() {
		var err error
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("pool: item panicked: %v", r)
			}
			done <- err
		}()
		err = fn()
	})
	if err != nil {
		return err
	}
	return <-done
}

// Close stops accepting work, lets the workers drain what is already
// queued and waits for them to exit. It is safe to call more than once.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.cond.Broadcast()
	p.wg.Wait()
}

func (p *Pool) Stats() Stats {
	p.mu.Lock()
	queued := p.queue.Len()
	p.mu.Unlock()
	return Stats{
		Workers: p.workers,
		Active:  int(p.active.Load()),
		Queued:  queued,
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for p.queue.Len() == 0 && !p.closed {
			p.cond.Wait()
		}
		if p.queue.Len() == 0 {
			p.mu.Unlock()
			return
		}
		fn := p.queue.PopFront()
		p.mu.Unlock()

		p.run(fn)
	}
}

func (p *Pool) run(fn func()) {
	p.active.Add(1)
	defer p.active.Add(-1)
	defer func() {
		if r := recover(); r != nil && p.opts.PanicHandler != nil {
			p.opts.PanicHandler(r)
		}
	}()
	fn()
}
