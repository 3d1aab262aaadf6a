package scope

import (
	"sync"

	"go.uber.org/multierr"
)

// Future is the completion handle of one asynchronous operation.
type Future struct {
	done chan struct{}
	once sync.Once
	err  error
}

// NewFuture returns an unresolved Future and the function that
// resolves it. Only the first call to complete has an effect.
func NewFuture() (*Future, func(error)) {
	f := &Future{done: make(chan struct{})}
	return f, f.complete
}

func (f *Future) complete(err error) {
	f.once.Do(func() {
		f.err = err
		close(f.done)
	})
}

// Done is closed once the operation has completed.
func (f *Future) Done() <-chan struct{} { return f.done }

// Err returns the operation's result. It is nil until Done is closed.
func (f *Future) Err() error {
	select {
	case <-f.done:
		return f.err
	default:
		return nil
	}
}

// Await blocks until the operation completes and returns its result.
func (f *Future) Await() error {
	<-f.done
	return f.err
}

// AllOf waits for every future and returns their failures combined.
func AllOf(futs ...*Future) error {
	var errs error
	for _, f := range futs {
		if f == nil {
			continue
		}
		errs = multierr.Append(errs, f.Await())
	}
	return errs
}
