package chainwrite

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/NetPo4ki/go-dispatch/scope"
)

// Executor runs queued functions. *pool.Pool satisfies it.
type Executor interface {
	Queue(fn func()) error
}

type goExecutor struct{}

func (goExecutor) Queue(fn func()) error {
	go fn()
	return nil
}

// AsyncFile issues writes that complete on an Executor and report
// through a callback. At most one write may be in flight.
type AsyncFile struct {
	f        *os.File
	exec     Executor
	inflight atomic.Bool

	closeOnce sync.Once
	closeErr  error
	closed    atomic.Bool
}

// OpenAsync creates or truncates path. A nil exec starts one goroutine
// per write.
func OpenAsync(path string, exec Executor) (*AsyncFile, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("chainwrite: open: %w", err)
	}
	if exec == nil {
		exec = goExecutor{}
	}
	return &AsyncFile{f: f, exec: exec}, nil
}

// BeginWrite starts writing buf and returns immediately. cb receives
// the outcome once the whole buffer has been written or the write
// failed. buf must not be modified until cb runs.
func (a *AsyncFile) BeginWrite(buf []byte, cb func(error)) {
	if !a.inflight.CompareAndSwap(false, true) {
		cb(ErrWriteInFlight)
		return
	}
	err := a.exec.Queue(func() {
		n, err := a.f.Write(buf)
		if err == nil && n < len(buf) {
			err = io.ErrShortWrite
		}
		a.inflight.Store(false)
		cb(err)
	})
	if err != nil {
		a.inflight.Store(false)
		cb(fmt.Errorf("chainwrite: queue write: %w", err))
	}
}

// WriteAsync is BeginWrite returning a Future instead of taking a callback.
func (a *AsyncFile) WriteAsync(buf []byte) *scope.Future {
	f, complete := scope.NewFuture()
	a.BeginWrite(buf, complete)
	return f
}

// Close releases the file handle. Later calls return the first result.
func (a *AsyncFile) Close() error {
	a.closeOnce.Do(func() {
		a.closeErr = a.f.Close()
		a.closed.Store(true)
	})
	return a.closeErr
}
