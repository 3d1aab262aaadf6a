package dispatch

import (
	"sync/atomic"
	"time"
)

// WorkFunc performs d worth of CPU-bound work.
type WorkFunc func(d time.Duration) error

var spinSink atomic.Int64

// Spin keeps the calling goroutine busy for d without yielding.
func Spin(d time.Duration) error {
	var sum, k int64
	until := time.Now().Add(d)
	for time.Now().Before(until) {
		k++
		sum += k
	}
	spinSink.Store(sum)
	return nil
}
