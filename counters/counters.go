// Package counters holds the live work accounting shared between a
// dispatcher and the monitor sampling it.
package counters

import (
	"fmt"
	"sync/atomic"
)

// Counters tracks units in flight and units finished. The zero value
// is ready to use. All methods are safe for concurrent use.
type Counters struct {
	running   atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
}

// New returns zeroed Counters.
func New() *Counters { return &Counters{} }

// Counts is an immutable copy of Counters at one instant.
type Counts struct {
	Running   int64
	Completed int64
	Failed    int64
}

func (c Counts) String() string {
	return fmt.Sprintf("running=%d completed=%d failed=%d", c.Running, c.Completed, c.Failed)
}

// Begin marks one unit as running.
func (c *Counters) Begin() { c.running.Add(1) }

// End marks one running unit as completed. A non-nil err additionally
// counts it as failed; failed units still count toward completed.
func (c *Counters) End(err error) {
	if err != nil {
		c.failed.Add(1)
	}
	c.running.Add(-1)
	c.completed.Add(1)
}

func (c *Counters) Running() int64   { return c.running.Load() }
func (c *Counters) Completed() int64 { return c.completed.Load() }
func (c *Counters) Failed() int64    { return c.failed.Load() }

// Snapshot reads each counter once. The fields are individually
// atomic but not read as one transaction.
func (c *Counters) Snapshot() Counts {
	return Counts{
		Running:   c.running.Load(),
		Completed: c.completed.Load(),
		Failed:    c.failed.Load(),
	}
}

// Reset zeroes every counter. It must not race with Begin or End.
func (c *Counters) Reset() {
	c.running.Store(0)
	c.completed.Store(0)
	c.failed.Store(0)
}
