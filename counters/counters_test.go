package counters

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBeginEndConcurrent(t *testing.T) {
	t.Parallel()
	r := require.New(t)

	const n = 1000
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Begin()
			var err error
			if i%10 == 0 {
				err = errors.New("unit failed")
			}
			c.End(err)
		}(i)
	}
	wg.Wait()

	got := c.Snapshot()
	r.Equal(int64(0), got.Running)
	r.Equal(int64(n), got.Completed)
	r.Equal(int64(n/10), got.Failed)
}

func TestReset(t *testing.T) {
	t.Parallel()
	r := require.New(t)

	var c Counters
	c.Begin()
	c.Begin()
	c.End(nil)
	r.Equal(Counts{Running: 1, Completed: 1}, c.Snapshot())

	c.Reset()
	r.Equal(Counts{}, c.Snapshot())
	r.Equal("running=0 completed=0 failed=0", c.Snapshot().String())
}
