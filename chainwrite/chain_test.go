package chainwrite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestChain(t *testing.T) *chain {
	t.Helper()
	var payload Payload
	payload[0] = 0xAB
	c, err := open(filepath.Join(t.TempDir(), "out"), payload, newOptions(nil))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.close() })
	return c
}

func TestStagesMoveForwardOnly(t *testing.T) {
	t.Parallel()
	r := require.New(t)

	c := newTestChain(t)
	r.Equal(Idle, c.Stage())

	errc := make(chan error, 1)
	c.startChecksum(func(err error) { errc <- err })
	r.ErrorIs(<-errc, ErrStageOrder)
	r.Equal(Idle, c.Stage())

	c.startPayload(func(err error) { errc <- err })
	r.Equal(PayloadInFlight, c.Stage())
	r.NoError(c.payloadWritten(<-errc))
	r.Equal(Sum(c.payload[:]), c.digest)

	c.startPayload(func(err error) { errc <- err })
	r.ErrorIs(<-errc, ErrStageOrder)

	c.startChecksum(func(err error) { errc <- err })
	r.Equal(ChecksumInFlight, c.Stage())
	r.NoError(c.checksumWritten(<-errc))
	r.Equal(Done, c.Stage())

	r.ErrorIs(c.advance(ChecksumInFlight, Done), ErrStageOrder)
}

func TestOverlappingWritesRejected(t *testing.T) {
	t.Parallel()
	r := require.New(t)

	exec := &slowExecutor{delay: 20 * time.Millisecond}
	f, err := OpenAsync(filepath.Join(t.TempDir(), "out"), exec)
	r.NoError(err)
	defer f.Close()

	first := f.WriteAsync([]byte("first"))
	second := f.WriteAsync([]byte("second"))
	r.ErrorIs(second.Await(), ErrWriteInFlight)
	r.NoError(first.Await())
	r.NoError(f.WriteAsync([]byte("third")).Await())
}

func TestCloseIsIdempotent(t *testing.T) {
	t.Parallel()
	f, err := OpenAsync(filepath.Join(t.TempDir(), "out"), nil)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NoError(t, f.Close())
	require.True(t, f.closed.Load())
	require.Error(t, f.WriteAsync([]byte("late")).Await())
}

func TestSumIsDeterministic(t *testing.T) {
	t.Parallel()
	a := Sum([]byte("payload"))
	b := Sum([]byte("payload"))
	c := Sum([]byte("payloae"))
	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
	require.Len(t, a, DigestSize)
}

func TestStageString(t *testing.T) {
	t.Parallel()
	require.Equal(t, "checksum-in-flight", ChecksumInFlight.String())
	require.Equal(t, "stage(9)", Stage(9).String())
}
