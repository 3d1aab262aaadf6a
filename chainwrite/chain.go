// Package chainwrite writes a random payload followed by a checksum of
// exactly that payload. The two writes are asynchronous and strictly
// ordered: the checksum write starts only after the payload write has
// been confirmed. The same state machine backs every continuation
// style the package offers.
package chainwrite

import (
	"crypto/rand"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/zeebo/blake3"

	"github.com/NetPo4ki/go-dispatch/scope"
)

const (
	PayloadSize = 256
	// DigestSize is the length of the checksum: BLAKE3 output
	// truncated to 128 bits.
	DigestSize = 16
)

var (
	// ErrStageOrder reports an attempt to move a chain out of order.
	ErrStageOrder = errors.New("chainwrite: stage out of order")
	// ErrWriteInFlight reports an attempt to overlap writes on one file.
	ErrWriteInFlight = errors.New("chainwrite: write already in flight")
)

type (
	Payload [PayloadSize]byte
	Digest  [DigestSize]byte
)

// NewPayload returns a payload filled with random bytes.
func NewPayload() (Payload, error) {
	var p Payload
	if _, err := rand.Read(p[:]); err != nil {
		return p, fmt.Errorf("chainwrite: random payload: %w", err)
	}
	return p, nil
}

// Sum returns the checksum of b.
func Sum(b []byte) Digest {
	full := blake3.Sum256(b)
	var d Digest
	copy(d[:], full[:DigestSize])
	return d
}

// Stage is the position of a chain in its lifecycle. Stages only move
// forward: Idle, PayloadInFlight, ChecksumInFlight, Done.
type Stage int32

const (
	Idle Stage = iota
	PayloadInFlight
	ChecksumInFlight
	Done
)

func (s Stage) String() string {
	switch s {
	case Idle:
		return "idle"
	case PayloadInFlight:
		return "payload-in-flight"
	case ChecksumInFlight:
		return "checksum-in-flight"
	case Done:
		return "done"
	}
	return fmt.Sprintf("stage(%d)", int32(s))
}

// chain owns one file handle for the duration of one chained write.
// Each step hands control to the next through a completion callback;
// no two steps touch the file at the same time.
type chain struct {
	payload   Payload
	digest    Digest
	stage     atomic.Int32
	confirmed atomic.Bool
	file      *AsyncFile
	obs       Observer
}

func open(path string, payload Payload, o options) (*chain, error) {
	f, err := OpenAsync(path, o.exec)
	if err != nil {
		return nil, err
	}
	if o.onOpen != nil {
		o.onOpen(f)
	}
	return &chain{payload: payload, file: f, obs: o.obs}, nil
}

func (c *chain) Stage() Stage { return Stage(c.stage.Load()) }

func (c *chain) advance(from, to Stage) error {
	if !c.stage.CompareAndSwap(int32(from), int32(to)) {
		return fmt.Errorf("%w: %v -> %v while %v", ErrStageOrder, from, to, c.Stage())
	}
	return nil
}

func (c *chain) startPayload(cb func(error)) {
	if err := c.advance(Idle, PayloadInFlight); err != nil {
		cb(err)
		return
	}
	c.obs.WriteStarted(PayloadInFlight)
	c.file.BeginWrite(c.payload[:], cb)
}

// payloadWritten confirms the payload write and computes the digest
// over the bytes that were written.
func (c *chain) payloadWritten(err error) error {
	c.obs.WriteCompleted(PayloadInFlight, err)
	if err != nil {
		return fmt.Errorf("chainwrite: write payload: %w", err)
	}
	c.digest = Sum(c.payload[:])
	c.confirmed.Store(true)
	return nil
}

func (c *chain) startChecksum(cb func(error)) {
	if !c.confirmed.Load() {
		cb(fmt.Errorf("%w: payload write not confirmed", ErrStageOrder))
		return
	}
	if err := c.advance(PayloadInFlight, ChecksumInFlight); err != nil {
		cb(err)
		return
	}
	c.obs.WriteStarted(ChecksumInFlight)
	c.file.BeginWrite(c.digest[:], cb)
}

func (c *chain) checksumWritten(err error) error {
	c.obs.WriteCompleted(ChecksumInFlight, err)
	if err != nil {
		return fmt.Errorf("chainwrite: write checksum: %w", err)
	}
	return c.advance(ChecksumInFlight, Done)
}

// steps runs the chain as straight-line code. await turns each
// in-flight write into its result; how it waits is up to the caller.
func (c *chain) steps(await func(*scope.Future) error) error {
	if err := c.payloadWritten(await(future(c.startPayload))); err != nil {
		return err
	}
	return c.checksumWritten(await(future(c.startChecksum)))
}

func (c *chain) close() error {
	return c.file.Close()
}

func future(start func(cb func(error))) *scope.Future {
	f, complete := scope.NewFuture()
	start(complete)
	return f
}
