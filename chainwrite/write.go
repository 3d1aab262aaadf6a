package chainwrite

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/webriots/coro"
	"go.uber.org/multierr"

	"github.com/NetPo4ki/go-dispatch/scope"
)

// ErrUnknownStyle is returned by ParseStyle for unrecognized input.
var ErrUnknownStyle = errors.New("chainwrite: unknown style")

// Style selects how the two writes of a chain are stitched together.
type Style int

const (
	// Callbacks names the next step inside each completion callback.
	Callbacks Style = iota + 1
	// Coroutine yields each in-flight write to an external driver
	// that resumes the routine when the write completes.
	Coroutine
	// Async awaits each write in sequence.
	Async
	// Sync issues two blocking writes; the baseline the others match.
	Sync
)

var styleNames = map[Style]string{
	Callbacks: "callbacks",
	Coroutine: "coroutine",
	Async:     "async",
	Sync:      "sync",
}

func (s Style) String() string {
	if name, ok := styleNames[s]; ok {
		return name
	}
	return fmt.Sprintf("style(%d)", int(s))
}

func ParseStyle(v string) (Style, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	for s, name := range styleNames {
		if v == name {
			return s, nil
		}
	}
	switch v {
	case "callback", "apm":
		return Callbacks, nil
	case "iterator", "resume":
		return Coroutine, nil
	case "await", "tap":
		return Async, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStyle, v)
}

// Write runs one chained write to path in the given style.
func Write(style Style, path string, payload Payload, opts ...Option) error {
	switch style {
	case Callbacks:
		return WriteWithCallbacks(path, payload, opts...)
	case Coroutine:
		return WriteCoroutine(path, payload, opts...)
	case Async:
		return WriteAsync(path, payload, opts...)
	case Sync:
		return WriteSync(path, payload)
	}
	return fmt.Errorf("%w: %v", ErrUnknownStyle, style)
}

// WriteCallbacks starts a chained write and returns immediately. done
// is called exactly once, after the file has been closed.
func WriteCallbacks(path string, payload Payload, done func(error), opts ...Option) {
	c, err := open(path, payload, newOptions(opts))
	if err != nil {
		done(err)
		return
	}
	finish := func(err error) {
		done(multierr.Append(err, c.close()))
	}
	c.startPayload(func(err error) {
		if err := c.payloadWritten(err); err != nil {
			finish(err)
			return
		}
		c.startChecksum(func(err error) {
			finish(c.checksumWritten(err))
		})
	})
}

// WriteWithCallbacks runs WriteCallbacks and waits for it to finish.
func WriteWithCallbacks(path string, payload Payload, opts ...Option) error {
	f, complete := scope.NewFuture()
	WriteCallbacks(path, payload, complete, opts...)
	return f.Await()
}

// WriteCoroutine expresses the chain as one suspendable routine. The
// routine yields each in-flight write; the driver loop below resumes
// it with the write's result once the write completes.
func WriteCoroutine(path string, payload Payload, opts ...Option) error {
	o := newOptions(opts)
	var result error
	resume, cancel := coro.New(
		func(yield func(*scope.Future) error, _ func() error) (z *scope.Future) {
			c, err := open(path, payload, o)
			if err != nil {
				result = err
				return
			}
			defer func() {
				result = multierr.Append(result, c.close())
			}()
			result = c.steps(yield)
			return
		},
	)
	defer cancel()

	drive(resume)
	return result
}

func drive(resume func(error) (*scope.Future, bool)) {
	op, ok := resume(nil)
	for ok {
		op, ok = resume(op.Await())
	}
}

// WriteAsync awaits the payload write and then the checksum write.
func WriteAsync(path string, payload Payload, opts ...Option) (err error) {
	c, err := open(path, payload, newOptions(opts))
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, c.close())
	}()
	return c.steps((*scope.Future).Await)
}

// WriteSync writes payload and its checksum with blocking calls.
func WriteSync(path string, payload Payload) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("chainwrite: open: %w", err)
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()
	if _, err := f.Write(payload[:]); err != nil {
		return fmt.Errorf("chainwrite: write payload: %w", err)
	}
	digest := Sum(payload[:])
	if _, err := f.Write(digest[:]); err != nil {
		return fmt.Errorf("chainwrite: write checksum: %w", err)
	}
	return nil
}
