package dispatch

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownStrategy is returned by ParseStrategy for unrecognized input.
var ErrUnknownStrategy = errors.New("dispatch: unknown strategy")

// Strategy selects the execution model used for one run.
type Strategy int

const (
	// BlockingCallback holds a pool worker for the whole unit,
	// including the simulated blocking wait.
	BlockingCallback Strategy = iota + 1
	// NonBlockingCallback runs CPU work only on a pool worker.
	NonBlockingCallback
	// TimerDeferredCallback arms a one-shot timer and frees the worker;
	// the timer queues the CPU work back onto the pool.
	TimerDeferredCallback
	// TaskBased runs each unit as a task that suspends off-pool and is
	// joined structurally instead of polled.
	TaskBased
)

var strategyNames = map[Strategy]string{
	BlockingCallback:      "blocking",
	NonBlockingCallback:   "nonblocking",
	TimerDeferredCallback: "timer",
	TaskBased:             "tasks",
}

// Strategies lists every strategy in selector order.
func Strategies() []Strategy {
	return []Strategy{BlockingCallback, NonBlockingCallback, TimerDeferredCallback, TaskBased}
}

func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

func (s Strategy) valid() bool {
	_, ok := strategyNames[s]
	return ok
}

// ParseStrategy accepts the numeric selector ("1".."4") or a strategy
// name.
func ParseStrategy(v string) (Strategy, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	for _, s := range Strategies() {
		if v == s.String() || v == fmt.Sprint(int(s)) {
			return s, nil
		}
	}
	switch v {
	case "block", "blocking-callback":
		return BlockingCallback, nil
	case "noblock", "nonblocking-callback":
		return NonBlockingCallback, nil
	case "deferred", "timer-deferred", "apm":
		return TimerDeferredCallback, nil
	case "task", "task-based", "tap":
		return TaskBased, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStrategy, v)
}
