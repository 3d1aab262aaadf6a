package scope

import (
	"context"
	"time"
)

// Observer receives lifecycle events from a Scope. Implementations
// must be safe for concurrent use; TaskStarted and TaskFinished are
// called from task goroutines.
type Observer interface {
	ScopeCreated(ctx context.Context)
	ScopeJoined(ctx context.Context, wait time.Duration)
	TaskStarted(ctx context.Context)
	TaskFinished(ctx context.Context, dur time.Duration, err error, panicked bool)
}

type observers []Observer

// Observers fans every event out to each non-nil observer in order.
func Observers(obs ...Observer) Observer {
	out := make(observers, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			out = append(out, o)
		}
	}
	return out
}

func (list observers) ScopeCreated(ctx context.Context) {
	for _, o := range list {
		o.ScopeCreated(ctx)
	}
}

func (list observers) ScopeJoined(ctx context.Context, wait time.Duration) {
	for _, o := range list {
		o.ScopeJoined(ctx, wait)
	}
}

func (list observers) TaskStarted(ctx context.Context) {
	for _, o := range list {
		o.TaskStarted(ctx)
	}
}

func (list observers) TaskFinished(ctx context.Context, dur time.Duration, err error, panicked bool) {
	for _, o := range list {
		o.TaskFinished(ctx, dur, err, panicked)
	}
}
