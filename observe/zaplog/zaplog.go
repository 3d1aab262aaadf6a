// Package zaplog provides a scope.Observer that writes task lifecycle
// events to a zap logger.
package zaplog

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Observer logs successful tasks at debug level and failed ones at
// warn level.
type Observer struct {
	log *zap.Logger
}

func New(l *zap.Logger) *Observer {
	if l == nil {
		l = zap.NewNop()
	}
	return &Observer{log: l.Named("scope")}
}

func (o *Observer) ScopeCreated(context.Context) { o.log.Debug("scope created") }

func (o *Observer) ScopeJoined(_ context.Context, wait time.Duration) {
	o.log.Info("scope joined", zap.Duration("wait", wait))
}

func (o *Observer) TaskStarted(context.Context) {}

func (o *Observer) TaskFinished(_ context.Context, dur time.Duration, err error, panicked bool) {
	switch {
	case panicked:
		o.log.Warn("task panicked", zap.Duration("duration", dur), zap.Error(err))
	case err != nil:
		o.log.Warn("task failed", zap.Duration("duration", dur), zap.Error(err))
	default:
		if ce := o.log.Check(zap.DebugLevel, "task finished"); ce != nil {
			ce.Write(zap.Duration("duration", dur))
		}
	}
}
