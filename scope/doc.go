// Package scope provides structured-concurrency primitives for Go.
// A Scope owns the tasks it spawns and provides a single join point
// (Wait) that observes every task's completion, collecting failures
// instead of cancelling siblings. Future is the one-shot completion
// handle tasks and asynchronous operations hand back to callers.
package scope
