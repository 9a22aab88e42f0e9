// Package shutdownqueue is a process-wide LIFO queue of named cleanup tasks.
//
// Register tasks while wiring the process (Add), drain them once at the end
// of main (Shutdown). Tasks run in reverse registration order, panics are
// recovered, and every task error is returned wrapped with the task name via
// errors.Join.
package shutdownqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Task is a shutdown function. It should honor ctx.
type Task func(ctx context.Context) error

type entry struct {
	name string
	task Task
}

type queue struct {
	mu      sync.Mutex
	entries []entry
	closed  bool
}

var q = &queue{entries: make([]entry, 0, 8)}

// Add registers a named task. Nil tasks and tasks added after Shutdown
// started are ignored.
func Add(name string, t Task) {
	if t == nil {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		slog.Warn("shutdown task registered too late, ignored", "task", name)

		return
	}

	q.entries = append(q.entries, entry{name: name, task: t})
}

// Shutdown drains the queue in LIFO order. Repeated calls are no-ops.
//
// When ctx ends mid-drain the remaining tasks are skipped and the context
// error is joined into the result.
func Shutdown(ctx context.Context) error {
	q.mu.Lock()

	if q.closed && len(q.entries) == 0 {
		q.mu.Unlock()

		return nil
	}

	q.closed = true
	entries := q.entries
	q.entries = nil

	q.mu.Unlock()

	var errs []error

	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]

		select {
		case <-ctx.Done():
			slog.Warn("shutdown interrupted", "skipped", i+1, "error", ctx.Err())
			errs = append(errs, fmt.Errorf("shutdown canceled: %w", ctx.Err()))

			return errors.Join(errs...)
		default:
		}

		err := run(ctx, e)
		if err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func run(ctx context.Context, e entry) (err error) {
	start := time.Now()

	defer func() {
		r := recover()
		if r != nil {
			err = fmt.Errorf("%s: panic in shutdown task: %v", e.name, r)
		}

		if err != nil {
			slog.Error("shutdown task failed", "task", e.name, "duration", time.Since(start), "error", err)

			return
		}

		slog.Info("shutdown task done", "task", e.name, "duration", time.Since(start))
	}()

	terr := e.task(ctx)
	if terr != nil {
		return fmt.Errorf("%s: %w", e.name, terr)
	}

	return nil
}
