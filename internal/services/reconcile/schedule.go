package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Schedule registers Run on a new cron scheduler. Overlapping runs are
// skipped. Each run gets its own timeout. The caller starts and stops the
// returned scheduler.
func (r *Reconciler) Schedule(spec string, timeout time.Duration) (*cron.Cron, error) {
	logger := cronLogger{}

	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		_, runErr := r.Run(ctx)
		if runErr != nil {
			slog.Error("reconciliation failed", "error", runErr)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule %q: %w", spec, err)
	}

	return c, nil
}

// cronLogger routes cron's own logging into slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
