package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mpapenbr/datalog-analyzer-go/log"
)

var ErrStorage = errors.New("storage failure")

const (
	DefaultAttempts        = 4
	DefaultInitialInterval = 200 * time.Millisecond
)

type RetryConfig struct {
	Attempts        int
	InitialInterval time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{Attempts: DefaultAttempts, InitialInterval: DefaultInitialInterval}
}

// WithRetry runs op until it succeeds, fails permanently or the attempts are
// used up. The delay between attempts grows exponentially.
// Constraint violations are not retried. The final error wraps ErrStorage.
func WithRetry(ctx context.Context, cfg RetryConfig, op func(ctx context.Context) error) error {
	logger := log.GetFromContext(ctx).Named("retry")
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.InitialInterval
	b.MaxElapsedTime = 0
	attempts := max(1, cfg.Attempts)
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)

	attempt := 0
	err := backoff.RetryNotify(func() error {
		attempt++
		err := op(ctx)
		if err != nil && isPermanent(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy, func(err error, d time.Duration) {
		logger.Warn("storage operation failed, retrying",
			log.Int("attempt", attempt),
			log.Duration("delay", d),
			log.ErrorField(err))
	})
	if err != nil {
		return fmt.Errorf("%w: after %d attempt(s): %w", ErrStorage, attempt, err)
	}
	return nil
}

func isPermanent(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// class 23: integrity constraint violation
		return len(pgErr.Code) == 5 && pgErr.Code[:2] == "23"
	}
	return errors.Is(err, context.Canceled)
}
