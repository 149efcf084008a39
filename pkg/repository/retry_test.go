package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

var errFlaky = errors.New("connection reset")

func fastRetry() RetryConfig {
	return RetryConfig{Attempts: 4, InitialInterval: time.Millisecond}
}

func TestWithRetrySucceeds(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), fastRetry(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errFlaky
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetryGivesUp(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), fastRetry(), func(ctx context.Context) error {
		calls++
		return errFlaky
	})
	assert.ErrorIs(t, err, ErrStorage)
	assert.ErrorIs(t, err, errFlaky)
	assert.Equal(t, 4, calls)
}

func TestWithRetryPermanent(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), fastRetry(), func(ctx context.Context) error {
		calls++
		return &pgconn.PgError{Code: "23505", Message: "duplicate key"}
	})
	assert.ErrorIs(t, err, ErrStorage)
	assert.Equal(t, 1, calls)
}

func TestWithRetryCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := WithRetry(ctx, fastRetry(), func(ctx context.Context) error {
		calls++
		return errFlaky
	})
	assert.ErrorIs(t, err, ErrStorage)
	assert.LessOrEqual(t, calls, 1)
}
