package database

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/fslarfn/toto-backend-sub000/config"
	"github.com/fslarfn/toto-backend-sub000/internal/apperrors"
	"github.com/fslarfn/toto-backend-sub000/internal/metrics"
)

// Retrier re-runs failed store operations with exponential backoff.
// Errors that describe the request rather than the store are returned as is.
type Retrier struct {
	maxTries uint
	initial  time.Duration
}

// NewRetrier builds a retrier from configuration
func NewRetrier(cfg config.RetryConfig) *Retrier {
	tries := cfg.MaxTries
	if tries == 0 {
		tries = 1
	}
	initial := cfg.InitialInterval
	if initial <= 0 {
		initial = 100 * time.Millisecond
	}
	return &Retrier{maxTries: tries, initial: initial}
}

// Do runs op until it succeeds, fails permanently, or the attempts run out.
// Exhausted transient failures come back as apperrors.StoreFailure.
func (r *Retrier) Do(ctx context.Context, name string, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.initial
	b.Multiplier = 2

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := op()
		if err == nil {
			return struct{}{}, nil
		}
		if IsPermanent(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		metrics.StoreRetry(name)
		log.Warn().Err(err).Str("operation", name).Int("attempt", attempt).Msg("store operation failed")
		return struct{}{}, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(r.maxTries))

	if err == nil {
		return nil
	}
	if IsPermanent(err) {
		return err
	}
	return apperrors.StoreFailure(errors.Wrapf(err, "%s failed after %d attempts", name, attempt))
}

// IsPermanent reports whether retrying err cannot change the outcome
func IsPermanent(err error) bool {
	if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, context.Canceled) {
		return true
	}
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return appErr.Kind != apperrors.KindStoreFailure
	}
	return false
}
