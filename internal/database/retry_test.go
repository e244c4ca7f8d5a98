package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/fslarfn/toto-backend-sub000/config"
	"github.com/fslarfn/toto-backend-sub000/internal/apperrors"
)

func fastRetrier(tries uint) *Retrier {
	return NewRetrier(config.RetryConfig{MaxTries: tries, InitialInterval: time.Millisecond})
}

func TestRetrier_RecoversFromTransientFailure(t *testing.T) {
	calls := 0
	err := fastRetrier(3).Do(context.Background(), "test.op", func() error {
		calls++
		if calls < 2 {
			return errors.New("connection reset")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetrier_ExhaustedBecomesStoreFailure(t *testing.T) {
	calls := 0
	err := fastRetrier(3).Do(context.Background(), "test.op", func() error {
		calls++
		return errors.New("connection refused")
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.True(t, apperrors.Is(err, apperrors.KindStoreFailure))
	assert.Equal(t, "internal server error", apperrors.Message(err))
}

func TestRetrier_PermanentErrorsAreNotRetried(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"not found", apperrors.NotFound("work order 7 not found")},
		{"invalid", apperrors.InvalidRequest("no editable fields")},
		{"gorm not found", gorm.ErrRecordNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := fastRetrier(5).Do(context.Background(), "test.op", func() error {
				calls++
				return tt.err
			})

			assert.Equal(t, 1, calls)
			assert.True(t, errors.Is(err, tt.err))
			assert.False(t, apperrors.Is(err, apperrors.KindStoreFailure))
		})
	}
}

func TestNewRetrier_Defaults(t *testing.T) {
	r := NewRetrier(config.RetryConfig{})
	assert.Equal(t, uint(1), r.maxTries)
	assert.Equal(t, 100*time.Millisecond, r.initial)
}
