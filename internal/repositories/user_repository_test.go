package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fslarfn/toto-backend-sub000/internal/apperrors"
	"github.com/fslarfn/toto-backend-sub000/internal/models"
	"github.com/fslarfn/toto-backend-sub000/internal/testutil"
)

func TestUserRepository_Subscriptions(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(testutil.NewDB(t), testutil.NewRetrier())
	now := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)

	users := []*models.User{
		{Username: "lapsed", Password: "x", Active: true, SubscriptionExpiresAt: ptr(now.Add(-time.Hour))},
		{Username: "soon", Password: "x", Active: true, SubscriptionExpiresAt: ptr(now.Add(48 * time.Hour))},
		{Username: "later", Password: "x", Active: true, SubscriptionExpiresAt: ptr(now.Add(30 * 24 * time.Hour))},
		{Username: "boss", Password: "x", Role: models.RoleAdmin, Active: true, SubscriptionExpiresAt: ptr(now.Add(-time.Hour))},
		{Username: "off", Password: "x", Active: false, SubscriptionExpiresAt: ptr(now.Add(-time.Hour))},
	}
	for _, u := range users {
		require.NoError(t, repo.Create(ctx, u))
	}

	expired, err := repo.ListExpired(ctx, now)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "lapsed", expired[0].Username)

	expiring, err := repo.ListExpiring(ctx, now, now.Add(72*time.Hour))
	require.NoError(t, err)
	require.Len(t, expiring, 1)
	assert.Equal(t, "soon", expiring[0].Username)

	n, err := repo.Deactivate(ctx, []uint{expired[0].ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	lapsed, err := repo.GetByUsername(ctx, "lapsed")
	require.NoError(t, err)
	assert.False(t, lapsed.Active)

	extended, err := repo.ExtendSubscription(ctx, lapsed.ID, now.Add(30*24*time.Hour))
	require.NoError(t, err)
	assert.True(t, extended.Active)

	_, err = repo.GetByUsername(ctx, "nobody")
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))

	_, err = repo.ExtendSubscription(ctx, 999999, now)
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
}
