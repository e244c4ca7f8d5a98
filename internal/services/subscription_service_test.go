package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fslarfn/toto-backend-sub000/config"
	"github.com/fslarfn/toto-backend-sub000/internal/apperrors"
	"github.com/fslarfn/toto-backend-sub000/internal/models"
	"github.com/fslarfn/toto-backend-sub000/internal/repositories"
	"github.com/fslarfn/toto-backend-sub000/internal/testutil"
)

type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, phone, message string) error {
	args := m.Called(ctx, phone, message)
	return args.Error(0)
}

var subscriptionConfig = config.SubscriptionConfig{
	Period:       30 * 24 * time.Hour,
	ReminderDays: 3,
	WebhookToken: "callback-secret",
}

func seedUsers(t *testing.T, repo repositories.UserRepository, users ...*models.User) {
	t.Helper()
	for _, u := range users {
		if u.Password == "" {
			u.Password = "x"
		}
		require.NoError(t, repo.Create(context.Background(), u))
	}
}

func timePtr(t time.Time) *time.Time { return &t }

func TestSubscriptionService_SweepExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	users := repositories.NewUserRepository(testutil.NewDB(t), testutil.NewRetrier())
	seedUsers(t, users,
		&models.User{Username: "a", Active: true, SubscriptionExpiresAt: timePtr(now.Add(-time.Minute))},
		&models.User{Username: "b", Active: true, SubscriptionExpiresAt: timePtr(now.Add(-48 * time.Hour))},
		&models.User{Username: "c", Active: true, SubscriptionExpiresAt: timePtr(now.Add(time.Hour))},
	)

	svc := NewSubscriptionService(users, nil, subscriptionConfig)
	n, err := svc.SweepExpired(ctx, now)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	n, err = svc.SweepExpired(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, n)

	c, err := users.GetByUsername(ctx, "c")
	require.NoError(t, err)
	assert.True(t, c.Active)
}

func TestSubscriptionService_SendReminders(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	users := repositories.NewUserRepository(testutil.NewDB(t), testutil.NewRetrier())
	seedUsers(t, users,
		&models.User{Username: "ok", Name: "Budi", Phone: "62811", Active: true, SubscriptionExpiresAt: timePtr(now.Add(24 * time.Hour))},
		&models.User{Username: "broken", Phone: "62822", Active: true, SubscriptionExpiresAt: timePtr(now.Add(36 * time.Hour))},
		&models.User{Username: "nophone", Active: true, SubscriptionExpiresAt: timePtr(now.Add(48 * time.Hour))},
		&models.User{Username: "far", Phone: "62833", Active: true, SubscriptionExpiresAt: timePtr(now.Add(10 * 24 * time.Hour))},
	)

	sender := new(MockSender)
	sender.On("Send", mock.Anything, "62811", mock.MatchedBy(func(msg string) bool {
		return strings.Contains(msg, "Budi") && strings.Contains(msg, "11/03/2024")
	})).Return(nil).Once()
	sender.On("Send", mock.Anything, "62822", mock.Anything).Return(errors.New("gateway down")).Once()

	svc := NewSubscriptionService(users, sender, subscriptionConfig)
	report, err := svc.SendReminders(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, ReminderReport{Sent: 1, Failed: 1, Skipped: 1}, report)
	sender.AssertExpectations(t)
}

func TestSubscriptionService_HandlePayment(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	users := repositories.NewUserRepository(testutil.NewDB(t), testutil.NewRetrier())

	lapsed := &models.User{Username: "lapsed", Active: false, SubscriptionExpiresAt: timePtr(now.Add(-72 * time.Hour))}
	ahead := &models.User{Username: "ahead", Active: true, SubscriptionExpiresAt: timePtr(now.Add(5 * 24 * time.Hour))}
	seedUsers(t, users, lapsed, ahead)

	svc := NewSubscriptionService(users, nil, subscriptionConfig)

	t.Run("counts from payment when already expired", func(t *testing.T) {
		u, err := svc.HandlePayment(ctx, PaymentNotification{UserID: lapsed.ID, Status: "paid"}, now)
		require.NoError(t, err)
		require.NotNil(t, u)
		assert.True(t, u.Active)
		assert.WithinDuration(t, now.Add(30*24*time.Hour), *u.SubscriptionExpiresAt, time.Second)
	})

	t.Run("counts from current expiry when still running", func(t *testing.T) {
		u, err := svc.HandlePayment(ctx, PaymentNotification{UserID: ahead.ID, Status: "SETTLED", PaidAt: now}, now)
		require.NoError(t, err)
		assert.WithinDuration(t, now.Add(35*24*time.Hour), *u.SubscriptionExpiresAt, time.Second)
	})

	t.Run("pending status is ignored", func(t *testing.T) {
		u, err := svc.HandlePayment(ctx, PaymentNotification{UserID: ahead.ID, Status: "PENDING"}, now)
		require.NoError(t, err)
		assert.Nil(t, u)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := svc.HandlePayment(ctx, PaymentNotification{UserID: 999, Status: "PAID"}, now)
		assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
	})

	t.Run("missing user id", func(t *testing.T) {
		_, err := svc.HandlePayment(ctx, PaymentNotification{Status: "PAID"}, now)
		assert.True(t, apperrors.Is(err, apperrors.KindInvalidRequest))
	})
}

func TestSubscriptionService_VerifyWebhookToken(t *testing.T) {
	svc := NewSubscriptionService(nil, nil, subscriptionConfig)
	assert.True(t, svc.VerifyWebhookToken("callback-secret"))
	assert.False(t, svc.VerifyWebhookToken("callback-secreT"))
	assert.False(t, svc.VerifyWebhookToken(""))

	open := NewSubscriptionService(nil, nil, config.SubscriptionConfig{})
	assert.False(t, open.VerifyWebhookToken(""))
}
