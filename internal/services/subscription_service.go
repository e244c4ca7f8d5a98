package services

import (
	"context"
	"crypto/subtle"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fslarfn/toto-backend-sub000/config"
	"github.com/fslarfn/toto-backend-sub000/internal/apperrors"
	"github.com/fslarfn/toto-backend-sub000/internal/metrics"
	"github.com/fslarfn/toto-backend-sub000/internal/models"
	"github.com/fslarfn/toto-backend-sub000/internal/notify"
	"github.com/fslarfn/toto-backend-sub000/internal/repositories"
)

// ReminderReport counts the outcome of one reminder run
type ReminderReport struct {
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// PaymentNotification is the body posted by the payment gateway callback
type PaymentNotification struct {
	UserID uint      `json:"user_id"`
	Status string    `json:"status"`
	PaidAt time.Time `json:"paid_at"`
}

// SubscriptionService keeps user access in line with their paid period
type SubscriptionService struct {
	users  repositories.UserRepository
	sender notify.Sender
	cfg    config.SubscriptionConfig
}

// NewSubscriptionService creates a new subscription service; sender may be nil
func NewSubscriptionService(users repositories.UserRepository, sender notify.Sender, cfg config.SubscriptionConfig) *SubscriptionService {
	return &SubscriptionService{users: users, sender: sender, cfg: cfg}
}

// SweepExpired deactivates users whose subscription ended before now
func (s *SubscriptionService) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	expired, err := s.users.ListExpired(ctx, now)
	if err != nil {
		return 0, err
	}
	if len(expired) == 0 {
		return 0, nil
	}

	ids := make([]uint, 0, len(expired))
	for _, u := range expired {
		ids = append(ids, u.ID)
	}

	n, err := s.users.Deactivate(ctx, ids)
	if err != nil {
		return 0, err
	}
	log.Info().Int64("deactivated", n).Msg("expired subscriptions swept")
	return n, nil
}

// SendReminders messages users whose subscription ends within the reminder window
func (s *SubscriptionService) SendReminders(ctx context.Context, now time.Time) (ReminderReport, error) {
	var report ReminderReport
	if s.sender == nil {
		log.Warn().Msg("whatsapp sender not configured, reminders skipped")
		return report, nil
	}

	window := time.Duration(s.cfg.ReminderDays) * 24 * time.Hour
	users, err := s.users.ListExpiring(ctx, now, now.Add(window))
	if err != nil {
		return report, err
	}

	for _, u := range users {
		if strings.TrimSpace(u.Phone) == "" || u.SubscriptionExpiresAt == nil {
			report.Skipped++
			metrics.ReminderSent("skipped")
			continue
		}

		msg := notify.ReminderMessage(u.Name, *u.SubscriptionExpiresAt)
		if err := s.sender.Send(ctx, u.Phone, msg); err != nil {
			report.Failed++
			metrics.ReminderSent("failed")
			log.Error().Err(err).Uint("user_id", u.ID).Msg("failed to send subscription reminder")
			continue
		}
		report.Sent++
		metrics.ReminderSent("sent")
	}

	log.Info().Int("sent", report.Sent).Int("failed", report.Failed).Int("skipped", report.Skipped).Msg("subscription reminders done")
	return report, nil
}

// ApplyPayment extends the subscription of userID by one period, counted
// from the later of paidAt and the current expiry, and reactivates the user
func (s *SubscriptionService) ApplyPayment(ctx context.Context, userID uint, paidAt time.Time) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	base := paidAt
	if user.SubscriptionExpiresAt != nil && user.SubscriptionExpiresAt.After(base) {
		base = *user.SubscriptionExpiresAt
	}

	updated, err := s.users.ExtendSubscription(ctx, userID, base.Add(s.cfg.Period))
	if err != nil {
		return nil, err
	}
	log.Info().Uint("user_id", userID).Time("expires_at", *updated.SubscriptionExpiresAt).Msg("subscription extended")
	return updated, nil
}

// VerifyWebhookToken compares the callback token in constant time. With no
// token configured every callback is rejected.
func (s *SubscriptionService) VerifyWebhookToken(token string) bool {
	if s.cfg.WebhookToken == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.WebhookToken)) == 1
}

// HandlePayment applies a gateway notification. Only settled payments extend
// the subscription; the returned user is nil for ignored statuses.
func (s *SubscriptionService) HandlePayment(ctx context.Context, n PaymentNotification, now time.Time) (*models.User, error) {
	if n.UserID == 0 {
		return nil, apperrors.InvalidRequest("user_id is required")
	}

	switch strings.ToUpper(strings.TrimSpace(n.Status)) {
	case "PAID", "SETTLED":
	default:
		log.Info().Uint("user_id", n.UserID).Str("status", n.Status).Msg("payment callback ignored")
		return nil, nil
	}

	paidAt := n.PaidAt
	if paidAt.IsZero() {
		paidAt = now
	}
	return s.ApplyPayment(ctx, n.UserID, paidAt)
}
