package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/fslarfn/toto-backend-sub000/internal/apperrors"
	"github.com/fslarfn/toto-backend-sub000/internal/database"
	"github.com/fslarfn/toto-backend-sub000/internal/models"
)

// UserRepository handles account lookups and subscription bookkeeping
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	// ListExpired returns active users whose subscription ended before now
	ListExpired(ctx context.Context, now time.Time) ([]models.User, error)
	// ListExpiring returns active users whose subscription ends within [from, to)
	ListExpiring(ctx context.Context, from, to time.Time) ([]models.User, error)
	Deactivate(ctx context.Context, ids []uint) (int64, error)
	ExtendSubscription(ctx context.Context, id uint, expiresAt time.Time) (*models.User, error)
}

type userRepository struct {
	db    *gorm.DB
	retry *database.Retrier
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB, retry *database.Retrier) UserRepository {
	return &userRepository{db: db, retry: retry}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return r.retry.Do(ctx, "users.create", func() error {
		return r.db.WithContext(ctx).Create(user).Error
	})
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := r.retry.Do(ctx, "users.get", func() error {
		return r.db.WithContext(ctx).First(&user, id).Error
	})
	if database.IsRecordNotFoundError(err) {
		return nil, apperrors.NotFound("user %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.retry.Do(ctx, "users.get_by_username", func() error {
		return r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	})
	if database.IsRecordNotFoundError(err) {
		return nil, apperrors.NotFound("user %q not found", username)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) ListExpired(ctx context.Context, now time.Time) ([]models.User, error) {
	users := []models.User{}
	err := r.retry.Do(ctx, "users.list_expired", func() error {
		return r.db.WithContext(ctx).
			Where("active = ? AND role <> ?", true, models.RoleAdmin).
			Where("subscription_expires_at IS NOT NULL AND subscription_expires_at < ?", now).
			Order("id ASC").
			Find(&users).Error
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) ListExpiring(ctx context.Context, from, to time.Time) ([]models.User, error) {
	users := []models.User{}
	err := r.retry.Do(ctx, "users.list_expiring", func() error {
		return r.db.WithContext(ctx).
			Where("active = ? AND role <> ?", true, models.RoleAdmin).
			Where("subscription_expires_at >= ? AND subscription_expires_at < ?", from, to).
			Order("subscription_expires_at ASC").
			Find(&users).Error
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) Deactivate(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var n int64
	err := r.retry.Do(ctx, "users.deactivate", func() error {
		res := r.db.WithContext(ctx).Model(&models.User{}).
			Where("id IN ?", ids).
			Update("active", false)
		n = res.RowsAffected
		return res.Error
	})
	return n, err
}

func (r *userRepository) ExtendSubscription(ctx context.Context, id uint, expiresAt time.Time) (*models.User, error) {
	var user models.User
	err := r.retry.Do(ctx, "users.extend_subscription", func() error {
		res := r.db.WithContext(ctx).Model(&models.User{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"active":                  true,
				"subscription_expires_at": expiresAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.NotFound("user %d not found", id)
		}
		return r.db.WithContext(ctx).First(&user, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}
