package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/fslarfn/toto-backend-sub000/internal/database"
	"github.com/fslarfn/toto-backend-sub000/internal/models"
)

// DeliveryNoteRepository persists delivery notes together with the flag
// changes they imply
type DeliveryNoteRepository interface {
	// CreateWithFlag inserts note and sets flag on ids in one transaction.
	// Either both are stored or neither is.
	CreateWithFlag(ctx context.Context, note *models.DeliveryNote, ids []uint, flag models.StageFlag) ([]models.WorkOrder, error)
	List(ctx context.Context, limit int) ([]models.DeliveryNote, error)
}

type deliveryNoteRepository struct {
	db    *gorm.DB
	retry *database.Retrier
	now   func() time.Time
}

// NewDeliveryNoteRepository creates a new delivery note repository
func NewDeliveryNoteRepository(db *gorm.DB, retry *database.Retrier) DeliveryNoteRepository {
	return &deliveryNoteRepository{
		db:    db,
		retry: retry,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (r *deliveryNoteRepository) CreateWithFlag(ctx context.Context, note *models.DeliveryNote, ids []uint, flag models.StageFlag) ([]models.WorkOrder, error) {
	var updated []models.WorkOrder
	err := r.retry.Do(ctx, "delivery_notes.create", func() error {
		note.ID = 0
		updated = nil
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(note).Error; err != nil {
				return err
			}
			if len(ids) == 0 {
				updated = []models.WorkOrder{}
				return nil
			}
			rows, err := setFlag(tx, ids, flag, true, r.now())
			if err != nil {
				return err
			}
			updated = rows
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// List returns the most recent notes first
func (r *deliveryNoteRepository) List(ctx context.Context, limit int) ([]models.DeliveryNote, error) {
	notes := []models.DeliveryNote{}
	err := r.retry.Do(ctx, "delivery_notes.list", func() error {
		query := r.db.WithContext(ctx).Order("id DESC")
		if limit > 0 {
			query = query.Limit(limit)
		}
		return query.Find(&notes).Error
	})
	if err != nil {
		return nil, err
	}
	return notes, nil
}
