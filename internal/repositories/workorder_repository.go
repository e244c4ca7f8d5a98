package repositories

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/fslarfn/toto-backend-sub000/internal/apperrors"
	"github.com/fslarfn/toto-backend-sub000/internal/database"
	"github.com/fslarfn/toto-backend-sub000/internal/models"
)

// WorkOrderQuery selects the rows of one month/year partition
type WorkOrderQuery struct {
	Month    int
	Year     int
	Customer string // case-insensitive substring, empty matches all
	Limit    int    // zero means unlimited
}

// WorkOrderRepository is the durable store of work order rows
type WorkOrderRepository interface {
	Create(ctx context.Context, in models.WorkOrderInput) (*models.WorkOrder, error)
	Get(ctx context.Context, id uint) (*models.WorkOrder, error)
	Patch(ctx context.Context, id uint, patch models.WorkOrderPatch) (*models.WorkOrder, error)
	BulkSetFlag(ctx context.Context, ids []uint, flag models.StageFlag, value bool) ([]models.WorkOrder, error)
	Delete(ctx context.Context, id uint) (bool, error)
	QueryByMonth(ctx context.Context, q WorkOrderQuery) ([]models.WorkOrder, error)
}

// workOrderRepository implements WorkOrderRepository on GORM
type workOrderRepository struct {
	db    *gorm.DB
	retry *database.Retrier
	now   func() time.Time
}

// NewWorkOrderRepository creates a new work order repository
func NewWorkOrderRepository(db *gorm.DB, retry *database.Retrier) WorkOrderRepository {
	return &workOrderRepository{
		db:    db,
		retry: retry,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Create assigns id and timestamps and derives month/year from the date
func (r *workOrderRepository) Create(ctx context.Context, in models.WorkOrderInput) (*models.WorkOrder, error) {
	var row *models.WorkOrder
	err := r.retry.Do(ctx, "workorders.create", func() error {
		row = models.NewWorkOrder(in, r.now())
		return r.db.WithContext(ctx).Create(row).Error
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

// Get loads a single row
func (r *workOrderRepository) Get(ctx context.Context, id uint) (*models.WorkOrder, error) {
	var row models.WorkOrder
	err := r.retry.Do(ctx, "workorders.get", func() error {
		return r.db.WithContext(ctx).First(&row, id).Error
	})
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, apperrors.NotFound("work order %d not found", id)
		}
		return nil, err
	}
	return &row, nil
}

// Patch applies the allow-listed fields carried by patch and returns the updated row
func (r *workOrderRepository) Patch(ctx context.Context, id uint, patch models.WorkOrderPatch) (*models.WorkOrder, error) {
	cols := patch.Columns()
	if len(cols) == 0 {
		return nil, apperrors.InvalidRequest("no editable fields in request")
	}

	var row models.WorkOrder
	err := r.retry.Do(ctx, "workorders.patch", func() error {
		cols["updated_at"] = r.now()
		res := r.db.WithContext(ctx).Model(&models.WorkOrder{}).Where("id = ?", id).Updates(cols)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.NotFound("work order %d not found", id)
		}
		return r.db.WithContext(ctx).First(&row, id).Error
	})
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, apperrors.NotFound("work order %d not found", id)
		}
		return nil, err
	}
	return &row, nil
}

// BulkSetFlag sets one stage flag on many rows; unknown ids are skipped
func (r *workOrderRepository) BulkSetFlag(ctx context.Context, ids []uint, flag models.StageFlag, value bool) ([]models.WorkOrder, error) {
	if !flag.Valid() {
		return nil, apperrors.InvalidRequest("unknown flag %q", flag)
	}
	if len(ids) == 0 {
		return []models.WorkOrder{}, nil
	}

	var rows []models.WorkOrder
	err := r.retry.Do(ctx, "workorders.bulk_set_flag", func() error {
		var err error
		rows, err = setFlag(r.db.WithContext(ctx), ids, flag, value, r.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Delete removes a row for good and reports whether it existed
func (r *workOrderRepository) Delete(ctx context.Context, id uint) (bool, error) {
	var removed bool
	err := r.retry.Do(ctx, "workorders.delete", func() error {
		res := r.db.WithContext(ctx).Delete(&models.WorkOrder{}, id)
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected > 0
		return nil
	})
	return removed, err
}

// QueryByMonth lists the rows filed under month/year ordered by date, nulls last, then id
func (r *workOrderRepository) QueryByMonth(ctx context.Context, q WorkOrderQuery) ([]models.WorkOrder, error) {
	rows := []models.WorkOrder{}
	err := r.retry.Do(ctx, "workorders.query_by_month", func() error {
		query := r.db.WithContext(ctx).
			Where("month = ? AND year = ?", q.Month, q.Year)

		if customer := strings.TrimSpace(q.Customer); customer != "" {
			query = query.Where(`LOWER(customer) LIKE ? ESCAPE '\'`, "%"+escapeLike(strings.ToLower(customer))+"%")
		}
		if q.Limit > 0 {
			query = query.Limit(q.Limit)
		}

		return query.
			Order("date IS NULL").
			Order("date ASC").
			Order("id ASC").
			Find(&rows).Error
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// setFlag updates flag on ids and reads back the rows that exist
func setFlag(tx *gorm.DB, ids []uint, flag models.StageFlag, value bool, now time.Time) ([]models.WorkOrder, error) {
	err := tx.Model(&models.WorkOrder{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			flag.Column(): value,
			"updated_at":  now,
		}).Error
	if err != nil {
		return nil, err
	}

	rows := []models.WorkOrder{}
	if err := tx.Where("id IN ?", ids).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
