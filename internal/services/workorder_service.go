package services

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fslarfn/toto-backend-sub000/config"
	"github.com/fslarfn/toto-backend-sub000/internal/apperrors"
	"github.com/fslarfn/toto-backend-sub000/internal/events"
	"github.com/fslarfn/toto-backend-sub000/internal/models"
	"github.com/fslarfn/toto-backend-sub000/internal/repositories"
	"github.com/fslarfn/toto-backend-sub000/internal/tracing"
)

// Period is one month/year partition of the work order table
type Period struct {
	Month int
	Year  int
}

// ParsePeriod reads month and year query values, defaulting each to the
// current one when empty
func ParsePeriod(month, year string, now time.Time) (Period, error) {
	p := Period{Month: int(now.Month()), Year: now.Year()}

	if s := strings.TrimSpace(month); s != "" {
		m, err := strconv.Atoi(s)
		if err != nil || m < 1 || m > 12 {
			return Period{}, apperrors.InvalidRequest("month must be between 1 and 12")
		}
		p.Month = m
	}
	if s := strings.TrimSpace(year); s != "" {
		y, err := strconv.Atoi(s)
		if err != nil || y < 1 {
			return Period{}, apperrors.InvalidRequest("year must be a positive number")
		}
		p.Year = y
	}
	return p, nil
}

// Chunk is one virtual grid page: the real rows of a period padded with
// placeholders to VirtualSize
type Chunk struct {
	Rows        []models.GridRow
	VirtualSize int
}

// WorkOrderService is the only path from requests to the work order store.
// Every successful mutation is published after it is stored.
type WorkOrderService struct {
	orders    repositories.WorkOrderRepository
	publisher events.Publisher
	tracer    tracing.Tracer
	grid      config.GridConfig
	now       func() time.Time
}

// NewWorkOrderService creates a new work order service
func NewWorkOrderService(orders repositories.WorkOrderRepository, publisher events.Publisher, tracer tracing.Tracer, grid config.GridConfig) *WorkOrderService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &WorkOrderService{
		orders:    orders,
		publisher: publisher,
		tracer:    tracer,
		grid:      grid,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a new row and announces it
func (s *WorkOrderService) Create(ctx context.Context, in models.WorkOrderInput) (*models.WorkOrder, error) {
	defer s.tracer.StartSegment(ctx, "workorders.create").End()

	row, err := s.orders.Create(ctx, in)
	if err != nil {
		return nil, err
	}

	log.Info().Uint("work_order_id", row.ID).Str("customer", row.Customer).Msg("work order created")
	s.publisher.Publish(ctx, events.Created(row))
	return row, nil
}

// Get returns one persisted row
func (s *WorkOrderService) Get(ctx context.Context, id models.RowID) (*models.WorkOrder, error) {
	n, err := realID(id, "read")
	if err != nil {
		return nil, err
	}
	return s.orders.Get(ctx, n)
}

// Patch applies a partial update from the work order grid
func (s *WorkOrderService) Patch(ctx context.Context, id models.RowID, patch models.WorkOrderPatch) (*models.WorkOrder, error) {
	return s.patch(ctx, id, patch, events.WorkOrderUpdated)
}

// PatchStatus applies a partial update from the status barang view
func (s *WorkOrderService) PatchStatus(ctx context.Context, id models.RowID, patch models.WorkOrderPatch) (*models.WorkOrder, error) {
	return s.patch(ctx, id, patch, events.StatusUpdated)
}

func (s *WorkOrderService) patch(ctx context.Context, id models.RowID, patch models.WorkOrderPatch, kind events.Kind) (*models.WorkOrder, error) {
	defer s.tracer.StartSegment(ctx, "workorders.patch").End()

	n, err := realID(id, "patch")
	if err != nil {
		return nil, err
	}

	row, err := s.orders.Patch(ctx, n, patch)
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, events.Updated(kind, row))
	return row, nil
}

// Delete removes a row for good
func (s *WorkOrderService) Delete(ctx context.Context, id models.RowID) error {
	defer s.tracer.StartSegment(ctx, "workorders.delete").End()

	n, err := realID(id, "delete")
	if err != nil {
		return err
	}

	removed, err := s.orders.Delete(ctx, n)
	if err != nil {
		return err
	}
	if !removed {
		return apperrors.NotFound("work order %d not found", n)
	}

	log.Info().Uint("work_order_id", n).Msg("work order deleted")
	s.publisher.Publish(ctx, events.Deleted(n, s.now()))
	return nil
}

// MarkPrinted sets ready-to-ship on every valid id in raw. Invalid entries
// and unknown ids are skipped; it fails only when no valid id remains.
func (s *WorkOrderService) MarkPrinted(ctx context.Context, raw []interface{}) ([]models.WorkOrder, error) {
	defer s.tracer.StartSegment(ctx, "workorders.mark_printed").End()

	ids := ParseIDList(raw)
	if len(ids) == 0 {
		return nil, apperrors.InvalidRequest("ids must contain at least one valid id")
	}

	rows, err := s.orders.BulkSetFlag(ctx, ids, models.FlagReadyToShip, true)
	if err != nil {
		return nil, err
	}

	log.Info().Int("requested", len(ids)).Int("updated", len(rows)).Msg("work orders marked printed")
	s.publisher.Publish(ctx, updatedChanges(rows)...)
	return rows, nil
}

// Chunk returns the grid page of a period
func (s *WorkOrderService) Chunk(ctx context.Context, p Period) (Chunk, error) {
	defer s.tracer.StartSegment(ctx, "workorders.chunk").End()

	size := s.grid.VirtualSize
	rows, err := s.orders.QueryByMonth(ctx, repositories.WorkOrderQuery{
		Month: p.Month,
		Year:  p.Year,
		Limit: size,
	})
	if err != nil {
		return Chunk{}, err
	}

	page := make([]models.GridRow, 0, size)
	for i := range rows {
		page = append(page, models.RowFor(&rows[i]))
	}

	stamp := s.now().UnixMilli()
	for seq := len(page); seq < size; seq++ {
		page = append(page, models.Placeholder(models.PlaceholderID(stamp, seq)))
	}

	return Chunk{Rows: page, VirtualSize: size}, nil
}

// StatusBarang lists the rows of a period for the goods status view
func (s *WorkOrderService) StatusBarang(ctx context.Context, p Period, customer string) ([]models.WorkOrder, error) {
	defer s.tracer.StartSegment(ctx, "workorders.status_barang").End()

	return s.orders.QueryByMonth(ctx, repositories.WorkOrderQuery{
		Month:    p.Month,
		Year:     p.Year,
		Customer: customer,
		Limit:    s.grid.StatusLimit,
	})
}

func realID(id models.RowID, op string) (uint, error) {
	if id.IsPlaceholder() {
		return 0, apperrors.InvalidRequest("cannot %s placeholder row", op)
	}
	n, ok := id.Real()
	if !ok {
		return 0, apperrors.InvalidRequest("invalid id")
	}
	return n, nil
}

func updatedChanges(rows []models.WorkOrder) []events.Change {
	changes := make([]events.Change, 0, len(rows))
	for i := range rows {
		changes = append(changes, events.Updated(events.WorkOrderUpdated, &rows[i]))
	}
	return changes
}
