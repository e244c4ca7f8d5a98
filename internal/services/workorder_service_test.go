package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fslarfn/toto-backend-sub000/config"
	"github.com/fslarfn/toto-backend-sub000/internal/apperrors"
	"github.com/fslarfn/toto-backend-sub000/internal/events"
	"github.com/fslarfn/toto-backend-sub000/internal/models"
	"github.com/fslarfn/toto-backend-sub000/internal/repositories"
	"github.com/fslarfn/toto-backend-sub000/internal/testutil"
	"github.com/fslarfn/toto-backend-sub000/internal/tracing"
)

type recordingPublisher struct {
	mu      sync.Mutex
	changes []events.Change
}

func (p *recordingPublisher) Publish(_ context.Context, changes ...events.Change) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, changes...)
}

func (p *recordingPublisher) kinds() []events.Kind {
	p.mu.Lock()
	defer p.mu.Unlock()
	kinds := make([]events.Kind, 0, len(p.changes))
	for _, c := range p.changes {
		kinds = append(kinds, c.Kind)
	}
	return kinds
}

func newTracer(t *testing.T) tracing.Tracer {
	t.Helper()
	tracer, err := tracing.NewTracer(config.TracingConfig{})
	require.NoError(t, err)
	return tracer
}

func newWorkOrderService(t *testing.T, grid config.GridConfig) (*WorkOrderService, *recordingPublisher) {
	t.Helper()
	db := testutil.NewDB(t)
	pub := &recordingPublisher{}
	repo := repositories.NewWorkOrderRepository(db, testutil.NewRetrier())
	return NewWorkOrderService(repo, pub, newTracer(t), grid), pub
}

func mustDate(t *testing.T, s string) *models.Date {
	t.Helper()
	d, err := models.ParseDate(s)
	require.NoError(t, err)
	return &d
}

func f64(v float64) *float64 { return &v }

func TestWorkOrderService_CreateThenPatch(t *testing.T) {
	ctx := context.Background()
	svc, pub := newWorkOrderService(t, config.GridConfig{VirtualSize: 10, StatusLimit: 5})

	row, err := svc.Create(ctx, models.WorkOrderInput{
		Date:     mustDate(t, "2024-03-05"),
		Customer: "Budi",
		Quantity: f64(10),
		Price:    f64(5000),
	})
	require.NoError(t, err)
	assert.Equal(t, 50000.0, row.Total())
	assert.Equal(t, 3, row.Month)
	assert.Equal(t, 2024, row.Year)

	updated, err := svc.Patch(ctx, row.RowID(), models.WorkOrderPatch{Quantity: models.Num(20)})
	require.NoError(t, err)
	assert.Equal(t, 100000.0, updated.Total())

	reread, err := svc.Get(ctx, row.RowID())
	require.NoError(t, err)
	assert.Equal(t, 20.0, *reread.Quantity)
	assert.Equal(t, "Budi", reread.Customer)
	assert.Equal(t, 5000.0, *reread.Price)
	assert.Equal(t, "2024-03-05", reread.Date.String())

	assert.Equal(t, []events.Kind{events.WorkOrderCreated, events.WorkOrderUpdated}, pub.kinds())
}

func TestWorkOrderService_PlaceholderIDsNeverReachStore(t *testing.T) {
	ctx := context.Background()
	svc, pub := newWorkOrderService(t, config.GridConfig{VirtualSize: 10, StatusLimit: 5})

	temp := models.PlaceholderID(time.Now().UnixMilli(), 3)

	_, err := svc.Patch(ctx, temp, models.WorkOrderPatch{Customer: strPtr("x")})
	assert.True(t, apperrors.Is(err, apperrors.KindInvalidRequest))

	_, err = svc.PatchStatus(ctx, temp, models.WorkOrderPatch{Shipped: boolPtr(true)})
	assert.True(t, apperrors.Is(err, apperrors.KindInvalidRequest))

	err = svc.Delete(ctx, temp)
	assert.True(t, apperrors.Is(err, apperrors.KindInvalidRequest))

	_, err = svc.Get(ctx, temp)
	assert.True(t, apperrors.Is(err, apperrors.KindInvalidRequest))

	assert.Empty(t, pub.kinds())
}

func TestWorkOrderService_PatchErrors(t *testing.T) {
	ctx := context.Background()
	svc, _ := newWorkOrderService(t, config.GridConfig{VirtualSize: 10, StatusLimit: 5})

	row, err := svc.Create(ctx, models.WorkOrderInput{Customer: "a"})
	require.NoError(t, err)

	// fields outside the allow-list are dropped while decoding
	var patch models.WorkOrderPatch
	require.NoError(t, json.Unmarshal([]byte(`{"total": 99, "month": 1, "id": 5}`), &patch))
	_, err = svc.Patch(ctx, row.RowID(), patch)
	assert.True(t, apperrors.Is(err, apperrors.KindInvalidRequest))

	_, err = svc.Patch(ctx, models.RealID(999999), models.WorkOrderPatch{Customer: strPtr("b")})
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
}

func TestWorkOrderService_PatchStatusEmitsStatusUpdated(t *testing.T) {
	ctx := context.Background()
	svc, pub := newWorkOrderService(t, config.GridConfig{VirtualSize: 10, StatusLimit: 5})

	row, err := svc.Create(ctx, models.WorkOrderInput{Customer: "a"})
	require.NoError(t, err)

	updated, err := svc.PatchStatus(ctx, row.RowID(), models.WorkOrderPatch{Shipped: boolPtr(true), Carrier: strPtr("JNE")})
	require.NoError(t, err)
	assert.True(t, updated.Shipped)
	assert.Equal(t, "JNE", updated.Carrier)
	assert.Equal(t, []events.Kind{events.WorkOrderCreated, events.StatusUpdated}, pub.kinds())
}

func TestWorkOrderService_Delete(t *testing.T) {
	ctx := context.Background()
	svc, pub := newWorkOrderService(t, config.GridConfig{VirtualSize: 5, StatusLimit: 5})

	row, err := svc.Create(ctx, models.WorkOrderInput{Date: mustDate(t, "2024-03-05")})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, row.RowID()))

	err = svc.Delete(ctx, row.RowID())
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))

	chunk, err := svc.Chunk(ctx, Period{Month: 3, Year: 2024})
	require.NoError(t, err)
	for _, r := range chunk.Rows {
		assert.True(t, r.IsPlaceholder())
	}

	kinds := pub.kinds()
	require.Len(t, kinds, 2)
	assert.Equal(t, events.WorkOrderDeleted, kinds[1])
	assert.Equal(t, row.ID, pub.changes[1].ID)
}

func TestWorkOrderService_MarkPrinted(t *testing.T) {
	ctx := context.Background()
	svc, pub := newWorkOrderService(t, config.GridConfig{VirtualSize: 5, StatusLimit: 5})

	a, err := svc.Create(ctx, models.WorkOrderInput{Customer: "a"})
	require.NoError(t, err)
	b, err := svc.Create(ctx, models.WorkOrderInput{Customer: "b"})
	require.NoError(t, err)

	rows, err := svc.MarkPrinted(ctx, []interface{}{float64(a.ID), float64(b.ID), float64(999999), "temp-1-2", -4.0, 1.5})
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	for _, id := range []models.RowID{a.RowID(), b.RowID()} {
		row, err := svc.Get(ctx, id)
		require.NoError(t, err)
		assert.True(t, row.ReadyToShip)
	}
	assert.Equal(t, []events.Kind{events.WorkOrderCreated, events.WorkOrderCreated, events.WorkOrderUpdated, events.WorkOrderUpdated}, pub.kinds())

	_, err = svc.MarkPrinted(ctx, []interface{}{"temp-1-2", 0.0, nil})
	assert.True(t, apperrors.Is(err, apperrors.KindInvalidRequest))

	_, err = svc.MarkPrinted(ctx, nil)
	assert.True(t, apperrors.Is(err, apperrors.KindInvalidRequest))
}

func TestWorkOrderService_Chunk(t *testing.T) {
	ctx := context.Background()
	svc, _ := newWorkOrderService(t, config.GridConfig{VirtualSize: 6, StatusLimit: 5})

	late, err := svc.Create(ctx, models.WorkOrderInput{Date: mustDate(t, "2024-03-20"), Quantity: f64(2), Price: f64(3)})
	require.NoError(t, err)
	early, err := svc.Create(ctx, models.WorkOrderInput{Date: mustDate(t, "2024-03-01")})
	require.NoError(t, err)
	sameDay, err := svc.Create(ctx, models.WorkOrderInput{Date: mustDate(t, "2024-03-20")})
	require.NoError(t, err)
	_, err = svc.Create(ctx, models.WorkOrderInput{Date: mustDate(t, "2024-04-02")})
	require.NoError(t, err)

	chunk, err := svc.Chunk(ctx, Period{Month: 3, Year: 2024})
	require.NoError(t, err)
	require.Len(t, chunk.Rows, 6)
	assert.Equal(t, 6, chunk.VirtualSize)

	assert.Equal(t, early.ID, chunk.Rows[0].Order.ID)
	assert.Equal(t, late.ID, chunk.Rows[1].Order.ID)
	assert.Equal(t, sameDay.ID, chunk.Rows[2].Order.ID)

	seen := map[string]bool{}
	for _, r := range chunk.Rows[3:] {
		require.True(t, r.IsPlaceholder())
		assert.False(t, seen[r.ID.String()], "placeholder ids are unique within a page")
		seen[r.ID.String()] = true
	}

	data, err := json.Marshal(chunk.Rows[5])
	require.NoError(t, err)
	var placeholder map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &placeholder))
	assert.Equal(t, 0.0, placeholder["total"])
	assert.Equal(t, "", placeholder["customer"])
	assert.Equal(t, false, placeholder["ready_to_ship"])
	assert.Regexp(t, `^temp-\d+-5$`, placeholder["id"])
}

func TestWorkOrderService_ChunkCapsAtVirtualSize(t *testing.T) {
	ctx := context.Background()
	svc, _ := newWorkOrderService(t, config.GridConfig{VirtualSize: 2, StatusLimit: 5})

	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, models.WorkOrderInput{Date: mustDate(t, "2024-03-05")})
		require.NoError(t, err)
	}

	chunk, err := svc.Chunk(ctx, Period{Month: 3, Year: 2024})
	require.NoError(t, err)
	assert.Len(t, chunk.Rows, 2)
}

func TestWorkOrderService_StatusBarang(t *testing.T) {
	ctx := context.Background()
	svc, _ := newWorkOrderService(t, config.GridConfig{VirtualSize: 10, StatusLimit: 2})

	for _, c := range []string{"Toko Maju", "toko jaya", "Toko Baru", "CV Lain"} {
		_, err := svc.Create(ctx, models.WorkOrderInput{Date: mustDate(t, "2024-03-05"), Customer: c})
		require.NoError(t, err)
	}

	rows, err := svc.StatusBarang(ctx, Period{Month: 3, Year: 2024}, "lain")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "CV Lain", rows[0].Customer)

	rows, err = svc.StatusBarang(ctx, Period{Month: 3, Year: 2024}, "toko")
	require.NoError(t, err)
	assert.Len(t, rows, 2, "capped at the status limit")
}

func TestParsePeriod(t *testing.T) {
	now := time.Date(2024, 7, 14, 0, 0, 0, 0, time.UTC)

	p, err := ParsePeriod("", "", now)
	require.NoError(t, err)
	assert.Equal(t, Period{Month: 7, Year: 2024}, p)

	p, err = ParsePeriod("3", "2023", now)
	require.NoError(t, err)
	assert.Equal(t, Period{Month: 3, Year: 2023}, p)

	for _, tc := range [][2]string{{"0", ""}, {"13", ""}, {"x", ""}, {"", "0"}, {"", "abc"}} {
		_, err := ParsePeriod(tc[0], tc[1], now)
		assert.True(t, apperrors.Is(err, apperrors.KindInvalidRequest), tc)
	}
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *models.BoolLike {
	v := models.BoolLike(b)
	return &v
}
