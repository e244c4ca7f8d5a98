package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/fslarfn/toto-backend-sub000/internal/models"
	"github.com/fslarfn/toto-backend-sub000/internal/testutil"
)

func TestDeliveryNoteRepository_CreateWithFlag(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	orders := NewWorkOrderRepository(db, testutil.NewRetrier())
	notes := NewDeliveryNoteRepository(db, testutil.NewRetrier())

	a, err := orders.Create(ctx, models.WorkOrderInput{Customer: "a"})
	require.NoError(t, err)
	b, err := orders.Create(ctx, models.WorkOrderInput{Customer: "b"})
	require.NoError(t, err)

	note := &models.DeliveryNote{
		Type:   models.DeliveryToVendor,
		Number: models.DeliveryToVendor.ReferenceNumber(time.Now()),
		Items:  datatypes.JSON(`[]`),
	}
	rows, err := notes.CreateWithFlag(ctx, note, []uint{a.ID, 999999}, models.FlagInColoring)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, a.ID, rows[0].ID)
	assert.True(t, rows[0].InColoring)
	assert.NotZero(t, note.ID)

	untouched, err := orders.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, untouched.InColoring)

	listed, err := notes.List(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}

func TestDeliveryNoteRepository_RollsBackOnFlagFailure(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	orders := NewWorkOrderRepository(db, testutil.NewRetrier())
	notes := NewDeliveryNoteRepository(db, testutil.NewRetrier())

	row, err := orders.Create(ctx, models.WorkOrderInput{Customer: "a"})
	require.NoError(t, err)

	require.NoError(t, db.Callback().Update().Before("gorm:update").Register("test:fail_update", func(tx *gorm.DB) {
		_ = tx.AddError(errors.New("disk on fire"))
	}))

	note := &models.DeliveryNote{
		Type:   models.DeliveryToCustomer,
		Number: models.DeliveryToCustomer.ReferenceNumber(time.Now()),
		Items:  datatypes.JSON(`[]`),
	}
	_, err = notes.CreateWithFlag(ctx, note, []uint{row.ID}, models.FlagInColoring)
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&models.DeliveryNote{}).Count(&count).Error)
	assert.Zero(t, count)

	reloaded, err := orders.Get(ctx, row.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.InColoring)
}
