package models

import (
	"encoding/json"
	"time"
)

// WorkOrder is a manufacturing job tracked through production to shipment
type WorkOrder struct {
	ID            uint     `gorm:"primaryKey" json:"-"`
	Date          *Date    `gorm:"index" json:"date"`
	Customer      string   `gorm:"not null;default:''" json:"customer"`
	Description   string   `gorm:"type:text;not null;default:''" json:"description"`
	Size          string   `gorm:"not null;default:''" json:"size"`
	Quantity      *float64 `json:"qty"`
	Price         *float64 `json:"price"`
	InvoiceNumber string   `gorm:"not null;default:''" json:"invoice_number"`
	InProduction  bool     `gorm:"not null;default:false" json:"in_production"`
	InColoring    bool     `gorm:"not null;default:false" json:"in_coloring"`
	ReadyToShip   bool     `gorm:"not null;default:false" json:"ready_to_ship"`
	Shipped       bool     `gorm:"not null;default:false" json:"shipped"`
	Paid          bool     `gorm:"not null;default:false" json:"paid"`
	Carrier       string   `gorm:"not null;default:''" json:"carrier"`

	// Month and Year are fixed at creation from Date and used to partition queries
	Month int `gorm:"not null;index:idx_work_orders_period,priority:2" json:"month"`
	Year  int `gorm:"not null;index:idx_work_orders_period,priority:1" json:"year"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// RowID returns the grid identifier of a persisted row
func (w WorkOrder) RowID() RowID {
	return RealID(w.ID)
}

// Total is quantity times price; missing values count as zero
func (w WorkOrder) Total() float64 {
	if w.Quantity == nil || w.Price == nil {
		return 0
	}
	return *w.Quantity * *w.Price
}

type workOrderJSON WorkOrder

// MarshalJSON adds the id and the computed total to the stored columns
func (w WorkOrder) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID    RowID   `json:"id"`
		Total float64 `json:"total"`
		workOrderJSON
	}{
		ID:            w.RowID(),
		Total:         w.Total(),
		workOrderJSON: workOrderJSON(w),
	})
}

// UnmarshalJSON reads a row rendered by MarshalJSON. The total is ignored.
func (w *WorkOrder) UnmarshalJSON(data []byte) error {
	var aux struct {
		ID *RowID `json:"id"`
		*workOrderJSON
	}
	aux.workOrderJSON = (*workOrderJSON)(w)
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.ID != nil {
		if n, ok := aux.ID.Real(); ok {
			w.ID = n
		}
	}
	return nil
}

// WorkOrderInput is the payload accepted when creating a work order
type WorkOrderInput struct {
	Date          *Date    `json:"date"`
	Customer      string   `json:"customer"`
	Description   string   `json:"description"`
	Size          string   `json:"size"`
	Quantity      *float64 `json:"qty"`
	Price         *float64 `json:"price"`
	InvoiceNumber string   `json:"invoice_number"`
}

// NewWorkOrder builds an unsaved row from input, defaulting the date to today
func NewWorkOrder(in WorkOrderInput, now time.Time) *WorkOrder {
	date := NewDate(now)
	if in.Date != nil && !in.Date.IsZero() {
		date = *in.Date
	}
	return &WorkOrder{
		Date:          &date,
		Customer:      in.Customer,
		Description:   in.Description,
		Size:          in.Size,
		Quantity:      in.Quantity,
		Price:         in.Price,
		InvoiceNumber: in.InvoiceNumber,
		Month:         int(date.Month()),
		Year:          date.Year(),
	}
}

// StageFlag names one of the boolean production status columns
type StageFlag string

const (
	FlagInProduction StageFlag = "in_production"
	FlagInColoring   StageFlag = "in_coloring"
	FlagReadyToShip  StageFlag = "ready_to_ship"
	FlagShipped      StageFlag = "shipped"
	FlagPaid         StageFlag = "paid"
)

// Valid reports whether the flag maps to a work order column
func (f StageFlag) Valid() bool {
	switch f {
	case FlagInProduction, FlagInColoring, FlagReadyToShip, FlagShipped, FlagPaid:
		return true
	}
	return false
}

// Column is the database column holding the flag
func (f StageFlag) Column() string {
	return string(f)
}
