package models

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// DeliveryNoteType distinguishes where a surat jalan sends the goods
type DeliveryNoteType string

const (
	// DeliveryToVendor hands goods to an outside vendor, typically the colouring shop
	DeliveryToVendor DeliveryNoteType = "vendor"
	// DeliveryToCustomer ships finished goods to the customer
	DeliveryToCustomer DeliveryNoteType = "customer"
)

// Valid reports whether t is a known delivery note type
func (t DeliveryNoteType) Valid() bool {
	return t == DeliveryToVendor || t == DeliveryToCustomer
}

func (t DeliveryNoteType) code() string {
	if t == DeliveryToVendor {
		return "SJV"
	}
	return "SJC"
}

// ReferenceNumber builds the note number: type code, year/month and the
// last six digits of the millisecond clock, e.g. SJV/2024/03/123456.
func (t DeliveryNoteType) ReferenceNumber(now time.Time) string {
	return fmt.Sprintf("%s/%04d/%02d/%06d", t.code(), now.Year(), int(now.Month()), now.UnixMilli()%1000000)
}

// DeliveryNote is an append-only shipment record (surat jalan)
type DeliveryNote struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	Type        DeliveryNoteType `gorm:"type:varchar(16);not null;index" json:"type"`
	Number      string           `gorm:"not null;index" json:"number"`
	InvoiceRef  string           `gorm:"not null;default:''" json:"invoice_ref"`
	Destination string           `gorm:"not null;default:''" json:"destination"`
	Items       datatypes.JSON   `json:"items"`
	Note        string           `gorm:"type:text;not null;default:''" json:"note"`
	CreatedAt   time.Time        `gorm:"autoCreateTime" json:"created_at"`
}

// DeliveryItem is one line of a delivery note. Ref keeps the id exactly as
// the client sent it; WorkOrderID is set only when Ref names a persisted row.
type DeliveryItem struct {
	Ref         string   `json:"ref"`
	WorkOrderID *uint    `json:"work_order_id"`
	Quantity    *float64 `json:"qty"`
}
