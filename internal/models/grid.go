package models

import "encoding/json"

// GridRow is one slot of a chunk page: a persisted work order or a padding
// placeholder shaped like one.
type GridRow struct {
	ID    RowID
	Order *WorkOrder
}

// RowFor wraps a persisted work order
func RowFor(w *WorkOrder) GridRow {
	return GridRow{ID: w.RowID(), Order: w}
}

// Placeholder creates an empty padding row
func Placeholder(id RowID) GridRow {
	return GridRow{ID: id}
}

// IsPlaceholder reports whether the row has no durable existence
func (g GridRow) IsPlaceholder() bool {
	return g.Order == nil
}

type placeholderJSON struct {
	ID            RowID    `json:"id"`
	Date          *Date    `json:"date"`
	Customer      string   `json:"customer"`
	Description   string   `json:"description"`
	Size          string   `json:"size"`
	Quantity      *float64 `json:"qty"`
	Price         *float64 `json:"price"`
	Total         float64  `json:"total"`
	InvoiceNumber string   `json:"invoice_number"`
	InProduction  bool     `json:"in_production"`
	InColoring    bool     `json:"in_coloring"`
	ReadyToShip   bool     `json:"ready_to_ship"`
	Shipped       bool     `json:"shipped"`
	Paid          bool     `json:"paid"`
	Carrier       string   `json:"carrier"`
	Month         *int     `json:"month"`
	Year          *int     `json:"year"`
}

// MarshalJSON renders real rows as work orders and placeholders as blank rows
func (g GridRow) MarshalJSON() ([]byte, error) {
	if g.Order != nil {
		return g.Order.MarshalJSON()
	}
	return json.Marshal(placeholderJSON{ID: g.ID})
}
