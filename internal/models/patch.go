package models

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// WorkOrderPatch holds one optional slot per editable column. Anything a
// client sends outside these fields is dropped during decoding.
type WorkOrderPatch struct {
	Date          *Date       `json:"date"`
	Customer      *string     `json:"customer"`
	Description   *string     `json:"description"`
	Size          *string     `json:"size"`
	Quantity      *NumberLike `json:"qty"`
	Price         *NumberLike `json:"price"`
	InvoiceNumber *string     `json:"invoice_number"`
	InProduction  *BoolLike   `json:"in_production"`
	InColoring    *BoolLike   `json:"in_coloring"`
	ReadyToShip   *BoolLike   `json:"ready_to_ship"`
	Shipped       *BoolLike   `json:"shipped"`
	Paid          *BoolLike   `json:"paid"`
	Carrier       *string     `json:"carrier"`
}

// Columns returns the column assignments carried by the patch
func (p WorkOrderPatch) Columns() map[string]interface{} {
	cols := make(map[string]interface{})
	if p.Date != nil {
		cols["date"] = *p.Date
	}
	putString(cols, "customer", p.Customer)
	putString(cols, "description", p.Description)
	putString(cols, "size", p.Size)
	putNumber(cols, "quantity", p.Quantity)
	putNumber(cols, "price", p.Price)
	putString(cols, "invoice_number", p.InvoiceNumber)
	putBool(cols, FlagInProduction.Column(), p.InProduction)
	putBool(cols, FlagInColoring.Column(), p.InColoring)
	putBool(cols, FlagReadyToShip.Column(), p.ReadyToShip)
	putBool(cols, FlagShipped.Column(), p.Shipped)
	putBool(cols, FlagPaid.Column(), p.Paid)
	putString(cols, "carrier", p.Carrier)
	return cols
}

// IsEmpty reports whether no editable field is present
func (p WorkOrderPatch) IsEmpty() bool {
	return len(p.Columns()) == 0
}

func putString(cols map[string]interface{}, key string, v *string) {
	if v != nil {
		cols[key] = *v
	}
}

func putNumber(cols map[string]interface{}, key string, v *NumberLike) {
	if v == nil {
		return
	}
	if v.Null {
		cols[key] = nil
		return
	}
	cols[key] = v.Value
}

func putBool(cols map[string]interface{}, key string, v *BoolLike) {
	if v != nil {
		cols[key] = bool(*v)
	}
}

// BoolLike decodes the loose flag values spreadsheet clients send:
// true/false, 1/0, "true"/"false", "1"/"0", "yes"/"no" and "".
type BoolLike bool

// UnmarshalJSON implements json.Unmarshaler
func (b *BoolLike) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case bool:
		*b = BoolLike(v)
	case float64:
		*b = v != 0
	case nil:
		*b = false
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "yes", "y", "ya":
			*b = true
		case "false", "0", "no", "n", "tidak", "":
			*b = false
		default:
			return errors.Errorf("invalid flag value %q", v)
		}
	default:
		return errors.Errorf("invalid flag value %s", string(data))
	}
	return nil
}

// NumberLike decodes a number that may arrive as a JSON string. An empty
// string clears the value; a JSON null on a patch field means "not sent".
type NumberLike struct {
	Value float64
	Null  bool
}

// Num is a convenience constructor used by callers and tests
func Num(v float64) *NumberLike {
	return &NumberLike{Value: v}
}

// UnmarshalJSON implements json.Unmarshaler
func (n *NumberLike) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case float64:
		*n = NumberLike{Value: v}
	case nil:
		*n = NumberLike{Null: true}
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			*n = NumberLike{Null: true}
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return errors.Errorf("invalid number %q", v)
		}
		*n = NumberLike{Value: f}
	default:
		return errors.Errorf("invalid number %s", string(data))
	}
	return nil
}
