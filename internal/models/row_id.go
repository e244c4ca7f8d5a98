package models

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var placeholderPattern = regexp.MustCompile(`^temp-\d+-\d+$`)

// RowID identifies a grid row. A row is either persisted, with a server
// assigned numeric id, or a placeholder that only exists inside one chunk.
type RowID struct {
	real        uint
	placeholder string
}

// RealID wraps a persisted work order id
func RealID(id uint) RowID {
	return RowID{real: id}
}

// PlaceholderID builds the synthetic id of the seq-th padding row of a page
// generated at stamp (unix milliseconds).
func PlaceholderID(stamp int64, seq int) RowID {
	return RowID{placeholder: fmt.Sprintf("temp-%d-%d", stamp, seq)}
}

// ParseRowID parses an id coming from a path parameter or request body
func ParseRowID(s string) (RowID, error) {
	s = strings.TrimSpace(s)
	if placeholderPattern.MatchString(s) {
		return RowID{placeholder: s}, nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return RowID{}, errors.Errorf("invalid id %q", s)
	}
	return RowID{real: uint(n)}, nil
}

// IsPlaceholder reports whether the id belongs to a non-persisted padding row
func (r RowID) IsPlaceholder() bool {
	return r.placeholder != ""
}

// IsZero reports whether the id was never set
func (r RowID) IsZero() bool {
	return r.real == 0 && r.placeholder == ""
}

// Real returns the persisted id, false for placeholders
func (r RowID) Real() (uint, bool) {
	if r.IsPlaceholder() || r.real == 0 {
		return 0, false
	}
	return r.real, true
}

func (r RowID) String() string {
	if r.IsPlaceholder() {
		return r.placeholder
	}
	return strconv.FormatUint(uint64(r.real), 10)
}

// MarshalJSON emits real ids as numbers and placeholders as strings
func (r RowID) MarshalJSON() ([]byte, error) {
	if r.IsPlaceholder() {
		return json.Marshal(r.placeholder)
	}
	return json.Marshal(r.real)
}

// UnmarshalJSON accepts either a JSON number or a string
func (r *RowID) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case float64:
		if v <= 0 || v != float64(uint(v)) {
			return errors.Errorf("invalid id %v", v)
		}
		*r = RealID(uint(v))
	case string:
		parsed, err := ParseRowID(v)
		if err != nil {
			return err
		}
		*r = parsed
	default:
		return errors.Errorf("invalid id %s", string(data))
	}
	return nil
}
