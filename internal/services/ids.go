package services

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// parseID accepts a decoded JSON value naming a persisted row: a positive
// integral number or a string holding one
func parseID(v interface{}) (uint, bool) {
	switch id := v.(type) {
	case float64:
		if id < 1 || id > math.MaxUint32 || id != math.Trunc(id) {
			return 0, false
		}
		return uint(id), true
	case json.Number:
		return parseIDString(id.String())
	case string:
		return parseIDString(id)
	}
	return 0, false
}

func parseIDString(s string) (uint, bool) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

// ParseIDList keeps the valid positive ids of raw in order, without duplicates
func ParseIDList(raw []interface{}) []uint {
	seen := make(map[uint]bool, len(raw))
	ids := make([]uint, 0, len(raw))
	for _, v := range raw {
		id, ok := parseID(v)
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

// refString renders an item reference the way the client sent it
func refString(v interface{}) string {
	switch r := v.(type) {
	case nil:
		return ""
	case string:
		return r
	case float64:
		return strconv.FormatFloat(r, 'f', -1, 64)
	default:
		b, _ := json.Marshal(r)
		return string(b)
	}
}
