package formats

import (
	"maps"
	"slices"
)

// UnknownStatus is the description for any code missing from the table.
const UnknownStatus = "Unknown"

// StatusTable maps HTTP status codes to human-readable descriptions.
// It is built once and never modified afterwards.
type StatusTable struct {
	descriptions map[int]string
}

// NewStatusTable returns the fixed table of known status codes.
func NewStatusTable() *StatusTable {
	return &StatusTable{
		descriptions: map[int]string{
			200: "Success",
			301: "Moved Permanently",
			400: "Bad Request",
			403: "Forbidden",
			404: "Not Found",
			500: "Internal Server Error",
		},
	}
}

// Describe returns the description for code, or UnknownStatus.
func (t *StatusTable) Describe(code int) string {
	if desc, ok := t.descriptions[code]; ok {
		return desc
	}
	return UnknownStatus
}

// Codes returns the known status codes in ascending order.
func (t *StatusTable) Codes() []int {
	return slices.Sorted(maps.Keys(t.descriptions))
}
