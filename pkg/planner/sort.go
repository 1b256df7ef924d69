package planner

import (
	"fmt"

	"github.com/paulschiretz/pgl-snapsync/pkg/util"
)

// SortOrder represents the sorting order for lists.
type SortOrder int

const (
	Desc SortOrder = iota // Newest first
	Asc                   // Oldest first
)

var sortOrderToString = map[SortOrder]string{
	Desc: "desc",
	Asc:  "asc",
}

var stringToSortOrder = map[string]SortOrder{}

func init() {
	stringToSortOrder = util.InvertMap(sortOrderToString)
}

// String returns the string representation of a SortOrder.
func (s SortOrder) String() string {
	if str, ok := sortOrderToString[s]; ok {
		return str
	}
	return fmt.Sprintf("unknown_sort_order(%d)", s)
}

// ParseSortOrder parses a string and returns the corresponding SortOrder.
func ParseSortOrder(s string) (SortOrder, error) {
	if order, ok := stringToSortOrder[s]; ok {
		return order, nil
	}
	return 0, fmt.Errorf("invalid sort order: %q. Must be 'desc' or 'asc'", s)
}
