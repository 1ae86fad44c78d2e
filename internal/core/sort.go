package core

import (
	"cmp"
	"fmt"
	"sort"
	"strings"

	"github.com/jmylchreest/hevsound/internal/model"
)

// SortField represents a field to sort by.
type SortField string

const (
	SortByPlayed   SortField = "played"
	SortByEvent    SortField = "event"
	SortByPriority SortField = "priority"
)

// SortOrder represents ascending or descending order.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// SortOptions specifies sorting criteria.
type SortOptions struct {
	Field SortField
	Order SortOrder
}

// DefaultSortOptions returns default sort options (newest first).
func DefaultSortOptions() SortOptions {
	return SortOptions{
		Field: SortByPlayed,
		Order: SortDesc,
	}
}

// Sort sorts records in place. Equal keys keep their journal order.
func Sort(records []model.PlayRecord, opts SortOptions) {
	if len(records) == 0 {
		return
	}

	sort.SliceStable(records, func(i, j int) bool {
		var c int
		switch opts.Field {
		case SortByEvent:
			c = strings.Compare(string(records[i].Event), string(records[j].Event))
		case SortByPriority:
			c = cmp.Compare(records[i].Priority, records[j].Priority)
		default:
			c = cmp.Compare(records[i].PlayedAt, records[j].PlayedAt)
		}

		if opts.Order == SortDesc {
			return c > 0
		}
		return c < 0
	})
}

// ParseSortField parses a sort field string.
func ParseSortField(s string) (SortField, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "played", "timestamp", "time", "t":
		return SortByPlayed, nil
	case "event", "kind", "e":
		return SortByEvent, nil
	case "priority", "prio", "p":
		return SortByPriority, nil
	default:
		return "", fmt.Errorf("invalid sort field: %s (use played, event, or priority)", s)
	}
}

// ParseSortOrder parses a sort order string.
func ParseSortOrder(s string) (SortOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc", "ascending", "a":
		return SortAsc, nil
	case "", "desc", "descending", "d":
		return SortDesc, nil
	default:
		return "", fmt.Errorf("invalid sort order: %s (use asc or desc)", s)
	}
}

// LookupByID finds a record by its ID. Returns nil if not found.
func LookupByID(records []model.PlayRecord, id string) *model.PlayRecord {
	for i := range records {
		if records[i].ID == id {
			return &records[i]
		}
	}
	return nil
}
