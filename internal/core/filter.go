// Package core provides filtering, sorting, and lookup logic for play history.
package core

import (
	"cmp"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jmylchreest/hevsound/internal/model"
)

// FilterOp represents a comparison operator.
type FilterOp string

const (
	FilterOpEqual     FilterOp = "="  // Exact match
	FilterOpNotEqual  FilterOp = "!=" // Not equal
	FilterOpContains  FilterOp = "~"  // Contains substring
	FilterOpRegex     FilterOp = "~=" // Regex match
	FilterOpGreater   FilterOp = ">"  // Greater than
	FilterOpLess      FilterOp = "<"  // Less than
	FilterOpGreaterEq FilterOp = ">=" // Greater than or equal
	FilterOpLessEq    FilterOp = "<=" // Less than or equal
)

// FilterCondition represents a single compiled filter condition.
type FilterCondition struct {
	Field    string   // Field name: event, source, file, backend, priority, played
	Operator FilterOp // Comparison operator
	Value    string   // Value to compare against, normalized for event names

	match func(model.PlayRecord) bool
}

// FilterExpr represents a compound filter expression.
// Multiple conditions are ANDed together.
type FilterExpr struct {
	Conditions []FilterCondition
}

// FilterOptions specifies criteria for filtering play records.
type FilterOptions struct {
	Since       time.Duration   // Keep records newer than now-since (0=all)
	Event       model.EventKind // Exact match on event kind ("" = any)
	Source      string          // Exact match on source ("" = any)
	MinPriority *int            // Keep records at or above this priority (nil=any)
	Limit       int             // Maximum results (0=unlimited)
}

// Filter filters play records based on the provided options.
func Filter(records []model.PlayRecord, opts FilterOptions) []model.PlayRecord {
	now := time.Now()
	result := make([]model.PlayRecord, 0, len(records))

	for _, r := range records {
		if opts.Since > 0 && r.PlayedTime().Before(now.Add(-opts.Since)) {
			continue
		}
		if opts.Event != "" && r.Event != opts.Event {
			continue
		}
		if opts.Source != "" && r.Source != opts.Source {
			continue
		}
		if opts.MinPriority != nil && r.Priority < *opts.MinPriority {
			continue
		}
		result = append(result, r)
	}

	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}

	return result
}

// dayUnits extends time.ParseDuration with day and week suffixes.
var dayUnits = map[string]time.Duration{
	"d": 24 * time.Hour,
	"w": 7 * 24 * time.Hour,
}

// ParseDuration parses a duration string with extended formats.
// Supports: 48h, 7d, 1w, 0 (all time)
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "0" || s == "" {
		return 0, nil
	}

	if unit, ok := dayUnits[s[len(s)-1:]]; ok {
		n, err := strconv.Atoi(s[:len(s)-1])
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		return time.Duration(n) * unit, nil
	}
	return time.ParseDuration(s)
}

// ParsePriority parses a priority name or a non-negative number.
// Accepts: low, normal, high, 0, 1, 2, ...
func ParsePriority(s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))

	switch s {
	case "low":
		return model.PriorityLow, nil
	case "normal":
		return model.PriorityNormal, nil
	case "high":
		return model.PriorityHigh, nil
	}

	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid priority: %s (use low, normal, high, or a number)", s)
	}
	return n, nil
}

// recordField reads one filterable field of a play record. Text fields
// support = != ~ ~=; ordered fields support = != > < >= <=.
type recordField struct {
	text    func(model.PlayRecord) string
	ordered func(model.PlayRecord) int64
	// value converts the condition value for ordered fields.
	value func(string) (int64, error)
}

var recordFields = map[string]recordField{
	"event":   {text: func(r model.PlayRecord) string { return string(r.Event) }},
	"source":  {text: func(r model.PlayRecord) string { return r.Source }},
	"file":    {text: func(r model.PlayRecord) string { return r.File }},
	"backend": {text: func(r model.PlayRecord) string { return r.Backend }},
	"priority": {
		ordered: func(r model.PlayRecord) int64 { return int64(r.Priority) },
		value: func(s string) (int64, error) {
			p, err := ParsePriority(s)
			return int64(p), err
		},
	},
	// "played>1h" reads as "played within the last hour": the value is an
	// age, compared as the instant now-age.
	"played": {
		ordered: func(r model.PlayRecord) int64 { return r.PlayedAt },
		value: func(s string) (int64, error) {
			age, err := ParseDuration(s)
			if err != nil {
				return 0, fmt.Errorf("invalid played value: %w", err)
			}
			return time.Now().Add(-age).UnixMilli(), nil
		},
	},
}

var fieldAliases = map[string]string{
	"kind":      "event",
	"src":       "source",
	"sound":     "file",
	"prio":      "priority",
	"time":      "played",
	"timestamp": "played",
}

// ParseFilter parses a filter expression string into a FilterExpr.
// Format: "field=value,field2~value2,field3>value3"
// Multiple conditions are comma-separated and ANDed together.
//
// Supported fields: event, source, file, backend, priority, played
// Supported operators: = (equal), != (not equal), ~ (contains), ~= (regex), >, <, >=, <=
//
// Examples:
//   - "event=file_save" - only save sounds
//   - "source!=workspace" - everything not produced by the file watcher
//   - "priority>=high" - high priority sounds
//   - "file~=(?i)fracture" - file matches regex
//   - "played>1h" - sounds from the last hour
func ParseFilter(expr string) (*FilterExpr, error) {
	filter := &FilterExpr{}

	for part := range strings.SplitSeq(expr, ",") {
		if part = strings.TrimSpace(part); part == "" {
			continue
		}
		cond, err := parseCondition(part)
		if err != nil {
			return nil, err
		}
		filter.Conditions = append(filter.Conditions, cond)
	}

	return filter, nil
}

// parseCondition splits "field op value" at the first operator character
// and compiles it against the record field.
func parseCondition(s string) (FilterCondition, error) {
	idx := strings.IndexAny(s, "!=<>~")
	if idx <= 0 {
		return FilterCondition{}, fmt.Errorf("invalid filter condition: %s (missing operator)", s)
	}

	op := FilterOp(s[idx : idx+1])
	if rest := s[idx+1:]; strings.HasPrefix(rest, "=") {
		op += "="
	}
	if op == "!" {
		return FilterCondition{}, fmt.Errorf("invalid filter condition: %s (use !=)", s)
	}

	name := strings.ToLower(strings.TrimSpace(s[:idx]))
	if alias, ok := fieldAliases[name]; ok {
		name = alias
	}
	cond := FilterCondition{
		Field:    name,
		Operator: op,
		Value:    strings.TrimSpace(s[idx+len(op):]),
	}
	if err := cond.compile(); err != nil {
		return FilterCondition{}, err
	}
	return cond, nil
}

func (c *FilterCondition) compile() error {
	field, ok := recordFields[c.Field]
	if !ok {
		return fmt.Errorf("unknown filter field: %s", c.Field)
	}
	if field.ordered != nil {
		return c.compileOrdered(field)
	}

	if c.Field == "event" && (c.Operator == FilterOpEqual || c.Operator == FilterOpNotEqual) {
		kind, err := model.ParseEventKind(c.Value)
		if err != nil {
			return err
		}
		c.Value = string(kind)
	}

	get, want := field.text, c.Value
	switch c.Operator {
	case FilterOpEqual:
		c.match = func(r model.PlayRecord) bool { return get(r) == want }
	case FilterOpNotEqual:
		c.match = func(r model.PlayRecord) bool { return get(r) != want }
	case FilterOpContains:
		want = strings.ToLower(want)
		c.match = func(r model.PlayRecord) bool { return strings.Contains(strings.ToLower(get(r)), want) }
	case FilterOpRegex:
		re, err := regexp.Compile(want)
		if err != nil {
			return fmt.Errorf("invalid regex: %w", err)
		}
		c.match = func(r model.PlayRecord) bool { return re.MatchString(get(r)) }
	default:
		return fmt.Errorf("operator %s is not supported for %s", c.Operator, c.Field)
	}
	return nil
}

func (c *FilterCondition) compileOrdered(field recordField) error {
	want, err := field.value(c.Value)
	if err != nil {
		return err
	}

	var accept func(int) bool
	switch c.Operator {
	case FilterOpEqual:
		accept = func(n int) bool { return n == 0 }
	case FilterOpNotEqual:
		accept = func(n int) bool { return n != 0 }
	case FilterOpGreater:
		accept = func(n int) bool { return n > 0 }
	case FilterOpLess:
		accept = func(n int) bool { return n < 0 }
	case FilterOpGreaterEq:
		accept = func(n int) bool { return n >= 0 }
	case FilterOpLessEq:
		accept = func(n int) bool { return n <= 0 }
	default:
		return fmt.Errorf("operator %s is not supported for %s", c.Operator, c.Field)
	}

	get := field.ordered
	c.match = func(r model.PlayRecord) bool { return accept(cmp.Compare(get(r), want)) }
	return nil
}

// Match reports whether r satisfies every condition.
func (f *FilterExpr) Match(r model.PlayRecord) bool {
	for _, cond := range f.Conditions {
		if !cond.Match(r) {
			return false
		}
	}
	return true
}

// Match reports whether r satisfies the condition.
func (c *FilterCondition) Match(r model.PlayRecord) bool {
	return c.match != nil && c.match(r)
}

// FilterWithExpr filters records using a filter expression.
func FilterWithExpr(records []model.PlayRecord, expr *FilterExpr) []model.PlayRecord {
	if expr == nil || len(expr.Conditions) == 0 {
		return records
	}

	result := make([]model.PlayRecord, 0, len(records))
	for _, r := range records {
		if expr.Match(r) {
			result = append(result, r)
		}
	}
	return result
}
