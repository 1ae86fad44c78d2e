package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/hevsound/internal/model"
)

func ago(d time.Duration) int64 {
	return time.Now().Add(-d).UnixMilli()
}

func TestFilter_Empty(t *testing.T) {
	result := Filter(nil, FilterOptions{})
	assert.Len(t, result, 0)
}

func TestFilter_NoFilters(t *testing.T) {
	records := []model.PlayRecord{
		{ID: "1", Event: model.EventFileSave},
		{ID: "2", Event: model.EventStartup},
	}

	result := Filter(records, FilterOptions{})
	assert.Len(t, result, 2)
}

func TestFilter_ByEvent(t *testing.T) {
	records := []model.PlayRecord{
		{ID: "1", Event: model.EventFileSave},
		{ID: "2", Event: model.EventTabSwitch},
		{ID: "3", Event: model.EventFileSave},
	}

	result := Filter(records, FilterOptions{Event: model.EventFileSave})
	assert.Len(t, result, 2)
	for _, r := range result {
		assert.Equal(t, model.EventFileSave, r.Event)
	}
}

func TestFilter_BySourceAndPriority(t *testing.T) {
	high := model.PriorityHigh
	records := []model.PlayRecord{
		{ID: "1", Source: "dbus", Priority: model.PriorityLow},
		{ID: "2", Source: "dbus", Priority: model.PriorityHigh},
		{ID: "3", Source: "workspace", Priority: model.PriorityHigh},
	}

	result := Filter(records, FilterOptions{Source: "dbus", MinPriority: &high})
	require.Len(t, result, 1)
	assert.Equal(t, "2", result[0].ID)
}

func TestFilter_BySince(t *testing.T) {
	records := []model.PlayRecord{
		{ID: "1", PlayedAt: ago(30 * time.Minute)},
		{ID: "2", PlayedAt: ago(2 * time.Hour)},
		{ID: "3", PlayedAt: ago(5 * time.Hour)},
	}

	result := Filter(records, FilterOptions{Since: time.Hour})
	require.Len(t, result, 1)
	assert.Equal(t, "1", result[0].ID)
}

func TestFilter_WithLimit(t *testing.T) {
	records := []model.PlayRecord{{ID: "1"}, {ID: "2"}, {ID: "3"}, {ID: "4"}}

	result := Filter(records, FilterOptions{Limit: 3})
	assert.Len(t, result, 3)
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input    string
		expected time.Duration
		hasError bool
	}{
		{"0", 0, false},
		{"", 0, false},
		{"1h", time.Hour, false},
		{"30m", 30 * time.Minute, false},
		{"7d", 7 * 24 * time.Hour, false},
		{"2w", 14 * 24 * time.Hour, false},
		{"invalid", 0, true},
		{"xd", 0, true},
		{"xw", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := ParseDuration(tt.input)
			if tt.hasError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, result)
			}
		})
	}
}

func TestParsePriority(t *testing.T) {
	tests := []struct {
		input    string
		expected int
		hasError bool
	}{
		{"low", model.PriorityLow, false},
		{"NORMAL", model.PriorityNormal, false},
		{"high", model.PriorityHigh, false},
		{"7", 7, false},
		{"-1", 0, true},
		{"urgent", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := ParsePriority(tt.input)
			if tt.hasError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, result)
			}
		})
	}
}

func TestParseFilter(t *testing.T) {
	expr, err := ParseFilter("event=saveFile, priority>=normal")
	require.NoError(t, err)
	require.Len(t, expr.Conditions, 2)
	assert.Equal(t, "event", expr.Conditions[0].Field)
	assert.Equal(t, string(model.EventFileSave), expr.Conditions[0].Value, "legacy names are normalized")
	assert.Equal(t, FilterOpGreaterEq, expr.Conditions[1].Operator)

	empty, err := ParseFilter("")
	require.NoError(t, err)
	assert.Empty(t, empty.Conditions)
}

func TestParseFilter_Errors(t *testing.T) {
	for _, expr := range []string{
		"volume=1",
		"event=explosion",
		"priority>loud",
		"file~=(",
		"played>soon",
		"event",
		"source!dbus",
		"event>file_save",
		"priority~1",
		"played~=1h",
	} {
		t.Run(expr, func(t *testing.T) {
			_, err := ParseFilter(expr)
			assert.Error(t, err)
		})
	}
}

func TestFilterWithExpr(t *testing.T) {
	records := []model.PlayRecord{
		{ID: "1", Event: model.EventFileSave, Source: "workspace", File: "/a/medic_shot.mp3", Priority: 1, PlayedAt: ago(time.Minute)},
		{ID: "2", Event: model.EventTerminalError, Source: "dbus", File: "/a/major_fracture_detected.mp3", Priority: 2, PlayedAt: ago(3 * time.Hour)},
		{ID: "3", Event: model.EventTabSwitch, Source: "stdin", File: "/a/button_roll_over.mp3", Backend: "command", Priority: 0, PlayedAt: ago(time.Minute)},
	}

	tests := []struct {
		expr string
		want []string
	}{
		{"", []string{"1", "2", "3"}},
		{"event=file_save", []string{"1"}},
		{"source!=dbus", []string{"1", "3"}},
		{"file~FRACTURE", []string{"2"}},
		{"file~=^/a/b", []string{"3"}},
		{"priority>0", []string{"1", "2"}},
		{"priority<=low", []string{"3"}},
		{"played>1h", []string{"1", "3"}},
		{"played<1h", []string{"2"}},
		{"backend=command", []string{"3"}},
		{"priority>=1,played>1h", []string{"1"}},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			expr, err := ParseFilter(tt.expr)
			require.NoError(t, err)

			var ids []string
			for _, r := range FilterWithExpr(records, expr) {
				ids = append(ids, r.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}
