package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/hevsound/internal/model"
)

func ids(records []model.PlayRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestSort_Empty(t *testing.T) {
	var records []model.PlayRecord
	Sort(records, DefaultSortOptions())
	assert.Len(t, records, 0)
}

func TestSort_ByPlayed(t *testing.T) {
	records := []model.PlayRecord{
		{ID: "1", PlayedAt: 100},
		{ID: "2", PlayedAt: 300},
		{ID: "3", PlayedAt: 200},
	}

	Sort(records, SortOptions{Field: SortByPlayed, Order: SortDesc})
	assert.Equal(t, []string{"2", "3", "1"}, ids(records))

	Sort(records, SortOptions{Field: SortByPlayed, Order: SortAsc})
	assert.Equal(t, []string{"1", "3", "2"}, ids(records))
}

func TestSort_ByPriorityIsStable(t *testing.T) {
	records := []model.PlayRecord{
		{ID: "1", Priority: 1},
		{ID: "2", Priority: 2},
		{ID: "3", Priority: 1},
		{ID: "4", Priority: 2},
	}

	Sort(records, SortOptions{Field: SortByPriority, Order: SortDesc})
	assert.Equal(t, []string{"2", "4", "1", "3"}, ids(records))
}

func TestSort_ByEvent(t *testing.T) {
	records := []model.PlayRecord{
		{ID: "1", Event: model.EventTabSwitch},
		{ID: "2", Event: model.EventFileSave},
		{ID: "3", Event: model.EventStartup},
	}

	Sort(records, SortOptions{Field: SortByEvent, Order: SortAsc})
	assert.Equal(t, []string{"2", "3", "1"}, ids(records))
}

func TestParseSortField(t *testing.T) {
	f, err := ParseSortField("prio")
	require.NoError(t, err)
	assert.Equal(t, SortByPriority, f)

	f, err = ParseSortField("")
	require.NoError(t, err)
	assert.Equal(t, SortByPlayed, f)

	_, err = ParseSortField("volume")
	assert.Error(t, err)
}

func TestParseSortOrder(t *testing.T) {
	o, err := ParseSortOrder("ascending")
	require.NoError(t, err)
	assert.Equal(t, SortAsc, o)

	o, err = ParseSortOrder("")
	require.NoError(t, err)
	assert.Equal(t, SortDesc, o)

	_, err = ParseSortOrder("sideways")
	assert.Error(t, err)
}

func TestLookupByID(t *testing.T) {
	records := []model.PlayRecord{{ID: "a"}, {ID: "b"}}

	r := LookupByID(records, "b")
	require.NotNil(t, r)
	assert.Equal(t, "b", r.ID)

	assert.Nil(t, LookupByID(records, "c"))
}
