package roster

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Jaaz7/kgag-scheduler/pkg/errors"
)

var slots = []string{"morning", "middle", "late"}

func TestLoadRoster_PreservesOrder(t *testing.T) {
	r, err := LoadRoster([]WorkerRecord{
		{ID: "b", Name: "Bea", WeeklyQuota: 3},
		{ID: "a", Name: "Ann", WeeklyQuota: 5, ShiftPreferences: []string{"late", "morning"}, DayPreferences: []string{"Fri", "monday"}},
	}, slots)
	require.NoError(t, err)
	require.Equal(t, 2, r.Len())

	ws := r.Workers()
	assert.Equal(t, "b", ws[0].ID)
	assert.Equal(t, 0, ws[0].Index)
	assert.Equal(t, "a", ws[1].ID)
	assert.Equal(t, 1, ws[1].Index)

	a, ok := r.Get("a")
	require.True(t, ok)
	assert.Equal(t, []string{"late", "morning"}, a.ShiftPrefs)
	assert.Equal(t, []time.Weekday{time.Friday, time.Monday}, a.DayPrefs)

	rank, ok := a.ShiftRank("morning")
	assert.True(t, ok)
	assert.Equal(t, 1, rank)
	_, ok = a.ShiftRank("middle")
	assert.False(t, ok)
}

func TestLoadRoster_ValidationErrors(t *testing.T) {
	tests := []struct {
		name      string
		rec       WorkerRecord
		wantField string
	}{
		{"配额为0", WorkerRecord{ID: "w1", WeeklyQuota: 0}, "weekly_quota"},
		{"配额为8", WorkerRecord{ID: "w1", WeeklyQuota: 8}, "weekly_quota"},
		{"缺少ID", WorkerRecord{WeeklyQuota: 3}, "id"},
		{"未知班次", WorkerRecord{ID: "w1", WeeklyQuota: 3, ShiftPreferences: []string{"night"}}, "shift_preferences"},
		{"未知星期", WorkerRecord{ID: "w1", WeeklyQuota: 3, DayPreferences: []string{"Funday"}}, "day_preferences"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadRoster([]WorkerRecord{tt.rec}, slots)
			require.ErrorIs(t, err, apperrors.ErrValidation)

			var ve *apperrors.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.wantField, ve.Field)
			assert.Equal(t, tt.rec.ID, ve.WorkerID)
		})
	}
}

func TestLoadRoster_DuplicateID(t *testing.T) {
	_, err := LoadRoster([]WorkerRecord{
		{ID: "w1", WeeklyQuota: 1},
		{ID: "w1", WeeklyQuota: 2},
	}, slots)

	var ve *apperrors.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "w1", ve.WorkerID)
	assert.Equal(t, "id", ve.Field)
}

func TestLoadRoster_DuplicatePreferencesKeepFirstRank(t *testing.T) {
	r, err := LoadRoster([]WorkerRecord{{
		ID:               "w1",
		WeeklyQuota:      2,
		ShiftPreferences: []string{"late", "morning", "late"},
		DayPreferences:   []string{"Sat", "Sun", "saturday"},
	}}, slots)
	require.NoError(t, err)

	w, _ := r.Get("w1")
	assert.Equal(t, []string{"late", "morning"}, w.ShiftPrefs)
	assert.Equal(t, []time.Weekday{time.Saturday, time.Sunday}, w.DayPrefs)
}

func TestLoadRoster_Empty(t *testing.T) {
	r, err := LoadRoster(nil, slots)
	require.NoError(t, err)
	assert.Zero(t, r.Len())
}

func TestParseWeekday(t *testing.T) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		got, err := ParseWeekday(WeekdayShort(d))
		require.NoError(t, err)
		assert.Equal(t, d, got)

		got, err = ParseWeekday(d.String())
		require.NoError(t, err)
		assert.Equal(t, d, got)
	}
	_, err := ParseWeekday("")
	assert.Error(t, err)
}
