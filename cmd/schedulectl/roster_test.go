package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRosterFile(t *testing.T) {
	records, err := parseRosterFile(strings.NewReader(`
workers:
  - id: a
    name: WorkerA
    weekly_quota: 5
    shift_preferences: [morning]
  - id: b
    name: WorkerB
    weekly_quota: 4
    day_preferences: [Sat, Sunday]
`))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "a", records[0].ID)
	assert.Equal(t, []string{"morning"}, records[0].ShiftPreferences)
	assert.Empty(t, records[0].DayPreferences)
	assert.Equal(t, 4, records[1].WeeklyQuota)
	assert.Equal(t, []string{"Sat", "Sunday"}, records[1].DayPreferences)
}

func TestParseRosterFile_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"Empty", ""},
		{"NoWorkers", "workers: []\n"},
		{"UnknownField", "workers:\n  - id: a\n    days_per_week: 5\n"},
		{"NotYAML", "workers: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseRosterFile(strings.NewReader(tt.in))
			assert.Error(t, err)
		})
	}
}
