package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrentSeason(t *testing.T) {
	tests := []struct {
		month time.Month
		want  SeasonKey
	}{
		{time.January, "WINTER_2024"},
		{time.March, "WINTER_2024"},
		{time.April, "SPRING_2024"},
		{time.July, "SUMMER_2024"},
		{time.September, "SUMMER_2024"},
		{time.October, "FALL_2024"},
		{time.December, "FALL_2024"},
	}
	for _, tt := range tests {
		t.Run(tt.month.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, CurrentSeason(time.Date(2024, tt.month, 15, 0, 0, 0, 0, time.UTC)))
		})
	}
}

func TestParseSeasonKey(t *testing.T) {
	got, err := ParseSeasonKey(" spring_2024 ")
	require.NoError(t, err)
	assert.Equal(t, SeasonKey("SPRING_2024"), got)

	for _, bad := range []string{"", "SPRING", "MONSOON_2024", "FALL_20x4", "FALL_1800"} {
		_, err := ParseSeasonKey(bad)
		assert.Error(t, err, bad)
	}
}

func TestRecentSeasons(t *testing.T) {
	got := RecentSeasons(time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC), 6)
	assert.Equal(t, []SeasonKey{
		"FALL_2025", "SUMMER_2025", "SPRING_2025", "WINTER_2025",
		"FALL_2024", "SUMMER_2024",
	}, got)
}
