package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{in: "2017-04-01", want: "2017-04-01", ok: true},
		{in: " 2017-04-01 ", want: "2017-04-01", ok: true},
		{in: "2017-04-01T23:30:00+09:00", want: "2017-04-01", ok: true},
		{in: "2017-04-01T00:00:00Z", want: "2017-04-01", ok: true},
		{in: "", ok: false},
		{in: "April 1st", ok: false},
		{in: "2017-13-01", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseDate(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, FormatDate(got))
			} else {
				assert.True(t, got.IsZero())
			}
		})
	}
}

func TestSameDay_IgnoresTimeOfDay(t *testing.T) {
	a := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	b := time.Date(2024, 1, 5, 23, 59, 0, 0, time.UTC)
	c := time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC)

	assert.True(t, SameDay(a, b))
	assert.False(t, SameDay(a, c))
}

func TestDayOf_DropsZone(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	got := DayOf(time.Date(2024, 1, 5, 1, 0, 0, 0, tokyo))
	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), got)
}

func TestFormatDate_Unknown(t *testing.T) {
	assert.Equal(t, "Unknown", FormatDate(time.Time{}))
}
