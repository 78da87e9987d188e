package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// SeasonKey names an airing season, e.g. "SPRING_2024".
type SeasonKey string

var seasonNames = []string{"WINTER", "SPRING", "SUMMER", "FALL"}

// CurrentSeason returns the airing season containing now.
// Jan–Mar is winter, Apr–Jun spring, Jul–Sep summer, Oct–Dec fall.
func CurrentSeason(now time.Time) SeasonKey {
	idx := (int(now.Month()) - 1) / 3
	return SeasonKey(fmt.Sprintf("%s_%d", seasonNames[idx], now.Year()))
}

// ParseSeasonKey validates and normalizes a season key.
func ParseSeasonKey(s string) (SeasonKey, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	name, year, ok := strings.Cut(s, "_")
	if !ok {
		return "", eris.Errorf("season: %q must look like SPRING_2024", s)
	}
	valid := false
	for _, n := range seasonNames {
		if n == name {
			valid = true
			break
		}
	}
	if !valid {
		return "", eris.Errorf("season: unknown season name %q", name)
	}
	y, err := strconv.Atoi(year)
	if err != nil || y < 1900 || y > 9999 {
		return "", eris.Errorf("season: invalid year %q", year)
	}
	return SeasonKey(fmt.Sprintf("%s_%d", name, y)), nil
}

// RecentSeasons lists up to n season keys, newest first, starting with the
// fall of next year.
func RecentSeasons(now time.Time, n int) []SeasonKey {
	out := make([]SeasonKey, 0, n)
	for year := now.Year() + 1; year >= 2000 && len(out) < n; year-- {
		for i := len(seasonNames) - 1; i >= 0 && len(out) < n; i-- {
			out = append(out, SeasonKey(fmt.Sprintf("%s_%d", seasonNames[i], year)))
		}
	}
	return out
}
