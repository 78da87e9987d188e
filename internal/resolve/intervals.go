package resolve

import (
	"github.com/sells-group/autolink/internal/model"
)

// SeasonIntervals groups episodes by season and returns each season's
// earliest and latest air date, ordered by the first appearance of the
// season number in episodes. Episodes with a missing or unparseable air date
// never take part in the min/max; malformed counts the unparseable ones. A
// season with no dated episode has no interval.
func SeasonIntervals(episodes []model.Episode) (intervals []model.SeasonInterval, malformed int) {
	var order []int
	spans := make(map[int]*model.SeasonInterval)

	for _, ep := range episodes {
		if _, seen := spans[ep.SeasonNumber]; !seen {
			order = append(order, ep.SeasonNumber)
			spans[ep.SeasonNumber] = nil
		}
		if ep.AirDate == "" {
			continue
		}
		day, ok := model.ParseDate(ep.AirDate)
		if !ok {
			malformed++
			continue
		}

		iv := spans[ep.SeasonNumber]
		if iv == nil {
			spans[ep.SeasonNumber] = &model.SeasonInterval{Season: ep.SeasonNumber, Start: day, End: day}
			continue
		}
		if day.Before(iv.Start) {
			iv.Start = day
		}
		if day.After(iv.End) {
			iv.End = day
		}
	}

	for _, season := range order {
		if iv := spans[season]; iv != nil {
			intervals = append(intervals, *iv)
		}
	}
	return intervals, malformed
}
