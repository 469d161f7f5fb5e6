package analytics

import (
	"time"

	"quiz-assessment-service/internal/domain"
)

// DefaultWindowDays is the trailing window used for daily attempt counts.
const DefaultWindowDays = 7

const dateLayout = "2006-01-02"

// DayCount is one calendar-day bucket.
type DayCount struct {
	Date  string `json:"date"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// WindowStart is midnight of the first day of a window of days ending today.
func WindowStart(now time.Time, days int, loc *time.Location) time.Time {
	if days <= 0 {
		days = DefaultWindowDays
	}
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return today.AddDate(0, 0, -(days - 1))
}

// DailyCounts buckets attempts by calendar day over the trailing window including
// today. It always returns exactly days buckets in chronological order; days
// without attempts have a zero count.
func DailyCounts(attempts []domain.Attempt, now time.Time, days int, loc *time.Location) []DayCount {
	if days <= 0 {
		days = DefaultWindowDays
	}
	if loc == nil {
		loc = time.UTC
	}
	first := WindowStart(now, days, loc)

	buckets := make([]DayCount, days)
	index := make(map[string]int, days)
	for i := range days {
		day := first.AddDate(0, 0, i)
		key := day.Format(dateLayout)
		buckets[i] = DayCount{Date: key, Label: day.Format("Mon")}
		index[key] = i
	}

	for _, a := range attempts {
		if i, ok := index[a.CreatedAt.In(loc).Format(dateLayout)]; ok {
			buckets[i].Count++
		}
	}
	return buckets
}
