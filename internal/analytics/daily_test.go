package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quiz-assessment-service/internal/domain"
)

func TestDailyCountsZeroFillsWindow(t *testing.T) {
	now := time.Date(2026, 6, 10, 12, 0, 0, 0, time.UTC)
	attempts := []domain.Attempt{
		{CreatedAt: time.Date(2026, 6, 3, 23, 59, 0, 0, time.UTC)},
		{CreatedAt: time.Date(2026, 6, 4, 0, 0, 0, 0, time.UTC)},
		{CreatedAt: time.Date(2026, 6, 10, 8, 0, 0, 0, time.UTC)},
		{CreatedAt: time.Date(2026, 6, 10, 11, 0, 0, 0, time.UTC)},
	}

	days := DailyCounts(attempts, now, 7, time.UTC)
	require.Len(t, days, 7)
	assert.Equal(t, "2026-06-04", days[0].Date)
	assert.Equal(t, "Thu", days[0].Label)
	assert.Equal(t, 1, days[0].Count)
	assert.Equal(t, "2026-06-10", days[6].Date)
	assert.Equal(t, 2, days[6].Count)
	for _, d := range days[1:6] {
		assert.Zero(t, d.Count, d.Date)
	}
}

func TestDailyCountsEmptyHistory(t *testing.T) {
	now := time.Date(2026, 1, 2, 0, 30, 0, 0, time.UTC)
	days := DailyCounts(nil, now, 0, nil)
	require.Len(t, days, DefaultWindowDays)
	assert.Equal(t, "2025-12-27", days[0].Date)
	assert.Equal(t, "2026-01-02", days[6].Date)
}

func TestDailyCountsUsesLocation(t *testing.T) {
	tokyo := time.FixedZone("UTC+9", 9*60*60)
	now := time.Date(2026, 6, 10, 1, 0, 0, 0, time.UTC)
	// 20:00 UTC on the 9th is already the 10th in UTC+9
	attempts := []domain.Attempt{{CreatedAt: time.Date(2026, 6, 9, 20, 0, 0, 0, time.UTC)}}

	local := DailyCounts(attempts, now, 3, tokyo)
	assert.Equal(t, "2026-06-10", local[2].Date)
	assert.Equal(t, 1, local[2].Count)

	utc := DailyCounts(attempts, now, 3, time.UTC)
	assert.Equal(t, 1, utc[1].Count)
	assert.Zero(t, utc[2].Count)
}

func TestWindowStart(t *testing.T) {
	now := time.Date(2026, 3, 3, 15, 4, 5, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 2, 25, 0, 0, 0, 0, time.UTC), WindowStart(now, 7, time.UTC))
	assert.Equal(t, time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC), WindowStart(now, 1, time.UTC))
}
