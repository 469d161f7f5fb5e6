package analytics

import (
	"math"

	"github.com/samber/lo"

	"quiz-assessment-service/internal/domain"
)

// PassThreshold is the fixed percentage an attempt needs to pass. It applies to
// every quiz regardless of kind or difficulty.
const PassThreshold = 50

// Percentage is score/total*100 rounded to the nearest integer. A zero total is 0%.
func Percentage(score, total int) int {
	return int(math.Round(exactPercentage(score, total)))
}

func exactPercentage(score, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(score) / float64(total) * 100
}

// Passed reports whether the rounded percentage reaches PassThreshold.
func Passed(score, total int) bool {
	return Percentage(score, total) >= PassThreshold
}

// AttemptPassed is Passed applied to an attempt.
func AttemptPassed(a domain.Attempt) bool {
	return Passed(a.Score, a.Total)
}

// AveragePercentage is the mean of per-attempt percentages: every attempt weighs
// the same regardless of its question count.
func AveragePercentage(attempts []domain.Attempt) float64 {
	if len(attempts) == 0 {
		return 0
	}
	sum := lo.SumBy(attempts, func(a domain.Attempt) float64 {
		return exactPercentage(a.Score, a.Total)
	})
	return sum / float64(len(attempts))
}

// PassRate is the share of passing attempts, in percent.
func PassRate(attempts []domain.Attempt) float64 {
	if len(attempts) == 0 {
		return 0
	}
	passed := lo.CountBy(attempts, AttemptPassed)
	return float64(passed) / float64(len(attempts)) * 100
}
