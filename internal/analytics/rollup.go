package analytics

import (
	"sort"

	"github.com/samber/lo"

	"quiz-assessment-service/internal/domain"
)

const untitledQuiz = "Quiz"

// RollupByQuiz groups attempts by quiz into count, average percentage and pass
// rate, ranked by attempt count.
func RollupByQuiz(attempts []domain.Attempt) []domain.QuizPerformance {
	groups := lo.GroupBy(attempts, func(a domain.Attempt) string { return a.QuizID })

	rows := make([]domain.QuizPerformance, 0, len(groups))
	for quizID, group := range groups {
		title := group[0].QuizTitle
		if title == "" {
			title = untitledQuiz
		}
		rows = append(rows, domain.QuizPerformance{
			QuizID:            quizID,
			Title:             title,
			Kind:              group[0].QuizKind,
			AttemptsCount:     len(group),
			AveragePercentage: AveragePercentage(group),
			PassRate:          PassRate(group),
		})
	}
	SortByAttempts(rows)
	return rows
}

// SortByAttempts orders rollup rows by attempt count descending, then title and ID.
func SortByAttempts(rows []domain.QuizPerformance) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].AttemptsCount != rows[j].AttemptsCount {
			return rows[i].AttemptsCount > rows[j].AttemptsCount
		}
		if rows[i].Title != rows[j].Title {
			return rows[i].Title < rows[j].Title
		}
		return rows[i].QuizID < rows[j].QuizID
	})
}

// Top caps rows to n. A non-positive n keeps every row.
func Top(rows []domain.QuizPerformance, n int) []domain.QuizPerformance {
	if n <= 0 || n >= len(rows) {
		return rows
	}
	return rows[:n]
}
