package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"quiz-assessment-service/internal/domain"
)

const ScrapeTimeout = 30 * time.Second

var (
	quizAttemptsDesc = prometheus.NewDesc(
		"quiz_performance_attempts",
		"Number of attempts per quiz",
		[]string{"quiz_id", "title"},
		nil,
	)
	quizAveragePercentageDesc = prometheus.NewDesc(
		"quiz_performance_average_percentage",
		"Mean attempt percentage per quiz",
		[]string{"quiz_id", "title"},
		nil,
	)
)

// PerformanceSource yields per-quiz rollups.
type PerformanceSource interface {
	QuizPerformance(ctx context.Context, limit int) ([]domain.QuizPerformance, error)
}

// PerformanceCollector exposes quiz rollups at scrape time.
type PerformanceCollector struct {
	source PerformanceSource
	limit  int
}

func NewPerformanceCollector(source PerformanceSource, limit int) *PerformanceCollector {
	return &PerformanceCollector{source: source, limit: limit}
}

func (c *PerformanceCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- quizAttemptsDesc
	ch <- quizAveragePercentageDesc
}

func (c *PerformanceCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), ScrapeTimeout)
	defer cancel()

	rows, err := c.source.QuizPerformance(ctx, c.limit)
	if err != nil {
		ch <- prometheus.NewInvalidMetric(quizAttemptsDesc, err)
		return
	}

	for _, row := range rows {
		ch <- prometheus.MustNewConstMetric(quizAttemptsDesc, prometheus.GaugeValue, float64(row.AttemptsCount), row.QuizID, row.Title)
		ch <- prometheus.MustNewConstMetric(quizAveragePercentageDesc, prometheus.GaugeValue, row.AveragePercentage, row.QuizID, row.Title)
	}
}

var _ prometheus.Collector = (*PerformanceCollector)(nil)
