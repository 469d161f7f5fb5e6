package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v4"

	"quiz-assessment-service/internal/domain"
)

func (s *Store) InsertAttempt(ctx context.Context, a domain.Attempt) (string, error) {
	var id string
	err := s.pool.QueryRow(ctx,
		`INSERT INTO attempts (quiz_id, user_id, score, total, duration_used_seconds, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		a.QuizID, a.UserID, a.Score, a.Total, a.DurationUsedSeconds, a.CreatedAt,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert attempt: %w", err)
	}
	return id, nil
}

// InsertAttemptAnswers writes all rows of an attempt in a single transaction.
func (s *Store) InsertAttemptAnswers(ctx context.Context, rows []domain.AttemptAnswer) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin answers: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(
			`INSERT INTO attempt_answers (attempt_id, question_id, selected_option_id, answer_text, is_correct)
			 VALUES ($1, $2, $3, $4, $5)`,
			r.AttemptID, r.QuestionID, r.SelectedOptionID, r.AnswerText, r.Correct,
		)
	}
	if err := execBatch(tx.SendBatch(ctx, batch), batch.Len()); err != nil {
		return fmt.Errorf("insert answers: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *Store) ListAttempts(ctx context.Context, q domain.AttemptQuery) ([]domain.Attempt, error) {
	where, args := attemptWhere(q.Filter)
	order := "DESC"
	if q.Order == domain.OldestFirst {
		order = "ASC"
	}
	sql := `SELECT a.id, a.quiz_id, a.user_id, a.score, a.total, a.duration_used_seconds, a.created_at,
	               COALESCE(z.title, ''), COALESCE(z.kind, '')
	        FROM attempts a LEFT JOIN quizzes z ON z.id = a.quiz_id` + where +
		` ORDER BY a.created_at ` + order + `, a.id ` + order
	if q.Limit > 0 {
		args = append(args, q.Limit)
		sql += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Attempt, 0)
	for rows.Next() {
		var (
			a    domain.Attempt
			kind string
		)
		if err := rows.Scan(&a.ID, &a.QuizID, &a.UserID, &a.Score, &a.Total, &a.DurationUsedSeconds, &a.CreatedAt, &a.QuizTitle, &kind); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		a.QuizKind = domain.QuizKind(kind)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) CountAttempts(ctx context.Context, f domain.AttemptFilter) (int, error) {
	where, args := attemptWhere(f)
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM attempts a`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count attempts: %w", err)
	}
	return n, nil
}

// QuizPerformance reads the quiz_performance view, most attempted first.
func (s *Store) QuizPerformance(ctx context.Context, limit int) ([]domain.QuizPerformance, error) {
	sql := `SELECT quiz_id, title, kind, attempts_count, average_percentage, pass_rate
	        FROM quiz_performance ORDER BY attempts_count DESC, title ASC, quiz_id ASC`
	var args []interface{}
	if limit > 0 {
		sql += " LIMIT $1"
		args = append(args, limit)
	}
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query quiz_performance: %w", err)
	}
	defer rows.Close()

	var out []domain.QuizPerformance
	for rows.Next() {
		var (
			p    domain.QuizPerformance
			kind string
		)
		if err := rows.Scan(&p.QuizID, &p.Title, &kind, &p.AttemptsCount, &p.AveragePercentage, &p.PassRate); err != nil {
			return nil, fmt.Errorf("scan quiz_performance: %w", err)
		}
		p.Kind = domain.QuizKind(kind)
		out = append(out, p)
	}
	return out, rows.Err()
}

func attemptWhere(f domain.AttemptFilter) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)
	if f.QuizID != "" {
		args = append(args, f.QuizID)
		conds = append(conds, fmt.Sprintf("a.quiz_id = $%d", len(args)))
	}
	if f.UserID != "" {
		args = append(args, f.UserID)
		conds = append(conds, fmt.Sprintf("a.user_id = $%d", len(args)))
	}
	if !f.Since.IsZero() {
		args = append(args, f.Since)
		conds = append(conds, fmt.Sprintf("a.created_at >= $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
