package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"quiz-assessment-service/internal/domain"
)

func (s *Store) InsertAttempt(ctx context.Context, a domain.Attempt) (string, error) {
	id := uuid.NewString()
	created := a.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO attempts (id, quiz_id, user_id, score, total, duration_used_seconds, created_at_unix_nano)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, a.QuizID, a.UserID, a.Score, a.Total, nullableInt(a.DurationUsedSeconds), created.UnixNano(),
	); err != nil {
		return "", fmt.Errorf("insert attempt: %w", err)
	}
	return id, nil
}

func (s *Store) InsertAttemptAnswers(ctx context.Context, rows []domain.AttemptAnswer) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin answers: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO attempt_answers (attempt_id, question_id, selected_option_id, answer_text, is_correct)
		 VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare answers: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r.AttemptID, r.QuestionID,
			nullableString(r.SelectedOptionID), nullableString(r.AnswerText), nullableBool(r.Correct),
		); err != nil {
			return fmt.Errorf("insert answer %s: %w", r.QuestionID, err)
		}
	}
	return tx.Commit()
}

func (s *Store) ListAttempts(ctx context.Context, q domain.AttemptQuery) ([]domain.Attempt, error) {
	where, args := attemptWhere(q.Filter)
	order := "DESC"
	if q.Order == domain.OldestFirst {
		order = "ASC"
	}
	query := `SELECT a.id, a.quiz_id, a.user_id, a.score, a.total, a.duration_used_seconds, a.created_at_unix_nano,
	                 COALESCE(z.title, ''), COALESCE(z.kind, '')
	          FROM attempts a LEFT JOIN quizzes z ON z.id = a.quiz_id` + where +
		` ORDER BY a.created_at_unix_nano ` + order + `, a.rowid ` + order
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Attempt, 0)
	for rows.Next() {
		var (
			a        domain.Attempt
			used     sql.NullInt64
			created  int64
			quizKind string
		)
		if err := rows.Scan(&a.ID, &a.QuizID, &a.UserID, &a.Score, &a.Total, &used, &created, &a.QuizTitle, &quizKind); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		if used.Valid {
			u := int(used.Int64)
			a.DurationUsedSeconds = &u
		}
		a.CreatedAt = time.Unix(0, created).UTC()
		a.QuizKind = domain.QuizKind(quizKind)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) CountAttempts(ctx context.Context, f domain.AttemptFilter) (int, error) {
	where, args := attemptWhere(f)
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM attempts a`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count attempts: %w", err)
	}
	return n, nil
}

func attemptWhere(f domain.AttemptFilter) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)
	if f.QuizID != "" {
		conds = append(conds, "a.quiz_id = ?")
		args = append(args, f.QuizID)
	}
	if f.UserID != "" {
		conds = append(conds, "a.user_id = ?")
		args = append(args, f.UserID)
	}
	if !f.Since.IsZero() {
		conds = append(conds, "a.created_at_unix_nano >= ?")
		args = append(args, f.Since.UnixNano())
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func nullableString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func nullableBool(v *bool) sql.NullBool {
	if v == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *v, Valid: true}
}
