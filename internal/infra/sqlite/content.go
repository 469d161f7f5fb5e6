package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"quiz-assessment-service/internal/domain"
)

func (s *Store) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var (
		quiz     domain.Quiz
		kind     string
		duration sql.NullInt64
		created  int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, kind, duration_minutes, created_at_unix_nano FROM quizzes WHERE id = ?`, quizID,
	).Scan(&quiz.ID, &quiz.Title, &kind, &duration, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	quiz.Kind = domain.QuizKind(kind)
	if duration.Valid {
		d := int(duration.Int64)
		quiz.DurationMinutes = &d
	}
	quiz.CreatedAt = time.Unix(0, created).UTC()
	return quiz, nil
}

func (s *Store) ListQuestions(ctx context.Context, quizID string) ([]domain.Question, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, quiz_id, title, body, position FROM questions WHERE quiz_id = ? ORDER BY position`, quizID)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	var out []domain.Question
	for rows.Next() {
		var q domain.Question
		if err := rows.Scan(&q.ID, &q.QuizID, &q.Title, &q.Body, &q.Position); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *Store) ListOptions(ctx context.Context, questionIDs []string) ([]domain.Option, error) {
	if len(questionIDs) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(questionIDs)), ",")
	args := make([]interface{}, len(questionIDs))
	for i, id := range questionIDs {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, question_id, position, text, is_correct FROM options
		 WHERE question_id IN (`+placeholders+`) ORDER BY question_id, position`, args...)
	if err != nil {
		return nil, fmt.Errorf("query options: %w", err)
	}
	defer rows.Close()

	var out []domain.Option
	for rows.Next() {
		var o domain.Option
		if err := rows.Scan(&o.ID, &o.QuestionID, &o.Position, &o.Text, &o.Correct); err != nil {
			return nil, fmt.Errorf("scan option: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// SeedContent replaces a quiz, its questions and options in one transaction.
func (s *Store) SeedContent(ctx context.Context, content domain.QuizContent) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	q := content.Quiz
	created := q.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO quizzes (id, title, kind, duration_minutes, created_at_unix_nano) VALUES (?, ?, ?, ?, ?)`,
		q.ID, q.Title, string(q.Kind), nullableInt(q.DurationMinutes), created.UnixNano(),
	); err != nil {
		return fmt.Errorf("seed quiz: %w", err)
	}
	for _, question := range content.Questions {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO questions (id, quiz_id, title, body, position) VALUES (?, ?, ?, ?, ?)`,
			question.ID, q.ID, question.Title, question.Body, question.Position,
		); err != nil {
			return fmt.Errorf("seed question %s: %w", question.ID, err)
		}
		for _, o := range content.Options[question.ID] {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR REPLACE INTO options (id, question_id, position, text, is_correct) VALUES (?, ?, ?, ?, ?)`,
				o.ID, question.ID, o.Position, o.Text, o.Correct,
			); err != nil {
				return fmt.Errorf("seed option %s: %w", o.ID, err)
			}
		}
	}
	return tx.Commit()
}

func nullableInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
