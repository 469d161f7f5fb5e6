package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-assessment-service/internal/domain"
)

// Store is the Postgres storage collaborator: quiz content reads, attempt
// writes, attempt history reads and the quiz_performance view.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var (
		quiz domain.Quiz
		kind string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, title, kind, duration_minutes, created_at FROM quizzes WHERE id=$1`, quizID,
	).Scan(&quiz.ID, &quiz.Title, &kind, &quiz.DurationMinutes, &quiz.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	quiz.Kind = domain.QuizKind(kind)
	return quiz, nil
}

func (s *Store) ListQuestions(ctx context.Context, quizID string) ([]domain.Question, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, quiz_id, title, body, position FROM questions WHERE quiz_id=$1 ORDER BY position`, quizID)
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
	rows, err := s.pool.Query(ctx,
		`SELECT id, question_id, position, text, is_correct FROM options
		 WHERE question_id = ANY($1) ORDER BY question_id, position`, questionIDs)
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

// SeedContent upserts a quiz with its questions and options in one transaction.
func (s *Store) SeedContent(ctx context.Context, content domain.QuizContent) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	q := content.Quiz
	if _, err := tx.Exec(ctx,
		`INSERT INTO quizzes (id, title, kind, duration_minutes) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, kind=EXCLUDED.kind, duration_minutes=EXCLUDED.duration_minutes`,
		q.ID, q.Title, string(q.Kind), q.DurationMinutes,
	); err != nil {
		return fmt.Errorf("seed quiz: %w", err)
	}

	batch := &pgx.Batch{}
	for _, question := range content.Questions {
		batch.Queue(
			`INSERT INTO questions (id, quiz_id, title, body, position) VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, body=EXCLUDED.body, position=EXCLUDED.position`,
			question.ID, q.ID, question.Title, question.Body, question.Position,
		)
		for _, o := range content.Options[question.ID] {
			batch.Queue(
				`INSERT INTO options (id, question_id, position, text, is_correct) VALUES ($1, $2, $3, $4, $5)
				 ON CONFLICT (id) DO UPDATE SET position=EXCLUDED.position, text=EXCLUDED.text, is_correct=EXCLUDED.is_correct`,
				o.ID, question.ID, o.Position, o.Text, o.Correct,
			)
		}
	}
	if err := execBatch(tx.SendBatch(ctx, batch), batch.Len()); err != nil {
		return fmt.Errorf("seed questions: %w", err)
	}
	return tx.Commit(ctx)
}

func execBatch(br pgx.BatchResults, n int) error {
	defer br.Close()
	for range n {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
