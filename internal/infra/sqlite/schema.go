package sqlite

import (
	"context"
	"fmt"
)

func (s *Store) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS quizzes (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			kind TEXT NOT NULL,
			duration_minutes INTEGER,
			created_at_unix_nano INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS questions (
			id TEXT PRIMARY KEY,
			quiz_id TEXT NOT NULL,
			title TEXT NOT NULL,
			body TEXT NOT NULL DEFAULT '',
			position INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS options (
			id TEXT PRIMARY KEY,
			question_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			text TEXT NOT NULL,
			is_correct INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS attempts (
			id TEXT PRIMARY KEY,
			quiz_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			score INTEGER NOT NULL,
			total INTEGER NOT NULL,
			duration_used_seconds INTEGER,
			created_at_unix_nano INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS attempt_answers (
			attempt_id TEXT NOT NULL,
			question_id TEXT NOT NULL,
			selected_option_id TEXT,
			answer_text TEXT,
			is_correct INTEGER
		);`,
		`CREATE INDEX IF NOT EXISTS idx_questions_quiz ON questions(quiz_id, position);`,
		`CREATE INDEX IF NOT EXISTS idx_options_question ON options(question_id, position);`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_created ON attempts(created_at_unix_nano DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_user ON attempts(user_id, created_at_unix_nano DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_quiz ON attempts(quiz_id, created_at_unix_nano DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_attempt_answers_attempt ON attempt_answers(attempt_id);`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}
