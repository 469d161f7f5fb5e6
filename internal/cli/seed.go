package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"quiz-assessment-service/internal/config"
	"quiz-assessment-service/internal/domain"
	"quiz-assessment-service/internal/logger"
)

// contentSeeder is implemented by the database-backed stores.
type contentSeeder interface {
	SeedContent(ctx context.Context, content domain.QuizContent) error
}

type contentInvalidator interface {
	Invalidate(ctx context.Context, quizID string) error
}

// NewSeedCmd loads quiz content into the configured database.
func NewSeedCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load quiz content into Postgres or SQLite",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger.SetupWriter(os.Stderr, cfg.Log.Level)

			contents := sampleQuizzes()
			if file != "" {
				if contents, err = readQuizFile(file); err != nil {
					return err
				}
			}

			b, err := openBackend(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer b.Close()

			seeder, ok := b.store.(contentSeeder)
			if !ok {
				return errors.New("seed requires postgres or sqlite")
			}
			repo := b.quizRepository(cfg)
			for _, content := range contents {
				if err := seeder.SeedContent(cmd.Context(), content); err != nil {
					return fmt.Errorf("seed %s: %w", content.Quiz.ID, err)
				}
				// running services may hold the previous version in redis
				if inv, ok := repo.(contentInvalidator); ok {
					if err := inv.Invalidate(cmd.Context(), content.Quiz.ID); err != nil {
						slog.Warn("invalidate cached quiz", "quiz", content.Quiz.ID, "err", err)
					}
				}
				slog.Info("quiz seeded", "quiz", content.Quiz.ID, "questions", len(content.Questions))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "JSON file with a list of quizzes (defaults to the built-in samples)")
	return cmd
}

func readQuizFile(path string) ([]domain.QuizContent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var contents []domain.QuizContent
	if err := json.Unmarshal(data, &contents); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for i, content := range contents {
		if content.Quiz.ID == "" {
			return nil, fmt.Errorf("parse %s: quiz %d has no id", path, i)
		}
	}
	return contents, nil
}
