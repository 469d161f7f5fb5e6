package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"quiz-assessment-service/internal/config"
	"quiz-assessment-service/internal/domain"
	"quiz-assessment-service/internal/logger"
)

// NewRollupCmd groups maintenance of the Redis performance rollup.
func NewRollupCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rollup",
		Short: "Maintain the per-quiz performance rollup",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "rebuild",
		Short: "Recompute the Redis rollup from the full attempt history",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger.Setup(cfg.Log.Level)
			if cfg.Redis.Addr == "" {
				return fmt.Errorf("redis addr not configured")
			}

			b, err := openBackend(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer b.Close()

			attempts, err := b.store.ListAttempts(cmd.Context(), domain.AttemptQuery{Order: domain.OldestFirst})
			if err != nil {
				return err
			}
			if err := b.rollup.Rebuild(cmd.Context(), attempts); err != nil {
				return err
			}
			slog.Info("rollup rebuilt", "attempts", len(attempts))
			return nil
		},
	})
	return cmd
}
