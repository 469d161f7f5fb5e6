package cli

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"quiz-assessment-service/internal/analytics"
	"quiz-assessment-service/internal/config"
	"quiz-assessment-service/internal/logger"
)

// NewStatsCmd prints an aggregate for a scope as JSON.
func NewStatsCmd(configPath *string) *cobra.Command {
	var (
		quizID string
		userID string
		days   int
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print attempt statistics for the platform, a quiz or a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger.SetupWriter(os.Stderr, cfg.Log.Level)

			b, err := openBackend(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer b.Close()

			if days <= 0 {
				days = cfg.Analytics.WindowDays
			}
			agg, err := b.engine(cfg).Compute(cmd.Context(),
				analytics.Scope{QuizID: quizID, UserID: userID},
				analytics.Window{Days: days},
			)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(agg)
		},
	}
	cmd.Flags().StringVar(&quizID, "quiz", "", "restrict to one quiz")
	cmd.Flags().StringVar(&userID, "user", "", "restrict to one user")
	cmd.Flags().IntVar(&days, "days", 0, "trailing window for daily counts (default 7)")
	return cmd
}
