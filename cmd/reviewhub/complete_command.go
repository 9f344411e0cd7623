package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"reviewhub/internal/manifest"
	"reviewhub/internal/notifications"
)

// newCompleteCommand marks a review as finished from the terminal. The
// browser UI offers the same transition through the server.
func newCompleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "complete [review-id]",
		Short: "Mark a review as reviewed",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			var id string
			if len(args) > 0 {
				id = args[0]
			}
			m, _, err := ctx.resolveReview(id)
			if err != nil {
				return err
			}

			if err := m.AdvanceStatus(manifest.StatusReviewed); err != nil {
				return err
			}
			now := time.Now().UTC()
			m.CompletedAt = &now
			if _, err := manifest.Save(m, cfg.Paths.ReviewsDir); err != nil {
				return err
			}

			notifier := notifications.NewService(cfg)
			if err := notifier.NotifyReviewCompleted(cmd.Context(), m.ID, len(m.Comments)); err != nil {
				logger.Warn("review completed notification failed", "error", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s marked reviewed (%d comments)\n", m.ID, len(m.Comments))
			return nil
		},
	}
}
