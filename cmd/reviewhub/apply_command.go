package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"reviewhub/internal/fileutil"
	"reviewhub/internal/notifications"
	"reviewhub/internal/review"
)

func newApplyCommand(ctx *commandContext) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "apply [review-id]",
		Short: "Turn review comments into an edit-instruction prompt",
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

			target := strings.TrimSpace(outputPath)
			if target == "" {
				target = filepath.Join(cfg.Paths.ReviewsDir, m.ID+".prompt.md")
			}

			out := cmd.OutOrStdout()
			executor := func(_ context.Context, prompt string) error {
				return fileutil.WriteAtomic(target, []byte(prompt), 0o644)
			}

			pipeline := review.NewPipeline(cfg, logger, nil, notifications.NewService(cfg), nil)
			result, err := pipeline.Apply(cmd.Context(), m, executor, review.Callbacks{
				Progress: func(message string) { fmt.Fprintln(out, message) },
			})
			if err != nil {
				return err
			}

			fmt.Fprintln(out, result.DiffSummary)
			fmt.Fprintln(out, result.ChangeSummary)
			if result.EditPrompt != "" {
				fmt.Fprintf(out, "Edit prompt written to %s\n", target)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Destination for the edit prompt (defaults to <reviews>/<id>.prompt.md)")
	return cmd
}
