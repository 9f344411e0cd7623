package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"reviewhub/internal/installer"
	"reviewhub/internal/manifest"
	"reviewhub/internal/notifications"
	"reviewhub/internal/review"
)

func newCreateCommand(ctx *commandContext) *cobra.Command {
	var reviewType string
	var lang string
	var withAudio bool
	var withVisual bool
	var assumeYes bool

	cmd := &cobra.Command{
		Use:   "create <document.md>",
		Short: "Generate a review from a markdown document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			engines, manager, err := ctx.buildEngines()
			if err != nil {
				return err
			}
			defer manager.Close()

			out := cmd.OutOrStdout()
			pipeline := review.NewPipeline(cfg, logger, engines, notifications.NewService(cfg), scriptedWalkthrough)
			m, err := pipeline.Generate(cmd.Context(), review.GenerateOptions{
				SourcePath: args[0],
				ReviewType: manifest.ReviewType(reviewType),
				Language:   lang,
				WithAudio:  withAudio,
				WithVisual: withVisual,
				Callbacks: review.Callbacks{
					Progress: func(message string) { fmt.Fprintln(out, message) },
					Confirm:  newConfirmFunc(cmd.InOrStdin(), out, assumeYes),
				},
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Created %s (%d sections)\n", m.ID, len(m.Sections))
			if m.Audio != nil {
				fmt.Fprintf(out, "Audio: %s (%.1fs)\n", m.Audio.File, m.Audio.Duration)
			}
			fmt.Fprintf(out, "Run `reviewhub serve %s` to start the review session\n", m.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&reviewType, "type", "t", string(manifest.ReviewTypeProductRequirements), "Review type (product-requirements or design)")
	cmd.Flags().StringVarP(&lang, "language", "l", "en", "Narration language (BCP 47 code)")
	cmd.Flags().BoolVar(&withAudio, "audio", true, "Synthesize an audio walkthrough")
	cmd.Flags().BoolVar(&withVisual, "visual", true, "Produce the visual review view")
	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Answer yes to installation prompts")
	return cmd
}

// newConfirmFunc builds the installer confirmation hook. With assumeYes it
// approves silently; otherwise it prompts on the command's streams.
func newConfirmFunc(in io.Reader, out io.Writer, assumeYes bool) installer.ConfirmFunc {
	reader := bufio.NewReader(in)
	return func(title, message string) bool {
		if assumeYes {
			return true
		}
		fmt.Fprintf(out, "%s\n%s\nProceed? [y/N]: ", title, message)
		line, err := reader.ReadString('\n')
		if err != nil {
			return false
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes"
	}
}
