package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"reviewhub/internal/notifications"
	"reviewhub/internal/server"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve [review-id]",
		Short: "Serve a review session on loopback",
		Long:  "Serve a review session on loopback. Without an id the most recent review is served.",
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
			m, path, err := ctx.resolveReview(id)
			if err != nil {
				return err
			}

			server.InspectLock(cfg.Server.LockPath, logger)

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := server.New(cfg, path, logger)
			url, err := srv.Start(runCtx)
			if err != nil {
				return err
			}
			defer srv.Stop()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Serving %s at %s\n", m.ID, url)
			fmt.Fprintln(out, "Press Ctrl+C to stop")

			notifier := notifications.NewService(cfg)
			if err := notifier.NotifyReviewReady(runCtx, m.ID, string(m.ReviewType), url); err != nil {
				logger.Warn("review ready notification failed", "error", err)
			}

			<-runCtx.Done()
			fmt.Fprintln(out, "Shutting down")
			return nil
		},
	}
}
