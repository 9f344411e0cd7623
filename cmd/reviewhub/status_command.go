package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"reviewhub/internal/deps"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check system dependencies",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			statuses := deps.CheckSystem(cfg)
			rows := make([][]string, 0, len(statuses))
			allRequired := true
			for _, status := range statuses {
				detail := status.Detail
				if detail == "" {
					detail = "-"
				}
				rows = append(rows, []string{
					status.Name,
					status.Command,
					yesNo(status.Available),
					yesNo(status.Optional),
					detail,
				})
				if !status.Available && !status.Optional {
					allRequired = false
				}
			}

			out := cmd.OutOrStdout()
			headers := []string{"Dependency", "Command", "Available", "Optional", "Detail"}
			aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft}
			fmt.Fprintln(out, renderTable(out, headers, rows, aligns))

			if !allRequired {
				return fmt.Errorf("required dependencies are missing")
			}
			return nil
		},
	}
}
