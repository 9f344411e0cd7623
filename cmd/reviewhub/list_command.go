package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"reviewhub/internal/manifest"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List reviews",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := ctx.listReviewIDs()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(ids) == 0 {
				fmt.Fprintln(out, "No reviews found")
				return nil
			}

			rows := make([][]string, 0, len(ids))
			for _, id := range ids {
				path, err := ctx.manifestPath(id)
				if err != nil {
					return err
				}
				m, err := manifest.Load(path)
				if err != nil {
					return err
				}
				rows = append(rows, []string{
					m.ID,
					string(m.ReviewType),
					m.Language,
					string(m.Status),
					strconv.Itoa(len(m.Sections)),
					strconv.Itoa(len(m.Comments)),
					yesNo(m.Audio != nil),
					m.CreatedAt.Format("2006-01-02 15:04"),
				})
			}

			headers := []string{"ID", "Type", "Lang", "Status", "Sections", "Comments", "Audio", "Created"}
			aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft}
			fmt.Fprintln(out, renderTable(out, headers, rows, aligns))
			return nil
		},
	}
}
