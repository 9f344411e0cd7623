package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show [review-id]",
		Short: "Show review details",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var id string
			if len(args) > 0 {
				id = args[0]
			}
			m, path, err := ctx.resolveReview(id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:       %s\n", m.ID)
			fmt.Fprintf(out, "Source:   %s\n", m.Source)
			fmt.Fprintf(out, "Type:     %s\n", m.ReviewType)
			fmt.Fprintf(out, "Language: %s\n", m.Language)
			fmt.Fprintf(out, "Status:   %s\n", m.Status)
			fmt.Fprintf(out, "Manifest: %s\n", path)
			if m.Audio != nil {
				fmt.Fprintf(out, "Audio:    %s (%.1fs)\n", m.Audio.File, m.Audio.Duration)
			}
			if m.CompletedAt != nil {
				fmt.Fprintf(out, "Reviewed: %s\n", m.CompletedAt.Format("2006-01-02 15:04"))
			}

			comments := make(map[string]int, len(m.Comments))
			for _, comment := range m.Comments {
				comments[comment.SectionID]++
			}

			rows := make([][]string, 0, len(m.Sections))
			for _, section := range m.Sections {
				span := "-"
				if section.AudioStartTime != nil && section.AudioEndTime != nil {
					span = fmt.Sprintf("%.1fs-%.1fs", *section.AudioStartTime, *section.AudioEndTime)
				}
				rows = append(rows, []string{
					section.ID,
					strings.Join(section.HeadingPath, " > "),
					fmt.Sprintf("%d-%d", section.SourceLineStart, section.SourceLineEnd),
					span,
					strconv.Itoa(comments[section.ID]),
				})
			}

			headers := []string{"Section", "Heading", "Lines", "Audio", "Comments"}
			aligns := []columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight}
			fmt.Fprintln(out, renderTable(out, headers, rows, aligns))
			return nil
		},
	}
}
