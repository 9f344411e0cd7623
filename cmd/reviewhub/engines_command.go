package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newEnginesCommand(ctx *commandContext) *cobra.Command {
	enginesCmd := &cobra.Command{
		Use:   "engines",
		Short: "Synthesis engine utilities",
		RunE: func(cmd *cobra.Command, args []string) error {
			engines, manager, err := ctx.buildEngines()
			if err != nil {
				return err
			}
			defer manager.Close()

			rows := make([][]string, 0, len(engines))
			for _, engine := range engines {
				rows = append(rows, []string{
					engine.Name(),
					strings.Join(engine.SupportedLanguages(), ", "),
					yesNo(engine.IsAvailable(cmd.Context())),
				})
			}

			out := cmd.OutOrStdout()
			headers := []string{"Engine", "Languages", "Installed"}
			aligns := []columnAlignment{alignLeft, alignLeft, alignLeft}
			fmt.Fprintln(out, renderTable(out, headers, rows, aligns))
			return nil
		},
	}

	enginesCmd.AddCommand(newEnginesInstallCommand(ctx))
	return enginesCmd
}

func newEnginesInstallCommand(ctx *commandContext) *cobra.Command {
	var assumeYes bool

	cmd := &cobra.Command{
		Use:   "install <engine>",
		Short: "Install a synthesis engine's dependencies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engines, manager, err := ctx.buildEngines()
			if err != nil {
				return err
			}
			defer manager.Close()

			out := cmd.OutOrStdout()
			for _, engine := range engines {
				if engine.Name() != args[0] {
					continue
				}
				if engine.IsAvailable(cmd.Context()) {
					fmt.Fprintf(out, "%s is already installed\n", engine.Name())
					return nil
				}
				progress := func(message string) { fmt.Fprintln(out, message) }
				confirm := newConfirmFunc(cmd.InOrStdin(), out, assumeYes)
				if err := engine.Install(cmd.Context(), progress, confirm); err != nil {
					return err
				}
				fmt.Fprintf(out, "%s installed\n", engine.Name())
				return nil
			}
			return fmt.Errorf("unknown engine %q", args[0])
		},
	}

	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Answer yes to installation prompts")
	return cmd
}
