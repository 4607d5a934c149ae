package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"reelplan/internal/snapshot"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "import <snapshot.yaml>",
		Short: "Load a timeline snapshot into the local store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			doc, err := snapshot.LoadFile(args[0])
			if err != nil {
				return err
			}
			summary, err := snapshot.Import(cmd.Context(), store, doc)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, summary)
			}
			rows := [][]string{
				{"Projects", fmt.Sprint(summary.Projects)},
				{"Sequences", fmt.Sprint(summary.Sequences)},
				{"Tracks", fmt.Sprint(summary.Tracks)},
				{"Clips", fmt.Sprint(summary.Clips)},
				{"Transitions", fmt.Sprint(summary.Transitions)},
				{"Assets", fmt.Sprint(summary.Assets)},
				{"Artifacts", fmt.Sprint(summary.Artifacts)},
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %s\n", args[0])
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Entity", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the import summary as JSON")
	return cmd
}
