package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/arucal/internal/dictionary"
)

var dictionariesCmd = &cobra.Command{
	Use:     "dictionaries",
	Aliases: []string{"dicts"},
	Short:   "List the predefined marker dictionaries",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		all := dictionary.All()

		if jsonOutput {
			return outputJSON(cmd.OutOrStdout(), all)
		}

		PrintSection("Dictionaries")
		rows := make([][]string, 0, len(all))
		for _, d := range all {
			rows = append(rows, []string{
				d.Name,
				fmt.Sprintf("%dx%d", d.BitDimension, d.BitDimension),
				fmt.Sprintf("%d", d.Capacity),
			})
		}
		PrintTable([]string{"NAME", "BITS", "MARKERS"}, rows)
		fmt.Println()
		PrintInfo(fmt.Sprintf("Total: %s", PrintCount(len(all), "dictionary", "dictionaries")))
		return nil
	},
}
