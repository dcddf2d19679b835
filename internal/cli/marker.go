package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/arucal/internal/dictionary"
	"github.com/danieljhkim/arucal/internal/engine"
)

var (
	markerDictionary string
	markerSize       int
	markerInverted   bool
	markerBorder     int
	markerOutput     string
)

var markerCmd = &cobra.Command{
	Use:   "marker <id>",
	Short: "Generate a single marker",
	Long: `Generate the image of one marker.

If the image already exists you are asked whether to overwrite it, skip it
or keep both. Keeping both writes marker<id>_<n>.jpg with the lowest free n.`,
	Example: `  arucal marker 7
  arucal marker 7 --dictionary DICT_4X4_50 --size 400 --inverted`,
	Args: cobra.ExactArgs(1),
	RunE: runMarker,
}

func runMarker(cmd *cobra.Command, args []string) error {
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid marker id %q: must be an integer", args[0])
	}

	s, err := newSession(cmd)
	if err != nil {
		return err
	}

	dict, err := dictionary.Parse(stringFlag(cmd, "dictionary", markerDictionary, s.cfg.Dictionary))
	if err != nil {
		return err
	}

	size := s.cfg.MarkerSize
	if cmd.Flags().Changed("size") {
		size = markerSize
	}

	result, err := s.eng.GenerateMarker(context.Background(), &engine.GenerateMarkerRequest{
		Dictionary: dict,
		ID:         id,
		Size:       size,
		Inverted:   markerInverted,
		Border:     markerBorder,
		OutputDir:  markerOutput,
	})
	if err != nil {
		return err
	}

	if jsonOutput {
		return outputJSON(cmd.OutOrStdout(), markerFile{
			ID:     result.ID,
			Action: result.Resolution.Action.String(),
			Path:   result.Resolution.Path,
		})
	}

	if result.SizeAdjusted {
		PrintWarning(fmt.Sprintf("Bad image size: %d. Must be a multiple of marker dimension. Resized to %d.", size, result.Size))
	}
	if result.Resolution.Action.Writes() {
		PrintSuccess(describeOutcome(result.ID, result.Resolution))
		PrintLabelValue("Path", result.Resolution.Path)
	} else {
		PrintInfo(describeOutcome(result.ID, result.Resolution))
	}
	return nil
}

func init() {
	markerCmd.Flags().StringVarP(&markerDictionary, "dictionary", "d", "", "Dictionary name (default from arucal.yaml)")
	markerCmd.Flags().IntVarP(&markerSize, "size", "s", 0, "Marker image size in pixels (default from arucal.yaml)")
	markerCmd.Flags().BoolVarP(&markerInverted, "inverted", "i", false, "Invert marker colors")
	markerCmd.Flags().IntVarP(&markerBorder, "border", "b", 0, "Border thickness in pixels")
	markerCmd.Flags().StringVarP(&markerOutput, "output", "o", "", "Output directory (default markers/)")
}
