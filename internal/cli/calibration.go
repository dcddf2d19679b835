package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/arucal/internal/persist"
)

var calibrationFile string

var calibrationCmd = &cobra.Command{
	Use:   "calibration",
	Short: "Inspect stored calibration results",
}

var calibrationShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored calibration",
	Example: `  arucal calibration show
  arucal calibration show --file other/calibration_data.json --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd)
		if err != nil {
			return err
		}

		rec, path, err := s.eng.LoadCalibration(calibrationFile)
		if err != nil {
			return fmt.Errorf("failed to load calibration from %s: %w", path, err)
		}

		if jsonOutput {
			file, err := persist.Encode(rec.Calibration, rec.CalibratedAt)
			if err != nil {
				return err
			}
			return outputJSON(cmd.OutOrStdout(), file)
		}

		cal := rec.Calibration
		PrintSection("Calibration")
		PrintLabelValue("File", path)
		if !rec.CalibratedAt.IsZero() {
			PrintLabelValue("Calibrated at", rec.CalibratedAt.Format(time.RFC3339))
		}
		if cal.ImageSize.Width > 0 {
			PrintLabelValue("Image size", fmt.Sprintf("%dx%d", cal.ImageSize.Width, cal.ImageSize.Height))
		}
		PrintLabelValue("Reprojection error", fmt.Sprintf("%.4f px", cal.ReprojectionError))
		PrintLabelValue("Poses", fmt.Sprintf("%d", len(cal.RVecs)))

		fmt.Println()
		PrintSubsection("Camera matrix")
		for _, row := range cal.CameraMatrix {
			PrintInfo("    " + formatRow(row[:]))
		}
		PrintSubsection("Distortion coefficients")
		PrintInfo("    " + formatRow(cal.DistCoeffs))
		return nil
	},
}

func formatRow(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%12.6f", v)
	}
	return strings.Join(parts, " ")
}

func init() {
	calibrationShowCmd.Flags().StringVarP(&calibrationFile, "file", "f", "", "Result file (default calibration_data.json)")
	calibrationCmd.AddCommand(calibrationShowCmd)
}
