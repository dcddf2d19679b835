package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/danieljhkim/arucal/internal/engine"
)

var (
	calibrateSnapshots    string
	calibrateOutput       string
	calibrateExtensions   []string
	calibrateUndistortDir string
	calibratePreview      bool
)

var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Calibrate the camera from Charuco board snapshots",
	Long: `Compute the camera matrix and distortion coefficients from snapshots of
the printed Charuco board.

Snapshots are read from calibration_snapshots/ in name order. A snapshot
contributes when more than four board corners are found. The result is
written to calibration_data.json, replacing any previous result, only when
the solve succeeds. The board geometry comes from arucal.yaml.`,
	Example: `  arucal calibrate
  arucal calibrate --snapshots shots --ext .jpg --ext .png
  arucal calibrate --undistort-dir undistorted --preview`,
	Args: cobra.NoArgs,
	RunE: runCalibrate,
}

func runCalibrate(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}

	board, err := s.cfg.CharucoBoard()
	if err != nil {
		return fmt.Errorf("%w: %v", engine.ErrInvalidBoard, err)
	}

	exts := s.cfg.Extensions()
	if cmd.Flags().Changed("ext") {
		exts = calibrateExtensions
	}

	if !jsonOutput {
		PrintSection("Charuco Calibration")
		PrintLabelValue("Snapshots", displayDir(s.paths.Root, calibrateSnapshots, s.paths.Snapshots))
		PrintLabelValue("Board", fmt.Sprintf("%dx%d squares, %s", board.SquaresX, board.SquaresY, board.Dictionary))
		fmt.Println()
	}

	var bar *progressbar.ProgressBar
	req := &engine.CalibrateRequest{
		SnapshotDir:  calibrateSnapshots,
		Extensions:   exts,
		Board:        board,
		Output:       calibrateOutput,
		UndistortDir: calibrateUndistortDir,
		Preview:      calibratePreview,
		OnSnapshot: func(r engine.SnapshotResult) {
			if bar == nil {
				bar = progressbar.NewOptions(r.Total,
					progressbar.OptionSetDescription("Detecting"),
					progressbar.OptionSetWriter(cmd.ErrOrStderr()),
					progressbar.OptionShowCount(),
				)
			}
			_ = bar.Add(1)
		},
	}

	result, err := s.eng.Calibrate(context.Background(), req)
	if bar != nil {
		_ = bar.Finish()
		fmt.Fprintln(cmd.ErrOrStderr())
	}
	if result != nil && !jsonOutput {
		printSnapshots(result)
	}
	if err != nil {
		return err
	}

	if jsonOutput {
		return outputJSON(cmd.OutOrStdout(), calibrationSummary(result))
	}

	fmt.Println()
	PrintSuccess(fmt.Sprintf("Calibrated from %s.", PrintCount(result.Samples, "snapshot", "snapshots")))
	PrintLabelValue("Reprojection error", fmt.Sprintf("%.4f px", result.Calibration.ReprojectionError))
	PrintLabelValue("Saved to", result.OutputPath)

	for _, u := range result.Undistorted {
		if u.Err != nil {
			PrintWarning(fmt.Sprintf("%s: %v", u.Name, u.Err))
		}
	}
	if calibrateUndistortDir != "" {
		PrintLabelValue("Undistorted", displayDir(s.paths.Root, calibrateUndistortDir, ""))
	}
	return nil
}

func printSnapshots(result *engine.CalibrateResult) {
	if len(result.Snapshots) == 0 {
		return
	}
	rows := make([][]string, 0, len(result.Snapshots))
	for _, snap := range result.Snapshots {
		note := ""
		if snap.Err != nil {
			note = snap.Err.Error()
		}
		rows = append(rows, []string{
			snap.Name,
			snap.Status.String(),
			fmt.Sprintf("%d", snap.Markers),
			fmt.Sprintf("%d", snap.Corners),
			note,
		})
	}
	PrintTable([]string{"SNAPSHOT", "STATUS", "MARKERS", "CORNERS", "NOTE"}, rows)
}

type snapshotJSON struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Markers int    `json:"markers"`
	Corners int    `json:"corners"`
	Error   string `json:"error,omitempty"`
}

type calibrateJSON struct {
	Output            string         `json:"output"`
	Samples           int            `json:"samples"`
	ReprojectionError float64        `json:"reprojectionError"`
	CalibratedAt      time.Time      `json:"calibratedAt"`
	Snapshots         []snapshotJSON `json:"snapshots"`
}

func calibrationSummary(result *engine.CalibrateResult) calibrateJSON {
	out := calibrateJSON{
		Output:            result.OutputPath,
		Samples:           result.Samples,
		ReprojectionError: result.Calibration.ReprojectionError,
		CalibratedAt:      result.CalibratedAt,
		Snapshots:         make([]snapshotJSON, 0, len(result.Snapshots)),
	}
	for _, snap := range result.Snapshots {
		s := snapshotJSON{
			Name:    snap.Name,
			Status:  snap.Status.String(),
			Markers: snap.Markers,
			Corners: snap.Corners,
		}
		if snap.Err != nil {
			s.Error = snap.Err.Error()
		}
		out.Snapshots = append(out.Snapshots, s)
	}
	return out
}

func init() {
	calibrateCmd.Flags().StringVar(&calibrateSnapshots, "snapshots", "", "Snapshot directory (default calibration_snapshots/)")
	calibrateCmd.Flags().StringVarP(&calibrateOutput, "output", "o", "", "Result file (default calibration_data.json)")
	calibrateCmd.Flags().StringSliceVar(&calibrateExtensions, "ext", nil, "Snapshot file extensions (default from arucal.yaml)")
	calibrateCmd.Flags().StringVar(&calibrateUndistortDir, "undistort-dir", "", "Write undistorted copies of every snapshot here")
	calibrateCmd.Flags().BoolVar(&calibratePreview, "preview", false, "Show each undistorted snapshot in a window")
}
