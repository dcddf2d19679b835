package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/arucal/internal/dictionary"
	"github.com/danieljhkim/arucal/internal/engine"
	"github.com/danieljhkim/arucal/internal/planner"
)

var (
	generateDictionary string
	generateCount      int
	generateSize       int
	generateInverted   bool
	generateBorder     int
	generateOutput     string
	generateYes        bool
	generateOnConflict string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate an evenly spread set of markers",
	Long: `Generate marker images spread evenly across a dictionary.

Any parameter not given as a flag is asked for interactively. Markers are
written to markers/ as marker<id>[_INV].jpg. When planned markers already
exist you are asked once how to handle them: overwrite all, skip all, keep
both for all, or decide per marker. --on-conflict preselects the answer.`,
	Example: `  arucal generate
  arucal generate -n 10 --size 420 --yes
  arucal generate -n 20 --inverted --border 20 --on-conflict k`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

func runGenerate(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}

	dict, err := dictionary.Parse(stringFlag(cmd, "dictionary", generateDictionary, s.cfg.Dictionary))
	if err != nil {
		return err
	}

	policy := planner.PolicyNone
	if generateOnConflict != "" {
		if policy, err = planner.ParsePolicy(generateOnConflict); err != nil {
			return fmt.Errorf("--on-conflict: %w", err)
		}
	}

	if !jsonOutput {
		PrintSection("ArUco Marker Generator")
		PrintLabelValue("Dictionary", dict.String())
		PrintLabelValue("Output", displayDir(s.paths.Root, generateOutput, s.paths.Markers))
		fmt.Println()
	}

	req := &engine.GenerateBatchRequest{
		Dictionary: dict,
		Count:      generateCount,
		Size:       generateSize,
		Inverted:   generateInverted,
		Border:     generateBorder,
		OutputDir:  generateOutput,
		Policy:     policy,
	}
	if err := askBatchParameters(cmd, s, req); err != nil {
		return err
	}

	plan, err := s.eng.PlanGeneration(req)
	if err != nil {
		return err
	}
	if !jsonOutput {
		printPlanSummary(plan, req)
	}

	if !generateYes {
		ok, err := s.console.Confirm("Continue?")
		if err != nil {
			return err
		}
		if !ok {
			return engine.ErrCancelled
		}
	}

	req.Plan = plan
	req.OnMarker = func(o engine.MarkerOutcome) {
		if !jsonOutput {
			PrintInfo(fmt.Sprintf(": [%d/%d] %s", o.Index, o.Total, describeOutcome(o.ID, o.Resolution)))
		}
	}

	result, err := s.eng.GenerateBatch(context.Background(), req)
	if err != nil {
		return err
	}

	if jsonOutput {
		return outputJSON(cmd.OutOrStdout(), batchSummary(result))
	}

	PrintSuccess(fmt.Sprintf("%s generated. %s skipped. %s overwritten.",
		countOrNo(result.Generated), countOrNo(result.Skipped), countOrNo(result.Overwritten)))
	return nil
}

// askBatchParameters prompts for every batch parameter not given as a flag.
// A count of zero cancels.
func askBatchParameters(cmd *cobra.Command, s *session, req *engine.GenerateBatchRequest) error {
	var err error
	flags := cmd.Flags()

	if !flags.Changed("count") {
		req.Count, err = s.console.Int("How many markers would you like to generate? (0 to exit)", 0)
		if err != nil {
			return err
		}
		if req.Count == 0 {
			return engine.ErrCancelled
		}
	}

	if !flags.Changed("size") {
		question := fmt.Sprintf("Set the marker image size (in pixels) or press Enter to use the default (%d)", s.cfg.MarkerSize)
		if req.Size, err = s.console.IntOrDefault(question, s.cfg.MarkerSize, 1); err != nil {
			return err
		}
	}

	if !flags.Changed("inverted") {
		if req.Inverted, err = s.console.YesNo("Invert the marker image?", false); err != nil {
			return err
		}
	}

	if !flags.Changed("border") {
		question := "Set the border thickness (in pixels) or press Enter to generate without border"
		if req.Border, err = s.console.IntOrDefault(question, 0, 0); err != nil {
			return err
		}
	}
	return nil
}

func printPlanSummary(plan *planner.BatchPlan, req *engine.GenerateBatchRequest) {
	PrintSuccess("Preliminary checks passed.")

	if plan.Clamped {
		PrintWarning(fmt.Sprintf("Attempting to generate more markers than available (%d). Marker count will be updated.", plan.Dictionary.Capacity))
		PrintInfo("  If you need more markers, pick a larger dictionary.")
	}
	warnSizeAdjustment(req.Size, plan.Dictionary)

	PrintSubsection(fmt.Sprintf("Will generate %s", PrintCount(len(plan.IDs), "marker", "markers")))
	PrintLabelValue("Image size", fmt.Sprintf("%dpx", req.Size))
	PrintLabelValue("Inverted", fmt.Sprintf("%v", req.Inverted))
	PrintLabelValue("Border", borderLabel(req.Border))
}

func warnSizeAdjustment(size int, spec dictionary.Spec) {
	if adjusted, changed := planner.NormalizeSize(size, spec.BitDimension); changed {
		PrintWarning(fmt.Sprintf("Bad image size: %d. Must be a multiple of marker dimension. Resized to %d.", size, adjusted))
		PrintInfo("  To prevent resizing, make sure the image size is a multiple of the marker dimension.")
	}
}

func describeOutcome(id int, res planner.Resolution) string {
	switch res.Action {
	case planner.ActionCreate:
		return fmt.Sprintf("Marker %d generated.", id)
	case planner.ActionOverwrite:
		return fmt.Sprintf("Marker %d overwritten.", id)
	case planner.ActionKeepBoth:
		return fmt.Sprintf("Marker %d saved as a new file (%s).", id, filepath.Base(res.Path))
	case planner.ActionSkip:
		return fmt.Sprintf("Marker %d skipped.", id)
	default:
		return fmt.Sprintf("Marker %d: %s.", id, res.Action)
	}
}

func countOrNo(n int) string {
	if n == 0 {
		return "No markers"
	}
	return PrintCount(n, "marker", "markers")
}

func borderLabel(border int) string {
	if border <= 0 {
		return "none"
	}
	return fmt.Sprintf("%dpx", border)
}

func displayDir(root, flagValue, def string) string {
	if flagValue == "" {
		return def
	}
	if filepath.IsAbs(flagValue) {
		return flagValue
	}
	return filepath.Join(root, flagValue)
}

type markerFile struct {
	ID     int    `json:"id"`
	Action string `json:"action"`
	Path   string `json:"path"`
}

type batchJSON struct {
	Dictionary  string       `json:"dictionary"`
	Policy      string       `json:"policy"`
	Size        int          `json:"size"`
	Generated   int          `json:"generated"`
	Skipped     int          `json:"skipped"`
	Overwritten int          `json:"overwritten"`
	KeptBoth    int          `json:"keptBoth"`
	Markers     []markerFile `json:"markers"`
}

func batchSummary(result *engine.GenerateBatchResult) batchJSON {
	out := batchJSON{
		Dictionary:  result.Plan.Dictionary.Name,
		Policy:      result.Policy.String(),
		Size:        result.Size,
		Generated:   result.Generated,
		Skipped:     result.Skipped,
		Overwritten: result.Overwritten,
		KeptBoth:    result.KeptBoth,
		Markers:     make([]markerFile, 0, len(result.Outcomes)),
	}
	for _, o := range result.Outcomes {
		out.Markers = append(out.Markers, markerFile{
			ID:     o.ID,
			Action: o.Resolution.Action.String(),
			Path:   o.Resolution.Path,
		})
	}
	return out
}

func init() {
	generateCmd.Flags().StringVarP(&generateDictionary, "dictionary", "d", "", "Dictionary name, e.g. DICT_5X5_50 (default from arucal.yaml)")
	generateCmd.Flags().IntVarP(&generateCount, "count", "n", 0, "Number of markers to generate")
	generateCmd.Flags().IntVarP(&generateSize, "size", "s", 0, "Marker image size in pixels")
	generateCmd.Flags().BoolVarP(&generateInverted, "inverted", "i", false, "Invert marker colors")
	generateCmd.Flags().IntVarP(&generateBorder, "border", "b", 0, "Border thickness in pixels")
	generateCmd.Flags().StringVarP(&generateOutput, "output", "o", "", "Output directory (default markers/)")
	generateCmd.Flags().BoolVarP(&generateYes, "yes", "y", false, "Skip the confirmation prompt")
	generateCmd.Flags().StringVar(&generateOnConflict, "on-conflict", "", "Policy for existing markers: o(verwrite), s(kip), k(eep both), d(ecide per marker)")
}
