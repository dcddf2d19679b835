package engine

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/danieljhkim/arucal/internal/dictionary"
	"github.com/danieljhkim/arucal/internal/fsops"
	"github.com/danieljhkim/arucal/internal/planner"
	"github.com/danieljhkim/arucal/internal/vision"
)

// GenerateMarker generates a single marker image.
//
// Algorithm steps:
// 1. Preliminary checks (dictionary, size, border, output directory)
// 2. Check the id is inside the dictionary
// 3. Round the size up to a multiple of the bit dimension
// 4. Resolve the target file, asking the decider if it exists
// 5. Render and write unless the decision was to skip
func (e *Engine) GenerateMarker(ctx context.Context, req *GenerateMarkerRequest) (*GenerateMarkerResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	spec, dir, err := e.preflight(req.Dictionary, req.Size, req.Border, req.OutputDir)
	if err != nil {
		return nil, err
	}

	if req.ID < 0 || req.ID >= spec.Capacity {
		return nil, fmt.Errorf("%w: marker ID must be in the range 0 to %d, got %d", ErrMarkerOutOfRange, spec.Capacity-1, req.ID)
	}

	size, adjusted := planner.NormalizeSize(req.Size, spec.BitDimension)

	target := filepath.Join(dir, e.naming.Filename(req.ID, req.Inverted))
	res, err := planner.NewResolver(e.fs, e.decider).Resolve(target, planner.PolicyNone)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", target, err)
	}

	if res.Action.Writes() {
		marker := e.marker(spec, req.ID, size, req.Inverted, req.Border)
		if err := e.emit(marker, res.Path); err != nil {
			return nil, err
		}
	}

	return &GenerateMarkerResult{
		ID:           req.ID,
		Resolution:   res,
		Size:         size,
		SizeAdjusted: adjusted,
	}, nil
}

// PlanGeneration runs the preliminary checks and plans a batch without
// writing anything. The plan can be handed back through
// GenerateBatchRequest.Plan so the output directory is scanned only once.
func (e *Engine) PlanGeneration(req *GenerateBatchRequest) (*planner.BatchPlan, error) {
	spec, dir, err := e.preflight(req.Dictionary, req.Size, req.Border, req.OutputDir)
	if err != nil {
		return nil, err
	}

	plan, err := planner.BuildBatchPlan(e.fs, e.naming, dir, spec, req.Count, req.Inverted)
	if err != nil {
		return nil, fmt.Errorf("failed to plan batch: %w", err)
	}
	return plan, nil
}

// GenerateBatch generates an evenly spread set of markers.
//
// Algorithm steps:
// 1. Preliminary checks
// 2. Plan ids and scan the output directory once (unless a plan is given)
// 3. If planned ids already exist and no policy was preset, ask the decider
//    for one batch-wide policy
// 4. Resolve and emit every marker under that policy
// 5. Return counters
//
// On an emission failure the partial result is returned with the error.
func (e *Engine) GenerateBatch(ctx context.Context, req *GenerateBatchRequest) (*GenerateBatchResult, error) {
	spec, dir, err := e.preflight(req.Dictionary, req.Size, req.Border, req.OutputDir)
	if err != nil {
		return nil, err
	}

	plan := req.Plan
	if plan == nil {
		plan, err = planner.BuildBatchPlan(e.fs, e.naming, dir, spec, req.Count, req.Inverted)
		if err != nil {
			return nil, fmt.Errorf("failed to plan batch: %w", err)
		}
	} else if plan.Dictionary.ID != spec.ID {
		return nil, fmt.Errorf("plan was built for %s, not %s", plan.Dictionary.Name, spec.Name)
	}

	policy := req.Policy
	if policy == planner.PolicyNone && plan.HasConflicts() {
		if e.decider == nil {
			return nil, fmt.Errorf("%w: markers %v already exist", planner.ErrNoDecision, plan.Conflicts)
		}
		policy, err = e.decider.BatchPolicy(plan.Conflicts)
		if err != nil {
			return nil, fmt.Errorf("failed to get batch policy: %w", err)
		}
	}

	size, adjusted := planner.NormalizeSize(req.Size, spec.BitDimension)
	result := &GenerateBatchResult{
		Plan:         plan,
		Policy:       policy,
		Size:         size,
		SizeAdjusted: adjusted,
		Outcomes:     make([]MarkerOutcome, 0, len(plan.IDs)),
	}

	resolver := planner.NewResolver(e.fs, e.decider)
	for i, id := range plan.IDs {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		target := filepath.Join(dir, e.naming.Filename(id, req.Inverted))
		res, err := resolver.Resolve(target, policy)
		if err != nil {
			return result, fmt.Errorf("failed to resolve %s: %w", target, err)
		}

		if res.Action.Writes() {
			if err := e.emit(e.marker(spec, id, size, req.Inverted, req.Border), res.Path); err != nil {
				return result, err
			}
		}

		switch res.Action {
		case planner.ActionCreate:
			result.Generated++
		case planner.ActionOverwrite:
			result.Generated++
			result.Overwritten++
		case planner.ActionKeepBoth:
			result.Generated++
			result.KeptBoth++
		case planner.ActionSkip:
			result.Skipped++
		}

		outcome := MarkerOutcome{Index: i + 1, Total: len(plan.IDs), ID: id, Resolution: res}
		result.Outcomes = append(result.Outcomes, outcome)
		if req.OnMarker != nil {
			req.OnMarker(outcome)
		}
	}

	return result, nil
}

// preflight validates the generation parameters and makes sure the output
// directory exists. It returns the dictionary spec and the resolved directory.
func (e *Engine) preflight(id dictionary.ID, size, border int, outputDir string) (dictionary.Spec, string, error) {
	spec, ok := dictionary.Lookup(id)
	if !ok {
		return dictionary.Spec{}, "", fmt.Errorf("%w: %s", ErrUnknownDictionary, id)
	}
	if spec.Capacity < 1 {
		return dictionary.Spec{}, "", fmt.Errorf("%w: %s", ErrEmptyDictionary, spec.Name)
	}
	if size <= 0 {
		return dictionary.Spec{}, "", fmt.Errorf("%w: got %d", ErrInvalidSize, size)
	}
	if border < 0 {
		return dictionary.Spec{}, "", fmt.Errorf("%w: got %d", ErrInvalidBorder, border)
	}

	dir := resolvePath(outputDir, e.configPaths.Root, e.configPaths.Markers)
	if err := fsops.EnsureDir(e.fs, dir); err != nil {
		return dictionary.Spec{}, "", fmt.Errorf("%w: %v", ErrOutputDir, err)
	}
	return spec, dir, nil
}

func (e *Engine) marker(spec dictionary.Spec, id, size int, inverted bool, border int) vision.Marker {
	return vision.Marker{
		Dictionary: spec.ID,
		ID:         id,
		SizePx:     size,
		Inverted:   inverted,
		Border:     border,
		Format:     e.naming.Ext,
	}
}
