package planner

import (
	"errors"
	"fmt"
	"sort"

	"github.com/danieljhkim/arucal/internal/dictionary"
	"github.com/danieljhkim/arucal/internal/fsops"
)

var (
	// ErrInvalidCount indicates a requested marker count below one.
	ErrInvalidCount = errors.New("marker count must be greater than 0")

	// ErrEmptyDictionary indicates a dictionary without markers.
	ErrEmptyDictionary = errors.New("dictionary does not contain any markers")
)

// BatchPlan is the set of markers a batch will generate.
type BatchPlan struct {
	// Dictionary is the dictionary markers are drawn from
	Dictionary dictionary.Spec

	// Requested is the count the operator asked for
	Requested int

	// IDs are the planned marker ids, strictly increasing
	IDs []int

	// Conflicts are the planned ids that already have an image on disk
	Conflicts []int

	// Clamped is true when Requested exceeded the dictionary capacity
	Clamped bool
}

// HasConflicts returns true if any planned marker already has an image.
func (p *BatchPlan) HasConflicts() bool {
	return len(p.Conflicts) > 0
}

// PlanBatch spreads requested markers evenly across the dictionary.
//
// The count is clamped to the capacity. One marker selects id 0; otherwise
// ids are 0, step, 2*step, ... with step = (capacity-1)/(count-1), so the
// selection covers the whole dictionary instead of a dense prefix of
// similar-looking neighbours.
func PlanBatch(spec dictionary.Spec, requested int) ([]int, error) {
	if spec.Capacity < 1 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDictionary, spec.Name)
	}
	if requested < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCount, requested)
	}

	count := min(requested, spec.Capacity)
	if count == 1 {
		return []int{0}, nil
	}

	step := (spec.Capacity - 1) / (count - 1)
	ids := make([]int, 0, count)
	for id := 0; id < spec.Capacity && len(ids) < count; id += step {
		ids = append(ids, id)
	}
	return ids, nil
}

// ScanExisting returns the ids of marker images of the given polarity found
// in dir. A missing directory yields an empty set.
func ScanExisting(fs fsops.FS, dir string, naming Naming, inverted bool) (map[int]bool, error) {
	existing := make(map[int]bool)

	exists, err := fs.Exists(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to check %s: %w", dir, err)
	}
	if !exists {
		return existing, nil
	}

	entries, err := fs.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	re := naming.Matcher(inverted)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if id, ok := parseWith(re, entry.Name()); ok {
			existing[id] = true
		}
	}
	return existing, nil
}

// BuildBatchPlan plans the ids for a batch and intersects them with the
// markers already present in dir.
//
// The directory is scanned exactly once. Files appearing afterwards are not
// reported as conflicts, but the Resolver still sees them when it checks
// each target.
func BuildBatchPlan(fs fsops.FS, naming Naming, dir string, spec dictionary.Spec, requested int, inverted bool) (*BatchPlan, error) {
	ids, err := PlanBatch(spec, requested)
	if err != nil {
		return nil, err
	}

	existing, err := ScanExisting(fs, dir, naming, inverted)
	if err != nil {
		return nil, err
	}

	plan := &BatchPlan{
		Dictionary: spec,
		Requested:  requested,
		IDs:        ids,
		Conflicts:  []int{},
		Clamped:    requested > spec.Capacity,
	}
	for _, id := range ids {
		if existing[id] {
			plan.Conflicts = append(plan.Conflicts, id)
		}
	}
	sort.Ints(plan.Conflicts)
	return plan, nil
}

// NormalizeSize rounds size up to the next multiple of dimension. The
// boolean reports whether the size changed.
func NormalizeSize(size, dimension int) (int, bool) {
	if dimension <= 0 || size%dimension == 0 {
		return size, false
	}
	return ((size + dimension - 1) / dimension) * dimension, true
}
