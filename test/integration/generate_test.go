package integration

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/danieljhkim/arucal/internal/dictionary"
	"github.com/danieljhkim/arucal/internal/engine"
	"github.com/danieljhkim/arucal/internal/planner"
)

func TestGenerateBatch_FullCycle(t *testing.T) {
	eng, paths := setupTestEngine(t, "")
	ctx := context.Background()

	req := &engine.GenerateBatchRequest{
		Dictionary: dictionary.Dict4x4_50,
		Count:      5,
		Size:       402,
		Border:     10,
	}

	plan, err := eng.PlanGeneration(req)
	if err != nil {
		t.Fatalf("PlanGeneration() error = %v", err)
	}
	if want := []int{0, 12, 24, 36, 48}; !reflect.DeepEqual(plan.IDs, want) {
		t.Fatalf("plan IDs = %v, want %v", plan.IDs, want)
	}

	req.Plan = plan
	result, err := eng.GenerateBatch(ctx, req)
	if err != nil {
		t.Fatalf("GenerateBatch() error = %v", err)
	}

	if result.Generated != 5 || result.Skipped != 0 {
		t.Errorf("generated=%d skipped=%d, want 5 and 0", result.Generated, result.Skipped)
	}
	if !result.SizeAdjusted || result.Size != 404 {
		t.Errorf("size = %d (adjusted=%v), want 404 adjusted", result.Size, result.SizeAdjusted)
	}

	want := []string{"marker0.jpg", "marker12.jpg", "marker24.jpg", "marker36.jpg", "marker48.jpg"}
	if got := listDir(t, paths.Markers); !reflect.DeepEqual(got, want) {
		t.Errorf("markers = %v, want %v", got, want)
	}
	if got := readFile(t, filepath.Join(paths.Markers, "marker12.jpg")); got != "DICT_4X4_50/12/404px/inv=false/border=10" {
		t.Errorf("marker12 content = %q", got)
	}
}

func TestGenerateMarker_KeepBothTwice(t *testing.T) {
	eng, paths := setupTestEngine(t, "k\nk\n")
	ctx := context.Background()

	writeFile(t, filepath.Join(paths.Markers, "marker7.jpg"), "original")

	req := &engine.GenerateMarkerRequest{
		Dictionary: dictionary.Dict5x5_50,
		ID:         7,
		Size:       100,
	}

	for _, want := range []string{"marker7_1.jpg", "marker7_2.jpg"} {
		result, err := eng.GenerateMarker(ctx, req)
		if err != nil {
			t.Fatalf("GenerateMarker() error = %v", err)
		}
		if result.Resolution.Action != planner.ActionKeepBoth {
			t.Errorf("action = %v, want keep-both", result.Resolution.Action)
		}
		if got := filepath.Base(result.Resolution.Path); got != want {
			t.Errorf("path = %s, want %s", got, want)
		}
	}

	if got := readFile(t, filepath.Join(paths.Markers, "marker7.jpg")); got != "original" {
		t.Errorf("original marker was modified: %q", got)
	}
}

func TestGenerateBatch_DecidePerMarker(t *testing.T) {
	// batch policy, then marker0 and marker49
	eng, paths := setupTestEngine(t, "d\ns\no\n")
	ctx := context.Background()

	writeFile(t, filepath.Join(paths.Markers, "marker0.jpg"), "old0")
	writeFile(t, filepath.Join(paths.Markers, "marker49.jpg"), "old49")

	result, err := eng.GenerateBatch(ctx, &engine.GenerateBatchRequest{
		Dictionary: dictionary.Dict5x5_50,
		Count:      2,
		Size:       100,
	})
	if err != nil {
		t.Fatalf("GenerateBatch() error = %v", err)
	}

	if result.Policy != planner.PolicyDecidePerItem {
		t.Errorf("policy = %v, want decide-per-item", result.Policy)
	}
	if result.Skipped != 1 || result.Overwritten != 1 {
		t.Errorf("skipped=%d overwritten=%d, want 1 and 1", result.Skipped, result.Overwritten)
	}
	if got := readFile(t, filepath.Join(paths.Markers, "marker0.jpg")); got != "old0" {
		t.Errorf("marker0 = %q, want untouched", got)
	}
	if got := readFile(t, filepath.Join(paths.Markers, "marker49.jpg")); got == "old49" {
		t.Error("marker49 was not overwritten")
	}
}

func TestGenerateBatch_InvertedIgnoresNormalConflicts(t *testing.T) {
	eng, paths := setupTestEngine(t, "")
	ctx := context.Background()

	writeFile(t, filepath.Join(paths.Markers, "marker0.jpg"), "normal")

	result, err := eng.GenerateBatch(ctx, &engine.GenerateBatchRequest{
		Dictionary: dictionary.Dict5x5_50,
		Count:      1,
		Size:       100,
		Inverted:   true,
	})
	if err != nil {
		t.Fatalf("GenerateBatch() error = %v", err)
	}
	if result.Plan.HasConflicts() {
		t.Errorf("conflicts = %v, want none", result.Plan.Conflicts)
	}

	want := []string{"marker0.jpg", "marker0_INV.jpg"}
	if got := listDir(t, paths.Markers); !reflect.DeepEqual(got, want) {
		t.Errorf("markers = %v, want %v", got, want)
	}
}
