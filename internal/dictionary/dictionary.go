// Package dictionary holds the registry of predefined fiducial marker
// dictionaries.
//
// Each dictionary is identified by an ID and described by the bit dimension
// of its markers (4 for a 4x4 grid) and its capacity (how many distinct
// markers it contains). The table is fixed at compile time and read-only.
package dictionary

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknown is returned by Parse for names outside the registry.
var ErrUnknown = errors.New("unknown dictionary")

// ID identifies a predefined dictionary.
type ID int

// Predefined dictionaries, in the order the vision library enumerates them.
const (
	Dict4x4_50 ID = iota
	Dict4x4_100
	Dict4x4_250
	Dict4x4_1000
	Dict5x5_50
	Dict5x5_100
	Dict5x5_250
	Dict5x5_1000
	Dict6x6_50
	Dict6x6_100
	Dict6x6_250
	Dict6x6_1000
	Dict7x7_50
	Dict7x7_100
	Dict7x7_250
	Dict7x7_1000
	DictArucoOriginal
	DictAprilTag16h5
	DictAprilTag25h9
	DictAprilTag36h10
	DictAprilTag36h11
)

// Spec describes a dictionary.
type Spec struct {
	ID ID `json:"-"`

	// Name is the canonical identifier, e.g. DICT_5X5_50
	Name string `json:"name"`

	// BitDimension is the number of bits along one side of a marker
	BitDimension int `json:"bit_dimension"`

	// Capacity is the number of markers in the dictionary
	Capacity int `json:"capacity"`
}

var table = []Spec{
	{Dict4x4_50, "DICT_4X4_50", 4, 50},
	{Dict4x4_100, "DICT_4X4_100", 4, 100},
	{Dict4x4_250, "DICT_4X4_250", 4, 250},
	{Dict4x4_1000, "DICT_4X4_1000", 4, 1000},
	{Dict5x5_50, "DICT_5X5_50", 5, 50},
	{Dict5x5_100, "DICT_5X5_100", 5, 100},
	{Dict5x5_250, "DICT_5X5_250", 5, 250},
	{Dict5x5_1000, "DICT_5X5_1000", 5, 1000},
	{Dict6x6_50, "DICT_6X6_50", 6, 50},
	{Dict6x6_100, "DICT_6X6_100", 6, 100},
	{Dict6x6_250, "DICT_6X6_250", 6, 250},
	{Dict6x6_1000, "DICT_6X6_1000", 6, 1000},
	{Dict7x7_50, "DICT_7X7_50", 7, 50},
	{Dict7x7_100, "DICT_7X7_100", 7, 100},
	{Dict7x7_250, "DICT_7X7_250", 7, 250},
	{Dict7x7_1000, "DICT_7X7_1000", 7, 1000},
	{DictArucoOriginal, "DICT_ARUCO_ORIGINAL", 4, 1024},
	{DictAprilTag16h5, "DICT_APRILTAG_16H5", 4, 16},
	{DictAprilTag25h9, "DICT_APRILTAG_25H9", 4, 25},
	{DictAprilTag36h10, "DICT_APRILTAG_36H10", 4, 36},
	{DictAprilTag36h11, "DICT_APRILTAG_36H11", 4, 36},
}

// byID is built once from table.
var byID = func() map[ID]Spec {
	m := make(map[ID]Spec, len(table))
	for _, s := range table {
		m[s.ID] = s
	}
	return m
}()

// Lookup returns the spec for id. The boolean is false for unknown ids.
func Lookup(id ID) (Spec, bool) {
	s, ok := byID[id]
	return s, ok
}

// All returns every registered dictionary in enumeration order.
func All() []Spec {
	out := make([]Spec, len(table))
	copy(out, table)
	return out
}

// Parse resolves a dictionary name such as "DICT_5X5_50" or "5x5_50".
func Parse(name string) (ID, error) {
	n := strings.ToUpper(strings.TrimSpace(name))
	if n == "" {
		return 0, fmt.Errorf("%w: name is empty", ErrUnknown)
	}
	if !strings.HasPrefix(n, "DICT_") {
		n = "DICT_" + n
	}
	for _, s := range table {
		if s.Name == n {
			return s.ID, nil
		}
	}
	return 0, fmt.Errorf("%w %q", ErrUnknown, name)
}

// String returns the canonical dictionary name.
func (id ID) String() string {
	if s, ok := byID[id]; ok {
		return s.Name
	}
	return fmt.Sprintf("DICT_UNKNOWN(%d)", int(id))
}
