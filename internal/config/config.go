package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/danieljhkim/arucal/internal/dictionary"
	"github.com/danieljhkim/arucal/internal/vision"
)

// Defaults match the layout of the printed calibration board and the
// marker sheets the tool has always produced.
const (
	DefaultDictionary      = "DICT_5X5_50"
	DefaultMarkerSize      = 420
	DefaultSquaresX        = 12
	DefaultSquaresY        = 8
	DefaultSquareLength    = 0.02
	DefaultMarkerLength    = 0.015
	DefaultBoardDictionary = "DICT_5X5_1000"
)

// DefaultSnapshotExtensions lists the image extensions picked up from the
// snapshot directory.
var DefaultSnapshotExtensions = []string{".jpg"}

// Config is the project configuration loaded from arucal.yaml.
type Config struct {
	Dictionary         string      `yaml:"dictionary"`
	MarkerSize         int         `yaml:"markerSize"`
	SnapshotExtensions []string    `yaml:"snapshotExtensions"`
	Board              BoardConfig `yaml:"board"`
}

// BoardConfig describes the Charuco board used for calibration.
type BoardConfig struct {
	SquaresX      int     `yaml:"squaresX"`
	SquaresY      int     `yaml:"squaresY"`
	SquareLength  float64 `yaml:"squareLength"`
	MarkerLength  float64 `yaml:"markerLength"`
	Dictionary    string  `yaml:"dictionary"`
	LegacyPattern *bool   `yaml:"legacyPattern"`
}

// Default returns the configuration used when no arucal.yaml exists.
func Default() *Config {
	legacy := true
	return &Config{
		Dictionary:         DefaultDictionary,
		MarkerSize:         DefaultMarkerSize,
		SnapshotExtensions: append([]string(nil), DefaultSnapshotExtensions...),
		Board: BoardConfig{
			SquaresX:      DefaultSquaresX,
			SquaresY:      DefaultSquaresY,
			SquareLength:  DefaultSquareLength,
			MarkerLength:  DefaultMarkerLength,
			Dictionary:    DefaultBoardDictionary,
			LegacyPattern: &legacy,
		},
	}
}

// Load reads the config at path. A missing file yields Default(); keys
// absent from the file keep their default values.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that every value can be used as-is.
func (c *Config) Validate() error {
	if _, err := c.MarkerDictionary(); err != nil {
		return err
	}
	if c.MarkerSize <= 0 {
		return fmt.Errorf("markerSize must be positive, got %d", c.MarkerSize)
	}
	for _, ext := range c.SnapshotExtensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			return fmt.Errorf("snapshot extension %q must look like .jpg", ext)
		}
	}
	board, err := c.CharucoBoard()
	if err != nil {
		return err
	}
	return board.Validate()
}

// MarkerDictionary returns the dictionary used for marker sheets.
func (c *Config) MarkerDictionary() (dictionary.ID, error) {
	return dictionary.Parse(c.Dictionary)
}

// Extensions returns the snapshot extension filter, lower-cased.
func (c *Config) Extensions() []string {
	exts := c.SnapshotExtensions
	if len(exts) == 0 {
		exts = DefaultSnapshotExtensions
	}
	out := make([]string, len(exts))
	for i, ext := range exts {
		out[i] = strings.ToLower(ext)
	}
	return out
}

// CharucoBoard converts the board section into board geometry.
func (c *Config) CharucoBoard() (vision.Board, error) {
	id, err := dictionary.Parse(c.Board.Dictionary)
	if err != nil {
		return vision.Board{}, fmt.Errorf("board: %w", err)
	}
	legacy := true
	if c.Board.LegacyPattern != nil {
		legacy = *c.Board.LegacyPattern
	}
	return vision.Board{
		SquaresX:      c.Board.SquaresX,
		SquaresY:      c.Board.SquaresY,
		SquareLength:  c.Board.SquareLength,
		MarkerLength:  c.Board.MarkerLength,
		Dictionary:    id,
		LegacyPattern: legacy,
	}, nil
}
