package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/arucal/internal/clock"
	"github.com/danieljhkim/arucal/internal/config"
	"github.com/danieljhkim/arucal/internal/engine"
	"github.com/danieljhkim/arucal/internal/fsops"
	"github.com/danieljhkim/arucal/internal/prompt"
	"github.com/danieljhkim/arucal/internal/vision"
)

// visionBackend renders, detects and solves. It is installed by main so that
// only the binary links against the vision library.
var visionBackend vision.Backend

// SetBackend installs the vision backend used by all commands.
func SetBackend(b vision.Backend) {
	visionBackend = b
}

// session bundles what a command needs to run.
type session struct {
	eng     *engine.Engine
	cfg     *config.Config
	paths   *config.Paths
	console *prompt.Console
}

// newSession creates an engine with real implementations of all dependencies.
// Interactive questions are read from the command's input and written to its
// error stream, leaving standard output to the command's result.
func newSession(cmd *cobra.Command) (*session, error) {
	paths, err := config.DefaultPaths()
	if err != nil {
		return nil, fmt.Errorf("failed to get config paths: %w", err)
	}

	cfg, err := config.Load(paths.Config)
	if err != nil {
		return nil, err
	}

	if visionBackend == nil {
		return nil, errors.New("no vision backend configured")
	}

	console := prompt.NewConsole(cmd.InOrStdin(), cmd.ErrOrStderr())
	eng := engine.New(fsops.NewRealFS(), visionBackend, console, &clock.RealClock{}, *paths)

	return &session{
		eng:     eng,
		cfg:     cfg,
		paths:   paths,
		console: console,
	}, nil
}

// stringFlag returns the flag value if set on the command line, else def.
func stringFlag(cmd *cobra.Command, name, value, def string) string {
	if cmd.Flags().Changed(name) {
		return value
	}
	return def
}

// formatJSON formats a value as JSON.
func formatJSON(v interface{}) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// outputJSON writes a value as indented JSON to w.
func outputJSON(w io.Writer, v interface{}) error {
	out, err := formatJSON(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, out)
	return err
}
