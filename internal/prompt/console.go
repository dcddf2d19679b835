// Package prompt implements the interactive console used by the marker
// generator: conflict decisions, yes/no questions and integer parameters.
//
// Every question loops until it gets a valid answer. Invalid input is
// reported and the question is asked again; the only way out of a pending
// question without an answer is a closed input stream, which surfaces as
// planner.ErrNoDecision.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/danieljhkim/arucal/internal/planner"
)

var (
	questionColor = color.New(color.FgCyan, color.Bold)
	alertColor    = color.New(color.FgYellow, color.Bold)
	errorColor    = color.New(color.FgRed)
)

// Console asks questions on out and reads answers line by line from in.
// It implements planner.Decider.
type Console struct {
	in  *bufio.Reader
	out io.Writer
}

var _ planner.Decider = (*Console)(nil)

// NewConsole creates a Console.
func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{
		in:  bufio.NewReader(in),
		out: out,
	}
}

// FileDecision asks what to do with one existing marker image.
func (c *Console) FileDecision(path string) (planner.FileAction, error) {
	_, _ = alertColor.Fprintf(c.out, ": [Alert] %s already exists. What would you like to do?\n", path)
	for {
		answer, err := c.ask("(o)verwrite / (s)kip / (k)eep both")
		if err != nil {
			return 0, err
		}
		action, err := planner.ParseFileAction(answer)
		if err == nil {
			return action, nil
		}
		c.invalid(answer)
	}
}

// BatchPolicy asks for the blanket policy of a batch with conflicts.
func (c *Console) BatchPolicy(conflicting []int) (planner.Policy, error) {
	_, _ = alertColor.Fprintf(c.out, ": [Alert] The following markers already exist and may be overwritten: %v. What would you like to do?\n", conflicting)
	for {
		answer, err := c.ask("(o)verwrite all / (s)kip all / (k)eep both for all / (d)ecide per marker")
		if err != nil {
			return planner.PolicyNone, err
		}
		policy, err := planner.ParsePolicy(answer)
		if err == nil {
			return policy, nil
		}
		c.invalid(answer)
	}
}

// Confirm asks a yes/no question that has no default.
func (c *Console) Confirm(question string) (bool, error) {
	for {
		answer, err := c.ask(question + " (y/n)")
		if err != nil {
			return false, err
		}
		if yes, ok := parseYesNo(answer); ok {
			return yes, nil
		}
		c.errorf("Invalid input. Please enter 'y' or 'n'.")
	}
}

// YesNo asks a yes/no question where a blank answer means def.
func (c *Console) YesNo(question string, def bool) (bool, error) {
	hint := "y/n, default: n"
	if def {
		hint = "y/n, default: y"
	}
	for {
		answer, err := c.ask(fmt.Sprintf("%s (%s)", question, hint))
		if err != nil {
			return false, err
		}
		if answer == "" {
			return def, nil
		}
		if yes, ok := parseYesNo(answer); ok {
			return yes, nil
		}
		c.errorf("Invalid input. Please enter 'y' or 'n'.")
	}
}

// Int asks for an integer >= min. There is no default.
func (c *Console) Int(question string, min int) (int, error) {
	for {
		answer, err := c.ask(question)
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(answer)
		if err != nil || n < min {
			c.errorf("Value must be an integer of at least %d.", min)
			continue
		}
		return n, nil
	}
}

// IntOrDefault asks for an integer >= min where a blank answer means def.
func (c *Console) IntOrDefault(question string, def, min int) (int, error) {
	for {
		answer, err := c.ask(question)
		if err != nil {
			return 0, err
		}
		if answer == "" {
			return def, nil
		}
		n, err := strconv.Atoi(answer)
		if err != nil || n < min {
			c.errorf("Value must be an integer of at least %d. Press Enter to use the default (%d).", min, def)
			continue
		}
		return n, nil
	}
}

// ask prints the question and returns the trimmed, lower-cased answer.
func (c *Console) ask(question string) (string, error) {
	_, _ = questionColor.Fprintf(c.out, ">> %s: ", question)
	line, err := c.in.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("failed to read answer: %w", err)
		}
		if line == "" {
			_, _ = fmt.Fprintln(c.out)
			return "", fmt.Errorf("%w: input closed", planner.ErrNoDecision)
		}
	}
	return strings.ToLower(strings.TrimSpace(line)), nil
}

func (c *Console) invalid(answer string) {
	c.errorf("Command '%s' is not a valid option.", answer)
}

func (c *Console) errorf(format string, args ...any) {
	_, _ = errorColor.Fprintf(c.out, ": [Error] "+format+"\n", args...)
}

func parseYesNo(answer string) (bool, bool) {
	switch answer {
	case "y", "yes":
		return true, true
	case "n", "no":
		return false, true
	default:
		return false, false
	}
}
