package planner

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoDecision is returned when the decision provider cannot supply an
// answer, e.g. because its input stream is closed.
var ErrNoDecision = errors.New("no decision available")

// FileAction is the outcome of resolving one target path.
type FileAction int

const (
	// ActionCreate writes a new file; nothing existed at the target.
	ActionCreate FileAction = iota
	// ActionOverwrite replaces the existing file at the target.
	ActionOverwrite
	// ActionSkip leaves the existing file untouched and writes nothing.
	ActionSkip
	// ActionKeepBoth writes to a new versioned path next to the existing file.
	ActionKeepBoth
)

func (a FileAction) String() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionOverwrite:
		return "overwrite"
	case ActionSkip:
		return "skip"
	case ActionKeepBoth:
		return "keep-both"
	default:
		return fmt.Sprintf("FileAction(%d)", int(a))
	}
}

// Writes reports whether the action results in a file being written.
func (a FileAction) Writes() bool {
	return a != ActionSkip
}

// Policy is the conflict policy for one run. It is chosen once and passed
// unchanged to every resolution of that run.
type Policy int

const (
	// PolicyNone means no blanket decision was made; conflicts are asked per file.
	PolicyNone Policy = iota
	PolicyOverwrite
	PolicySkip
	PolicyKeepBoth
	// PolicyDecidePerItem asks the decider for every conflicting file.
	PolicyDecidePerItem
)

func (p Policy) String() string {
	switch p {
	case PolicyNone:
		return "none"
	case PolicyOverwrite:
		return "overwrite"
	case PolicySkip:
		return "skip"
	case PolicyKeepBoth:
		return "keep-both"
	case PolicyDecidePerItem:
		return "decide-per-item"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy parses a batch policy token: o, s, k or d.
func ParsePolicy(token string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "o":
		return PolicyOverwrite, nil
	case "s":
		return PolicySkip, nil
	case "k":
		return PolicyKeepBoth, nil
	case "d":
		return PolicyDecidePerItem, nil
	default:
		return PolicyNone, fmt.Errorf("command '%s' is not a valid option", token)
	}
}

// ParseFileAction parses a per-file decision token: o, s or k.
func ParseFileAction(token string) (FileAction, error) {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "o":
		return ActionOverwrite, nil
	case "s":
		return ActionSkip, nil
	case "k":
		return ActionKeepBoth, nil
	default:
		return ActionCreate, fmt.Errorf("command '%s' is not a valid option", token)
	}
}

// Resolution is the result of resolving a target path.
type Resolution struct {
	// Action is what the caller must do
	Action FileAction

	// Path is where the caller writes; equal to the target except for keep-both
	Path string
}

// Decider supplies decisions the policy leaves open. Implementations block
// until they have a valid answer.
type Decider interface {
	// FileDecision returns ActionOverwrite, ActionSkip or ActionKeepBoth for
	// an existing file at path.
	FileDecision(path string) (FileAction, error)

	// BatchPolicy returns the blanket policy for a batch whose planned ids
	// include the given already-existing markers. It never returns PolicyNone.
	BatchPolicy(conflicting []int) (Policy, error)
}
