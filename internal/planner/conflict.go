package planner

import (
	"fmt"

	"github.com/danieljhkim/arucal/internal/fsops"
)

// Resolver decides what to do with a target path that may already exist.
//
// Each call is independent: existence is checked at call time and the only
// shared input is the immutable policy. A file created by someone else
// between Resolve and the caller's write is not detected.
type Resolver struct {
	fs      fsops.FS
	decider Decider
}

// NewResolver creates a new Resolver.
func NewResolver(fs fsops.FS, decider Decider) *Resolver {
	return &Resolver{
		fs:      fs,
		decider: decider,
	}
}

// Resolve returns the action for target under policy and the path the caller
// must write to. Resolve itself never writes.
func (r *Resolver) Resolve(target string, policy Policy) (Resolution, error) {
	exists, err := r.fs.Exists(target)
	if err != nil {
		return Resolution{}, fmt.Errorf("failed to check %s: %w", target, err)
	}
	if !exists {
		return Resolution{Action: ActionCreate, Path: target}, nil
	}

	action, err := r.actionFor(target, policy)
	if err != nil {
		return Resolution{}, err
	}

	switch action {
	case ActionKeepBoth:
		path, err := r.nextFreeVersion(target)
		if err != nil {
			return Resolution{}, err
		}
		return Resolution{Action: ActionKeepBoth, Path: path}, nil
	case ActionOverwrite, ActionSkip:
		return Resolution{Action: action, Path: target}, nil
	default:
		return Resolution{}, fmt.Errorf("invalid decision %s for existing file %s", action, target)
	}
}

// actionFor maps a policy to an action, asking the decider when the policy
// leaves the choice open.
func (r *Resolver) actionFor(target string, policy Policy) (FileAction, error) {
	switch policy {
	case PolicyOverwrite:
		return ActionOverwrite, nil
	case PolicySkip:
		return ActionSkip, nil
	case PolicyKeepBoth:
		return ActionKeepBoth, nil
	case PolicyNone, PolicyDecidePerItem:
		if r.decider == nil {
			return 0, fmt.Errorf("%w: %s already exists", ErrNoDecision, target)
		}
		action, err := r.decider.FileDecision(target)
		if err != nil {
			return 0, fmt.Errorf("failed to get decision for %s: %w", target, err)
		}
		return action, nil
	default:
		return 0, fmt.Errorf("unknown policy %s", policy)
	}
}

// nextFreeVersion returns the first target_<n> path that does not exist,
// starting at n = 1.
func (r *Resolver) nextFreeVersion(target string) (string, error) {
	for version := 1; ; version++ {
		candidate := VersionedPath(target, version)
		exists, err := r.fs.Exists(candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check %s: %w", candidate, err)
		}
		if !exists {
			return candidate, nil
		}
	}
}
