// Package planner decides what happens to each marker image before it is
// written.
//
// The planner picks which marker ids a batch generates, detects which of
// them already have an image in the output directory, and resolves every
// target path to a FileAction (create, overwrite, skip or keep both). When
// the policy in effect does not settle a conflict, the decision is delegated
// to a Decider, which in the CLI is an interactive console prompt.
//
// Key responsibilities:
//   - Spread a requested marker count evenly across a dictionary
//   - Scan the output directory once per batch for conflicting files
//   - Resolve each target path against the batch policy
//   - Find the next free versioned filename for keep-both
package planner
