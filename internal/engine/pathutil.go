package engine

import (
	"path/filepath"
	"strings"
)

// resolvePath anchors a user-provided path at root unless it is absolute.
// An empty path selects fallback.
func resolvePath(userPath, root, fallback string) string {
	if userPath == "" {
		return fallback
	}
	if filepath.IsAbs(userPath) {
		return filepath.Clean(userPath)
	}
	return filepath.Join(root, userPath)
}

// extensionSet lower-cases exts for case-insensitive matching.
func extensionSet(exts []string) map[string]bool {
	set := make(map[string]bool, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = true
	}
	return set
}

// hasExtension reports whether name ends in one of the extensions in set.
func hasExtension(name string, set map[string]bool) bool {
	return set[strings.ToLower(filepath.Ext(name))]
}
