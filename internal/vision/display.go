package vision

import "errors"

// ErrNoDisplay indicates there is no display to open a preview window on.
var ErrNoDisplay = errors.New("no display available")

// HasDisplay reports whether a window can be opened on goos, given the
// process environment. On Linux and the BSDs an X11 or Wayland session must be
// advertised; other platforms always have a desktop.
func HasDisplay(goos string, getenv func(string) string) bool {
	switch goos {
	case "linux", "freebsd", "openbsd", "netbsd", "dragonfly", "solaris":
		return getenv("DISPLAY") != "" || getenv("WAYLAND_DISPLAY") != ""
	default:
		return true
	}
}
