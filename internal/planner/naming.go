package planner

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Naming describes marker image filenames: <Base><id>[<InvertedTag>][_<version>]<Ext>.
type Naming struct {
	Base        string
	InvertedTag string
	Ext         string
}

// DefaultNaming produces names like marker7.jpg, marker7_INV.jpg and marker7_2.jpg.
var DefaultNaming = Naming{Base: "marker", InvertedTag: "_INV", Ext: ".jpg"}

// Filename returns the unversioned filename for a marker.
func (n Naming) Filename(id int, inverted bool) string {
	tag := ""
	if inverted {
		tag = n.InvertedTag
	}
	return fmt.Sprintf("%s%d%s%s", n.Base, id, tag, n.Ext)
}

// Matcher returns a regexp matching plain or inverted marker filenames,
// including versioned copies. The first group captures the marker id.
func (n Naming) Matcher(inverted bool) *regexp.Regexp {
	tag := ""
	if inverted {
		tag = regexp.QuoteMeta(n.InvertedTag)
	}
	return regexp.MustCompile("^" + regexp.QuoteMeta(n.Base) + `(\d+)` + tag + `(?:_\d+)?` + regexp.QuoteMeta(n.Ext) + "$")
}

// Parse extracts the marker id from a filename of the given polarity.
func (n Naming) Parse(name string, inverted bool) (int, bool) {
	return parseWith(n.Matcher(inverted), name)
}

func parseWith(re *regexp.Regexp, name string) (int, bool) {
	m := re.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	id, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return id, true
}

// VersionedPath inserts _<version> before the extension of path.
func VersionedPath(path string, version int) string {
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s_%d%s", strings.TrimSuffix(path, ext), version, ext)
}
