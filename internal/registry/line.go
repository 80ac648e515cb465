package registry

import (
	"regexp"
	"strings"
)

// fieldSep matches the whitespace runs separating the two columns. Vertical
// tab and the Unicode space separators count too, so hand-edited files with
// non-breaking spaces still split where a reader would expect.
var fieldSep = regexp.MustCompile(`[\s\v\p{Zs}\x{FEFF}\x{2028}\x{2029}]+`)

// Entry is a single short path and the URL it redirects to.
type Entry struct {
	Path string `json:"path"`
	URL  string `json:"url"`
}

// ParseLine reports whether line encodes an entry and returns it.
//
// A line is an entry when splitting it on whitespace yields a non-empty first
// token that does not start with '#', followed by a non-empty second token.
// Leading whitespace produces an empty first token, so indented lines are
// never entries. Anything after the second token is ignored.
func ParseLine(line string) (Entry, bool) {
	fields := fieldSep.Split(line, 3)
	if len(fields) < 2 {
		return Entry{}, false
	}
	path, url := fields[0], fields[1]
	if path == "" || url == "" || strings.HasPrefix(path, "#") {
		return Entry{}, false
	}
	return Entry{Path: path, URL: url}, true
}

// commentText returns the title fragment carried by a comment line.
func commentText(line string) (string, bool) {
	if !strings.HasPrefix(line, "#") {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(line, "#")), true
}
