package registry

import "strings"

// Lookup is a flat path to URL map for redirect dispatch. Titles and groups
// play no part in it. A Lookup is never modified after construction.
type Lookup struct {
	links map[string]string
}

// NewLookup builds a Lookup from raw registry text. When a path appears more
// than once the last occurrence wins.
func NewLookup(text string) Lookup {
	links := make(map[string]string)
	for _, line := range strings.Split(text, "\n") {
		if e, ok := ParseLine(line); ok {
			links[e.Path] = e.URL
		}
	}
	return Lookup{links: links}
}

// Resolve returns the URL registered for path. Matching is exact.
func (l Lookup) Resolve(path string) (string, bool) {
	url, ok := l.links[path]
	return url, ok
}

// Len returns the number of distinct paths.
func (l Lookup) Len() int {
	return len(l.links)
}
