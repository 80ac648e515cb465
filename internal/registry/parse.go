package registry

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Group is a contiguous section of the registry. Title is nil when the group
// carries no comment line.
type Group struct {
	Title   *string `json:"title"`
	Entries []Entry `json:"links"`
}

// Registry is the ordered list of groups parsed from the link list.
type Registry []Group

// Len returns the number of entries across all groups.
func (r Registry) Len() int {
	n := 0
	for _, g := range r {
		n += len(g.Entries)
	}
	return n
}

// FormatError is returned when the input cannot be treated as registry text.
// Malformed lines never produce one; they are skipped.
type FormatError struct {
	Line int // 1-based, 0 when not tied to a line
	Msg  string
}

func (e *FormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("registry: line %d: %s", e.Line, e.Msg)
	}
	return "registry: " + e.Msg
}

// Parse splits text into groups of entries with their titles. Groups with
// neither a title nor an entry, such as the run of blank lines after the last
// entry, are left out.
func Parse(text string) Registry {
	pre := SplitGroups(strings.Split(text, "\n"))
	reg := make(Registry, 0, len(pre))

	for _, lines := range pre {
		g := Group{Entries: []Entry{}}
		var title []string
		for _, line := range lines {
			if e, ok := ParseLine(line); ok {
				g.Entries = append(g.Entries, e)
				continue
			}
			if text, ok := commentText(line); ok {
				if text != "" {
					title = append(title, text)
				}
				if g.Title == nil {
					g.Title = new(string)
				}
			}
		}
		if g.Title == nil && len(g.Entries) == 0 {
			continue
		}
		if g.Title != nil {
			*g.Title = strings.Join(title, " ")
		}
		reg = append(reg, g)
	}
	return reg
}

// ValidateText returns a *FormatError when b is not UTF-8 text.
func ValidateText(b []byte) error {
	line := 1
	for len(b) > 0 {
		end := bytes.IndexByte(b, '\n')
		chunk := b
		if end >= 0 {
			chunk = b[:end]
		}
		if bytes.IndexByte(chunk, 0) >= 0 {
			return &FormatError{Line: line, Msg: "contains NUL byte"}
		}
		if !utf8.Valid(chunk) {
			return &FormatError{Line: line, Msg: "invalid UTF-8"}
		}
		if end < 0 {
			break
		}
		b = b[end+1:]
		line++
	}
	return nil
}
