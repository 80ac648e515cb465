package registry

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// columns measures paths in terminal cells. The condition is fixed so that
// alignment does not depend on the locale of whoever runs fmt.
var columns = &runewidth.Condition{EastAsianWidth: false, StrictEmojiNeutral: true}

// pathWidth returns the display width of a path.
func pathWidth(path string) int {
	return columns.StringWidth(path)
}

// Normalize realigns the second column of every entry so that, within each
// group, URLs start one column past the widest path. Non-entry lines are
// kept byte for byte. Normalize is idempotent.
func Normalize(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))

	for _, group := range SplitGroups(lines) {
		width := 0
		for _, line := range group {
			if e, ok := ParseLine(line); ok {
				width = max(width, pathWidth(e.Path))
			}
		}
		width++

		for _, line := range group {
			e, ok := ParseLine(line)
			if !ok {
				out = append(out, line)
				continue
			}
			out = append(out, alignEntry(e, width))
		}
	}
	return strings.Join(out, "\n")
}

// IsNormalized reports whether Normalize would leave text unchanged.
func IsNormalized(text string) bool {
	return Normalize(text) == text
}

// Format renders a registry as canonical text: one block per group, titled
// groups prefixed with a "# title" line, blocks separated by a blank line.
// Parse(Format(r)) yields r back for any registry produced by Parse.
func Format(r Registry) string {
	var b strings.Builder
	first := true
	for _, g := range r {
		if g.Title == nil && len(g.Entries) == 0 {
			continue
		}
		if !first {
			b.WriteString("\n\n")
		}
		first = false

		lines := make([]string, 0, len(g.Entries)+1)
		if g.Title != nil {
			lines = append(lines, strings.TrimRight("# "+*g.Title, " "))
		}
		for _, e := range g.Entries {
			lines = append(lines, e.Path+" "+e.URL)
		}
		b.WriteString(Normalize(strings.Join(lines, "\n")))
	}
	return b.String()
}

// AppendEntry adds e as a new last line of text and renormalizes.
func AppendEntry(text string, e Entry) string {
	return Normalize(text + "\n" + e.Path + " " + e.URL)
}

func alignEntry(e Entry, width int) string {
	return e.Path + strings.Repeat(" ", width-pathWidth(e.Path)) + e.URL
}
