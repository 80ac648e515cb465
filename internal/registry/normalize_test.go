package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize_PerGroupWidths(t *testing.T) {
	text := lines(
		"# 1",
		"/aaaa https://example.com",
		"/aaaaaaaa https://example.com",
		"# 2",
		"/aaaaaaaaaaaa https://example.com",
		"/aa https://example.com",
		"",
		"#3",
		"/aaa https://example.com",
		"/aaaaa https://example.com",
	)
	want := lines(
		"# 1",
		"/aaaa     https://example.com",
		"/aaaaaaaa https://example.com",
		"# 2",
		"/aaaaaaaaaaaa https://example.com",
		"/aa           https://example.com",
		"",
		"#3",
		"/aaa   https://example.com",
		"/aaaaa https://example.com",
	)
	assert.Equal(t, want, Normalize(text))
}

func TestNormalize_NonASCIIPaths(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "accented path counts characters",
			text: lines("/café https://a.example", "/abcd https://b.example"),
			want: lines("/café https://a.example", "/abcd https://b.example"),
		},
		{
			name: "combining mark takes no column",
			text: lines("/cafe\u0301 https://a.example", "/ab https://b.example"),
			want: lines("/cafe\u0301 https://a.example", "/ab   https://b.example"),
		},
		{
			name: "wide characters take two columns",
			text: lines("/日本 https://a.example", "/a https://b.example"),
			want: lines("/日本 https://a.example", "/a    https://b.example"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.text))
		})
	}
}

func TestNormalize_PreservesNonEntryLines(t *testing.T) {
	text := lines(
		"#   spaced   title  ",
		"/a    https://a.example",
		"",
		"   ",
		"not-an-entry",
		"  /indented   https://x.example",
		"/bb https://b.example",
		"",
	)
	want := lines(
		"#   spaced   title  ",
		"/a https://a.example",
		"",
		"   ",
		"not-an-entry",
		"  /indented   https://x.example",
		"/bb https://b.example",
		"",
	)
	assert.Equal(t, want, Normalize(text))
}

func TestNormalize_Idempotent(t *testing.T) {
	texts := []string{
		"",
		"\n",
		"/a x",
		"/a     x\n/bbbbbbb y\n\n# t\n/c\tz extra\n",
		"# 1\n/aaaa u\n/aaaaaaaa u\n# 2\n/aaaaaaaaaaaa u\n/aa u\n",
		"/a x\r\n/bb y\r\n",
		"garbage\n\n\n#\n/x\n  /y z\n/é u",
	}
	for _, text := range texts {
		once := Normalize(text)
		assert.Equal(t, once, Normalize(once), "text %q", text)
		assert.True(t, IsNormalized(once))
	}
}

func TestNormalize_KeepsParse(t *testing.T) {
	text := "/a     x\n/bbbbbbb y\n\n# t\n# u\n/c\tz\n"
	assert.Equal(t, Parse(text), Parse(Normalize(text)))
}

func TestFormat_RoundTrip(t *testing.T) {
	texts := []string{
		"",
		"/foo https://example.com/foo\n/bar https://example.com/bar\n\n#3\n/baz https://example.com/baz",
		"\n\n# a\n# b\n/x y\n\n\n/z w\n\n# trailing",
		"#\n/x y",
	}
	for _, text := range texts {
		reg := Parse(text)
		formatted := Format(reg)
		assert.Equal(t, reg, Parse(formatted), "text %q", text)
		assert.True(t, IsNormalized(formatted))
	}
}

func TestFormat(t *testing.T) {
	reg := Registry{
		{Entries: []Entry{{"/a", "https://a.example"}, {"/long", "https://l.example"}}},
		{Title: title("Work"), Entries: []Entry{{"/w", "https://w.example"}}},
	}
	want := lines(
		"/a    https://a.example",
		"/long https://l.example",
		"",
		"# Work",
		"/w https://w.example",
	)
	assert.Equal(t, want, Format(reg))
}

func TestAppendEntry(t *testing.T) {
	text := lines("# t", "/a https://a.example")
	got := AppendEntry(text, Entry{Path: "/abcdef", URL: "https://b.example"})
	want := lines("# t", "/a      https://a.example", "/abcdef https://b.example")
	assert.Equal(t, want, got)
}
