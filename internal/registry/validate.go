package registry

import (
	"math/rand/v2"
	"net/url"
	"regexp"
)

var linkRegex = regexp.MustCompile(`^(?:/[A-Za-z0-9_-]+)+$`)

// IsValidLink reports whether s is usable as a short path: one or more
// "/segment" parts made of letters, digits, '_' and '-', and nothing else.
func IsValidLink(s string) bool {
	return linkRegex.MatchString(s)
}

// IsValidURL reports whether s is an absolute URL that fits in the second
// column of a registry line.
func IsValidURL(s string) bool {
	if s == "" || fieldSep.MatchString(s) {
		return false
	}
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" {
		return false
	}
	return u.Host != "" || u.Opaque != ""
}

const linkAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// RandomLink returns a fresh suggestion such as "/k3x9".
func RandomLink() string {
	b := make([]byte, 5)
	b[0] = '/'
	for i := 1; i < len(b); i++ {
		b[i] = linkAlphabet[rand.IntN(len(linkAlphabet))]
	}
	return string(b)
}
