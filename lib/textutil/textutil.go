package textutil

import (
	"regexp"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, "")
	return name
}

func MatchName(name string, matchers []string) bool {
	name = NormalizeName(name)
	for _, m := range matchers {
		if strings.Contains(name, m) {
			return true
		}
	}
	return false
}

// Slugify turns display text into a lowercase dash-separated token
// suitable for use in derived ids.
func Slugify(s string) string {
	s = strings.ToLower(strings.Trim(s, " \n\t"))
	return whitespaceRegex.ReplaceAllString(s, "-")
}

// StripWhitespace removes all whitespace, used for deriving keys
// from values like "CS 350" or "Fall 2025".
func StripWhitespace(s string) string {
	return whitespaceRegex.ReplaceAllString(s, "")
}

func CollapseWhitespace(s string) string {
	return whitespaceRegex.ReplaceAllString(strings.Trim(s, " \n\t"), " ")
}
