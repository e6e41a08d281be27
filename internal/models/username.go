package models

import (
	"regexp"
	"strings"
)

var (
	htmlTagPattern     = regexp.MustCompile(`<[^>]*>`)
	usernameDisallowed = regexp.MustCompile(`[^\w\s.-]`)
	whitespaceRun      = regexp.MustCompile(`\s+`)
)

// SanitizeUsername strips markup and special characters and joins words with
// underscores. It is applied before every store and lookup by username.
func SanitizeUsername(username string) string {
	s := htmlTagPattern.ReplaceAllString(username, "")
	s = usernameDisallowed.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	return whitespaceRun.ReplaceAllString(s, "_")
}
