package assistant

import (
	"regexp"
	"strings"
)

// FormatAnswer turns the assistant's markdown-flavored output into the plain
// presentational form the display layer expects. It is total and
// deterministic over arbitrary input, and idempotent: formatting an already
// formatted answer changes nothing.
//
// Single underscores are left alone so identifiers like snake_case survive.
func FormatAnswer(s string) string {
	// block-level constructs first
	s = strings.ReplaceAll(s, "```", "")
	s = headingRe.ReplaceAllString(s, "")
	s = bulletRe.ReplaceAllString(s, "$1• ")

	// inline emphasis
	s = boldRe.ReplaceAllString(s, "$1")
	s = italicRe.ReplaceAllString(s, "$1")
	s = underBoldRe.ReplaceAllString(s, "$1")
	s = codeRe.ReplaceAllString(s, "$1")
	return s
}

var (
	headingRe   = regexp.MustCompile(`(?m)^#{1,6}[ \t]+`)
	bulletRe    = regexp.MustCompile(`(?m)^([ \t]*)[-*][ \t]+`)
	boldRe      = regexp.MustCompile(`\*\*(.*?)\*\*`)
	italicRe    = regexp.MustCompile(`\*([^*\n]+)\*`)
	underBoldRe = regexp.MustCompile(`__(.*?)__`)
	codeRe      = regexp.MustCompile("`([^`\n]*)`")
)
