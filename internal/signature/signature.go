// Package signature turns raw failure text into a short, stable identifier so
// that errors differing only in paths, line numbers, timestamps or addresses
// collapse into one tracked entity.
package signature

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf16"
)

// Prefix starts every generated signature.
const Prefix = "err_"

type rule struct {
	re   *regexp.Regexp
	repl string
}

// Absolute POSIX paths only count at the start of a token, so relative
// specifiers, URL paths and refs like feature/login keep their text.
// Timestamps are erased before line locators, otherwise ":30:45" inside
// "12:30:45" would be read as a :line:col pair.
//
//nolint:gochecknoglobals // compiled once, read-only
var rules = []rule{
	{regexp.MustCompile(`[A-Za-z]:\\[\w.\-\\]+`), "<path>"},
	{regexp.MustCompile(`(^|[\s'"(=\x60\[])/[^\s:'"()\x60\[\],;]+`), "${1}<path>"},
	{regexp.MustCompile(`\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}(?::\d{2}(?:[.,]\d+)?)?(?:Z|[+-]\d{2}:?\d{2})?`), "<timestamp>"},
	{regexp.MustCompile(`:\d+:\d+`), ":<line>:<col>"},
	{regexp.MustCompile(`<path>:\d+`), "<path>:<line>"},
	{regexp.MustCompile(`(?i)\bline \d+`), "line <n>"},
	{regexp.MustCompile(`\b0[xX][0-9a-fA-F]+`), "<addr>"},
}

//nolint:gochecknoglobals // compiled once, read-only
var whitespace = regexp.MustCompile(`\s+`)

// Normalize erases the high-entropy parts of errText and returns the template
// that Generate hashes.
func Normalize(errText, toolName string) string {
	s := errText
	for _, r := range rules {
		s = r.re.ReplaceAllString(s, r.repl)
	}
	s = strings.ToLower(strings.TrimSpace(whitespace.ReplaceAllString(s, " ")))
	if toolName != "" {
		s = toolName + "::" + s
	}
	return s
}

// Generate returns the signature for errText, optionally scoped to toolName.
// Any input, including the empty string, yields a signature.
//
// The hash is the 32-bit h*31+c rolling hash over UTF-16 code units, so
// collisions are possible; with a few dozen live signatures per scope the
// birthday bound keeps the odds well under one in a million.
func Generate(errText, toolName string) string {
	return fmt.Sprintf("%s%x", Prefix, abs(hash(Normalize(errText, toolName))))
}

func hash(s string) int32 {
	var h int32
	for _, c := range utf16.Encode([]rune(s)) {
		h = (h << 5) - h + int32(c)
	}
	return h
}

func abs(h int32) int64 {
	v := int64(h)
	if v < 0 {
		return -v
	}
	return v
}
