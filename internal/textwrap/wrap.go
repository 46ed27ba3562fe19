// Package textwrap breaks a string into lines that fit a width budget under a font metric,
// truncating the last line with an ellipsis when the line budget runs out.
package textwrap

import (
	"strings"
)

// Ellipsis is appended to the last line when content did not fit
const Ellipsis = "…"

// MeasureFunc returns the advance width of s set at size points
type MeasureFunc func(s string, size float64) float64

// Wrap splits text greedily by codepoint. Explicit newlines always break.
// A single codepoint wider than maxWidth still gets a line of its own.
// The result never has more than maxLines entries; maxLines <= 0 yields nil.
func Wrap(text string, measure MeasureFunc, size, maxWidth float64, maxLines int) []string {
	if maxLines <= 0 {
		return nil
	}

	runes := []rune(strings.ReplaceAll(text, "\r\n", "\n"))
	fits := func(s string) bool {
		return measure(s, size) <= maxWidth
	}

	var (
		lines   []string
		current string
		i       int
	)
	for ; i < len(runes) && len(lines) < maxLines; i++ {
		r := runes[i]
		if r == '\n' {
			lines = append(lines, current)
			current = ""
			continue
		}

		next := current + string(r)
		switch {
		case fits(next):
			current = next
		case current == "":
			lines = append(lines, next)
		default:
			lines = append(lines, current)
			current = string(r)
		}
	}

	if current != "" && len(lines) < maxLines {
		lines = append(lines, current)
		current = ""
	}

	// Only dropped content earns an ellipsis. Soft wraps alone never do.
	if len(lines) > 0 && (current != "" || hasContent(runes[i:])) {
		lines[len(lines)-1] = withEllipsis(lines[len(lines)-1], fits)
	}
	return lines
}

// hasContent reports whether anything other than line breaks remains
func hasContent(rest []rune) bool {
	for _, r := range rest {
		if r != '\n' {
			return true
		}
	}
	return false
}

func withEllipsis(line string, fits func(string) bool) string {
	rs := []rune(line)
	for len(rs) > 0 && !fits(string(rs)+Ellipsis) {
		rs = rs[:len(rs)-1]
	}
	return string(rs) + Ellipsis
}
