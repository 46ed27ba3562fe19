package export

import (
	"strings"
	"unicode"
)

// FileName turns a document title into a safe file name ending in .pdf
func FileName(title string) string {
	var sb strings.Builder
	for _, r := range strings.TrimSpace(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' || r == '.':
			sb.WriteRune(r)
		case unicode.IsSpace(r) || r == ':' || r == '/' || r == '\\':
			sb.WriteRune('_')
		}
	}
	name := strings.Trim(sb.String(), "._")
	if name == "" {
		name = "export"
	}
	return name + ".pdf"
}
