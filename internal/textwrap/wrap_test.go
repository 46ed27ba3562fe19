package textwrap

import (
	"math/rand"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
)

// unitWidth gives every codepoint an advance of 1 regardless of size
func unitWidth(s string, _ float64) float64 {
	return float64(utf8.RuneCountInString(s))
}

// scaledWidth mimics a proportional font where 'W' is wide and the advance scales with size
func scaledWidth(s string, size float64) float64 {
	var w float64
	for _, r := range s {
		switch r {
		case 'W':
			w += 0.9
		case 'i', 'l':
			w += 0.25
		default:
			w += 0.5
		}
	}
	return w * size
}

func TestWrap(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		maxWidth float64
		maxLines int
		want     []string
	}{
		{"fits on one line", "hello", 10, 4, []string{"hello"}},
		{"ellipsis on overflow", "abcdefghij", 3, 1, []string{"ab…"}},
		{"greedy break", "abcdefghij", 4, 4, []string{"abcd", "efgh", "ij"}},
		{"exact fit is inclusive", "abc", 3, 1, []string{"abc"}},
		{"explicit newlines", "ab\ncd", 10, 4, []string{"ab", "cd"}},
		{"crlf normalized", "ab\r\ncd", 10, 4, []string{"ab", "cd"}},
		{"blank line kept", "ab\n\ncd", 10, 4, []string{"ab", "", "cd"}},
		{"truncated after newline", "ab\ncd\nef", 10, 2, []string{"ab", "cd…"}},
		{"trailing newline does not truncate", "abc\n", 10, 1, []string{"abc"}},
		{"newlines only", "\n\n", 10, 4, []string{"", ""}},
		{"codepoints not bytes", "日本語テキスト", 3, 4, []string{"日本語", "テキス", "ト"}},
		{"multibyte ellipsis", "日本語テキスト", 3, 2, []string{"日本語", "テキ…"}},
		{"zero lines", "abc", 10, 0, nil},
		{"negative lines", "abc", 10, -1, nil},
		{"empty text", "", 10, 4, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Wrap(tt.text, unitWidth, 10, tt.maxWidth, tt.maxLines)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Wrap(%q) mismatch (-want +got):\n%s", tt.text, diff)
			}
		})
	}
}

func TestWrap_OversizedCodepointGetsOwnLine(t *testing.T) {
	measure := func(s string, _ float64) float64 {
		var w float64
		for _, r := range s {
			if r == 'W' {
				w += 5
			} else {
				w++
			}
		}
		return w
	}

	got := Wrap("aWb", measure, 10, 3, 4)
	if diff := cmp.Diff([]string{"a", "W", "b"}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	got = Wrap("WW", measure, 10, 3, 4)
	if diff := cmp.Diff([]string{"W", "W"}, got); diff != "" {
		t.Errorf("leading oversized codepoint mismatch (-want +got):\n%s", diff)
	}
}

func TestWrap_UsesFontSize(t *testing.T) {
	// "Will" is 1.65 units: 16.5pt at size 10, 33pt at size 20
	if got := Wrap("Will", scaledWidth, 10, 25, 1); !cmp.Equal(got, []string{"Will"}) {
		t.Errorf("at size 10 got %q", got)
	}
	if got := Wrap("Will", scaledWidth, 20, 25, 4); !cmp.Equal(got, []string{"Wi", "ll"}) {
		t.Errorf("at size 20 got %q", got)
	}
}

func TestWrap_ShortTextIsUnchanged(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	alphabet := []rune("abcdefWil ,.日本")

	for i := 0; i < 500; i++ {
		n := 1 + rng.Intn(20)
		var sb strings.Builder
		for j := 0; j < n; j++ {
			sb.WriteRune(alphabet[rng.Intn(len(alphabet))])
		}
		text := sb.String()
		width := scaledWidth(text, 10)

		for _, maxLines := range []int{1, 2, 5} {
			got := Wrap(text, scaledWidth, 10, width, maxLines)
			if !cmp.Equal(got, []string{text}) {
				t.Fatalf("Wrap(%q, width %v, lines %d) = %q, want the input unchanged", text, width, maxLines, got)
			}
		}
	}
}

func TestWrap_RespectsBudgets(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	alphabet := []rune("abcWil \n日")

	for i := 0; i < 2000; i++ {
		n := rng.Intn(60)
		var sb strings.Builder
		for j := 0; j < n; j++ {
			sb.WriteRune(alphabet[rng.Intn(len(alphabet))])
		}
		text := sb.String()
		maxLines := 1 + rng.Intn(5)
		// never narrower than the widest glyph plus the ellipsis
		maxWidth := 10.0 + float64(rng.Intn(40))

		lines := Wrap(text, scaledWidth, 10, maxWidth, maxLines)
		if len(lines) > maxLines {
			t.Fatalf("Wrap(%q) returned %d lines, limit %d", text, len(lines), maxLines)
		}
		for _, line := range lines {
			if w := scaledWidth(line, 10); w > maxWidth {
				t.Fatalf("Wrap(%q) line %q is %v wide, limit %v", text, line, w, maxWidth)
			}
		}
	}
}

func TestWrap_EllipsisOnlyWhenContentDropped(t *testing.T) {
	lines := Wrap("abcdefgh", unitWidth, 10, 4, 2)
	if diff := cmp.Diff([]string{"abcd", "efgh"}, lines); diff != "" {
		t.Errorf("content that fits exactly must not be marked truncated (-want +got):\n%s", diff)
	}

	lines = Wrap("abcdefghi", unitWidth, 10, 4, 2)
	if diff := cmp.Diff([]string{"abcd", "efg…"}, lines); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}
