package playback

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitWords(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"Hi there", []string{"Hi", " there"}},
		{"one", []string{"one"}},
		{"", nil},
		{"   ", nil},
		{"  lead", []string{"  lead"}},
		{"trail  ", []string{"trail  "}},
		{"a\n\nb  c", []string{"a", "\n\nb", "  c"}},
		{"héllo wörld", []string{"héllo", " wörld"}},
	}

	for _, tt := range tests {
		got := splitWords(tt.text)
		assert.Equal(t, tt.want, got, "splitWords(%q)", tt.text)
		assert.Equal(t, tt.text, strings.Join(got, "")+leftover(tt.text, got))
	}
}

// leftover is the text a whitespace-only input carries that has no word to ride on
func leftover(text string, words []string) string {
	if len(words) == 0 {
		return text
	}
	return ""
}
