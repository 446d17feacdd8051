package gemini

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractTextSkipsScripts(t *testing.T) {
	text, err := ExtractText([]byte(`<html><head><title>Oops</title></head><body><script>var x = 1;</script><p>Service   unavailable</p></body></html>`))
	require.NoError(t, err)
	assert.Equal(t, "Oops Service unavailable", text)
}

func TestExtractTextTruncates(t *testing.T) {
	page := "<p>" + strings.Repeat("word ", 100) + "</p>"
	text, err := ExtractText([]byte(page))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(text, "..."))
	assert.Len(t, strings.Fields(text), maxErrorWords)
}

func TestLooksLikeHTML(t *testing.T) {
	assert.True(t, looksLikeHTML("text/html", nil))
	assert.True(t, looksLikeHTML("", []byte("  <!DOCTYPE html><html>")))
	assert.False(t, looksLikeHTML("application/json", []byte(`{"a":1}`)))
}
