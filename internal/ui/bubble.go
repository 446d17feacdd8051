package ui

import (
	"strings"
	"time"

	"gemini-chat/internal/history"
)

// bubble is one message in the thread. Assistant bubbles double as the
// playback sink for their reply.
type bubble struct {
	role      history.Role
	text      strings.Builder
	timestamp time.Time
	isError   bool
	loading   bool
	live      bool
	detached  bool

	// first line and height within the rendered thread
	top    int
	height int

	// markdown rendering of the finished text, cached per width and theme
	rendered    string
	renderedKey string
}

func newBubble(role history.Role, text string, ts time.Time) *bubble {
	b := &bubble{role: role, timestamp: ts}
	b.text.WriteString(text)
	return b
}

func (b *bubble) Write(text string) {
	b.text.WriteString(text)
}

func (b *bubble) Replace(text string) {
	b.text.Reset()
	b.text.WriteString(text)
}

func (b *bubble) Detached() bool {
	return b.detached
}

func (b *bubble) String() string {
	return b.text.String()
}
