package playback

import (
	"strings"
	"sync"
)

// Sink is the display surface a session writes into
type Sink interface {
	// Write appends revealed text
	Write(text string)
	// Replace sets the full content, used when a session is force-completed
	Replace(text string)
	// Detached reports that the surface was removed from the display
	Detached() bool
}

// Buffer is an in-memory Sink
type Buffer struct {
	mu       sync.Mutex
	text     strings.Builder
	writes   int
	detached bool
}

func (b *Buffer) Write(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.text.WriteString(text)
	b.writes++
}

func (b *Buffer) Replace(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.text.Reset()
	b.text.WriteString(text)
	b.writes++
}

func (b *Buffer) Detached() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.detached
}

// Detach marks the buffer as removed from the display
func (b *Buffer) Detach() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.detached = true
}

// String returns the current content
func (b *Buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.text.String()
}

// Writes returns how many times the buffer was written
func (b *Buffer) Writes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.writes
}
