package terminal

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"

	"gemini-chat/internal/history"
)

// Display handles plain terminal output with colors and formatting.
// It is also the playback sink for replies in plain mode.
type Display struct {
	mu      sync.Mutex
	out     io.Writer
	color   bool
	printed strings.Builder
	closed  bool

	spinnerActive bool
	spinnerDone   chan struct{}
	spinnerExited chan struct{}
}

// NewDisplay creates a display writing to out. Colors are used only when out is a terminal.
func NewDisplay(out io.Writer) *Display {
	color := false
	if f, ok := out.(*os.File); ok {
		color = term.IsTerminal(int(f.Fd()))
	}
	return &Display{out: out, color: color}
}

// Color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
)

func (d *Display) paint(color, text string) string {
	if !d.color {
		return text
	}
	return color + text + colorReset
}

// PrintError displays an error message
func (d *Display) PrintError(msg string) {
	fmt.Fprintln(d.out, d.paint(colorRed, "✗ "+msg))
}

// PrintInfo displays an info message
func (d *Display) PrintInfo(msg string) {
	fmt.Fprintln(d.out, d.paint(colorCyan, "ℹ "+msg))
}

// PrintWarning displays a warning message
func (d *Display) PrintWarning(msg string) {
	fmt.Fprintln(d.out, d.paint(colorYellow, "⚠ "+msg))
}

// PrintSuccess displays a success message
func (d *Display) PrintSuccess(msg string) {
	fmt.Fprintln(d.out, d.paint(colorGreen, "✓ "+msg))
}

// PrintEntry prints one saved history entry
func (d *Display) PrintEntry(e history.Entry) {
	label := d.paint(colorGreen, "You")
	if e.Role == history.RoleAssistant {
		label = d.paint(colorBlue, "Assistant")
	}
	ts := ""
	if !e.Timestamp.IsZero() {
		ts = d.paint(colorGray, " · "+e.Timestamp.Local().Format("2006-01-02 15:04"))
	}
	fmt.Fprintf(d.out, "%s%s\n%s\n\n", label, ts, e.Content)
}

// PrintAssistantPrefix prints the assistant response prefix and resets the reply buffer
func (d *Display) PrintAssistantPrefix() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.printed.Reset()
	d.closed = false
	fmt.Fprintf(d.out, "%s ", d.paint(colorBlue, "Assistant:"))
}

// Write prints revealed text
func (d *Display) Write(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.printed.WriteString(text)
	fmt.Fprint(d.out, text)
}

// Replace prints whatever of text is not on screen yet. Terminal output
// cannot be rewritten, so text that does not extend what was printed is
// printed again on a fresh line.
func (d *Display) Replace(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	shown := d.printed.String()
	if strings.HasPrefix(text, shown) {
		fmt.Fprint(d.out, text[len(shown):])
	} else {
		fmt.Fprint(d.out, "\n"+text)
	}
	d.printed.Reset()
	d.printed.WriteString(text)
}

// Detached reports whether the reply was closed
func (d *Display) Detached() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Close ends the current reply; any further reveal is dropped
func (d *Display) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
}

// WriteNewline writes a newline
func (d *Display) WriteNewline() {
	fmt.Fprintln(d.out)
}

// ShowSpinner displays a spinner with a message
func (d *Display) ShowSpinner(msg string) {
	if d.spinnerActive {
		d.StopSpinner()
	}
	if !d.color {
		return
	}

	d.spinnerActive = true
	d.spinnerDone = make(chan struct{})
	d.spinnerExited = make(chan struct{})

	go func(done, exited chan struct{}) {
		defer close(exited)
		spinnerChars := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()
		for i := 0; ; i = (i + 1) % len(spinnerChars) {
			fmt.Fprintf(d.out, "\r%s%s %s%s", colorCyan, spinnerChars[i], msg, colorReset)
			select {
			case <-done:
				// Clear the spinner line
				fmt.Fprintf(d.out, "\r%s\r", clearLine())
				return
			case <-ticker.C:
			}
		}
	}(d.spinnerDone, d.spinnerExited)
}

// StopSpinner stops the currently active spinner
func (d *Display) StopSpinner() {
	if d.spinnerActive {
		d.spinnerActive = false
		close(d.spinnerDone)
		<-d.spinnerExited
	}
}

// Cleanup ensures the display is in a good state before exit
func (d *Display) Cleanup() {
	d.StopSpinner()
}

// Width returns the terminal width, or 80 when out is not a terminal
func (d *Display) Width() int {
	if f, ok := d.out.(*os.File); ok {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			return w
		}
	}
	return 80
}

// clearLine returns ANSI escape code to clear the current line
func clearLine() string {
	return "\033[2K"
}

// IsTerminal checks if stdin and stdout are both terminals
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}
