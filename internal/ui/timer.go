package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// tickMsg carries the token of the arm that produced it
type tickMsg struct {
	token uint64
}

// teaTimer drives playback ticks through the Bubble Tea loop. Arm only
// queues a command; Update collects queued commands with drain.
type teaTimer struct {
	armed   map[uint64]time.Duration
	pending []tea.Cmd
}

func newTeaTimer() *teaTimer {
	return &teaTimer{armed: make(map[uint64]time.Duration)}
}

func (t *teaTimer) Arm(token uint64, interval time.Duration) {
	t.armed[token] = interval
	t.pending = append(t.pending, tickCmd(token, interval))
}

func (t *teaTimer) Disarm(token uint64) {
	delete(t.armed, token)
}

// rearm schedules the next tick for token if it is still armed
func (t *teaTimer) rearm(token uint64) {
	if interval, ok := t.armed[token]; ok {
		t.pending = append(t.pending, tickCmd(token, interval))
	}
}

func (t *teaTimer) isArmed(token uint64) bool {
	_, ok := t.armed[token]
	return ok
}

// drain returns and forgets the queued commands
func (t *teaTimer) drain() tea.Cmd {
	if len(t.pending) == 0 {
		return nil
	}
	cmds := t.pending
	t.pending = nil
	return tea.Batch(cmds...)
}

func tickCmd(token uint64, interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(time.Time) tea.Msg {
		return tickMsg{token: token}
	})
}
