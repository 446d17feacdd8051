package ui

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines the chat controls
type KeyMap struct {
	Submit      key.Binding
	Pause       key.Binding
	Instant     key.Binding
	Skip        key.Binding
	Interrupt   key.Binding
	Theme       key.Binding
	Clear       key.Binding
	Dictate     key.Binding
	Copy        key.Binding
	Suggestions key.Binding
	ScrollUp    key.Binding
	ScrollDown  key.Binding
	Quit        key.Binding
}

// DefaultKeyMap returns the default bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send"),
		),
		Pause: key.NewBinding(
			key.WithKeys("ctrl+p"),
			key.WithHelp("C-p", "pause/resume"),
		),
		Instant: key.NewBinding(
			key.WithKeys("ctrl+f"),
			key.WithHelp("C-f", "instant"),
		),
		Skip: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("C-s", "skip"),
		),
		Interrupt: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "finish reply"),
		),
		Theme: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("C-t", "theme"),
		),
		Clear: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("C-l", "clear"),
		),
		Dictate: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("C-r", "dictate"),
		),
		Copy: key.NewBinding(
			key.WithKeys("ctrl+y"),
			key.WithHelp("C-y", "copy reply"),
		),
		Suggestions: key.NewBinding(
			key.WithKeys("f1", "f2", "f3", "f4"),
			key.WithHelp("F1-F4", "suggestion"),
		),
		ScrollUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("PgUp", "scroll up"),
		),
		ScrollDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d"),
			key.WithHelp("PgDn", "scroll down"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("C-c", "quit"),
		),
	}
}

// suggestionIndex maps f1..f4 to 0..3
func suggestionIndex(k string) int {
	switch k {
	case "f1":
		return 0
	case "f2":
		return 1
	case "f3":
		return 2
	case "f4":
		return 3
	}
	return -1
}
