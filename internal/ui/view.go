package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"gemini-chat/internal/history"
	"gemini-chat/internal/playback"
)

// View renders the whole screen
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	b.WriteString(m.theme.InputFrame.Width(max(m.width-2, 10)).Render(m.input.View()))
	b.WriteString("\n")
	b.WriteString(m.renderHelp())

	return b.String()
}

func (m *Model) renderHeader() string {
	title := m.theme.Title.Render("Gemini Chat")
	model := m.theme.Subtle.Render(m.modelName)
	state := ""
	switch m.machine.State() {
	case playback.Playing:
		state = m.theme.Subtle.Render("typing")
	case playback.Paused:
		state = m.theme.Confirm.Render("paused")
	}
	parts := []string{title, model}
	if state != "" {
		parts = append(parts, state)
	}
	return strings.Join(parts, m.theme.Subtle.Render(" · "))
}

func (m *Model) renderStatus() string {
	status := runewidth.Truncate(m.status, max(m.width-4, 10), "…")
	if m.confirmClear {
		return m.theme.Confirm.Render(status)
	}
	if m.listening {
		return m.theme.Confirm.Render("● " + status)
	}
	return m.theme.Status.Render(status)
}

func (m *Model) renderHelp() string {
	bindings := []struct{ keys, desc string }{
		{"enter", "send"},
		{"C-p", "pause"},
		{"C-s", "skip"},
		{"C-f", "instant"},
		{"C-y", "copy"},
		{"C-t", "theme"},
		{"C-l", "clear"},
	}
	if m.dictation != nil && m.dictation.Supported() {
		bindings = append(bindings, struct{ keys, desc string }{"C-r", "dictate"})
	}
	bindings = append(bindings, struct{ keys, desc string }{"C-c", "quit"})

	parts := make([]string, 0, len(bindings))
	for _, kb := range bindings {
		parts = append(parts, kb.keys+" "+kb.desc)
	}
	return m.theme.Subtle.Render(strings.Join(parts, " • "))
}

func (m *Model) renderThread() string {
	if len(m.bubbles) == 0 {
		return m.renderWelcome()
	}

	blocks := make([]string, 0, len(m.bubbles))
	line := 0
	for _, b := range m.bubbles {
		block := m.renderBubble(b)
		b.top = line
		b.height = lipgloss.Height(block)
		line += b.height + 1 // blank separator line
		blocks = append(blocks, block)
	}
	return strings.Join(blocks, "\n\n")
}

func (m *Model) renderWelcome() string {
	var b strings.Builder
	b.WriteString(m.theme.Title.Render("Hello there"))
	b.WriteString("\n")
	b.WriteString(m.theme.Subtle.Render("How can I help you today?"))
	b.WriteString("\n\n")

	chips := make([]string, 0, len(Suggestions))
	for i, s := range Suggestions {
		chips = append(chips, m.theme.Chip.Render(fmt.Sprintf("F%d %s", i+1, s)))
	}
	b.WriteString(lipgloss.JoinVertical(lipgloss.Left, chips...))
	return b.String()
}

func (m *Model) renderBubble(b *bubble) string {
	ts := ""
	if !b.timestamp.IsZero() {
		ts = m.theme.Subtle.Render(" " + b.timestamp.Format("15:04"))
	}

	if b.role == history.RoleUser {
		return m.theme.UserLabel.Render("You") + ts + "\n" + m.theme.UserText.Render(b.String())
	}

	label := m.theme.BotLabel.Render("Gemini") + ts
	switch {
	case b.loading:
		return label + "\n" + m.theme.BotText.Render(m.spinner.View()+" thinking")
	case b.isError:
		return label + "\n" + m.theme.ErrorText.Render(b.String())
	case b.live:
		return label + "\n" + m.theme.BotText.Render(b.String()+m.theme.Cursor.Render("▌"))
	default:
		return label + "\n" + m.renderMarkdown(b)
	}
}

// renderMarkdown renders a finished reply, falling back to plain text
func (m *Model) renderMarkdown(b *bubble) string {
	cacheKey := fmt.Sprintf("%s/%d", m.theme.Name, m.width)
	if b.renderedKey == cacheKey {
		return b.rendered
	}

	out := m.theme.BotText.Render(b.String())
	if m.renderer != nil {
		if rendered, err := m.renderer.Render(b.String()); err == nil {
			out = strings.Trim(rendered, "\n")
		}
	}

	b.rendered = out
	b.renderedKey = cacheKey
	return out
}
