package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme names
const (
	ThemeAuto  = "auto"
	ThemeDark  = "dark"
	ThemeLight = "light"
)

// Theme holds the styles for one color scheme
type Theme struct {
	Name string

	Title      lipgloss.Style
	Subtle     lipgloss.Style
	UserLabel  lipgloss.Style
	UserText   lipgloss.Style
	BotLabel   lipgloss.Style
	BotText    lipgloss.Style
	ErrorText  lipgloss.Style
	Cursor     lipgloss.Style
	Chip       lipgloss.Style
	Status     lipgloss.Style
	Confirm    lipgloss.Style
	InputFrame lipgloss.Style
}

// ResolveTheme turns a configured name into dark or light. auto asks the terminal.
func ResolveTheme(name string) string {
	switch name {
	case ThemeDark, ThemeLight:
		return name
	}
	if termenv.HasDarkBackground() {
		return ThemeDark
	}
	return ThemeLight
}

// NewTheme builds the styles for a resolved theme name
func NewTheme(name string) Theme {
	var (
		accent  lipgloss.Color
		text    lipgloss.Color
		muted   lipgloss.Color
		user    lipgloss.Color
		bot     lipgloss.Color
		danger  lipgloss.Color
		warning lipgloss.Color
		surface lipgloss.Color
	)

	if name == ThemeLight {
		accent = lipgloss.Color("#7C3AED")
		text = lipgloss.Color("#1F2937")
		muted = lipgloss.Color("#6B7280")
		user = lipgloss.Color("#0891B2")
		bot = lipgloss.Color("#059669")
		danger = lipgloss.Color("#E11D48")
		warning = lipgloss.Color("#D97706")
		surface = lipgloss.Color("#F3F4F6")
	} else {
		name = ThemeDark
		accent = lipgloss.Color("#A78BFA")
		text = lipgloss.Color("#E5E7EB")
		muted = lipgloss.Color("#9CA3AF")
		user = lipgloss.Color("#22D3EE")
		bot = lipgloss.Color("#34D399")
		danger = lipgloss.Color("#FB7185")
		warning = lipgloss.Color("#FBBF24")
		surface = lipgloss.Color("#1F2937")
	}

	return Theme{
		Name:       name,
		Title:      lipgloss.NewStyle().Bold(true).Foreground(accent),
		Subtle:     lipgloss.NewStyle().Foreground(muted),
		UserLabel:  lipgloss.NewStyle().Bold(true).Foreground(user),
		UserText:   lipgloss.NewStyle().Foreground(text).PaddingLeft(2),
		BotLabel:   lipgloss.NewStyle().Bold(true).Foreground(bot),
		BotText:    lipgloss.NewStyle().Foreground(text).PaddingLeft(2),
		ErrorText:  lipgloss.NewStyle().Foreground(danger).PaddingLeft(2),
		Cursor:     lipgloss.NewStyle().Foreground(accent),
		Chip:       lipgloss.NewStyle().Foreground(text).Background(surface).Padding(0, 1).MarginRight(1),
		Status:     lipgloss.NewStyle().Foreground(muted).Italic(true),
		Confirm:    lipgloss.NewStyle().Bold(true).Foreground(warning),
		InputFrame: lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(accent).Padding(0, 1),
	}
}

// Toggle returns the opposite theme
func (t Theme) Toggle() Theme {
	if t.Name == ThemeDark {
		return NewTheme(ThemeLight)
	}
	return NewTheme(ThemeDark)
}
