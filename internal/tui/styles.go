package tui

import "github.com/charmbracelet/lipgloss"

var (
	// HeaderStyle is the style for the monitor header.
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary).
			Background(ColorBackground).
			Padding(0, 1).
			MarginBottom(1)

	// FooterStyle is the style for the keybinding footer.
	FooterStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted).
			MarginTop(1)

	// RowStyle is the style for request rows.
	RowStyle = lipgloss.NewStyle().
			Foreground(ColorText).
			PaddingLeft(2)

	// SelectedRowStyle is the style for the selected request row.
	SelectedRowStyle = lipgloss.NewStyle().
				Foreground(ColorText).
				Background(ColorHighlight).
				Bold(true).
				PaddingLeft(2)

	// ExpertRowStyle is the style for expanded expert detail lines.
	ExpertRowStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted).
			PaddingLeft(4)

	// Status styles
	WaitingStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	RunningStyle = lipgloss.NewStyle().
			Foreground(ColorSecondary).
			Bold(true)

	DoneStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	FailedStyle = lipgloss.NewStyle().
			Foreground(ColorError).
			Bold(true)

	// Log styles
	LogStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	ErrorLogStyle = lipgloss.NewStyle().
			Foreground(ColorError)

	WarnLogStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	// ErrorStyle is for fatal error display.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorError).
			Bold(true).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorError).
			Padding(1, 2)
)
