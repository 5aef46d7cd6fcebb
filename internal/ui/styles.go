package ui

import "github.com/charmbracelet/lipgloss"

type Styles struct {
	Header   lipgloss.Style
	Badge    lipgloss.Style
	Selected lipgloss.Style
	Unread   lipgloss.Style
	Read     lipgloss.Style
	Status   lipgloss.Style
	Error    lipgloss.Style
	Help     lipgloss.Style
}

func DefaultStyles() Styles {
	return Styles{
		Header:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#e2e8f0")),
		Badge:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#020617")).Background(lipgloss.Color("#38bdf8")).Padding(0, 1),
		Selected: lipgloss.NewStyle().Foreground(lipgloss.Color("#38bdf8")),
		Unread:   lipgloss.NewStyle().Bold(true),
		Read:     lipgloss.NewStyle().Foreground(lipgloss.Color("#64748b")),
		Status:   lipgloss.NewStyle().Foreground(lipgloss.Color("#94a3b8")),
		Error:    lipgloss.NewStyle().Foreground(lipgloss.Color("#f87171")),
		Help:     lipgloss.NewStyle().Foreground(lipgloss.Color("#475569")),
	}
}
