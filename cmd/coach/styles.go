package main

import "github.com/charmbracelet/lipgloss"

type uiTheme struct {
	header     lipgloss.Style
	statusUp   lipgloss.Style
	statusDown lipgloss.Style
	coach      lipgloss.Style
	client     lipgloss.Style
	system     lipgloss.Style
	sidebar    lipgloss.Style
	panelTitle lipgloss.Style
	banner     lipgloss.Style
	help       lipgloss.Style
	inputPanel lipgloss.Style
}

func newTheme() uiTheme {
	accent := lipgloss.Color("62")
	green := lipgloss.Color("42")
	red := lipgloss.Color("203")
	muted := lipgloss.Color("241")

	return uiTheme{
		header: lipgloss.NewStyle().
			Bold(true).
			Foreground(accent).
			Padding(0, 1),
		statusUp:   lipgloss.NewStyle().Foreground(green).Bold(true),
		statusDown: lipgloss.NewStyle().Foreground(red).Bold(true),
		coach:      lipgloss.NewStyle().Foreground(accent).Bold(true),
		client:     lipgloss.NewStyle().Foreground(green).Bold(true),
		system:     lipgloss.NewStyle().Foreground(muted).Italic(true),
		sidebar: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(muted).
			Padding(0, 1),
		panelTitle: lipgloss.NewStyle().Bold(true).Foreground(accent),
		banner: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(green).
			Foreground(green).
			Padding(0, 1),
		help: lipgloss.NewStyle().Foreground(muted),
		inputPanel: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(muted).
			Padding(0, 1),
	}
}
