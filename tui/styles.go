package tui

import "github.com/charmbracelet/lipgloss"

var (
	primaryColor   = lipgloss.Color("63")
	secondaryColor = lipgloss.Color("240")
	accentColor    = lipgloss.Color("205")
	errorColor     = lipgloss.Color("196")

	navButtonStyle = lipgloss.NewStyle().
			Padding(0, 2).
			Foreground(secondaryColor)

	navActiveStyle = navButtonStyle.
			Foreground(lipgloss.Color("15")).
			Background(primaryColor).
			Bold(true)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	dimStyle = lipgloss.NewStyle().
			Foreground(secondaryColor)

	helpStyle = lipgloss.NewStyle().
			Foreground(secondaryColor).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true)

	userPromptStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true)

	aiResponseStyle = lipgloss.NewStyle().
			PaddingLeft(2)

	pendingStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true)

	buttonStyle = lipgloss.NewStyle().
			Padding(0, 2).
			Foreground(lipgloss.Color("15")).
			Background(primaryColor)

	buttonDisabledStyle = buttonStyle.
				Foreground(secondaryColor).
				Background(lipgloss.Color("236"))

	placeholderStyle = lipgloss.NewStyle().
				Foreground(secondaryColor).
				Border(lipgloss.RoundedBorder()).
				BorderForeground(secondaryColor).
				Padding(1, 4).
				Align(lipgloss.Center)
)
