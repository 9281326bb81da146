package tui

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines the keyboard bindings of the studio.
type KeyMap struct {
	Submit   key.Binding
	Newline  key.Binding
	NextView key.Binding
	Copy     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Quit     key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send"),
		),
		Newline: key.NewBinding(
			key.WithKeys("alt+enter", "ctrl+j"),
			key.WithHelp("alt+enter", "newline"),
		),
		NextView: key.NewBinding(
			key.WithKeys("tab", "shift+tab"),
			key.WithHelp("tab", "switch tool"),
		),
		Copy: key.NewBinding(
			key.WithKeys("ctrl+y"),
			key.WithHelp("ctrl+y", "copy"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "scroll up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdown", "scroll down"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "esc"),
			key.WithHelp("esc", "quit"),
		),
	}
}

// helpLine renders the short help for the given bindings.
func helpLine(bindings ...key.Binding) string {
	var s string
	for i, b := range bindings {
		if i > 0 {
			s += " • "
		}
		h := b.Help()
		s += h.Key + ": " + h.Desc
	}
	return helpStyle.Render(s)
}
