// Package tui is the terminal front end of the studio.
package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/mhpenta/genstudio"
	"github.com/mhpenta/genstudio/view"
)

type Config struct {
	Gateway genstudio.Gateway
	Logger  zerolog.Logger
}

// Run starts the TUI application and blocks until the user quits or ctx is
// done.
func Run(ctx context.Context, config Config) error {
	switcher := view.NewSwitcher(config.Gateway)

	p := tea.NewProgram(
		newAppModel(ctx, switcher, config.Logger),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)

	_, err := p.Run()
	return err
}
