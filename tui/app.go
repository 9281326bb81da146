package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/mhpenta/genstudio/view"
)

const (
	navHeight = 2
	navGap    = 1
)

type clearStatusMsg struct{}

// appModel is the top-level program: a navigation bar above whichever
// screen the switcher has mounted.
type appModel struct {
	ctx      context.Context
	switcher *view.Switcher
	keys     KeyMap
	logger   zerolog.Logger

	chat  *chatScreen
	image *imageScreen

	width, height int
	status        string
}

func newAppModel(ctx context.Context, switcher *view.Switcher, logger zerolog.Logger) *appModel {
	m := &appModel{
		ctx:      ctx,
		switcher: switcher,
		keys:     DefaultKeyMap(),
		logger:   logger,
	}
	m.attach()
	return m
}

// attach builds the screen for the widget the switcher has mounted.
func (m *appModel) attach() {
	m.chat, m.image = nil, nil
	switch m.switcher.Current() {
	case view.KindConversation:
		m.chat = newChatScreen(m.ctx, m.switcher.Conversation(), m.keys, m.logger)
	case view.KindImage:
		m.image = newImageScreen(m.ctx, m.switcher.Image(), m.keys, m.logger)
	}
	m.resize()
}

func (m *appModel) resize() {
	h := max(m.height-navHeight, 1)
	if m.chat != nil {
		m.chat.setSize(m.width, h)
	}
	if m.image != nil {
		m.image.setSize(m.width, h)
	}
}

func (m *appModel) Init() tea.Cmd {
	if m.chat != nil {
		return tea.Batch(textarea.Blink, m.chat.mount())
	}
	return nil
}

// selectView switches tools; the new conversation is mounted off the loop.
func (m *appModel) selectView(kind view.Kind) tea.Cmd {
	if !m.switcher.Switch(kind) {
		return nil
	}
	m.logger.Debug().Stringer("view", kind).Msg("switched view")
	m.attach()
	if m.chat != nil {
		return m.chat.mount()
	}
	return nil
}

func (m *appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.NextView):
			return m, m.selectView(nextKind(m.switcher.Current()))
		}

	case tea.MouseMsg:
		if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft {
			if kind, ok := navHit(msg.X, msg.Y); ok {
				return m, m.selectView(kind)
			}
		}

	case statusMsg:
		m.status = string(msg)
		return m, tea.Tick(3*time.Second, func(time.Time) tea.Msg { return clearStatusMsg{} })

	case clearStatusMsg:
		m.status = ""
		return m, nil
	}

	if m.chat != nil {
		return m, m.chat.update(msg)
	}
	if m.image != nil {
		return m, m.image.update(msg)
	}
	return m, nil
}

func (m *appModel) View() string {
	nav := navBar(m.switcher.Current())
	if m.status != "" {
		nav = lipgloss.JoinHorizontal(lipgloss.Top, nav, "  ", dimStyle.Render(m.status))
	}

	var body string
	switch {
	case m.chat != nil:
		body = m.chat.view()
	case m.image != nil:
		body = m.image.view()
	}
	return nav + "\n\n" + body
}

func nextKind(k view.Kind) view.Kind {
	for i, kind := range view.Kinds {
		if kind == k {
			return view.Kinds[(i+1)%len(view.Kinds)]
		}
	}
	return view.KindConversation
}

func navButton(kind, current view.Kind) string {
	if kind == current {
		return navActiveStyle.Render(kind.Label())
	}
	return navButtonStyle.Render(kind.Label())
}

func navBar(current view.Kind) string {
	var bar string
	for i, kind := range view.Kinds {
		if i > 0 {
			bar += strings.Repeat(" ", navGap)
		}
		bar += navButton(kind, current)
	}
	return bar
}

// navHit maps a click on the first row to the navigation button under it.
func navHit(x, y int) (view.Kind, bool) {
	if y != 0 || x < 0 {
		return 0, false
	}
	left := 0
	for _, kind := range view.Kinds {
		w := lipgloss.Width(navButtonStyle.Render(kind.Label()))
		if x >= left && x < left+w {
			return kind, true
		}
		left += w + navGap
	}
	return 0, false
}
