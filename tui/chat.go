package tui

import (
	"context"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/rs/zerolog"

	"github.com/mhpenta/genstudio"
	"github.com/mhpenta/genstudio/view"
)

const inputHeight = 3

type sessionReadyMsg struct {
	conv *view.Conversation
	err  error
}

type chatReplyMsg struct {
	conv  *view.Conversation
	turn  view.Turn
	reply view.Reply
}

// chatScreen renders one mounted Conversation.
type chatScreen struct {
	ctx    context.Context
	conv   *view.Conversation
	keys   KeyMap
	logger zerolog.Logger

	textarea textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer

	width, height int
	revision      uint64
	rendered      bool
}

func newChatScreen(ctx context.Context, conv *view.Conversation, keys KeyMap, logger zerolog.Logger) *chatScreen {
	ta := textarea.New()
	ta.Placeholder = "Type your message..."
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetHeight(inputHeight)
	ta.KeyMap.InsertNewline = keys.Newline
	ta.Focus()

	return &chatScreen{
		ctx:      ctx,
		conv:     conv,
		keys:     keys,
		logger:   logger,
		textarea: ta,
		viewport: viewport.New(0, 0),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(pendingStyle)),
	}
}

// mount opens the conversation's session off the event loop.
func (s *chatScreen) mount() tea.Cmd {
	ctx, conv := s.ctx, s.conv
	return func() tea.Msg {
		return sessionReadyMsg{conv: conv, err: conv.Mount(ctx)}
	}
}

func (s *chatScreen) setSize(width, height int) {
	s.width, s.height = width, height
	s.textarea.SetWidth(max(width-2, 10))
	s.viewport.Width = width
	// input, error line, help line and spacing
	s.viewport.Height = max(height-inputHeight-4, 1)

	s.renderer, _ = glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(max(width-4, 20)),
	)
	s.rendered = false
	s.refresh()
}

func (s *chatScreen) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case sessionReadyMsg:
		if msg.conv != s.conv {
			return nil
		}
		if msg.err != nil {
			s.logger.Error().Err(msg.err).Msg("chat session failed to start")
		}
		s.refresh()
		return nil

	case chatReplyMsg:
		if msg.conv != s.conv || !s.conv.Settle(msg.turn, msg.reply) {
			return nil
		}
		if msg.reply.Err != nil {
			s.logger.Warn().Err(msg.reply.Err).Msg("chat turn failed")
		}
		s.refresh()
		return s.textarea.Focus()

	case spinner.TickMsg:
		if !s.conv.Pending() {
			return nil
		}
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return cmd

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, s.keys.Submit) && view.IsSubmitKey(msg.String()):
			return s.submit()
		case key.Matches(msg, s.keys.Copy):
			return s.copyLastReply()
		case key.Matches(msg, s.keys.PageUp):
			s.viewport.HalfPageUp()
			return nil
		case key.Matches(msg, s.keys.PageDown):
			s.viewport.HalfPageDown()
			return nil
		}
		if !s.conv.InputEnabled() {
			return nil
		}
		var cmd tea.Cmd
		s.textarea, cmd = s.textarea.Update(msg)
		return cmd

	case tea.MouseMsg:
		var cmd tea.Cmd
		s.viewport, cmd = s.viewport.Update(msg)
		return cmd
	}

	var cmd tea.Cmd
	s.textarea, cmd = s.textarea.Update(msg)
	return cmd
}

// submit starts a turn with the message box content and sends it in the
// background.
func (s *chatScreen) submit() tea.Cmd {
	turn, ok := s.conv.Begin(s.textarea.Value())
	if !ok {
		return nil
	}
	s.textarea.Reset()
	s.textarea.Blur()
	s.refresh()

	ctx, conv := s.ctx, s.conv
	send := func() tea.Msg {
		return chatReplyMsg{conv: conv, turn: turn, reply: conv.Run(ctx, turn)}
	}
	return tea.Batch(send, s.spinner.Tick)
}

func (s *chatScreen) copyLastReply() tea.Cmd {
	text, ok := s.conv.LastReply()
	if !ok {
		return nil
	}
	return copyCmd(text, "reply")
}

// refresh re-renders the transcript and scrolls to the newest message
// whenever the conversation changed since the last render.
func (s *chatScreen) refresh() {
	rev := s.conv.Revision()
	if s.rendered && rev == s.revision {
		return
	}
	s.revision = rev
	s.rendered = true
	s.viewport.SetContent(s.transcript())
	if s.viewport.Height > 0 && s.viewport.Width > 0 {
		s.viewport.GotoBottom()
	}
}

func (s *chatScreen) transcript() string {
	var b strings.Builder
	for _, msg := range s.conv.History() {
		switch msg.Role {
		case genstudio.RoleUser:
			b.WriteString(userPromptStyle.Render("You: "))
			b.WriteString(msg.Text)
			b.WriteString("\n\n")
		default:
			b.WriteString(aiResponseStyle.Render(s.markdown(msg.Text)))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (s *chatScreen) markdown(text string) string {
	if s.renderer == nil {
		return text
	}
	out, err := s.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

func (s *chatScreen) view() string {
	snap := s.conv.Snapshot()

	if snap.State == view.ConversationUninitialized {
		return s.spinner.View() + dimStyle.Render(" Starting chat session...")
	}

	var status string
	switch {
	case snap.Pending:
		status = s.spinner.View() + pendingStyle.Render(" Thinking...")
	case snap.Error != "":
		status = errorStyle.Render(snap.Error)
	}

	input := s.textarea.View()
	if snap.State == view.ConversationErrored {
		input = dimStyle.Render("Chat is unavailable.")
	}

	return strings.Join([]string{
		s.viewport.View(),
		status,
		input,
		helpLine(s.keys.Submit, s.keys.Newline, s.keys.Copy, s.keys.NextView, s.keys.Quit),
	}, "\n")
}

type statusMsg string

// copyCmd writes text to the system clipboard.
func copyCmd(text, what string) tea.Cmd {
	return func() tea.Msg {
		if err := clipboard.WriteAll(text); err != nil {
			return statusMsg("Clipboard unavailable: " + err.Error())
		}
		return statusMsg("Copied " + what + " to clipboard")
	}
}
