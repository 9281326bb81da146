package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/mhpenta/genstudio"
	"github.com/mhpenta/genstudio/view"
)

type imageReplyMsg struct {
	widget *view.Image
	req    view.ImageRequest
	reply  view.ImageReply
}

// imageScreen renders one mounted Image widget.
type imageScreen struct {
	ctx    context.Context
	widget *view.Image
	keys   KeyMap
	logger zerolog.Logger

	input   textinput.Model
	spinner spinner.Model

	width, height int

	// preview caches the rendering of the current image
	preview       string
	previewFor    *genstudio.ImageResult
	previewWidth  int
	previewHeight int
}

func newImageScreen(ctx context.Context, widget *view.Image, keys KeyMap, logger zerolog.Logger) *imageScreen {
	ti := textinput.New()
	ti.Placeholder = "e.g., A futuristic city skyline at sunset, synthwave style"
	ti.Prompt = "› "
	ti.Focus()

	return &imageScreen{
		ctx:     ctx,
		widget:  widget,
		keys:    keys,
		logger:  logger,
		input:   ti,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(pendingStyle)),
	}
}

func (s *imageScreen) setSize(width, height int) {
	s.width, s.height = width, height
	s.input.Width = max(width-lipgloss.Width(s.generateButton())-6, 10)
}

func (s *imageScreen) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case imageReplyMsg:
		if msg.widget != s.widget || !s.widget.Settle(msg.req, msg.reply) {
			return nil
		}
		if msg.reply.Err != nil {
			s.logger.Warn().Err(msg.reply.Err).Str("prompt", msg.req.Prompt).Msg("image generation failed")
		}
		return s.input.Focus()

	case spinner.TickMsg:
		if !s.widget.Pending() {
			return nil
		}
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return cmd

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, s.keys.Submit):
			return s.generate()
		case key.Matches(msg, s.keys.Copy):
			if r := s.widget.Result(); r != nil {
				return copyCmd(r.DataURI(), "image data URI")
			}
			return nil
		}
		if s.widget.Pending() {
			return nil
		}
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return cmd
}

// generate starts a request for the prompt and runs it in the background.
func (s *imageScreen) generate() tea.Cmd {
	req, ok := s.widget.Begin(s.input.Value())
	if !ok {
		return nil
	}
	s.input.Blur()

	ctx, widget := s.ctx, s.widget
	run := func() tea.Msg {
		return imageReplyMsg{widget: widget, req: req, reply: widget.Run(ctx, req)}
	}
	return tea.Batch(run, s.spinner.Tick)
}

func (s *imageScreen) generateButton() string {
	label := "Generate"
	if s.widget.Pending() {
		label = "Generating..."
	}
	if !s.widget.CanGenerate(s.input.Value()) {
		return buttonDisabledStyle.Render(label)
	}
	return buttonStyle.Render(label)
}

func (s *imageScreen) view() string {
	form := lipgloss.JoinHorizontal(lipgloss.Center, s.input.View(), "  ", s.generateButton())
	panelHeight := max(s.height-lipgloss.Height(form)-3, 2)

	return strings.Join([]string{
		form,
		"",
		s.panel(panelHeight),
		helpLine(s.keys.Submit, s.keys.Copy, s.keys.NextView, s.keys.Quit),
	}, "\n")
}

// panel renders the display area following the widget's display policy.
func (s *imageScreen) panel(height int) string {
	d := s.widget.Display()

	var body string
	switch d.Mode {
	case view.DisplayPending:
		body = s.spinner.View() + " " + pendingStyle.Render(d.Text)
	case view.DisplayError:
		body = errorStyle.Render(d.Text)
	case view.DisplayImage:
		body = s.renderImage(d.Image, height-1)
	default:
		body = placeholderStyle.Render(headerStyle.Render(d.Text) + "\n" + d.Hint)
	}

	return lipgloss.Place(s.width, height, lipgloss.Center, lipgloss.Center, body)
}

func (s *imageScreen) renderImage(img *genstudio.ImageResult, rows int) string {
	cols := s.width - 2
	if img != s.previewFor || cols != s.previewWidth || rows != s.previewHeight {
		preview, err := renderPreview(img.Data, cols, rows)
		if err != nil {
			s.logger.Debug().Err(err).Msg("cannot preview image")
			preview = dimStyle.Render("Image generated (" + img.MIMEType + "); preview unavailable.")
		}
		s.preview, s.previewFor = preview, img
		s.previewWidth, s.previewHeight = cols, rows
	}
	return s.preview + "\n" + dimStyle.Render(img.Prompt)
}
