package tui

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhpenta/genstudio"
	"github.com/mhpenta/genstudio/genstudiotest"
	"github.com/mhpenta/genstudio/view"
)

// run executes cmd and every command batched inside it, returning the
// messages other than spinner ticks. Commands that do not finish promptly,
// such as cursor blinks, are abandoned.
func run(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()

	var msg tea.Msg
	select {
	case msg = <-done:
	case <-time.After(250 * time.Millisecond):
		return nil
	}

	switch msg := msg.(type) {
	case tea.BatchMsg:
		var out []tea.Msg
		for _, c := range msg {
			out = append(out, run(c)...)
		}
		return out
	case spinner.TickMsg, cursor.BlinkMsg, nil:
		return nil
	default:
		return []tea.Msg{msg}
	}
}

// feed delivers msgs to m, running the resulting commands until quiet.
func feed(m *appModel, msgs ...tea.Msg) {
	for len(msgs) > 0 {
		msg := msgs[0]
		msgs = msgs[1:]
		_, cmd := m.Update(msg)
		msgs = append(msgs, run(cmd)...)
	}
}

func newTestApp(t *testing.T, gw genstudio.Gateway) *appModel {
	t.Helper()
	m := newAppModel(context.Background(), view.NewSwitcher(gw), zerolog.Nop())
	feed(m, tea.WindowSizeMsg{Width: 80, Height: 24})
	require.NotNil(t, m.chat)
	feed(m, m.chat.mount()())
	return m
}

func typeText(m *appModel, text string) {
	feed(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
}

func TestApp_ChatTurn(t *testing.T) {
	gw := &genstudiotest.Gateway{}
	m := newTestApp(t, gw)
	conv := m.switcher.Conversation()
	require.Equal(t, view.ConversationIdle, conv.State())

	typeText(m, "Hello")
	assert.Equal(t, "Hello", m.chat.textarea.Value())

	feed(m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, []genstudio.Message{
		genstudio.UserMessage("Hello"),
		genstudio.ModelMessage("echo: Hello"),
	}, conv.History())
	assert.Empty(t, m.chat.textarea.Value(), "input is cleared on submit")
	assert.Contains(t, m.View(), "Hello")
}

func TestApp_ChatFailureShowsError(t *testing.T) {
	session := &genstudiotest.Session{ReplyFunc: genstudiotest.Fail("quota exceeded")}
	m := newTestApp(t, &genstudiotest.Gateway{StartChatFunc: genstudiotest.SessionWith(session)})

	typeText(m, "Hello")
	feed(m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Empty(t, m.switcher.Conversation().History())
	assert.Contains(t, m.View(), "Error: quota exceeded")
}

func TestApp_ChatSessionFailureBanner(t *testing.T) {
	gw := &genstudiotest.Gateway{
		StartChatFunc: func(context.Context) (genstudio.ChatSession, error) {
			return nil, assert.AnError
		},
	}
	m := newTestApp(t, gw)

	out := m.View()
	assert.Contains(t, out, view.SessionInitFailure)
	assert.Contains(t, out, "Chat is unavailable.")
}

func TestApp_EnterWhilePendingIsIgnored(t *testing.T) {
	gw := &genstudiotest.Gateway{}
	m := newTestApp(t, gw)

	typeText(m, "Hello")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	require.True(t, m.switcher.Conversation().Pending())

	typeText(m, "again")
	_, second := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, second)

	feed(m, run(cmd)...)
	assert.Len(t, m.switcher.Conversation().History(), 2)
	assert.Equal(t, []string{"Hello"}, gw.Sessions()[0].Sent())
}

func TestApp_TabSwitchesAndRemounts(t *testing.T) {
	gw := &genstudiotest.Gateway{}
	m := newTestApp(t, gw)

	typeText(m, "Hello")
	feed(m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Len(t, m.switcher.Conversation().History(), 2)

	feed(m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, view.KindImage, m.switcher.Current())
	require.NotNil(t, m.image)
	assert.Nil(t, m.chat)
	assert.Contains(t, m.View(), view.PlaceholderTitle)

	feed(m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, view.KindConversation, m.switcher.Current())
	require.NotNil(t, m.chat)
	assert.Empty(t, m.switcher.Conversation().History())
	assert.Equal(t, view.ConversationIdle, m.switcher.Conversation().State())
	assert.Equal(t, 2, gw.ChatStarts())
}

func TestApp_MouseSelectsView(t *testing.T) {
	m := newTestApp(t, &genstudiotest.Gateway{})

	imageX := lipgloss.Width(navButtonStyle.Render(view.KindConversation.Label())) + navGap + 1
	feed(m, tea.MouseMsg{X: imageX, Y: 0, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	assert.Equal(t, view.KindImage, m.switcher.Current())

	// Clicking the active button does nothing.
	feed(m, tea.MouseMsg{X: imageX, Y: 0, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	assert.Equal(t, view.KindImage, m.switcher.Current())

	feed(m, tea.MouseMsg{X: 0, Y: 0, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	assert.Equal(t, view.KindConversation, m.switcher.Current())
}

func TestApp_StaleReplyAfterSwitch(t *testing.T) {
	m := newTestApp(t, &genstudiotest.Gateway{})

	typeText(m, "Hello")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	feed(m, tea.KeyMsg{Type: tea.KeyTab}, tea.KeyMsg{Type: tea.KeyTab})
	fresh := m.switcher.Conversation()

	feed(m, run(cmd)...)
	assert.Empty(t, fresh.History(), "reply for an unmounted conversation is dropped")
}

func TestApp_ImageGeneration(t *testing.T) {
	gw := &genstudiotest.Gateway{
		GenerateImageFunc: func(_ context.Context, prompt string) (*genstudio.ImageResult, error) {
			return &genstudio.ImageResult{Prompt: prompt, Data: testPNG(t, 4, 4), MIMEType: genstudio.MIMETypePNG}, nil
		},
	}
	m := newTestApp(t, gw)
	feed(m, tea.KeyMsg{Type: tea.KeyTab})
	require.NotNil(t, m.image)

	// Enter with an empty prompt does nothing.
	feed(m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, 0, gw.ImageCalls())

	typeText(m, "a red cube")
	feed(m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, []string{"a red cube"}, gw.Prompts())
	assert.Equal(t, view.DisplayImage, m.switcher.Image().Display().Mode)
	out := m.View()
	assert.Contains(t, out, halfBlock)
	assert.Contains(t, out, "a red cube")
}

func TestApp_ImageZeroResult(t *testing.T) {
	gw := &genstudiotest.Gateway{
		GenerateImageFunc: func(context.Context, string) (*genstudio.ImageResult, error) {
			return nil, genstudio.ErrNoImageGenerated
		},
	}
	m := newTestApp(t, gw)
	feed(m, tea.KeyMsg{Type: tea.KeyTab})

	typeText(m, "a red cube")
	feed(m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Contains(t, m.View(), "Error: No image was generated.")
}

func TestApp_Quit(t *testing.T) {
	m := newTestApp(t, &genstudiotest.Gateway{})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestNavHit(t *testing.T) {
	chatW := lipgloss.Width(navButtonStyle.Render("Chat"))
	imageW := lipgloss.Width(navButtonStyle.Render("Image Generator"))

	tests := []struct {
		name   string
		x, y   int
		want   view.Kind
		wantOK bool
	}{
		{name: "chat start", x: 0, y: 0, want: view.KindConversation, wantOK: true},
		{name: "chat end", x: chatW - 1, y: 0, want: view.KindConversation, wantOK: true},
		{name: "gap", x: chatW, y: 0},
		{name: "image start", x: chatW + navGap, y: 0, want: view.KindImage, wantOK: true},
		{name: "past image", x: chatW + navGap + imageW, y: 0},
		{name: "second row", x: 1, y: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := navHit(tt.x, tt.y)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestNavBarLabels(t *testing.T) {
	bar := navBar(view.KindConversation)
	assert.Contains(t, bar, "Chat")
	assert.Contains(t, bar, "Image Generator")
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 60), G: uint8(y * 60), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestRenderPreview(t *testing.T) {
	out, err := renderPreview(testPNG(t, 8, 8), 4, 2)
	require.NoError(t, err)

	lines := strings.Split(out, "\n")
	assert.Len(t, lines, 2)
	for _, line := range lines {
		assert.Equal(t, 4, strings.Count(line, halfBlock))
	}
}

func TestRenderPreview_InvalidData(t *testing.T) {
	_, err := renderPreview([]byte("not an image"), 10, 10)
	assert.Error(t, err)
}

func TestFitSize(t *testing.T) {
	tests := []struct {
		name             string
		w, h, maxW, maxH int
		wantW, wantH     int
	}{
		{name: "square into wide", w: 100, h: 100, maxW: 40, maxH: 20, wantW: 20, wantH: 20},
		{name: "square into tall", w: 100, h: 100, maxW: 10, maxH: 40, wantW: 10, wantH: 10},
		{name: "odd height rounded", w: 10, h: 7, maxW: 10, maxH: 20, wantW: 10, wantH: 6},
		{name: "too small", w: 100, h: 100, maxW: 1, maxH: 1},
		{name: "empty image", w: 0, h: 0, maxW: 10, maxH: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := fitSize(tt.w, tt.h, tt.maxW, tt.maxH)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}
