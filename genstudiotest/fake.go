// Package genstudiotest provides scriptable Gateway and ChatSession fakes.
package genstudiotest

import (
	"context"
	"errors"
	"sync"

	"github.com/mhpenta/genstudio"
)

const (
	ChatModel  = "fake-chat"
	ImageModel = "fake-image"
)

// Gateway is a genstudio.Gateway whose behaviour is set through function
// fields. Unset fields fall back to a working default.
type Gateway struct {
	StartChatFunc     func(ctx context.Context) (genstudio.ChatSession, error)
	GenerateImageFunc func(ctx context.Context, prompt string) (*genstudio.ImageResult, error)
	ModelsFunc        func() []genstudio.ModelInfo
	CloseFunc         func() error

	mu         sync.Mutex
	chatStarts int
	prompts    []string
	sessions   []*Session
}

var _ genstudio.Gateway = (*Gateway)(nil)

func (g *Gateway) StartChat(ctx context.Context) (genstudio.ChatSession, error) {
	g.mu.Lock()
	g.chatStarts++
	g.mu.Unlock()

	if g.StartChatFunc != nil {
		return g.StartChatFunc(ctx)
	}

	s := &Session{}
	g.mu.Lock()
	g.sessions = append(g.sessions, s)
	g.mu.Unlock()
	return s, nil
}

func (g *Gateway) GenerateImage(ctx context.Context, prompt string) (*genstudio.ImageResult, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()

	if g.GenerateImageFunc != nil {
		return g.GenerateImageFunc(ctx, prompt)
	}
	return PNG(prompt), nil
}

func (g *Gateway) Models() []genstudio.ModelInfo {
	if g.ModelsFunc != nil {
		return g.ModelsFunc()
	}
	return []genstudio.ModelInfo{
		{Name: ChatModel, Kind: genstudio.ModelKindChat, Provider: "fake", APIModelName: ChatModel},
		{Name: ImageModel, Kind: genstudio.ModelKindImage, Provider: "fake", APIModelName: ImageModel},
	}
}

func (g *Gateway) Close() error {
	if g.CloseFunc != nil {
		return g.CloseFunc()
	}
	return nil
}

// ChatStarts returns how many sessions were requested.
func (g *Gateway) ChatStarts() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.chatStarts
}

// ImageCalls returns how many image requests reached the gateway.
func (g *Gateway) ImageCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

// Prompts returns the prompts of all image requests in order.
func (g *Gateway) Prompts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.prompts...)
}

// Sessions returns the default sessions handed out so far.
func (g *Gateway) Sessions() []*Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]*Session(nil), g.sessions...)
}

// Session is a genstudio.ChatSession that answers through ReplyFunc, or
// echoes the message back when ReplyFunc is nil. Only successful turns are
// recorded in History, as a real provider would.
type Session struct {
	ReplyFunc func(ctx context.Context, text string) (string, error)

	mu      sync.Mutex
	sent    []string
	history []genstudio.Message
}

var _ genstudio.ChatSession = (*Session)(nil)

func (s *Session) Send(ctx context.Context, text string) (string, error) {
	s.mu.Lock()
	s.sent = append(s.sent, text)
	s.mu.Unlock()

	reply := "echo: " + text
	if s.ReplyFunc != nil {
		var err error
		reply, err = s.ReplyFunc(ctx, text)
		if err != nil {
			return "", err
		}
	}

	s.mu.Lock()
	s.history = append(s.history, genstudio.UserMessage(text), genstudio.ModelMessage(reply))
	s.mu.Unlock()
	return reply, nil
}

func (s *Session) History() []genstudio.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]genstudio.Message(nil), s.history...)
}

// Sent returns every message passed to Send, including failed ones.
func (s *Session) Sent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent...)
}

// Reply returns a ReplyFunc that always answers text.
func Reply(text string) func(context.Context, string) (string, error) {
	return func(context.Context, string) (string, error) {
		return text, nil
	}
}

// Fail returns a ReplyFunc that always fails with msg.
func Fail(msg string) func(context.Context, string) (string, error) {
	return func(context.Context, string) (string, error) {
		return "", errors.New(msg)
	}
}

// SessionWith returns a StartChatFunc that always hands out s.
func SessionWith(s *Session) func(context.Context) (genstudio.ChatSession, error) {
	return func(context.Context) (genstudio.ChatSession, error) {
		return s, nil
	}
}

// pngHeader is the 8-byte PNG signature.
var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// PNG returns a fake PNG result for prompt.
func PNG(prompt string) *genstudio.ImageResult {
	data := append(append([]byte(nil), pngHeader...), prompt...)
	return &genstudio.ImageResult{
		Prompt:   prompt,
		Data:     data,
		MIMEType: genstudio.MIMETypePNG,
		Model:    ImageModel,
	}
}
