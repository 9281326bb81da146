// Package gemini provides a genstudio.Gateway backed by Google's Gemini API.
//
// This provider uses the Gemini API backend via the official Go SDK:
// https://github.com/googleapis/go-genai
//
// Conversations use a Gemini chat model; images use an Imagen model through
// the predict endpoint.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"github.com/mhpenta/genstudio"
)

// ErrMissingAPIKey is returned by New when no API key is configured.
var ErrMissingAPIKey = errors.New("gemini: API key is required")

// Config configures the Gemini gateway.
type Config struct {
	// APIKey for authentication. Required.
	APIKey string

	// ChatModel is the API model name used for conversations
	ChatModel string

	// ImageModel is the API model name used for image generation
	ImageModel string

	// BaseURL for custom endpoints (optional)
	BaseURL string

	// HTTPClient overrides the SDK's HTTP client (optional)
	HTTPClient *http.Client
}

// Gateway implements genstudio.Gateway using the Gemini API.
type Gateway struct {
	client      *genai.Client
	chatModel   string
	imageModel  string
	imageConfig genstudio.ImageConfig
}

// Ensure Gateway implements the interface.
var _ genstudio.Gateway = (*Gateway)(nil)

// New creates a Gateway. The API key is passed in explicitly; the SDK's
// environment lookup is never relied on.
func New(ctx context.Context, config *Config) (*Gateway, error) {
	if config == nil || strings.TrimSpace(config.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     config.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: config.HTTPClient,
	}
	if config.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = config.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	chatModel := config.ChatModel
	if chatModel == "" {
		chatModel = APIModelGeminiFlash
	}
	imageModel := config.ImageModel
	if imageModel == "" {
		imageModel = APIModelImagen4
	}

	return &Gateway{
		client:      client,
		chatModel:   chatModel,
		imageModel:  imageModel,
		imageConfig: genstudio.DefaultImageConfig(genstudio.Model(imageModel)),
	}, nil
}

// StartChat creates a chat session with an empty history.
func (g *Gateway) StartChat(ctx context.Context) (genstudio.ChatSession, error) {
	chat, err := g.client.Chats.Create(ctx, g.chatModel, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}
	return &Session{chat: chat, model: g.chatModel}, nil
}

// GenerateImage creates a single image from a text prompt.
func (g *Gateway) GenerateImage(ctx context.Context, prompt string) (*genstudio.ImageResult, error) {
	if err := genstudio.ValidatePrompt(prompt); err != nil {
		return nil, err
	}

	cfg := g.imageConfig
	resp, err := g.client.Models.GenerateImages(ctx, g.imageModel, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: int32(cfg.NumberOfImages),
		OutputMIMEType: cfg.OutputMIMEType,
		AspectRatio:    cfg.AspectRatio.String(),
	})
	if err != nil {
		return nil, checkRateLimitError(err, g.imageModel)
	}

	img := firstImage(resp)
	if img == nil {
		return nil, genstudio.ErrNoImageGenerated
	}

	mime := img.MIMEType
	if mime == "" {
		mime = cfg.OutputMIMEType
	}

	return &genstudio.ImageResult{
		Prompt:      prompt,
		Data:        img.ImageBytes,
		MIMEType:    mime,
		Model:       g.imageModel,
		GeneratedAt: time.Now(),
	}, nil
}

// Models returns the chat model followed by the image model.
func (g *Gateway) Models() []genstudio.ModelInfo {
	return []genstudio.ModelInfo{
		modelInfo(g.chatModel, genstudio.ModelKindChat),
		modelInfo(g.imageModel, genstudio.ModelKindImage),
	}
}

// Close releases any resources held by the gateway.
func (g *Gateway) Close() error {
	// The genai.Client doesn't require explicit closing in the current SDK
	return nil
}

func firstImage(resp *genai.GenerateImagesResponse) *genai.Image {
	if resp == nil {
		return nil
	}
	for _, gen := range resp.GeneratedImages {
		if gen != nil && gen.Image != nil && len(gen.Image.ImageBytes) > 0 {
			return gen.Image
		}
	}
	return nil
}

// Session implements genstudio.ChatSession over a genai.Chat.
type Session struct {
	chat  *genai.Chat
	model string

	mu sync.Mutex
}

// Send sends one user message and returns the reply text.
func (s *Session) Send(ctx context.Context, text string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp, err := s.chat.SendMessage(ctx, genai.Part{Text: text})
	if err != nil {
		return "", checkRateLimitError(err, s.model)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		if resp != nil && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("prompt blocked: %s", resp.PromptFeedback.BlockReason)
		}
		return "", errors.New("empty response from model")
	}

	return resp.Text(), nil
}

// History returns the curated history recorded by the SDK.
func (s *Session) History() []genstudio.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	contents := s.chat.History(true)
	history := make([]genstudio.Message, 0, len(contents))
	for _, c := range contents {
		if c == nil {
			continue
		}
		var sb strings.Builder
		for _, p := range c.Parts {
			if p != nil && !p.Thought {
				sb.WriteString(p.Text)
			}
		}
		role := genstudio.RoleUser
		if c.Role == genai.RoleModel {
			role = genstudio.RoleModel
		}
		history = append(history, genstudio.Message{Role: role, Text: sb.String()})
	}
	return history
}

// checkRateLimitError checks if an error from the Gemini API is a rate limit error.
// If so, it wraps it in a RateLimitError for standardized handling; otherwise returns the original error.
func checkRateLimitError(err error, model string) error {
	if err == nil {
		return nil
	}

	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return err
	}

	if apiErr.Code != http.StatusTooManyRequests && apiErr.Status != "RESOURCE_EXHAUSTED" {
		return err
	}

	return &genstudio.RateLimitError{
		RetryAfter: 60 * time.Second, // Default; API doesn't reliably provide Retry-After
		LimitType:  "requests",
		Model:      model,
		Err:        err,
	}
}
