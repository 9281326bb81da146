package genstudio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mhpenta/genstudio/ratelimiter"
)

// ErrModelNotRegistered is returned when the provider serves no model of the
// requested kind.
var ErrModelNotRegistered = errors.New("model not registered")

// Manager implements Gateway on top of a provider Gateway, adding per-model
// rate limiting, call timeouts, result validation and structured logging.
type Manager struct {
	provider Gateway

	// Models served by the provider, keyed by API model name
	modelInfo map[Model]*ModelInfo
	// API model names in the provider's order
	modelOrder []Model

	chatModel  Model
	imageModel Model

	limiters ratelimiter.Registry

	logger zerolog.Logger

	tokenEstimator TokenEstimator

	call CallConfig

	mu sync.RWMutex
}

// Ensure Manager implements the interface.
var _ Gateway = (*Manager)(nil)

// SetRateLimiter sets a custom rate limiter for a model.
// Passing nil removes rate limiting for that model.
func (m *Manager) SetRateLimiter(model Model, limiter ratelimiter.Limiter) *Manager {
	m.limiters.Set(string(model), limiter)
	return m
}

// SetLogger sets the logger for the manager.
func (m *Manager) SetLogger(logger zerolog.Logger) *Manager {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logger = logger
	return m
}

// ChatModel returns the API name of the model used for conversations.
func (m *Manager) ChatModel() Model {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.chatModel
}

// ImageModel returns the API name of the model used for image generation.
func (m *Manager) ImageModel() Model {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.imageModel
}

// StartChat creates a provider conversation wrapped with rate limiting and
// logging.
func (m *Manager) StartChat(ctx context.Context) (ChatSession, error) {
	model := m.ChatModel()
	if model == "" {
		return nil, fmt.Errorf("%w: %s", ErrModelNotRegistered, ModelKindChat)
	}

	log := m.log()
	session, err := m.provider.StartChat(ctx)
	if err != nil {
		log.Error().Err(err).Str("model", string(model)).Msg("failed to start chat session")
		return nil, err
	}

	log.Debug().Str("model", string(model)).Msg("chat session started")

	return &managedSession{
		manager: m,
		session: session,
		model:   model,
	}, nil
}

// GenerateImage creates one image from a text prompt.
func (m *Manager) GenerateImage(ctx context.Context, prompt string) (*ImageResult, error) {
	if err := ValidatePrompt(prompt); err != nil {
		return nil, err
	}

	model := m.ImageModel()
	if model == "" {
		return nil, fmt.Errorf("%w: %s", ErrModelNotRegistered, ModelKindImage)
	}

	log := m.log()
	start := time.Now()

	log.Debug().
		Str("model", string(model)).
		Int("prompt_length", len(prompt)).
		Msg("starting image generation")

	if err := m.checkRateLimit(ctx, model, prompt); err != nil {
		log.Warn().Err(err).Str("model", string(model)).Msg("rate limit hit")
		return nil, err
	}

	callCtx, cancel := m.callContext(ctx)
	defer cancel()

	result, err := m.provider.GenerateImage(callCtx, prompt)
	duration := time.Since(start)

	if err != nil {
		log.Error().
			Err(err).
			Str("model", string(model)).
			Int64("duration_ms", duration.Milliseconds()).
			Msg("generation failed")
		return nil, err
	}

	if err := ValidateImageResult(result); err != nil {
		log.Warn().
			Err(err).
			Str("model", string(model)).
			Int64("duration_ms", duration.Milliseconds()).
			Msg("provider returned no usable image")
		if errors.Is(err, ErrEmptyImageData) {
			return nil, ErrNoImageGenerated
		}
		return nil, err
	}

	if result.Prompt == "" {
		result.Prompt = prompt
	}
	if result.Model == "" {
		result.Model = string(model)
	}
	if result.GeneratedAt.IsZero() {
		result.GeneratedAt = time.Now()
	}

	log.Info().
		Str("model", string(model)).
		Int64("duration_ms", duration.Milliseconds()).
		Int("image_bytes", result.Size()).
		Msg("generation completed")

	return result, nil
}

// Models returns all registered model definitions, chat models first and each
// kind in the order the provider listed it.
func (m *Manager) Models() []ModelInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	models := make([]ModelInfo, 0, len(m.modelInfo))
	for _, kind := range []ModelKind{ModelKindChat, ModelKindImage} {
		for _, model := range m.modelOrder {
			if info := m.modelInfo[model]; info.Kind == kind {
				models = append(models, *info)
			}
		}
	}
	return models
}

// GetModelInfo returns model information for a specific API model name.
func (m *Manager) GetModelInfo(model Model) (*ModelInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	info, ok := m.modelInfo[model]
	return info, ok
}

// Close releases provider resources.
func (m *Manager) Close() error {
	if err := m.provider.Close(); err != nil {
		return fmt.Errorf("closing provider: %w", err)
	}
	return nil
}

// checkRateLimit checks rate limits for a model and optionally waits.
func (m *Manager) checkRateLimit(ctx context.Context, model Model, prompt string) error {
	const tokenBuffer = 100

	limiter, ok := m.limiters.Get(string(model))
	if !ok {
		return nil
	}

	estimatedTokens := m.tokenEstimator.EstimateTokens(prompt) + tokenBuffer

	m.mu.RLock()
	call := m.call
	m.mu.RUnlock()

	if call.WaitOnRateLimit {
		return limiter.WaitAndConsume(ctx, estimatedTokens, call.MaxWaitDuration)
	}

	if !limiter.TryConsume(estimatedTokens) {
		return &RateLimitError{
			RetryAfter: limiter.TimeUntilAvailable(estimatedTokens),
			LimitType:  "tokens",
			Model:      string(model),
		}
	}

	return nil
}

func (m *Manager) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	m.mu.RLock()
	timeout := m.call.Timeout
	m.mu.RUnlock()

	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func (m *Manager) log() *zerolog.Logger {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l := m.logger
	return &l
}
