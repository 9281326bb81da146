package genstudio

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/mhpenta/genstudio/ratelimiter"
)

// ManagerOption configures the Manager.
type ManagerOption func(*Manager)

// WithLogger sets a structured logger for the manager.
func WithLogger(logger zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithTimeout bounds every provider call.
func WithTimeout(timeout time.Duration) ManagerOption {
	return func(m *Manager) {
		m.call.Timeout = timeout
	}
}

// WithWaitOnRateLimit makes the manager wait for rate limit capacity, up to
// maxWait (zero means no limit), instead of failing fast.
func WithWaitOnRateLimit(maxWait time.Duration) ManagerOption {
	return func(m *Manager) {
		m.call.WaitOnRateLimit = true
		m.call.MaxWaitDuration = maxWait
	}
}

// WithTokenEstimator replaces the default token estimator.
func WithTokenEstimator(estimator TokenEstimator) ManagerOption {
	return func(m *Manager) {
		m.tokenEstimator = estimator
	}
}

// NewManager creates a Manager for the given provider. The provider's first
// chat model and first image model become the studio's models, and each
// model with rate limits gets an in-memory limiter.
//
// Example:
//
//	gen, err := gemini.New(ctx, &gemini.Config{APIKey: apiKey})
//	if err != nil {
//	    return err
//	}
//	manager := genstudio.NewManager(gen,
//	    genstudio.WithLogger(log.Logger),
//	    genstudio.WithTimeout(2*time.Minute),
//	)
func NewManager(provider Gateway, opts ...ManagerOption) *Manager {
	m := &Manager{
		provider:       provider,
		modelInfo:      make(map[Model]*ModelInfo),
		limiters:       ratelimiter.NewRegistry(),
		logger:         zerolog.Nop(),
		tokenEstimator: NewSimpleTokenEstimator(),
	}

	models := provider.Models()
	for i := range models {
		info := &models[i]
		model := Model(info.APIModelName)
		if _, seen := m.modelInfo[model]; !seen {
			m.modelOrder = append(m.modelOrder, model)
		}
		m.modelInfo[model] = info

		switch info.Kind {
		case ModelKindChat:
			if m.chatModel == "" {
				m.chatModel = model
			}
		case ModelKindImage:
			if m.imageModel == "" {
				m.imageModel = model
			}
		}

		if info.RateLimits.TokensPerMinute > 0 || info.RateLimits.RequestsPerMinute > 0 {
			m.limiters.Set(string(model), ratelimiter.New(
				info.RateLimits.TokensPerMinute,
				info.RateLimits.RequestsPerMinute,
			))
		}
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}
