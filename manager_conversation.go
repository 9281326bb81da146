package genstudio

import (
	"context"
	"time"
)

// managedSession wraps a provider ChatSession with the Manager's rate
// limiting, timeouts and logging.
type managedSession struct {
	manager *Manager
	session ChatSession
	model   Model
}

// Send sends a message and receives the model's reply.
func (s *managedSession) Send(ctx context.Context, text string) (string, error) {
	if err := ValidatePrompt(text); err != nil {
		return "", err
	}

	log := s.manager.log()
	start := time.Now()

	log.Debug().
		Str("model", string(s.model)).
		Int("message_length", len(text)).
		Msg("sending chat turn")

	if err := s.manager.checkRateLimit(ctx, s.model, text); err != nil {
		log.Warn().Err(err).Str("model", string(s.model)).Msg("rate limit hit for chat")
		return "", err
	}

	callCtx, cancel := s.manager.callContext(ctx)
	defer cancel()

	reply, err := s.session.Send(callCtx, text)
	duration := time.Since(start)

	if err != nil {
		log.Error().
			Err(err).
			Str("model", string(s.model)).
			Int64("duration_ms", duration.Milliseconds()).
			Msg("chat turn failed")
		return "", err
	}

	log.Info().
		Str("model", string(s.model)).
		Int64("duration_ms", duration.Milliseconds()).
		Int("reply_length", len(reply)).
		Msg("chat turn completed")

	return reply, nil
}

// History returns the provider-acknowledged history.
func (s *managedSession) History() []Message {
	return s.session.History()
}
