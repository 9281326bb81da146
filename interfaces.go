package genstudio

import "context"

// Gateway is the boundary between the studio widgets and an AI provider.
// Implement this interface to add support for a new provider.
//
// The first chat model and the first image model returned by Models() are
// the defaults.
type Gateway interface {
	// StartChat creates a provider-side conversation with an empty history.
	StartChat(ctx context.Context) (ChatSession, error)

	// GenerateImage produces exactly one image for the prompt using the fixed
	// image configuration. A provider that answers with zero images must
	// return ErrNoImageGenerated.
	GenerateImage(ctx context.Context, prompt string) (*ImageResult, error)

	// Models returns the model definitions served by this gateway.
	Models() []ModelInfo

	// Close releases any resources held by the gateway.
	Close() error
}

// ChatSession is an opaque handle to provider-side chat state.
type ChatSession interface {
	// Send delivers one user message and returns the model's reply text.
	Send(ctx context.Context, text string) (string, error)

	// History returns the turns the provider has acknowledged so far.
	History() []Message
}
