package genstudio

// ModelKind describes which studio tool a model serves.
type ModelKind string

const (
	ModelKindChat  ModelKind = "chat"
	ModelKindImage ModelKind = "image"
)

// Provider represents a model provider/backend.
type Provider string

const (
	ProviderGeminiAPI Provider = "gemini"
)

// RateLimits defines rate limiting parameters for a model.
type RateLimits struct {
	TokensPerMinute   int
	RequestsPerMinute int
	TokensPerDay      int // 0 = unlimited
}

// Pricing defines cost information for a model.
type Pricing struct {
	InputTokensPerMillion  float64
	OutputTokensPerMillion float64
	ImageGenerationCost    float64 // Per image (if applicable)
}

// ModelInfo contains complete metadata for a model.
type ModelInfo struct {
	// Identity
	Name         string    // Public model name (e.g., "gemini-flash")
	Kind         ModelKind // Chat or image
	Provider     Provider  // Which provider serves this model
	APIModelName string    // Actual API name (e.g., "gemini-2.5-flash")

	ContextLength int

	// Rate Limits
	RateLimits RateLimits

	// Pricing
	Pricing Pricing
}

// DefaultModel returns the first model of the given kind, following the
// Gateway convention that the first listed model is the default.
func DefaultModel(models []ModelInfo, kind ModelKind) (ModelInfo, bool) {
	for _, m := range models {
		if m.Kind == kind {
			return m, true
		}
	}
	return ModelInfo{}, false
}
