package gemini

import "github.com/mhpenta/genstudio"

// Model name constants - the actual API model names.
const (
	// APIModelGeminiFlash is the default chat model
	APIModelGeminiFlash = "gemini-2.5-flash"

	// APIModelImagen4 is the default image model
	APIModelImagen4 = "imagen-4.0-generate-001"
)

// GeminiFlashInfo is the model info for Gemini 2.5 Flash.
var GeminiFlashInfo = genstudio.ModelInfo{
	Name:         "gemini-flash",
	Kind:         genstudio.ModelKindChat,
	Provider:     genstudio.ProviderGeminiAPI,
	APIModelName: APIModelGeminiFlash,

	ContextLength: 1048576, // 1M tokens

	RateLimits: genstudio.RateLimits{
		TokensPerMinute:   1000000,
		RequestsPerMinute: 1000, // Tier 1
	},

	Pricing: genstudio.Pricing{
		InputTokensPerMillion:  0.30,
		OutputTokensPerMillion: 2.50,
	},
}

// Imagen4Info is the model info for Imagen 4 (standard).
var Imagen4Info = genstudio.ModelInfo{
	Name:         "imagen-4",
	Kind:         genstudio.ModelKindImage,
	Provider:     genstudio.ProviderGeminiAPI,
	APIModelName: APIModelImagen4,

	ContextLength: 480, // prompt tokens

	RateLimits: genstudio.RateLimits{
		RequestsPerMinute: 10,
	},

	Pricing: genstudio.Pricing{
		ImageGenerationCost: 0.04,
	},
}

var knownModels = map[string]genstudio.ModelInfo{
	APIModelGeminiFlash: GeminiFlashInfo,
	APIModelImagen4:     Imagen4Info,
}

// modelInfo returns the catalog entry for apiName, or a bare entry without
// rate limits for models the catalog does not know.
func modelInfo(apiName string, kind genstudio.ModelKind) genstudio.ModelInfo {
	if info, ok := knownModels[apiName]; ok && info.Kind == kind {
		return info
	}
	return genstudio.ModelInfo{
		Name:         apiName,
		Kind:         kind,
		Provider:     genstudio.ProviderGeminiAPI,
		APIModelName: apiName,
	}
}
