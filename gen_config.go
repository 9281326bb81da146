package genstudio

import "time"

// Model represents a provider model identifier.
type Model string

// String returns the model identifier.
func (m Model) String() string {
	return string(m)
}

// AspectRatio represents the aspect ratio for generated images.
type AspectRatio string

const (
	AspectRatio1x1  AspectRatio = "1:1"
	AspectRatio16x9 AspectRatio = "16:9"
	AspectRatio9x16 AspectRatio = "9:16"
	AspectRatio4x3  AspectRatio = "4:3"
	AspectRatio3x4  AspectRatio = "3:4"
)

// String returns the string representation for API calls.
func (a AspectRatio) String() string {
	return string(a)
}

const (
	MIMETypePNG  = "image/png"
	MIMETypeJPEG = "image/jpeg"
)

// ImageConfig holds the image generation parameters sent to the provider.
// The studio always uses DefaultImageConfig; only the model can be changed,
// and only at construction time.
type ImageConfig struct {
	// Model to use for generation
	Model Model

	// NumberOfImages requested per call
	NumberOfImages int

	// OutputMIMEType of the generated image
	OutputMIMEType string

	// AspectRatio of the output image
	AspectRatio AspectRatio
}

// DefaultImageConfig returns the fixed configuration used for every image
// request: one PNG image with a square aspect ratio.
func DefaultImageConfig(model Model) ImageConfig {
	return ImageConfig{
		Model:          model,
		NumberOfImages: 1,
		OutputMIMEType: MIMETypePNG,
		AspectRatio:    AspectRatio1x1,
	}
}

// CallConfig controls how the Manager dispatches a single provider call.
type CallConfig struct {
	// Timeout bounds one provider call. Zero means no timeout.
	Timeout time.Duration

	// WaitOnRateLimit, if true, causes the Manager to wait for capacity
	// instead of returning a RateLimitError immediately.
	WaitOnRateLimit bool

	// MaxWaitDuration is the maximum time to wait when WaitOnRateLimit is true.
	// Zero means no limit.
	MaxWaitDuration time.Duration
}
