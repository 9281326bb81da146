package genstudio

import (
	"errors"
	"fmt"
	"strings"
)

// Validation errors
var (
	ErrEmptyPrompt     = errors.New("prompt cannot be empty")
	ErrEmptyImageData  = errors.New("image data cannot be empty")
	ErrInvalidMIMEType = errors.New("invalid or unsupported MIME type")
	ErrImageTooLarge   = errors.New("image data exceeds maximum size")
)

// MaxImageSize is the maximum accepted image payload in bytes (20MB)
const MaxImageSize = 20 * 1024 * 1024

// ValidMIMETypes contains the image MIME types a provider may return
var ValidMIMETypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// NormalizeInput trims surrounding whitespace from user input.
func NormalizeInput(s string) string {
	return strings.TrimSpace(s)
}

// ValidatePrompt validates a text prompt. Whitespace-only prompts are empty.
func ValidatePrompt(prompt string) error {
	if NormalizeInput(prompt) == "" {
		return ErrEmptyPrompt
	}
	return nil
}

// ValidateImageResult validates an image returned by a provider.
func ValidateImageResult(img *ImageResult) error {
	if img == nil || len(img.Data) == 0 {
		return ErrEmptyImageData
	}

	if len(img.Data) > MaxImageSize {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrImageTooLarge, len(img.Data), MaxImageSize)
	}

	if img.MIMEType != "" && !ValidMIMETypes[img.MIMEType] {
		return fmt.Errorf("%w: %s", ErrInvalidMIMEType, img.MIMEType)
	}

	return nil
}
