package genstudio

import (
	"encoding/base64"
	"time"
)

// Role identifies the author of a Message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message is a single entry in a conversation transcript.
type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// UserMessage returns a Message authored by the user.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Text: text}
}

// ModelMessage returns a Message authored by the model.
func ModelMessage(text string) Message {
	return Message{Role: RoleModel, Text: text}
}

// ImageResult is a single generated image and the prompt that produced it.
type ImageResult struct {
	// Prompt is the text the image was generated from
	Prompt string

	// Data contains the raw image bytes
	Data []byte

	// MIMEType of the generated image
	MIMEType string

	// Model is the API model name that produced the image
	Model string

	// GeneratedAt is when the provider call returned
	GeneratedAt time.Time
}

// DataURI encodes the image as a data URI suitable for an <img> src.
func (r *ImageResult) DataURI() string {
	if r == nil {
		return ""
	}
	mime := r.MIMEType
	if mime == "" {
		mime = MIMETypePNG
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(r.Data)
}

// Size returns the number of image bytes.
func (r *ImageResult) Size() int {
	if r == nil {
		return 0
	}
	return len(r.Data)
}
