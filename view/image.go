package view

import (
	"context"
	"sync"

	"github.com/mhpenta/genstudio"
)

const (
	ProgressText     = "Generating your masterpiece... please wait."
	PlaceholderTitle = "Your generated image will appear here"
	PlaceholderHint  = `Enter a prompt above and click "Generate" to start.`
)

// DisplayMode selects what the image panel shows.
type DisplayMode int

const (
	DisplayEmpty DisplayMode = iota
	DisplayPending
	DisplayError
	DisplayImage
)

func (m DisplayMode) String() string {
	switch m {
	case DisplayPending:
		return "pending"
	case DisplayError:
		return "error"
	case DisplayImage:
		return "image"
	default:
		return "empty"
	}
}

func (m DisplayMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Display is the content of the image panel. Text holds the progress text,
// the error text or the placeholder title; Image is set only in DisplayImage.
type Display struct {
	Mode  DisplayMode
	Text  string
	Hint  string
	Image *genstudio.ImageResult
}

// ImageRequest is one outstanding generation issued by Begin.
type ImageRequest struct {
	Prompt string
	token  uint64
}

// ImageReply is the outcome of an ImageRequest.
type ImageReply struct {
	Result *genstudio.ImageResult
	Err    error
}

// Image drives one-shot image generation. Each request replaces the previous
// image or error; the two are never held together.
type Image struct {
	gateway genstudio.Gateway

	mu       sync.Mutex
	pending  uint64
	seq      uint64
	prompt   string
	result   *genstudio.ImageResult
	err      string
	detached bool
}

func NewImage(gateway genstudio.Gateway) *Image {
	return &Image{gateway: gateway}
}

// Begin starts a request for the trimmed prompt, clearing any prior image
// and error. It reports false while a request is pending or when the prompt
// is empty.
func (w *Image) Begin(prompt string) (ImageRequest, bool) {
	prompt = genstudio.NormalizeInput(prompt)

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.pending != 0 || w.detached || prompt == "" {
		return ImageRequest{}, false
	}

	w.result = nil
	w.err = ""
	w.prompt = prompt
	w.seq++
	w.pending = w.seq

	return ImageRequest{Prompt: prompt, token: w.seq}, true
}

// Run calls the gateway. A success without image data is reported as
// genstudio.ErrNoImageGenerated.
func (w *Image) Run(ctx context.Context, req ImageRequest) ImageReply {
	result, err := w.gateway.GenerateImage(ctx, req.Prompt)
	if err != nil {
		return ImageReply{Err: err}
	}
	if result == nil || len(result.Data) == 0 {
		return ImageReply{Err: genstudio.ErrNoImageGenerated}
	}
	return ImageReply{Result: result}
}

// Settle stores the reply of the outstanding request. Stale replies are
// dropped and Settle reports false.
func (w *Image) Settle(req ImageRequest, reply ImageReply) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.detached || w.pending == 0 || req.token != w.pending {
		return false
	}

	switch {
	case reply.Err != nil:
		w.err = genstudio.FailureText(reply.Err)
	case reply.Result == nil || len(reply.Result.Data) == 0:
		w.err = genstudio.FailureText(genstudio.ErrNoImageGenerated)
	default:
		w.result = reply.Result
	}

	w.pending = 0
	return true
}

// Generate runs a whole request synchronously. It reports whether a request
// was started.
func (w *Image) Generate(ctx context.Context, prompt string) bool {
	req, ok := w.Begin(prompt)
	if !ok {
		return false
	}
	w.Settle(req, w.Run(ctx, req))
	return true
}

// Unmount detaches the widget; a request in flight will be dropped.
func (w *Image) Unmount() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.detached = true
	w.pending = 0
}

func (w *Image) Pending() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pending != 0
}

// CanGenerate reports whether the generate action is available for prompt.
func (w *Image) CanGenerate(prompt string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pending == 0 && !w.detached && genstudio.NormalizeInput(prompt) != ""
}

func (w *Image) Result() *genstudio.ImageResult {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.result
}

func (w *Image) Err() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Prompt returns the prompt of the latest request.
func (w *Image) Prompt() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.prompt
}

// Display applies the panel policy in order: pending, error, image, empty.
func (w *Image) Display() Display {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.display()
}

func (w *Image) display() Display {
	switch {
	case w.pending != 0:
		return Display{Mode: DisplayPending, Text: ProgressText}
	case w.err != "":
		return Display{Mode: DisplayError, Text: w.err}
	case w.result != nil:
		return Display{Mode: DisplayImage, Image: w.result}
	default:
		return Display{Mode: DisplayEmpty, Text: PlaceholderTitle, Hint: PlaceholderHint}
	}
}

// ImageSnapshot is a point-in-time copy of an Image widget.
type ImageSnapshot struct {
	Mode     DisplayMode `json:"mode"`
	Text     string      `json:"text,omitempty"`
	Hint     string      `json:"hint,omitempty"`
	Prompt   string      `json:"prompt,omitempty"`
	ImageURI string      `json:"imageUri,omitempty"`
	Pending  bool        `json:"pending"`
}

func (w *Image) Snapshot() ImageSnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	d := w.display()
	return ImageSnapshot{
		Mode:     d.Mode,
		Text:     d.Text,
		Hint:     d.Hint,
		Prompt:   w.prompt,
		ImageURI: d.Image.DataURI(),
		Pending:  w.pending != 0,
	}
}
