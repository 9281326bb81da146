package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/mhpenta/genstudio"
)

// fakeAPI serves canned Gemini API responses keyed by request path.
type fakeAPI struct {
	t *testing.T

	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	bodies   map[string][]map[string]any
}

func newFakeAPI(t *testing.T) (*fakeAPI, *httptest.Server) {
	t.Helper()
	api := &fakeAPI{
		t:        t,
		handlers: make(map[string]http.HandlerFunc),
		bodies:   make(map[string][]map[string]any),
	}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return api, srv
}

func (f *fakeAPI) handle(path string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[path] = h
}

func (f *fakeAPI) requests(path string) []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bodies[path]
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	var body map[string]any
	_ = json.Unmarshal(raw, &body)

	f.mu.Lock()
	f.bodies[r.URL.Path] = append(f.bodies[r.URL.Path], body)
	h, ok := f.handlers[r.URL.Path]
	f.mu.Unlock()

	if !ok {
		f.t.Errorf("unexpected request path %q", r.URL.Path)
		http.NotFound(w, r)
		return
	}
	h(w, r)
}

func writeJSON(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

const (
	chatPath  = "/v1beta/models/" + APIModelGeminiFlash + ":generateContent"
	imagePath = "/v1beta/models/" + APIModelImagen4 + ":predict"
)

func newTestGateway(t *testing.T, srv *httptest.Server) *Gateway {
	t.Helper()
	gw, err := New(context.Background(), &Config{
		APIKey:     "test-key",
		BaseURL:    srv.URL,
		HTTPClient: srv.Client(),
	})
	require.NoError(t, err)
	return gw
}

func TestNew_RequiresAPIKey(t *testing.T) {
	tests := []struct {
		name   string
		config *Config
	}{
		{name: "nil config", config: nil},
		{name: "empty key", config: &Config{}},
		{name: "blank key", config: &Config{APIKey: "   "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(context.Background(), tt.config)
			assert.ErrorIs(t, err, ErrMissingAPIKey)
		})
	}
}

func TestGateway_Models(t *testing.T) {
	_, srv := newFakeAPI(t)
	gw := newTestGateway(t, srv)

	models := gw.Models()
	require.Len(t, models, 2)
	assert.Equal(t, GeminiFlashInfo, models[0])
	assert.Equal(t, Imagen4Info, models[1])

	chat, ok := genstudio.DefaultModel(models, genstudio.ModelKindChat)
	require.True(t, ok)
	assert.Equal(t, APIModelGeminiFlash, chat.APIModelName)
}

func TestGateway_Models_UnknownOverride(t *testing.T) {
	_, srv := newFakeAPI(t)
	gw, err := New(context.Background(), &Config{
		APIKey:     "test-key",
		ChatModel:  "gemini-custom",
		BaseURL:    srv.URL,
		HTTPClient: srv.Client(),
	})
	require.NoError(t, err)

	models := gw.Models()
	require.Len(t, models, 2)
	assert.Equal(t, "gemini-custom", models[0].APIModelName)
	assert.Equal(t, genstudio.ModelKindChat, models[0].Kind)
	assert.Zero(t, models[0].RateLimits)
}

func TestSession_Send(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.handle(chatPath, writeJSON(http.StatusOK,
		`{"candidates":[{"content":{"role":"model","parts":[{"text":"Hi there!"}]}}]}`))

	gw := newTestGateway(t, srv)
	session, err := gw.StartChat(context.Background())
	require.NoError(t, err)
	assert.Empty(t, session.History())

	reply, err := session.Send(context.Background(), "Hello")
	require.NoError(t, err)
	assert.Equal(t, "Hi there!", reply)

	assert.Equal(t, []genstudio.Message{
		genstudio.UserMessage("Hello"),
		genstudio.ModelMessage("Hi there!"),
	}, session.History())

	reqs := api.requests(chatPath)
	require.Len(t, reqs, 1)
	contents, ok := reqs[0]["contents"].([]any)
	require.True(t, ok)
	assert.Len(t, contents, 1)
}

func TestSession_Send_CarriesHistory(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.handle(chatPath, writeJSON(http.StatusOK,
		`{"candidates":[{"content":{"role":"model","parts":[{"text":"ok"}]}}]}`))

	gw := newTestGateway(t, srv)
	session, err := gw.StartChat(context.Background())
	require.NoError(t, err)

	_, err = session.Send(context.Background(), "first")
	require.NoError(t, err)
	_, err = session.Send(context.Background(), "second")
	require.NoError(t, err)

	reqs := api.requests(chatPath)
	require.Len(t, reqs, 2)
	contents, ok := reqs[1]["contents"].([]any)
	require.True(t, ok)
	assert.Len(t, contents, 3, "second turn must include the first exchange")
}

func TestSession_Send_Errors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		rateLimit bool
		contains  string
	}{
		{
			name:     "api error",
			status:   http.StatusBadRequest,
			body:     `{"error":{"code":400,"message":"boom","status":"INVALID_ARGUMENT"}}`,
			contains: "boom",
		},
		{
			name:      "quota",
			status:    http.StatusTooManyRequests,
			body:      `{"error":{"code":429,"message":"quota","status":"RESOURCE_EXHAUSTED"}}`,
			rateLimit: true,
			contains:  "rate limit exceeded",
		},
		{
			name:     "no candidates",
			status:   http.StatusOK,
			body:     `{"candidates":[]}`,
			contains: "empty response from model",
		},
		{
			name:     "blocked prompt",
			status:   http.StatusOK,
			body:     `{"promptFeedback":{"blockReason":"SAFETY"}}`,
			contains: "prompt blocked: SAFETY",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api, srv := newFakeAPI(t)
			api.handle(chatPath, writeJSON(tt.status, tt.body))

			gw := newTestGateway(t, srv)
			session, err := gw.StartChat(context.Background())
			require.NoError(t, err)

			_, err = session.Send(context.Background(), "Hello")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
			assert.Equal(t, tt.rateLimit, genstudio.IsRateLimitError(err))
			assert.True(t, strings.HasPrefix(genstudio.FailureText(err), "Error: "))
		})
	}
}

func TestSession_Send_FailureKeepsHistory(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.handle(chatPath, writeJSON(http.StatusInternalServerError,
		`{"error":{"code":500,"message":"internal","status":"INTERNAL"}}`))

	gw := newTestGateway(t, srv)
	session, err := gw.StartChat(context.Background())
	require.NoError(t, err)

	_, err = session.Send(context.Background(), "Hello")
	require.Error(t, err)
	assert.Empty(t, session.History())
}

func TestGateway_GenerateImage(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	api, srv := newFakeAPI(t)
	api.handle(imagePath, writeJSON(http.StatusOK,
		`{"predictions":[{"bytesBase64Encoded":"`+base64.StdEncoding.EncodeToString(png)+`","mimeType":"image/png"}]}`))

	gw := newTestGateway(t, srv)
	result, err := gw.GenerateImage(context.Background(), "a red cube")
	require.NoError(t, err)

	assert.Equal(t, png, result.Data)
	assert.Equal(t, genstudio.MIMETypePNG, result.MIMEType)
	assert.Equal(t, "a red cube", result.Prompt)
	assert.Equal(t, APIModelImagen4, result.Model)
	assert.False(t, result.GeneratedAt.IsZero())

	reqs := api.requests(imagePath)
	require.Len(t, reqs, 1)
	params, ok := reqs[0]["parameters"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 1, params["sampleCount"])
	assert.Equal(t, "1:1", params["aspectRatio"])
}

func TestGateway_GenerateImage_NoImage(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.handle(imagePath, writeJSON(http.StatusOK, `{"predictions":[]}`))

	gw := newTestGateway(t, srv)
	_, err := gw.GenerateImage(context.Background(), "a red cube")
	assert.ErrorIs(t, err, genstudio.ErrNoImageGenerated)
	assert.Equal(t, "Error: No image was generated.", genstudio.FailureText(err))
}

func TestGateway_GenerateImage_EmptyPrompt(t *testing.T) {
	api, srv := newFakeAPI(t)
	gw := newTestGateway(t, srv)

	_, err := gw.GenerateImage(context.Background(), " ")
	assert.ErrorIs(t, err, genstudio.ErrEmptyPrompt)
	assert.Empty(t, api.requests(imagePath))
}

func TestCheckRateLimitError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		rateLimit bool
	}{
		{name: "nil", err: nil},
		{name: "plain error", err: errors.New("boom")},
		{name: "bad request", err: apiError(400, "INVALID_ARGUMENT")},
		{name: "429", err: apiError(429, ""), rateLimit: true},
		{name: "resource exhausted", err: apiError(0, "RESOURCE_EXHAUSTED"), rateLimit: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkRateLimitError(tt.err, "m")
			assert.Equal(t, tt.rateLimit, genstudio.IsRateLimitError(err))

			var rlErr *genstudio.RateLimitError
			if errors.As(err, &rlErr) {
				assert.Equal(t, "m", rlErr.Model)
				assert.Equal(t, tt.err, rlErr.Err)
				return
			}
			assert.Equal(t, tt.err, err)
		})
	}
}

func apiError(code int, status string) error {
	return genai.APIError{Code: code, Message: "test", Status: status}
}
