package generation_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/beastbattle/internal/game/element"
	"github.com/cory-johannsen/beastbattle/internal/generation"
)

// fakeMessagesAPI answers POST /v1/messages with a fixed text reply and
// records each request body.
type fakeMessagesAPI struct {
	mu     sync.Mutex
	bodies []map[string]any
	reply  string
	status int
}

func (f *fakeMessagesAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	var body map[string]any
	_ = json.Unmarshal(raw, &body)
	f.mu.Lock()
	f.bodies = append(f.bodies, body)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if f.status != 0 {
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"api_error","message":"boom"}}`))
		return
	}
	resp := map[string]any{
		"id":            "msg_test",
		"type":          "message",
		"role":          "assistant",
		"model":         generation.DefaultModel,
		"stop_reason":   "end_turn",
		"stop_sequence": nil,
		"content":       []map[string]any{{"type": "text", "text": f.reply}},
		"usage":         map[string]any{"input_tokens": 10, "output_tokens": 20},
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func (f *fakeMessagesAPI) lastBody(t *testing.T) map[string]any {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.bodies)
	return f.bodies[len(f.bodies)-1]
}

func newTestClaude(t *testing.T, api *fakeMessagesAPI) *generation.Claude {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	c, err := generation.NewClaude(generation.ClaudeConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
	}, zap.NewNop(), option.WithMaxRetries(0))
	require.NoError(t, err)
	return c
}

func TestClaude_AcquireFromImage_SendsImageAndParsesReply(t *testing.T) {
	api := &fakeMessagesAPI{reply: fencedResponse}
	c := newTestClaude(t, api)

	p, err := c.AcquireFromImage(context.Background(), []byte{0x89, 'P', 'N', 'G'}, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "Ember Whisker", p.Title)
	assert.Equal(t, element.Fire, p.Element)

	body := api.lastBody(t)
	assert.Equal(t, generation.DefaultModel, body["model"])
	assert.InDelta(t, 0.8, body["temperature"], 1e-9)
	msgs := body["messages"].([]any)
	require.Len(t, msgs, 1)
	content := msgs[0].(map[string]any)["content"].([]any)
	require.Len(t, content, 2)
	img := content[0].(map[string]any)
	assert.Equal(t, "image", img["type"])
	src := img["source"].(map[string]any)
	assert.Equal(t, "image/png", src["media_type"])
	assert.Equal(t, "iVBORw==", src["data"])
}

func TestClaude_AcquireRandomOpponent_TextOnly(t *testing.T) {
	api := &fakeMessagesAPI{reply: `{"species":"Bear","title":"Storm King","element":"thunder"}`}
	c := newTestClaude(t, api)

	p, err := c.AcquireRandomOpponent(context.Background())
	require.NoError(t, err)
	assert.Equal(t, element.Thunder, p.Element)
	assert.Len(t, p.Moves, 3)

	body := api.lastBody(t)
	assert.InDelta(t, 1.0, body["temperature"], 1e-9)
	content := body["messages"].([]any)[0].(map[string]any)["content"].([]any)
	require.Len(t, content, 1)
	assert.Equal(t, "text", content[0].(map[string]any)["type"])
}

func TestClaude_Failures(t *testing.T) {
	t.Run("unsupported mime", func(t *testing.T) {
		c := newTestClaude(t, &fakeMessagesAPI{})
		_, err := c.AcquireFromImage(context.Background(), []byte("x"), "image/tiff")
		assert.ErrorIs(t, err, generation.ErrUnsupportedImage)
	})
	t.Run("server error", func(t *testing.T) {
		c := newTestClaude(t, &fakeMessagesAPI{status: http.StatusInternalServerError})
		_, err := c.AcquireRandomOpponent(context.Background())
		var gerr *generation.GenerationError
		require.True(t, errors.As(err, &gerr))
		assert.Equal(t, generation.OpOpponent, gerr.Op)
	})
	t.Run("prose reply", func(t *testing.T) {
		c := newTestClaude(t, &fakeMessagesAPI{reply: "I cannot help with that."})
		_, err := c.AcquireFromImage(context.Background(), []byte("x"), "image/jpeg")
		assert.ErrorIs(t, err, generation.ErrNoJSON)
	})
}

func TestNewClaude_RequiresAPIKey(t *testing.T) {
	_, err := generation.NewClaude(generation.ClaudeConfig{APIKey: "  "}, zap.NewNop())
	assert.Error(t, err)
}
