package menulens

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func newGeminiServer(t *testing.T, status int, body string, seen *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, ":generateContent"), r.URL.Path)
		if seen != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGeminiClient_Recognize(t *testing.T) {
	var seen map[string]any
	srv := newGeminiServer(t, http.StatusOK,
		`{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"total_dishes\":"},{"text":" 11}"}]}}]}`, &seen)

	g, err := NewGeminiClient(context.Background(), GeminiConfig{
		APIKey:     "gk",
		BaseURL:    srv.URL,
		HTTPClient: srv.Client(),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, GeminiName, g.Name())

	out, err := g.Recognize(context.Background(), Request{
		Image:  NewImage([]byte{0}, "image/png"),
		Prompt: "Count the dishes",
		Mode:   ModeCountOnly,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"total_dishes": 11}`, out)

	cfg, ok := seen["generationConfig"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "application/json", cfg["responseMimeType"])
}

func TestGeminiClient_Errors(t *testing.T) {
	t.Run("missing key", func(t *testing.T) {
		g, err := NewGeminiClient(context.Background(), GeminiConfig{}, nil)
		require.NoError(t, err)
		_, err = g.Recognize(context.Background(), Request{Prompt: "x", Mode: ModeFull})
		assert.ErrorIs(t, err, ErrMissingCredentials)
		assert.Equal(t, ClassConfiguration, Classify(err))
	})

	t.Run("api status", func(t *testing.T) {
		srv := newGeminiServer(t, http.StatusBadRequest,
			`{"error":{"code":400,"message":"Image too small","status":"INVALID_ARGUMENT"}}`, nil)
		g, err := NewGeminiClient(context.Background(), GeminiConfig{APIKey: "gk", BaseURL: srv.URL, HTTPClient: srv.Client()}, nil)
		require.NoError(t, err)

		_, err = g.Recognize(context.Background(), Request{Prompt: "x", Mode: ModeFull})
		var se *StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, 400, se.Code)
		assert.Contains(t, err.Error(), "400")
	})

	t.Run("no candidates", func(t *testing.T) {
		srv := newGeminiServer(t, http.StatusOK, `{"candidates":[]}`, nil)
		g, err := NewGeminiClient(context.Background(), GeminiConfig{APIKey: "gk", BaseURL: srv.URL, HTTPClient: srv.Client()}, nil)
		require.NoError(t, err)

		_, err = g.Recognize(context.Background(), Request{Prompt: "x", Mode: ModeFull})
		assert.ErrorIs(t, err, ErrUnexpectedEnvelope)
	})
}

func TestMapGeminiError(t *testing.T) {
	var se *StatusError

	err := mapGeminiError(genai.APIError{Code: 429, Message: "quota"})
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 429, se.Code)
	assert.Equal(t, "quota", se.Body)

	err = mapGeminiError(&genai.APIError{Code: 500, Message: "internal"})
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 500, se.Code)

	err = mapGeminiError(context.DeadlineExceeded)
	assert.ErrorIs(t, err, ErrTimeout)

	err = mapGeminiError(errors.New("connection reset"))
	assert.ErrorIs(t, err, ErrTransport)
}

func TestGenerateBytes_NoContent(t *testing.T) {
	_, err := GenerateBytes(context.Background(), nil, nil)
	assert.ErrorIs(t, err, ErrMissingCredentials)
}
