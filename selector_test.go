package menulens

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestSelector_Select(t *testing.T) {
	ctx := context.Background()

	t.Run("vision without credentials uses mock", func(t *testing.T) {
		var buf bytes.Buffer
		s := NewSelector(SelectorConfig{}, newTestLogger(&buf))
		r := s.Select(ctx, "vision")
		assert.Equal(t, MockName, r.Name())
		assert.Contains(t, buf.String(), "Vision service account unavailable")
		assert.Contains(t, buf.String(), "using mock data")
	})

	t.Run("vision with api key", func(t *testing.T) {
		s := NewSelector(SelectorConfig{Vision: VisionConfig{APIKey: "vk"}}, nil)
		assert.Equal(t, VisionName, s.Select(ctx, "google_vision").Name())
	})

	t.Run("unknown name uses mock", func(t *testing.T) {
		var buf bytes.Buffer
		s := NewSelector(SelectorConfig{}, newTestLogger(&buf))
		assert.Equal(t, MockName, s.Select(ctx, "tesseract").Name())
		assert.Contains(t, buf.String(), "provider=tesseract")
	})

	t.Run("named providers", func(t *testing.T) {
		s := NewSelector(SelectorConfig{}, nil)
		assert.Equal(t, MockName, s.Select(ctx, "").Name())
		assert.Equal(t, MockName, s.Select(ctx, "MOCK").Name())
		assert.Equal(t, GeminiName, s.Select(ctx, "gemini").Name())
		assert.Equal(t, OpenAIName, s.Select(ctx, " openai ").Name())
	})
}

func TestSelector_SelectExtractor(t *testing.T) {
	ctx := context.Background()
	s := NewSelector(SelectorConfig{Vision: VisionConfig{APIKey: "vk"}}, nil)

	for _, name := range []string{"vision", "google_vision", " Vision "} {
		r, err := s.SelectExtractor(ctx, name)
		assert.Error(t, err, name)
		assert.Nil(t, r)
	}

	r, err := s.SelectExtractor(ctx, "openai")
	require.NoError(t, err)
	assert.Equal(t, OpenAIName, r.Name())

	r, err = s.SelectExtractor(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, MockName, r.Name())
}

func TestSelector_SelectTranslator(t *testing.T) {
	s := NewSelector(SelectorConfig{}, nil)
	assert.Equal(t, MockName, s.SelectTranslator().Name())

	s = NewSelector(SelectorConfig{Translate: TranslateConfig{APIKey: "tk"}}, nil)
	assert.Equal(t, GoogleTranslateName, s.SelectTranslator().Name())
}
