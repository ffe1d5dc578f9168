package menulens

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// SelectorConfig carries the credentials and settings for every provider.
type SelectorConfig struct {
	Gemini    GeminiConfig
	OpenAI    OpenAIConfig
	Vision    VisionConfig
	Translate TranslateConfig
}

// Selector picks a concrete Recognizer by configured name.
type Selector struct {
	cfg SelectorConfig
	log *slog.Logger
}

// NewSelector creates a new provider selector.
func NewSelector(cfg SelectorConfig, log *slog.Logger) *Selector {
	if log == nil {
		log = slog.Default()
	}
	return &Selector{cfg: cfg, log: log}
}

// Select returns the recognizer named by name. It never fails: "vision"
// walks service account, then API key, then the offline mock, and unknown
// names resolve to the mock. Each fallback is logged.
func (s *Selector) Select(ctx context.Context, name string) Recognizer {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case GeminiName:
		g, err := NewGeminiClient(ctx, s.cfg.Gemini, s.log)
		if err != nil {
			s.log.Warn("Gemini client unavailable, using mock", "error", err)
			return NewMockClient()
		}
		if s.cfg.Gemini.APIKey == "" {
			s.log.Warn("Gemini API key not set, requests will fail")
		}
		return g
	case OpenAIName:
		if s.cfg.OpenAI.APIKey == "" {
			s.log.Warn("OpenAI API key not set, requests will fail")
		}
		return NewOpenAIClient(s.cfg.OpenAI, s.log)
	case "vision", VisionName:
		return s.selectVision(ctx)
	case MockName, "":
		return NewMockClient()
	}
	s.log.Warn("Unknown provider, using mock", "provider", name)
	return NewMockClient()
}

// SelectExtractor returns the recognizer for the menu extraction role.
// Vision only returns plain OCR text, so it is rejected here rather than
// failing every structured request later.
func (s *Selector) SelectExtractor(ctx context.Context, name string) (Recognizer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "vision", VisionName:
		return nil, fmt.Errorf("extraction provider %q returns plain text only; use gemini, openai or mock", name)
	}
	return s.Select(ctx, name), nil
}

func (s *Selector) selectVision(ctx context.Context) Recognizer {
	v, err := NewVisionServiceAccountClient(ctx, s.cfg.Vision, s.log)
	if err == nil {
		s.log.Info("Vision client ready", "auth", "service_account")
		return v
	}
	s.log.Warn("Vision service account unavailable", "error", err)

	v, err = NewVisionAPIKeyClient(s.cfg.Vision, s.log)
	if err == nil {
		s.log.Info("Vision client ready", "auth", "api_key")
		return v
	}
	s.log.Warn("Vision API key unavailable, using mock data", "error", err)
	return NewMockClient()
}

// SelectTranslator returns the Translation API client, or the mock when no key is set.
func (s *Selector) SelectTranslator() Translator {
	t, err := NewGoogleTranslator(s.cfg.Translate, s.log)
	if err != nil {
		s.log.Warn("Translate API unavailable, using mock", "error", err)
		return MockTranslator{}
	}
	return t
}
