package menulens

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

const (
	GoogleTranslateName      = "google_translate"
	translateDefaultEndpoint = "https://translation.googleapis.com"
)

// TranslateConfig holds configuration for the Translation v2 client.
type TranslateConfig struct {
	APIKey     string
	Endpoint   string
	HTTPClient *http.Client // Optional (tests)
}

// GoogleTranslator implements Translator with the Translation v2 REST API.
type GoogleTranslator struct {
	apiKey   string
	endpoint string
	http     *http.Client
	log      *slog.Logger
}

// NewGoogleTranslator returns a translator, or ErrMissingCredentials when no key is set.
func NewGoogleTranslator(cfg TranslateConfig, log *slog.Logger) (*GoogleTranslator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("translate: %w", ErrMissingCredentials)
	}
	if log == nil {
		log = slog.Default()
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = translateDefaultEndpoint
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	return &GoogleTranslator{
		apiKey:   cfg.APIKey,
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		http:     cfg.HTTPClient,
		log:      log,
	}, nil
}

// Name returns the provider identifier.
func (t *GoogleTranslator) Name() string { return GoogleTranslateName }

// Translate sends text to /language/translate/v2; the source language is auto-detected.
func (t *GoogleTranslator) Translate(ctx context.Context, text, target string) (string, error) {
	payload, err := json.Marshal(map[string]string{"q": text, "target": target, "format": "text"})
	if err != nil {
		return "", err
	}
	endpoint := t.endpoint + "/language/translate/v2?key=" + url.QueryEscape(t.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("translate: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		return "", wrapTransport(GoogleTranslateName, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", wrapTransport(GoogleTranslateName, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{Provider: GoogleTranslateName, Code: resp.StatusCode, Body: excerpt(raw)}
	}

	var out struct {
		Data struct {
			Translations []struct {
				TranslatedText string `json:"translatedText"`
			} `json:"translations"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("translate: %w: %v", ErrUnexpectedEnvelope, err)
	}
	if len(out.Data.Translations) == 0 {
		return "", fmt.Errorf("translate: %w: no translations", ErrUnexpectedEnvelope)
	}
	return out.Data.Translations[0].TranslatedText, nil
}

// TranslateResult is the /api/translate response body.
type TranslateResult struct {
	Success        bool   `json:"success"`
	TranslatedText string `json:"translatedText"`
	Source         string `json:"source"`
}
