package menulens

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

const (
	GeminiName         = "gemini"
	geminiDefaultModel = "gemini-2.5-flash"
)

// GeminiConfig holds configuration for the Gemini client.
type GeminiConfig struct {
	APIKey          string
	Model           string
	Temperature     float32
	MaxOutputTokens int32
	BaseURL         string       // Optional (tests)
	HTTPClient      *http.Client // Optional (tests)
}

// GeminiClient implements Recognizer with the Google GenAI SDK.
type GeminiClient struct {
	client *genai.Client
	model  string
	cfg    GeminiConfig
	log    *slog.Logger
}

// NewGeminiClient creates a Gemini recognizer. Without an API key the client
// is still returned; every call then fails with ErrMissingCredentials.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig, log *slog.Logger) (*GeminiClient, error) {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Model == "" {
		cfg.Model = geminiDefaultModel
	}
	g := &GeminiClient{model: cfg.Model, cfg: cfg, log: log}
	if cfg.APIKey == "" {
		return g, nil
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	g.client = client
	return g, nil
}

// Name returns the provider identifier.
func (g *GeminiClient) Name() string { return GeminiName }

// Recognize sends the prompt and image in one user turn. OCR requests are
// answered as plain text, everything else as JSON.
func (g *GeminiClient) Recognize(ctx context.Context, req Request) (string, error) {
	if g.client == nil {
		return "", fmt.Errorf("gemini: %w", ErrMissingCredentials)
	}
	ctx, cancel := withTimeout(ctx, req.Timeout)
	defer cancel()

	out, err := GenerateBytes(ctx, g.client, g.log,
		WithModelName(g.model),
		WithMessages(messageFor(req)),
		WithJSONOutput(req.Mode != ModeOCR),
		WithTemperature(g.cfg.Temperature),
		WithMaxOutputTokens(g.cfg.MaxOutputTokens),
	)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// GenerateBytes calls GenerateContent and returns the text of the first
// candidate part.
func GenerateBytes(ctx context.Context, client *genai.Client, log *slog.Logger, opts ...GenerateOption) ([]byte, error) {
	var cfg generateConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	if client == nil {
		return nil, fmt.Errorf("gemini: %w", ErrMissingCredentials)
	}

	modelName := cfg.ModelName
	if modelName == "" {
		modelName = geminiDefaultModel
	}

	var contents []*genai.Content
	for _, msg := range cfg.Messages {
		var parts []*genai.Part
		for _, part := range msg.Parts {
			switch part.Type {
			case "text":
				parts = append(parts, genai.NewPartFromText(part.Text))
			case "image":
				parts = append(parts, genai.NewPartFromBytes(part.Data, part.MimeType))
			}
		}
		if len(parts) > 0 {
			contents = append(contents, genai.NewContentFromParts(parts, genai.RoleUser))
		}
	}
	if len(contents) == 0 {
		return nil, fmt.Errorf("no valid content provided")
	}

	config := &genai.GenerateContentConfig{
		Temperature:     cfg.Temperature,
		MaxOutputTokens: cfg.MaxOutputTokens,
	}
	if cfg.JSONOutput {
		config.ResponseMIMEType = "application/json"
	}

	log.Debug("Generating content", "model", modelName, "content_count", len(contents), "json", cfg.JSONOutput)

	resp, err := client.Models.GenerateContent(ctx, modelName, contents, config)
	if err != nil {
		return nil, mapGeminiError(err)
	}

	log.Debug("Received response", "candidates_count", len(resp.Candidates))

	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("gemini: %w: no candidates", ErrUnexpectedEnvelope)
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return nil, fmt.Errorf("gemini: %w: no parts in candidate", ErrUnexpectedEnvelope)
	}

	var b strings.Builder
	for _, p := range candidate.Content.Parts {
		b.WriteString(p.Text)
	}
	if b.Len() == 0 {
		return nil, fmt.Errorf("gemini: %w: empty text", ErrUnexpectedEnvelope)
	}

	log.Debug("Generated content successfully", "response_length", b.Len())
	return []byte(b.String()), nil
}

func mapGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &StatusError{Provider: GeminiName, Code: apiErr.Code, Body: apiErr.Message}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &StatusError{Provider: GeminiName, Code: apiErrPtr.Code, Body: apiErrPtr.Message}
	}
	return wrapTransport(GeminiName, err)
}
