package menulens

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

const (
	OpenAIName         = "openai"
	openAIDefaultModel = "gpt-4o-mini"
)

// OpenAIConfig holds configuration for the OpenAI client.
type OpenAIConfig struct {
	APIKey          string
	Model           string
	Temperature     float64
	MaxOutputTokens int64
	BaseURL         string       // Optional (tests)
	HTTPClient      *http.Client // Optional (tests)
}

// OpenAIClient implements Recognizer using Chat Completions with image parts.
type OpenAIClient struct {
	apiKey string
	model  string
	cfg    OpenAIConfig
	client openai.Client
	log    *slog.Logger
}

// NewOpenAIClient creates a new OpenAI recognizer. SDK retries are disabled;
// a failed call surfaces immediately.
func NewOpenAIClient(cfg OpenAIConfig, log *slog.Logger) *OpenAIClient {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Model == "" {
		cfg.Model = openAIDefaultModel
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIClient{
		apiKey: cfg.APIKey,
		model:  cfg.Model,
		cfg:    cfg,
		client: openai.NewClient(opts...),
		log:    log,
	}
}

// Name returns the provider identifier.
func (c *OpenAIClient) Name() string { return OpenAIName }

// Recognize sends one user message holding the prompt and the image as a
// data URL.
func (c *OpenAIClient) Recognize(ctx context.Context, req Request) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("openai: %w", ErrMissingCredentials)
	}
	ctx, cancel := withTimeout(ctx, req.Timeout)
	defer cancel()

	parts := []openai.ChatCompletionContentPartUnionParam{openai.TextContentPart(req.Prompt)}
	if req.Image != nil && len(req.Image.Data) > 0 {
		parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: req.Image.DataURL(),
		}))
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage(parts)},
	}
	if req.Mode != ModeOCR {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}
	if c.cfg.Temperature > 0 {
		params.Temperature = openai.Float(c.cfg.Temperature)
	}
	if c.cfg.MaxOutputTokens > 0 {
		params.MaxCompletionTokens = openai.Int(c.cfg.MaxOutputTokens)
	}

	c.log.Debug("Sending chat completion", "model", c.model, "mode", req.Mode, "has_image", req.Image != nil)

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", mapOpenAIError(err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: %w: no choices", ErrUnexpectedEnvelope)
	}
	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", fmt.Errorf("openai: %w: empty content", ErrUnexpectedEnvelope)
	}
	return content, nil
}

func mapOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &StatusError{Provider: OpenAIName, Code: apiErr.StatusCode, Body: apiErr.Message}
	}
	return wrapTransport(OpenAIName, err)
}
