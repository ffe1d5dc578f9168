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
	"os"
	"strings"

	"cloud.google.com/go/auth/credentials"
	"cloud.google.com/go/auth/httptransport"
	"google.golang.org/grpc/codes"
)

const (
	VisionName            = "google_vision"
	visionDefaultEndpoint = "https://vision.googleapis.com"
	visionScope           = "https://www.googleapis.com/auth/cloud-vision"
)

// VisionConfig holds configuration for the Cloud Vision OCR client.
type VisionConfig struct {
	APIKey          string
	CredentialsFile string // service-account JSON
	Endpoint        string
	LanguageHints   []string
	HTTPClient      *http.Client // Optional (tests)
}

// VisionClient implements Recognizer with images:annotate TEXT_DETECTION.
// The prompt is ignored; Vision returns the full detected text.
type VisionClient struct {
	endpoint string
	apiKey   string // empty when the http client carries service-account auth
	hints    []string
	http     *http.Client
	log      *slog.Logger
}

// NewVisionServiceAccountClient authenticates with a service-account file.
func NewVisionServiceAccountClient(ctx context.Context, cfg VisionConfig, log *slog.Logger) (*VisionClient, error) {
	if cfg.CredentialsFile == "" {
		return nil, fmt.Errorf("vision service account: %w", ErrMissingCredentials)
	}
	b, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("vision service account: %w: %v", ErrMissingCredentials, err)
	}
	creds, err := credentials.DetectDefault(&credentials.DetectOptions{
		CredentialsJSON: b,
		Scopes:          []string{visionScope},
	})
	if err != nil {
		return nil, fmt.Errorf("vision service account: %w", err)
	}
	client, err := httptransport.NewClient(&httptransport.Options{Credentials: creds})
	if err != nil {
		return nil, fmt.Errorf("vision transport: %w", err)
	}
	cfg.HTTPClient = client
	return newVisionClient(cfg, "", log), nil
}

// NewVisionAPIKeyClient authenticates with a ?key= query parameter.
func NewVisionAPIKeyClient(cfg VisionConfig, log *slog.Logger) (*VisionClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("vision api key: %w", ErrMissingCredentials)
	}
	return newVisionClient(cfg, cfg.APIKey, log), nil
}

func newVisionClient(cfg VisionConfig, apiKey string, log *slog.Logger) *VisionClient {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = visionDefaultEndpoint
	}
	if len(cfg.LanguageHints) == 0 {
		cfg.LanguageHints = []string{"zh", "en"}
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	return &VisionClient{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:   apiKey,
		hints:    cfg.LanguageHints,
		http:     cfg.HTTPClient,
		log:      log,
	}
}

// Name returns the provider identifier.
func (v *VisionClient) Name() string { return VisionName }

type visionRequest struct {
	Requests []visionImageRequest `json:"requests"`
}

type visionImageRequest struct {
	Image struct {
		Content string `json:"content"`
	} `json:"image"`
	Features []visionFeature `json:"features"`
	Context  struct {
		LanguageHints []string `json:"languageHints"`
	} `json:"imageContext"`
}

type visionFeature struct {
	Type       string `json:"type"`
	MaxResults int    `json:"maxResults"`
}

type visionResponse struct {
	Responses []struct {
		TextAnnotations []struct {
			Description string `json:"description"`
			Locale      string `json:"locale"`
		} `json:"textAnnotations"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	} `json:"responses"`
}

// Recognize runs TEXT_DETECTION on the request image.
func (v *VisionClient) Recognize(ctx context.Context, req Request) (string, error) {
	if req.Image == nil || len(req.Image.Data) == 0 {
		return "", ErrNoImage
	}
	ctx, cancel := withTimeout(ctx, req.Timeout)
	defer cancel()

	var body visionRequest
	ir := visionImageRequest{Features: []visionFeature{{Type: "TEXT_DETECTION", MaxResults: 1}}}
	ir.Image.Content = req.Image.Base64()
	ir.Context.LanguageHints = v.hints
	body.Requests = []visionImageRequest{ir}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("vision: encode request: %w", err)
	}

	endpoint := v.endpoint + "/v1/images:annotate"
	if v.apiKey != "" {
		endpoint += "?key=" + url.QueryEscape(v.apiKey)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("vision: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	v.log.Debug("Calling vision annotate", "bytes", len(req.Image.Data), "hints", v.hints)

	resp, err := v.http.Do(httpReq)
	if err != nil {
		return "", wrapTransport(VisionName, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", wrapTransport(VisionName, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{Provider: VisionName, Code: resp.StatusCode, Body: excerpt(raw)}
	}

	var out visionResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("vision: %w: %v", ErrUnexpectedEnvelope, err)
	}
	if len(out.Responses) == 0 {
		return "", fmt.Errorf("vision: %w: no responses", ErrUnexpectedEnvelope)
	}
	first := out.Responses[0]
	if first.Error != nil {
		c := codes.Code(first.Error.Code)
		return "", &StatusError{Provider: VisionName, Code: rpcHTTPStatus(c), Body: c.String() + ": " + first.Error.Message}
	}
	if len(first.TextAnnotations) == 0 {
		return "", fmt.Errorf("vision: %w: no text found in image", ErrUnexpectedEnvelope)
	}
	return first.TextAnnotations[0].Description, nil
}

// rpcHTTPStatus maps the google.rpc code carried in a per-image error to
// the HTTP status the same failure would have had at the transport level.
func rpcHTTPStatus(c codes.Code) int {
	switch c {
	case codes.InvalidArgument, codes.FailedPrecondition, codes.OutOfRange:
		return http.StatusBadRequest
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.NotFound:
		return http.StatusNotFound
	case codes.AlreadyExists, codes.Aborted:
		return http.StatusConflict
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.Canceled:
		return 499
	case codes.Unimplemented:
		return http.StatusNotImplemented
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}
