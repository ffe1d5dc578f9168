package menulens

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
)

func newVisionServer(t *testing.T, status int, body string, seen *visionRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/images:annotate", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
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

func TestVisionClient_Recognize(t *testing.T) {
	var seen visionRequest
	srv := newVisionServer(t, http.StatusOK,
		`{"responses":[{"textAnnotations":[{"description":"凉菜\n花生豆腐汤","locale":"zh"},{"description":"凉菜"}]}]}`, &seen)

	v, err := NewVisionAPIKeyClient(VisionConfig{APIKey: "test-key", Endpoint: srv.URL, HTTPClient: srv.Client()}, nil)
	require.NoError(t, err)
	assert.Equal(t, VisionName, v.Name())

	text, err := v.Recognize(context.Background(), Request{Image: NewImage([]byte{0}, ""), Mode: ModeOCR})
	require.NoError(t, err)
	assert.Equal(t, "凉菜\n花生豆腐汤", text)

	require.Len(t, seen.Requests, 1)
	assert.Equal(t, "AA==", seen.Requests[0].Image.Content)
	assert.Equal(t, []visionFeature{{Type: "TEXT_DETECTION", MaxResults: 1}}, seen.Requests[0].Features)
	assert.Equal(t, []string{"zh", "en"}, seen.Requests[0].Context.LanguageHints)
}

func TestVisionClient_Errors(t *testing.T) {
	img := NewImage([]byte{0}, "")
	tests := []struct {
		name   string
		status int
		body   string
		class  ErrorClass
		code   int
	}{
		{"http status", http.StatusForbidden, `{"error":{"message":"denied"}}`, ClassTransport, 403},
		{"response error", http.StatusOK, `{"responses":[{"error":{"code":3,"message":"Bad image data."}}]}`, ClassTransport, http.StatusBadRequest},
		{"response quota error", http.StatusOK, `{"responses":[{"error":{"code":8,"message":"Quota exceeded."}}]}`, ClassTransport, http.StatusTooManyRequests},
		{"no text", http.StatusOK, `{"responses":[{}]}`, ClassSemantic, 0},
		{"no responses", http.StatusOK, `{"responses":[]}`, ClassSemantic, 0},
		{"not json", http.StatusOK, `<html>`, ClassSemantic, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newVisionServer(t, tt.status, tt.body, nil)
			v, err := NewVisionAPIKeyClient(VisionConfig{APIKey: "test-key", Endpoint: srv.URL, HTTPClient: srv.Client()}, nil)
			require.NoError(t, err)

			_, err = v.Recognize(context.Background(), Request{Image: img, Mode: ModeOCR})
			require.Error(t, err)
			assert.Equal(t, tt.class, Classify(err))
			if tt.code != 0 {
				var se *StatusError
				require.ErrorAs(t, err, &se)
				assert.Equal(t, tt.code, se.Code)
			}
		})
	}
}

func TestVisionClient_ResponseErrorNamesRPCCode(t *testing.T) {
	srv := newVisionServer(t, http.StatusOK, `{"responses":[{"error":{"code":3,"message":"Bad image data."}}]}`, nil)
	v, err := NewVisionAPIKeyClient(VisionConfig{APIKey: "test-key", Endpoint: srv.URL, HTTPClient: srv.Client()}, nil)
	require.NoError(t, err)

	_, err = v.Recognize(context.Background(), Request{Image: testImage(t), Mode: ModeOCR})
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.Code)
	assert.Equal(t, "InvalidArgument: Bad image data.", se.Body)
}

func TestRPCHTTPStatus(t *testing.T) {
	tests := []struct {
		code codes.Code
		want int
	}{
		{codes.InvalidArgument, http.StatusBadRequest},
		{codes.Unauthenticated, http.StatusUnauthorized},
		{codes.PermissionDenied, http.StatusForbidden},
		{codes.NotFound, http.StatusNotFound},
		{codes.ResourceExhausted, http.StatusTooManyRequests},
		{codes.Unavailable, http.StatusServiceUnavailable},
		{codes.DeadlineExceeded, http.StatusGatewayTimeout},
		{codes.Internal, http.StatusInternalServerError},
		{codes.Code(99), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, rpcHTTPStatus(tt.code))
		})
	}
}

func TestVisionClient_NoImage(t *testing.T) {
	v, err := NewVisionAPIKeyClient(VisionConfig{APIKey: "k"}, nil)
	require.NoError(t, err)
	_, err = v.Recognize(context.Background(), Request{Mode: ModeOCR})
	assert.ErrorIs(t, err, ErrNoImage)
}

func TestVisionConstructors_MissingCredentials(t *testing.T) {
	_, err := NewVisionAPIKeyClient(VisionConfig{}, nil)
	assert.ErrorIs(t, err, ErrMissingCredentials)

	_, err = NewVisionServiceAccountClient(context.Background(), VisionConfig{}, nil)
	assert.ErrorIs(t, err, ErrMissingCredentials)

	_, err = NewVisionServiceAccountClient(context.Background(),
		VisionConfig{CredentialsFile: filepath.Join(t.TempDir(), "missing.json")}, nil)
	assert.ErrorIs(t, err, ErrMissingCredentials)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("not json"), 0o600))
	_, err = NewVisionServiceAccountClient(context.Background(), VisionConfig{CredentialsFile: bad}, nil)
	assert.Error(t, err)
}
