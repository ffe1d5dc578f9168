package menulens

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoogleTranslator_Translate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/language/translate/v2", r.URL.Path)
		assert.Equal(t, "tk", r.URL.Query().Get("key"))

		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "鱼香肉丝", body["q"])
		assert.Equal(t, "en", body["target"])
		assert.Equal(t, "text", body["format"])

		_, _ = w.Write([]byte(`{"data":{"translations":[{"translatedText":"Fish-Flavored Shredded Pork","detectedSourceLanguage":"zh-CN"}]}}`))
	}))
	defer srv.Close()

	tr, err := NewGoogleTranslator(TranslateConfig{APIKey: "tk", Endpoint: srv.URL + "/", HTTPClient: srv.Client()}, nil)
	require.NoError(t, err)
	assert.Equal(t, GoogleTranslateName, tr.Name())

	out, err := tr.Translate(context.Background(), "鱼香肉丝", "en")
	require.NoError(t, err)
	assert.Equal(t, "Fish-Flavored Shredded Pork", out)
}

func TestGoogleTranslator_Errors(t *testing.T) {
	_, err := NewGoogleTranslator(TranslateConfig{}, nil)
	assert.ErrorIs(t, err, ErrMissingCredentials)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") == "empty" {
			_, _ = w.Write([]byte(`{"data":{"translations":[]}}`))
			return
		}
		http.Error(w, `{"error":{"code":400,"message":"API key not valid"}}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	tr, err := NewGoogleTranslator(TranslateConfig{APIKey: "bad", Endpoint: srv.URL, HTTPClient: srv.Client()}, nil)
	require.NoError(t, err)
	_, err = tr.Translate(context.Background(), "汤类", "en")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.Code)
	assert.Contains(t, se.Body, "API key not valid")

	tr, err = NewGoogleTranslator(TranslateConfig{APIKey: "empty", Endpoint: srv.URL, HTTPClient: srv.Client()}, nil)
	require.NoError(t, err)
	_, err = tr.Translate(context.Background(), "汤类", "en")
	assert.ErrorIs(t, err, ErrUnexpectedEnvelope)
}

func TestMockTranslator(t *testing.T) {
	out, err := MockTranslator{}.Translate(context.Background(), "凉菜", "es")
	require.NoError(t, err)
	assert.Equal(t, "[Spanish Translation] 凉菜...", out)

	long := make([]rune, 150)
	for i := range long {
		long[i] = '汤'
	}
	out, err = MockTranslator{}.Translate(context.Background(), string(long), "en")
	require.NoError(t, err)
	assert.Equal(t, "[English Translation] "+string(long[:100])+"...", out)
}
