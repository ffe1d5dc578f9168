package menulens

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	defaultImageMIME = "image/jpeg"
	maxImageBytes    = 20 << 20
)

// Image is a decoded menu photo. Fingerprint keys the result cache: the hex
// SHA-256 of the submitted base64 payload, or of the bytes for fetched images.
type Image struct {
	Data        []byte
	MIMEType    string
	Fingerprint string
}

// NewImage wraps raw bytes, sniffing the MIME type when mimeType is empty.
func NewImage(data []byte, mimeType string) *Image {
	if mimeType == "" || !strings.HasPrefix(mimeType, "image/") {
		mimeType = sniffImageMIME(data)
	}
	return &Image{Data: data, MIMEType: mimeType, Fingerprint: fingerprint(data)}
}

func fingerprint(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// DecodeImage accepts bare base64 or a data URL. Everything up to the first
// comma of a data URL is treated as the header.
func DecodeImage(payload string) (*Image, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, ErrNoImage
	}

	var mimeType string
	if strings.HasPrefix(payload, "data:") {
		comma := strings.IndexByte(payload, ',')
		if comma < 0 {
			return nil, fmt.Errorf("%w: data url has no payload", ErrInvalidImage)
		}
		header := strings.TrimPrefix(payload[:comma], "data:")
		mimeType, _, _ = strings.Cut(header, ";")
		payload = payload[comma+1:]
	}

	raw := payload
	payload = strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, payload)

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		if data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "=")); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
		}
	}
	if len(data) == 0 {
		return nil, ErrNoImage
	}
	img := NewImage(data, mimeType)
	img.Fingerprint = fingerprint([]byte(raw))
	return img, nil
}

// FetchImage downloads image_url. The caller bounds the call with ctx.
func FetchImage(ctx context.Context, client *http.Client, url string) (*Image, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageFetch, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrImageFetch, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageFetch, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrImageFetch)
	}
	mimeType, _, _ := strings.Cut(resp.Header.Get("Content-Type"), ";")
	return NewImage(data, strings.TrimSpace(mimeType)), nil
}

// Base64 returns the standard base64 encoding of the image bytes.
func (i *Image) Base64() string { return base64.StdEncoding.EncodeToString(i.Data) }

// DataURL returns the image as a data: URL.
func (i *Image) DataURL() string {
	return "data:" + i.MIMEType + ";base64," + i.Base64()
}

func sniffImageMIME(data []byte) string {
	mt := mimetype.Detect(data)
	for m := mt; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "image/") {
			return m.String()
		}
	}
	return defaultImageMIME
}
