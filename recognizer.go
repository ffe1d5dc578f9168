package menulens

import (
	"context"
	"time"
)

// Request is one provider call. Image is nil for text-only lookups.
// Window and Dishes mirror what the prompt was built from.
type Request struct {
	Image   *Image
	Prompt  string
	Mode    Mode
	Window  Window
	Dishes  []DishRef
	Timeout time.Duration
}

// Recognizer turns a prompt and an optional image into raw response text.
// Implementations apply Request.Timeout themselves and never retry.
type Recognizer interface {
	Name() string
	Recognize(ctx context.Context, req Request) (string, error)
}

// Translator translates free text into a target language.
type Translator interface {
	Name() string
	Translate(ctx context.Context, text, target string) (string, error)
}

// withTimeout derives the per-call deadline. A zero timeout keeps ctx as is.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
