package menulens

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Orchestrator drives provider calls for every extraction operation. It
// holds no per-session state; batch continuation is carried by the caller.
type Orchestrator struct {
	extractor  Recognizer // menu, count and details calls
	ocr        Recognizer // plain-text recognition
	translator Translator
	opts       Options
	log        *slog.Logger
}

// New creates an Orchestrator. ocr and translator may be nil, in which case
// the offline mocks are used.
func New(extractor, ocr Recognizer, translator Translator, optFns ...func(*Options)) (*Orchestrator, error) {
	if extractor == nil {
		return nil, errors.New("extractor is required")
	}
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.ItemsPerBatch < 1 {
		opts.ItemsPerBatch = DefaultItemsPerBatch
	}
	if opts.MaxBatches < 1 {
		opts.MaxBatches = defaultOptions().MaxBatches
	}
	if opts.Prompts == nil {
		p, err := NewPromptBuilder()
		if err != nil {
			return nil, err
		}
		opts.Prompts = p
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if ocr == nil {
		ocr = NewMockClient()
	}
	if translator == nil {
		translator = MockTranslator{}
	}
	return &Orchestrator{
		extractor:  extractor,
		ocr:        ocr,
		translator: translator,
		opts:       opts,
		log:        opts.Logger,
	}, nil
}

// ItemsPerBatch returns the configured window size.
func (o *Orchestrator) ItemsPerBatch() int { return o.opts.ItemsPerBatch }

// ExtractorName returns the name of the menu provider.
func (o *Orchestrator) ExtractorName() string { return o.extractor.Name() }

// OCRName returns the name of the OCR provider.
func (o *Orchestrator) OCRName() string { return o.ocr.Name() }

func (o *Orchestrator) lang(l string) string {
	if l = strings.TrimSpace(l); l != "" {
		return l
	}
	return o.opts.DefaultLang
}

func (o *Orchestrator) call(ctx context.Context, rec Recognizer, req Request, in PromptInput) (string, error) {
	if req.Prompt == "" {
		prompt, err := o.opts.Prompts.Build(in)
		if err != nil {
			return "", fmt.Errorf("build prompt: %w", err)
		}
		req.Prompt = prompt
	}
	start := time.Now()
	raw, err := rec.Recognize(ctx, req)
	if err != nil {
		o.log.Warn("Provider call failed",
			"provider", rec.Name(), "mode", req.Mode, "class", Classify(err),
			"duration", time.Since(start), "error", err)
		return "", err
	}
	o.log.Debug("Provider call done",
		"provider", rec.Name(), "mode", req.Mode,
		"window_start", req.Window.Start, "window_end", req.Window.End,
		"prompt_length", len(req.Prompt), "response_length", len(raw),
		"duration", time.Since(start))
	return raw, nil
}

// ProbeCount asks for the number of dishes only. It never fails: on any
// error the total is reported as unknown.
func (o *Orchestrator) ProbeCount(ctx context.Context, img *Image, lang string) CountProbeResult {
	if img == nil {
		return CountProbeResult{Warning: ErrNoImage.Error()}
	}
	raw, err := o.call(ctx, o.extractor,
		Request{Image: img, Mode: ModeCountOnly, Timeout: o.opts.ProbeTimeout},
		PromptInput{Mode: ModeCountOnly, SourceLang: o.lang(lang)})
	if err == nil {
		var p *ParsedPayload
		if p, err = Parse(raw, ModeCountOnly); err == nil {
			o.log.Info("Count probe done", "total_dishes", p.TotalDishes)
			return CountProbeResult{TotalDishes: p.TotalDishes, Known: true}
		}
	}
	o.log.Warn("Count probe failed, total unknown", "error", err)
	return CountProbeResult{Warning: err.Error()}
}

// ExtractBatch recognizes one window of dishes.
func (o *Orchestrator) ExtractBatch(ctx context.Context, req BatchRequest) (BatchResult, error) {
	if req.Image == nil {
		return BatchResult{}, ErrNoImage
	}
	if req.BatchIndex < 1 {
		req.BatchIndex = 1
	}
	if req.ItemsPerBatch < 1 {
		req.ItemsPerBatch = o.opts.ItemsPerBatch
	}
	w := req.Window()
	lang := o.lang(req.SourceLang)

	raw, err := o.call(ctx, o.extractor,
		Request{Image: req.Image, Mode: ModeWindowed, Window: w, Timeout: o.opts.VisionTimeout},
		PromptInput{
			Instructions: o.opts.Instructions,
			Mode:         ModeWindowed,
			Window:       w,
			TotalHint:    req.TotalHint,
			SourceLang:   lang,
			TargetLang:   req.TargetLang,
		})
	if err != nil {
		return BatchResult{}, fmt.Errorf("batch %d: %w", req.BatchIndex, err)
	}
	p, err := Parse(raw, ModeWindowed)
	if err != nil {
		return BatchResult{}, fmt.Errorf("batch %d: %w", req.BatchIndex, err)
	}

	res := RepairBatch(p, w, req.TotalHint)
	res.BatchIndex = req.BatchIndex
	o.log.Info("Batch extracted",
		"batch", req.BatchIndex, "start", w.Start, "end", w.End,
		"items", len(res.Items), "has_more", res.HasMore, "total_estimate", res.TotalDishesEstimate)
	return res, nil
}

// ExtractFull recognizes every dish in one call. Results are cached by
// image fingerprint and language pair.
func (o *Orchestrator) ExtractFull(ctx context.Context, img *Image, lang, target string) (FullResult, error) {
	if img == nil {
		return FullResult{}, ErrNoImage
	}
	lang = o.lang(lang)
	key := CacheKey(ModeFull, lang+">"+target, img.Fingerprint)
	v, hit, err := o.opts.Cache.Do(ctx, key, func(ctx context.Context) (any, error) {
		raw, err := o.call(ctx, o.extractor,
			Request{Image: img, Mode: ModeFull, Timeout: o.opts.VisionTimeout},
			PromptInput{Instructions: o.opts.Instructions, Mode: ModeFull, SourceLang: lang, TargetLang: target})
		if err != nil {
			return nil, err
		}
		p, err := Parse(raw, ModeFull)
		if err != nil {
			return nil, err
		}
		return FullResult{
			OriginalText:   p.OriginalText,
			TranslatedText: p.TranslatedText,
			Items:          p.MenuItems,
			DetectedLang:   lang,
		}, nil
	})
	if err != nil {
		return FullResult{}, err
	}
	if hit {
		o.log.Debug("Cache hit", "mode", ModeFull, "fingerprint", img.Fingerprint)
	}
	return v.(FullResult), nil
}

// OCR returns the plain text on the image. Results are cached by image
// fingerprint and language.
func (o *Orchestrator) OCR(ctx context.Context, img *Image, lang string) (OCRResult, error) {
	if img == nil {
		return OCRResult{}, ErrNoImage
	}
	lang = o.lang(lang)
	v, hit, err := o.opts.Cache.Do(ctx, CacheKey(ModeOCR, lang, img.Fingerprint), func(ctx context.Context) (any, error) {
		raw, err := o.call(ctx, o.ocr,
			Request{Image: img, Mode: ModeOCR, Timeout: o.opts.VisionTimeout},
			PromptInput{Mode: ModeOCR, SourceLang: lang})
		if err != nil {
			return nil, err
		}
		source := o.ocr.Name()
		if source == MockName {
			source = "mock_data"
		}
		return OCRResult{
			Success:   true,
			Text:      strings.TrimSpace(raw),
			Language:  lang,
			Source:    source,
			Timestamp: time.Now().UTC(),
		}, nil
	})
	if err != nil {
		return OCRResult{}, err
	}
	if hit {
		o.log.Debug("Cache hit", "mode", ModeOCR, "fingerprint", img.Fingerprint)
	}
	return v.(OCRResult), nil
}

// DishDetails enriches a single dish without an image.
func (o *Orchestrator) DishDetails(ctx context.Context, dish DishRef, lang string) (DishDetails, error) {
	if strings.TrimSpace(dish.ChineseName) == "" && strings.TrimSpace(dish.EnglishName) == "" {
		return DishDetails{}, ErrNoDishes
	}
	dishes := []DishRef{dish}
	raw, err := o.call(ctx, o.extractor,
		Request{Mode: ModeDishDetails, Dishes: dishes, Timeout: o.opts.DetailsTimeout},
		PromptInput{Mode: ModeDishDetails, SourceLang: o.lang(lang), Dishes: dishes})
	if err != nil {
		return DishDetails{}, err
	}
	p, err := Parse(raw, ModeDishDetails)
	if err != nil {
		return DishDetails{}, err
	}
	if len(p.Details) == 0 {
		return DishDetails{}, &ContractError{Kind: CountMismatch, Length: len(raw)}
	}
	return p.Details[0], nil
}

// BatchDishDetails enriches several dishes in one call. The result has one
// entry per input dish, in input order.
func (o *Orchestrator) BatchDishDetails(ctx context.Context, dishes []DishRef, lang string) ([]DishDetails, error) {
	if len(dishes) == 0 {
		return nil, ErrNoDishes
	}
	raw, err := o.call(ctx, o.extractor,
		Request{Mode: ModeBatchDetails, Dishes: dishes, Timeout: o.opts.DetailsTimeout},
		PromptInput{Mode: ModeBatchDetails, SourceLang: o.lang(lang), Dishes: dishes})
	if err != nil {
		return nil, err
	}
	p, err := Parse(raw, ModeBatchDetails)
	if err != nil {
		return nil, err
	}
	if len(p.Details) != len(dishes) {
		return nil, &ContractError{
			Kind:   CountMismatch,
			Length: len(raw),
			Err:    fmt.Errorf("got %d details for %d dishes", len(p.Details), len(dishes)),
		}
	}
	return p.Details, nil
}

// Translate translates text, falling back to the mock translator when the
// configured one fails.
func (o *Orchestrator) Translate(ctx context.Context, text, target string) (TranslateResult, error) {
	if strings.TrimSpace(text) == "" {
		return TranslateResult{}, ErrNoText
	}
	if target == "" {
		target = "en"
	}
	ctx, cancel := withTimeout(ctx, o.opts.DetailsTimeout)
	defer cancel()

	out, err := o.translator.Translate(ctx, text, target)
	if err == nil {
		return TranslateResult{Success: true, TranslatedText: out, Source: o.translator.Name()}, nil
	}
	o.log.Warn("Translation failed, using mock", "translator", o.translator.Name(), "error", err)
	out, _ = MockTranslator{}.Translate(ctx, text, target)
	return TranslateResult{Success: true, TranslatedText: out, Source: MockName}, nil
}
