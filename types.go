package menulens

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// DefaultItemsPerBatch is the fixed window size used by batched extraction.
const DefaultItemsPerBatch = 2

// Mode selects which prompt shape is sent to a provider.
type Mode string

const (
	ModeFull         Mode = "full"
	ModeCountOnly    Mode = "count_only"
	ModeWindowed     Mode = "windowed"
	ModeOCR          Mode = "ocr"
	ModeDishDetails  Mode = "dish_details"
	ModeBatchDetails Mode = "batch_dish_details"
)

// Window is the inclusive 1-based dish range one provider call covers.
type Window struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// WindowFor computes the batch window for a 1-based batch index.
// Indexes below 1 are clamped to 1.
func WindowFor(batchIndex, itemsPerBatch int) Window {
	if batchIndex < 1 {
		batchIndex = 1
	}
	if itemsPerBatch < 1 {
		itemsPerBatch = DefaultItemsPerBatch
	}
	start := (batchIndex-1)*itemsPerBatch + 1
	return Window{Start: start, End: start + itemsPerBatch - 1}
}

// Size returns the number of dish slots in the window.
func (w Window) Size() int { return w.End - w.Start + 1 }

// Alert is a yes/no flag with a free-text qualifier, e.g. "Yes - pork belly".
type Alert string

// Present reports whether the alert is affirmative.
func (a Alert) Present() bool {
	s := strings.ToLower(strings.TrimSpace(string(a)))
	return strings.HasPrefix(s, "yes") || strings.HasPrefix(s, "true")
}

// Qualifier returns the text after the first separator, if any.
func (a Alert) Qualifier() string {
	s := strings.TrimSpace(string(a))
	if i := strings.IndexAny(s, "-–:("); i >= 0 {
		return strings.Trim(strings.TrimSpace(s[i+1:]), ")")
	}
	return ""
}

// Spiciness is an ordinal 0-5 rating with a description, e.g. "3/5 - Medium".
type Spiciness string

// Level parses the leading rating. ok is false when no rating is present.
func (s Spiciness) Level() (level int, ok bool) {
	str := strings.TrimSpace(string(s))
	end := 0
	for end < len(str) && str[end] >= '0' && str[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(str[:end])
	if err != nil || n < 0 || n > 5 {
		return 0, false
	}
	return n, true
}

// Description returns the text after the rating.
func (s Spiciness) Description() string {
	str := strings.TrimSpace(string(s))
	if i := strings.Index(str, "-"); i >= 0 {
		return strings.TrimSpace(str[i+1:])
	}
	if _, ok := s.Level(); ok {
		return ""
	}
	return str
}

// Price is kept as text because menus mix currencies and formats.
// Providers sometimes answer with a bare number, which is accepted too.
type Price string

func (p *Price) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*p = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*p = Price(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*p = Price(n.String())
	return nil
}

// MenuItem is one recognized dish. Only Chinese and English are required;
// every other field may be absent.
type MenuItem struct {
	Chinese         string    `json:"chinese"`
	Pinyin          string    `json:"pinyin,omitempty"`
	English         string    `json:"english"`
	Price           Price     `json:"price,omitempty"`
	Ingredients     []string  `json:"ingredients,omitempty"`
	PorkAlert       Alert     `json:"pork_alert,omitempty"`
	BeefAlert       Alert     `json:"beef_alert,omitempty"`
	SpicinessLevel  Spiciness `json:"spiciness_level,omitempty"`
	CulturalDetails string    `json:"cultural_details,omitempty"`
	HealthCategory  string    `json:"health_category,omitempty"`
	RegionalOrigin  string    `json:"regional_origin,omitempty"`
	DietaryInfo     []string  `json:"dietary_info,omitempty"`
}

// key identifies a dish across batches.
func (m MenuItem) key() string {
	return strings.TrimSpace(m.Chinese) + "\x00" + strings.TrimSpace(string(m.Price))
}

// DishDetails is the enrichment object returned for a single dish.
type DishDetails struct {
	CulturalDetails     string   `json:"cultural_details"`
	Ingredients         []string `json:"ingredients"`
	SpicinessLevel      string   `json:"spiciness_level"`
	DietaryInfo         []string `json:"dietary_info"`
	RegionalOrigin      string   `json:"regional_origin"`
	RecommendedPairings []string `json:"recommended_pairings"`
	NutritionalInfo     string   `json:"nutritional_info"`
}

// DishRef names a dish for a details lookup.
type DishRef struct {
	ChineseName string `json:"chinese_name"`
	EnglishName string `json:"english_name"`
	Pinyin      string `json:"pinyin,omitempty"`
}

// BatchRequest asks for one window of dishes.
type BatchRequest struct {
	Image         *Image
	SourceLang    string
	TargetLang    string
	BatchIndex    int
	ItemsPerBatch int
	TotalHint     int // 0 means unknown
}

// Window returns the dish range covered by the request.
func (r BatchRequest) Window() Window { return WindowFor(r.BatchIndex, r.ItemsPerBatch) }

// BatchResult is the outcome of one windowed call.
type BatchResult struct {
	BatchIndex          int        `json:"batch_number"`
	Window              Window     `json:"-"`
	OriginalText        string     `json:"original_text"`
	TranslatedText      string     `json:"translated_text"`
	Items               []MenuItem `json:"menu_items"`
	HasMore             bool       `json:"has_more"`
	TotalDishesEstimate int        `json:"total_dishes_estimate"`
}

// CountProbeResult is the outcome of the count probe. Known is false when
// the probe failed and the total is unknown.
type CountProbeResult struct {
	TotalDishes int    `json:"total_dishes"`
	Known       bool   `json:"-"`
	Warning     string `json:"warning,omitempty"`
}

// FullResult is the single-shot extraction result.
type FullResult struct {
	OriginalText   string     `json:"original_text"`
	TranslatedText string     `json:"translated_text"`
	Items          []MenuItem `json:"menu_items"`
	DetectedLang   string     `json:"detected_lang"`
}

// OCRResult is the single-shot plain-text recognition result.
type OCRResult struct {
	Success   bool      `json:"success"`
	Text      string    `json:"text"`
	Language  string    `json:"language"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

// Options configures an Orchestrator.
type Options struct {
	ItemsPerBatch  int
	MaxBatches     int
	VisionTimeout  time.Duration // long budget for image calls
	ProbeTimeout   time.Duration // short budget for the count probe
	DetailsTimeout time.Duration // short budget for text-only lookups
	DefaultLang    string
	Instructions   string // static instruction template prepended to every image prompt
	Cache          *ResultCache
	Prompts        *PromptBuilder
	Logger         *slog.Logger
}

func defaultOptions() Options {
	return Options{
		ItemsPerBatch:  DefaultItemsPerBatch,
		MaxBatches:     50,
		VisionTimeout:  55 * time.Second,
		ProbeTimeout:   9 * time.Second,
		DetailsTimeout: 9 * time.Second,
		DefaultLang:    "zh",
		Instructions:   DefaultInstructions,
	}
}

// Functional option constructors
func WithItemsPerBatch(n int) func(*Options) {
	return func(o *Options) { o.ItemsPerBatch = n }
}

func WithMaxBatches(n int) func(*Options) {
	return func(o *Options) { o.MaxBatches = n }
}

func WithVisionTimeout(d time.Duration) func(*Options) {
	return func(o *Options) { o.VisionTimeout = d }
}

func WithProbeTimeout(d time.Duration) func(*Options) {
	return func(o *Options) { o.ProbeTimeout = d }
}

func WithDetailsTimeout(d time.Duration) func(*Options) {
	return func(o *Options) { o.DetailsTimeout = d }
}

func WithDefaultLang(lang string) func(*Options) {
	return func(o *Options) { o.DefaultLang = lang }
}

func WithInstructions(text string) func(*Options) {
	return func(o *Options) { o.Instructions = text }
}

func WithCache(c *ResultCache) func(*Options) {
	return func(o *Options) { o.Cache = c }
}

func WithPromptBuilder(p *PromptBuilder) func(*Options) {
	return func(o *Options) { o.Prompts = p }
}

func WithLogger(l *slog.Logger) func(*Options) {
	return func(o *Options) { o.Logger = l }
}
