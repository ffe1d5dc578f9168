package menulens

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const fence = "```"

// ParsedPayload is provider output coerced into the response contract.
type ParsedPayload struct {
	OriginalText        string
	TranslatedText      string
	MenuItems           []MenuItem
	HasMore             bool
	TotalDishesEstimate int
	EstimateDeclared    bool // false when total_dishes_estimate was absent
	TotalDishes         int  // count_only payloads
	Details             []DishDetails
}

// StripFence removes a markdown code fence wrapped around provider output.
// The first line (```json or ```) is dropped along with the trailing fence.
// Text that does not start with a fence is returned trimmed.
func StripFence(raw string) string {
	s := strings.TrimSpace(raw)
	for strings.HasPrefix(s, fence) {
		nl := strings.IndexByte(s, '\n')
		if nl < 0 {
			return ""
		}
		s = s[nl+1:]
		if i := strings.LastIndex(s, "\n"+fence); i >= 0 {
			s = s[:i]
		} else {
			s = strings.TrimSuffix(strings.TrimSpace(s), fence)
		}
		s = strings.TrimSpace(s)
	}
	return s
}

type rawMenuPayload struct {
	OriginalText        *string    `json:"original_text"`
	TranslatedText      *string    `json:"translated_text"`
	MenuItems           []MenuItem `json:"menu_items"`
	HasMore             *bool      `json:"has_more"`
	TotalDishesEstimate flexInt    `json:"total_dishes_estimate"`
}

type rawCountPayload struct {
	TotalDishes flexInt `json:"total_dishes"`
}

// flexInt accepts 12, 12.0 or "12"; negatives clamp to 0.
// Anything else ("about 12", null) reads as absent rather than failing the parse.
type flexInt struct {
	N  int
	OK bool
}

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(b)), `"`)
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		*f = flexInt{}
		return nil
	}
	*f = flexInt{N: int(min(max(n, 0), math.MaxInt32)), OK: true}
	return nil
}

// Parse coerces raw provider text into the contract for the given mode.
// Missing optional fields take defaults and never fail the parse.
func Parse(raw string, mode Mode) (*ParsedPayload, error) {
	text := StripFence(raw)

	var doc any
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, &ContractError{Kind: MalformedJSON, Length: len(raw), Err: err}
	}

	switch mode {
	case ModeCountOnly:
		if err := validate("count_payload.json", doc); err != nil {
			return nil, &ContractError{Kind: SchemaViolation, Length: len(raw), Err: err}
		}
		var p rawCountPayload
		if err := json.Unmarshal([]byte(text), &p); err != nil {
			return nil, &ContractError{Kind: SchemaViolation, Length: len(raw), Err: err}
		}
		return &ParsedPayload{TotalDishes: p.TotalDishes.N}, nil

	case ModeDishDetails, ModeBatchDetails:
		doc, text = unwrapDetails(doc, text)
		if err := validate("dish_details.json", doc); err != nil {
			return nil, &ContractError{Kind: SchemaViolation, Length: len(raw), Err: err}
		}
		out := &ParsedPayload{}
		if _, isList := doc.([]any); isList {
			if err := json.Unmarshal([]byte(text), &out.Details); err != nil {
				return nil, &ContractError{Kind: SchemaViolation, Length: len(raw), Err: err}
			}
			return out, nil
		}
		var d DishDetails
		if err := json.Unmarshal([]byte(text), &d); err != nil {
			return nil, &ContractError{Kind: SchemaViolation, Length: len(raw), Err: err}
		}
		out.Details = []DishDetails{d}
		return out, nil
	}

	if err := validate("menu_payload.json", doc); err != nil {
		return nil, &ContractError{Kind: SchemaViolation, Length: len(raw), Err: err}
	}
	var p rawMenuPayload
	if err := json.Unmarshal([]byte(text), &p); err != nil {
		return nil, &ContractError{Kind: SchemaViolation, Length: len(raw), Err: err}
	}

	out := &ParsedPayload{MenuItems: p.MenuItems}
	if out.MenuItems == nil {
		out.MenuItems = []MenuItem{}
	}
	if p.OriginalText != nil {
		out.OriginalText = *p.OriginalText
	}
	if p.TranslatedText != nil {
		out.TranslatedText = *p.TranslatedText
	}
	if p.HasMore != nil {
		out.HasMore = *p.HasMore
	}
	out.TotalDishesEstimate = len(out.MenuItems)
	if p.TotalDishesEstimate.OK {
		out.EstimateDeclared = true
		out.TotalDishesEstimate = p.TotalDishesEstimate.N
	}
	return out, nil
}

// unwrapDetails accepts {"details": [...]} as well as a bare array, since
// JSON-object response modes cannot return a top-level array.
func unwrapDetails(doc any, text string) (any, string) {
	m, ok := doc.(map[string]any)
	if !ok {
		return doc, text
	}
	inner, ok := m["details"]
	if !ok {
		return doc, text
	}
	b, err := json.Marshal(inner)
	if err != nil {
		return doc, text
	}
	return inner, string(b)
}

var (
	schemasOnce sync.Once
	schemas     map[string]*jsonschema.Schema
	schemasErr  error
)

func compileSchemas() {
	schemas = make(map[string]*jsonschema.Schema)
	compiler := jsonschema.NewCompiler()
	names := []string{"menu_payload.json", "count_payload.json", "dish_details.json"}
	for _, name := range names {
		b, err := schemaFS.ReadFile("schemas/" + name)
		if err != nil {
			schemasErr = fmt.Errorf("read schema %s: %w", name, err)
			return
		}
		if err := compiler.AddResource(name, bytes.NewReader(b)); err != nil {
			schemasErr = fmt.Errorf("load schema %s: %w", name, err)
			return
		}
	}
	for _, name := range names {
		s, err := compiler.Compile(name)
		if err != nil {
			schemasErr = fmt.Errorf("compile schema %s: %w", name, err)
			return
		}
		schemas[name] = s
	}
}

func validate(name string, doc any) error {
	schemasOnce.Do(compileSchemas)
	if schemasErr != nil {
		return schemasErr
	}
	if err := schemas[name].Validate(doc); err != nil {
		return fmt.Errorf("output does not match schema: %w", err)
	}
	return nil
}

// RepairBatch enforces the batch invariants on a parsed payload:
// an estimate below the window start is terminal and empty, items beyond
// the window size or past the declared total are dropped, and the estimate
// is never below the item count.
func RepairBatch(p *ParsedPayload, w Window, totalHint int) BatchResult {
	res := BatchResult{
		OriginalText:   p.OriginalText,
		TranslatedText: p.TranslatedText,
		Items:          p.MenuItems,
		HasMore:        p.HasMore,
		Window:         w,
	}

	total := p.TotalDishesEstimate
	if !p.EstimateDeclared && totalHint > 0 {
		total = totalHint
	}

	if p.EstimateDeclared && total < w.Start {
		res.Items = []MenuItem{}
		res.HasMore = false
		res.TotalDishesEstimate = total
		return res
	}

	if len(res.Items) > w.Size() {
		res.Items = res.Items[:w.Size()]
	}
	// a declared total also bounds how many dishes remain from the window start
	if remaining := total - w.Start + 1; p.EstimateDeclared && len(res.Items) > remaining {
		res.Items = res.Items[:max(0, remaining)]
	}
	if total < len(res.Items) {
		total = len(res.Items)
	}
	res.TotalDishesEstimate = total
	return res
}
