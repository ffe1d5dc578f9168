package menulens

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/tyler-sommer/stick"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// PromptBuilder renders provider prompts from stick templates, one per Mode.
// Rendering is pure: the same input always yields the same text.
type PromptBuilder struct {
	env       *stick.Env
	templates map[string]string
	vars      map[string]interface{}
}

// Option configures a PromptBuilder.
type Option func(*PromptBuilder) error

// WithFS loads every *.twig file found under dir, keyed by file name
// without extension (e.g. windowed.twig overrides the windowed template).
func WithFS[F fs.FS](fsys F, dir string) Option {
	return func(p *PromptBuilder) error {
		return fs.WalkDir(fsys, dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.HasSuffix(path, ".twig") {
				return nil
			}
			content, readErr := fs.ReadFile(fsys, path)
			if readErr != nil {
				return fmt.Errorf("read %s: %w", path, readErr)
			}
			tag := strings.TrimSuffix(filepath.Base(path), ".twig")
			p.templates[tag] = string(content)
			return nil
		})
	}
}

// WithTemplates overrides templates from an in-memory map.
func WithTemplates(m map[string]string) Option {
	return func(p *PromptBuilder) error {
		for k, v := range m {
			p.templates[k] = v
		}
		return nil
	}
}

// WithVar adds a variable available in all templates.
func WithVar(key string, value interface{}) Option {
	return func(p *PromptBuilder) error {
		p.vars[key] = value
		return nil
	}
}

// NewPromptBuilder starts from the built-in templates and applies opts.
func NewPromptBuilder(opts ...Option) (*PromptBuilder, error) {
	p := &PromptBuilder{
		env:       stick.New(nil),
		templates: make(map[string]string, len(defaultTemplates)),
		vars:      make(map[string]interface{}),
	}
	for k, v := range defaultTemplates {
		p.templates[k] = v
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// AddTemplate updates or inserts one template.
func (p *PromptBuilder) AddTemplate(tag, tpl string) { p.templates[tag] = tpl }

// PromptInput is everything a prompt may depend on.
type PromptInput struct {
	Instructions string
	Mode         Mode
	Window       Window
	TotalHint    int
	SourceLang   string
	TargetLang   string
	Dishes       []DishRef
}

// Build renders the prompt for in.Mode.
func (p *PromptBuilder) Build(in PromptInput) (string, error) {
	tag := string(in.Mode)
	tpl, ok := p.templates[tag]
	if !ok {
		return "", fmt.Errorf("template %q not found", tag)
	}

	templateCtx := make(map[string]stick.Value)
	for k, v := range p.vars {
		templateCtx[k] = v
	}
	templateCtx["instructions"] = strings.TrimSpace(in.Instructions)
	templateCtx["mode"] = tag
	templateCtx["start"] = in.Window.Start
	templateCtx["end"] = in.Window.End
	templateCtx["has_total"] = in.TotalHint > 0
	templateCtx["total_hint"] = in.TotalHint
	templateCtx["source_lang"] = in.SourceLang
	templateCtx["source_language"] = LanguageName(in.SourceLang)
	templateCtx["target_language"] = LanguageName(orDefault(in.TargetLang, "en"))
	templateCtx["schema"] = schemaExample(in.Mode)

	switch in.Mode {
	case ModeDishDetails:
		if len(in.Dishes) > 0 {
			templateCtx["chinese_name"] = in.Dishes[0].ChineseName
			templateCtx["english_name"] = in.Dishes[0].EnglishName
			templateCtx["pinyin"] = in.Dishes[0].Pinyin
		}
	case ModeBatchDetails:
		templateCtx["dish_count"] = len(in.Dishes)
		templateCtx["dish_list"] = dishList(in.Dishes)
	}

	var out strings.Builder
	if err := p.env.Execute(tpl, &out, templateCtx); err != nil {
		return "", fmt.Errorf("execute %q: %w", tag, err)
	}
	return out.String(), nil
}

func schemaExample(m Mode) string {
	switch m {
	case ModeFull:
		return FullSchemaExample
	case ModeWindowed:
		return WindowedSchemaExample
	case ModeDishDetails, ModeBatchDetails:
		return DetailsSchemaExample
	}
	return ""
}

func dishList(dishes []DishRef) string {
	var b strings.Builder
	for i, d := range dishes {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. %s (%s) - %s", i+1, d.ChineseName, d.Pinyin, d.EnglishName)
	}
	return b.String()
}

// LanguageName returns the English name of a BCP 47 code, or the code
// itself when it cannot be parsed.
func LanguageName(code string) string {
	if code == "" {
		return "the source language"
	}
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return code
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
