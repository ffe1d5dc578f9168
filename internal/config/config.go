// Package config loads menulens settings from a YAML file and MENULENS_*
// environment variables, and watches the file for changes.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
	Extraction ExtractionConfig `mapstructure:"extraction" yaml:"extraction"`
	OCR        OCRConfig        `mapstructure:"ocr" yaml:"ocr"`
	Gemini     ModelConfig      `mapstructure:"gemini" yaml:"gemini"`
	OpenAI     ModelConfig      `mapstructure:"openai" yaml:"openai"`
	Vision     VisionConfig     `mapstructure:"vision" yaml:"vision"`
	Translate  TranslateConfig  `mapstructure:"translate" yaml:"translate"`
	Timeouts   TimeoutsConfig   `mapstructure:"timeouts" yaml:"timeouts"`
	Cache      CacheConfig      `mapstructure:"cache" yaml:"cache"`
	Prompt     PromptConfig     `mapstructure:"prompt" yaml:"prompt"`
	Log        LogConfig        `mapstructure:"log" yaml:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string { return fmt.Sprintf("%s:%d", s.Host, s.Port) }

type ExtractionConfig struct {
	Provider      string `mapstructure:"provider" yaml:"provider"` // gemini, openai or mock
	ItemsPerBatch int    `mapstructure:"items_per_batch" yaml:"items_per_batch"`
	MaxBatches    int    `mapstructure:"max_batches" yaml:"max_batches"`
	DefaultLang   string `mapstructure:"default_lang" yaml:"default_lang"`
}

type OCRConfig struct {
	Provider string `mapstructure:"provider" yaml:"provider"` // vision or mock
}

type ModelConfig struct {
	APIKey          string  `mapstructure:"api_key" yaml:"api_key"`
	Model           string  `mapstructure:"model" yaml:"model"`
	BaseURL         string  `mapstructure:"base_url" yaml:"base_url"`
	Temperature     float64 `mapstructure:"temperature" yaml:"temperature"`
	MaxOutputTokens int     `mapstructure:"max_output_tokens" yaml:"max_output_tokens"`
}

type VisionConfig struct {
	APIKey          string `mapstructure:"api_key" yaml:"api_key"`
	CredentialsFile string `mapstructure:"credentials_file" yaml:"credentials_file"`
	Endpoint        string `mapstructure:"endpoint" yaml:"endpoint"`
}

type TranslateConfig struct {
	APIKey   string `mapstructure:"api_key" yaml:"api_key"`
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
}

type TimeoutsConfig struct {
	Vision     time.Duration `mapstructure:"vision" yaml:"vision"`
	Probe      time.Duration `mapstructure:"probe" yaml:"probe"`
	Details    time.Duration `mapstructure:"details" yaml:"details"`
	ImageFetch time.Duration `mapstructure:"image_fetch" yaml:"image_fetch"`
}

type CacheConfig struct {
	Capacity int `mapstructure:"capacity" yaml:"capacity"`
}

type PromptConfig struct {
	InstructionsFile string `mapstructure:"instructions_file" yaml:"instructions_file"`
	TemplatesDir     string `mapstructure:"templates_dir" yaml:"templates_dir"`
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	JSON  bool   `mapstructure:"json" yaml:"json"`
}

// defaults doubles as the template for `config init`.
func defaults() map[string]any {
	return map[string]any{
		"server.host":                "0.0.0.0",
		"server.port":                8080,
		"extraction.provider":        "gemini",
		"extraction.items_per_batch": 2,
		"extraction.max_batches":     50,
		"extraction.default_lang":    "zh",
		"ocr.provider":               "vision",
		"gemini.api_key":             "${GEMINI_API_KEY}",
		"gemini.model":               "gemini-2.5-flash",
		"gemini.base_url":            "",
		"gemini.temperature":         0.1,
		"gemini.max_output_tokens":   0,
		"openai.api_key":             "${OPENAI_API_KEY}",
		"openai.model":               "gpt-4o-mini",
		"openai.base_url":            "",
		"openai.temperature":         0.1,
		"openai.max_output_tokens":   0,
		"vision.api_key":             "${GOOGLE_VISION_API_KEY}",
		"vision.credentials_file":    "${GOOGLE_APPLICATION_CREDENTIALS}",
		"vision.endpoint":            "",
		"translate.api_key":          "${GOOGLE_TRANSLATE_API_KEY}",
		"translate.endpoint":         "",
		"timeouts.vision":            "55s",
		"timeouts.probe":             "9s",
		"timeouts.details":           "9s",
		"timeouts.image_fetch":       "15s",
		"cache.capacity":             256,
		"prompt.instructions_file":   "",
		"prompt.templates_dir":       "",
		"log.level":                  "info",
		"log.json":                   false,
	}
}

// Manager owns the live configuration.
type Manager struct {
	v         *viper.Viper
	log       *slog.Logger
	mu        sync.RWMutex
	config    *Config
	callbacks []func(*Config)
}

// NewManager reads cfgFile, or ./config.yaml and ~/.menulens/config.yaml
// when cfgFile is empty. A missing file is not an error.
func NewManager(cfgFile string) (*Manager, error) {
	cm := &Manager{v: viper.New(), log: slog.Default()}
	if err := cm.initViper(cfgFile); err != nil {
		return nil, err
	}
	cfg, err := cm.load()
	if err != nil {
		return nil, err
	}
	cm.config = cfg
	return cm, nil
}

func (cm *Manager) initViper(cfgFile string) error {
	for k, val := range defaults() {
		cm.v.SetDefault(k, val)
	}

	cm.v.SetEnvPrefix("MENULENS")
	cm.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	cm.v.AutomaticEnv()

	if cfgFile != "" {
		cm.v.SetConfigFile(cfgFile)
	} else {
		cm.v.SetConfigName("config")
		cm.v.SetConfigType("yaml")
		cm.v.AddConfigPath(".")
		cm.v.AddConfigPath("$HOME/.menulens")
	}

	if err := cm.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

func (cm *Manager) load() (*Config, error) {
	var cfg Config
	if err := cm.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.resolveEnv()
	return &cfg, nil
}

// ConfigFile returns the file in use, or "" when running on defaults.
func (cm *Manager) ConfigFile() string { return cm.v.ConfigFileUsed() }

// Get returns the current configuration.
func (cm *Manager) Get() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// SetLogger sets the logger used for reload reports.
func (cm *Manager) SetLogger(l *slog.Logger) {
	if l == nil {
		return
	}
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.log = l
}

// OnChange registers fn to run after every successful reload.
func (cm *Manager) OnChange(fn func(*Config)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.callbacks = append(cm.callbacks, fn)
}

// WatchConfig reloads the file whenever it changes. A file that no longer
// decodes is reported and the previous configuration stays in effect.
func (cm *Manager) WatchConfig() {
	cm.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := cm.load()
		if err != nil {
			cm.mu.RLock()
			log := cm.log
			cm.mu.RUnlock()
			log.Warn("Config reload failed, keeping previous config", "file", e.Name, "error", err)
			return
		}

		cm.mu.Lock()
		cm.config = cfg
		callbacks := make([]func(*Config), len(cm.callbacks))
		copy(callbacks, cm.callbacks)
		cm.mu.Unlock()

		for _, fn := range callbacks {
			fn(cfg)
		}
	})
	cm.v.WatchConfig()
}

var envRef = regexp.MustCompile(`\$\{([^}]+)\}`)

// ResolveEnvVars expands ${VAR} references from the process environment.
func ResolveEnvVars(value string) string {
	if value == "" {
		return value
	}
	return envRef.ReplaceAllStringFunc(value, func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})
}

func (c *Config) resolveEnv() {
	for _, s := range []*string{
		&c.Gemini.APIKey,
		&c.OpenAI.APIKey,
		&c.Vision.APIKey,
		&c.Vision.CredentialsFile,
		&c.Translate.APIKey,
		&c.Prompt.InstructionsFile,
	} {
		*s = ResolveEnvVars(*s)
	}
}

// WriteDefault writes the default configuration to path as YAML.
func WriteDefault(path string) error {
	data, err := yaml.Marshal(nest(defaults()))
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# menulens configuration
# API keys use ${ENV_VAR} syntax to reference environment variables.
# Any key can be overridden with MENULENS_<SECTION>_<KEY>, e.g. MENULENS_SERVER_PORT=9090.

`)
	return os.WriteFile(path, append(header, data...), 0o644)
}

// nest turns dotted keys into nested maps.
func nest(flat map[string]any) map[string]any {
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]any)
	for _, k := range keys {
		section, key, ok := strings.Cut(k, ".")
		if !ok {
			out[k] = flat[k]
			continue
		}
		m, _ := out[section].(map[string]any)
		if m == nil {
			m = make(map[string]any)
			out[section] = m
		}
		m[key] = flat[k]
	}
	return out
}
