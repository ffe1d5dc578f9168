package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/vivaneiona/menulens"
	"github.com/vivaneiona/menulens/httpapi"
	"github.com/vivaneiona/menulens/internal/config"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the menulens HTTP API.

Endpoints:
  POST /api/menu                 - extract dishes (mode: full, count_only, batch, all)
  POST /api/ocr                  - plain-text OCR of a menu photo
  POST /api/dish-details         - enrich one dish
  POST /api/batch-dish-details   - enrich several dishes in one call
  POST /api/translate            - translate free text
  GET  /health                   - health check

Examples:
  menulens serve                    # Start on the configured port (default 8080)
  menulens serve --port 3000        # Start on custom port
  MENULENS_EXTRACTION_PROVIDER=mock menulens serve`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cm, err := config.NewManager(cfgFile)
		if err != nil {
			return err
		}
		cfg := cm.Get()
		if cmd.Flags().Changed("host") {
			cfg.Server.Host = serveHost
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = servePort
		}

		level := new(slog.LevelVar)
		level.Set(parseLevel(cfg.Log.Level))
		logger := newLogger(cfg.Log, level)
		slog.SetDefault(logger)

		if cm.ConfigFile() != "" {
			cm.SetLogger(logger)
			cm.OnChange(func(c *config.Config) {
				level.Set(parseLevel(c.Log.Level))
				logger.Info("Config reloaded; provider and server changes apply after restart",
					"file", cm.ConfigFile(), "log_level", c.Log.Level)
			})
			cm.WatchConfig()
		}

		o, err := buildOrchestrator(ctx, cfg, logger)
		if err != nil {
			return err
		}

		if parseLevel(cfg.Log.Level) > slog.LevelDebug {
			gin.SetMode(gin.ReleaseMode)
		}
		srv := httpapi.New(o, httpapi.Config{
			FetchTimeout: cfg.Timeouts.ImageFetch,
			Version:      version,
			Logger:       logger,
		})
		return srv.Run(ctx, cfg.Server.Addr())
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on")

	rootCmd.AddCommand(serveCmd)
}

// buildOrchestrator wires providers, prompts and the cache from cfg.
func buildOrchestrator(ctx context.Context, cfg *config.Config, log *slog.Logger) (*menulens.Orchestrator, error) {
	sel := menulens.NewSelector(menulens.SelectorConfig{
		Gemini: menulens.GeminiConfig{
			APIKey:          cfg.Gemini.APIKey,
			Model:           cfg.Gemini.Model,
			BaseURL:         cfg.Gemini.BaseURL,
			Temperature:     float32(cfg.Gemini.Temperature),
			MaxOutputTokens: int32(cfg.Gemini.MaxOutputTokens),
		},
		OpenAI: menulens.OpenAIConfig{
			APIKey:          cfg.OpenAI.APIKey,
			Model:           cfg.OpenAI.Model,
			BaseURL:         cfg.OpenAI.BaseURL,
			Temperature:     cfg.OpenAI.Temperature,
			MaxOutputTokens: int64(cfg.OpenAI.MaxOutputTokens),
		},
		Vision: menulens.VisionConfig{
			APIKey:          cfg.Vision.APIKey,
			CredentialsFile: cfg.Vision.CredentialsFile,
			Endpoint:        cfg.Vision.Endpoint,
		},
		Translate: menulens.TranslateConfig{
			APIKey:   cfg.Translate.APIKey,
			Endpoint: cfg.Translate.Endpoint,
		},
	}, log)

	cache, err := menulens.NewResultCache(cfg.Cache.Capacity)
	if err != nil {
		return nil, err
	}

	var promptOpts []menulens.Option
	if dir := cfg.Prompt.TemplatesDir; dir != "" {
		promptOpts = append(promptOpts, menulens.WithFS(os.DirFS(dir), "."))
	}
	prompts, err := menulens.NewPromptBuilder(promptOpts...)
	if err != nil {
		return nil, fmt.Errorf("load prompt templates: %w", err)
	}

	opts := []func(*menulens.Options){
		menulens.WithItemsPerBatch(cfg.Extraction.ItemsPerBatch),
		menulens.WithMaxBatches(cfg.Extraction.MaxBatches),
		menulens.WithDefaultLang(cfg.Extraction.DefaultLang),
		menulens.WithVisionTimeout(cfg.Timeouts.Vision),
		menulens.WithProbeTimeout(cfg.Timeouts.Probe),
		menulens.WithDetailsTimeout(cfg.Timeouts.Details),
		menulens.WithCache(cache),
		menulens.WithPromptBuilder(prompts),
		menulens.WithLogger(log),
	}
	if f := cfg.Prompt.InstructionsFile; f != "" {
		b, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("read instructions: %w", err)
		}
		opts = append(opts, menulens.WithInstructions(string(b)))
	}

	extractor, err := sel.SelectExtractor(ctx, cfg.Extraction.Provider)
	if err != nil {
		return nil, err
	}
	return menulens.New(
		extractor,
		sel.Select(ctx, cfg.OCR.Provider),
		sel.SelectTranslator(),
		opts...,
	)
}

func newLogger(cfg config.LogConfig, level *slog.LevelVar) *slog.Logger {
	if cfg.JSON {
		return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: level}))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
