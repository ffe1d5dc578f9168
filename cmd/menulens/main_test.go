package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vivaneiona/menulens/internal/config"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "menulens dev")
	assert.Contains(t, out, "Go:")
}

func TestConfigInitAndShow(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("GEMINI_API_KEY", "super-secret")
	path := filepath.Join(t.TempDir(), "config.yaml")

	out, err := execute(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+path)

	_, err = execute(t, "config", "init", path)
	assert.Error(t, err)

	_, err = execute(t, "config", "init", path, "--force")
	require.NoError(t, err)
	initForce = false

	out, err = execute(t, "config", "show", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "# "+path)
	assert.Contains(t, out, "****")
	assert.NotContains(t, out, "super-secret")
	cfgFile = ""
}

func TestBuildOrchestrator(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("MENULENS_EXTRACTION_PROVIDER", "mock")
	t.Setenv("MENULENS_OCR_PROVIDER", "mock")
	t.Setenv("GOOGLE_TRANSLATE_API_KEY", "")

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ocr.twig"), []byte("Read the menu."), 0o600))
	instructions := filepath.Join(dir, "instructions.txt")
	require.NoError(t, os.WriteFile(instructions, []byte("Translate every dish."), 0o600))
	t.Setenv("MENULENS_PROMPT_TEMPLATES_DIR", dir)
	t.Setenv("MENULENS_PROMPT_INSTRUCTIONS_FILE", instructions)

	cm, err := config.NewManager("")
	require.NoError(t, err)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	o, err := buildOrchestrator(context.Background(), cm.Get(), log)
	require.NoError(t, err)
	assert.Equal(t, "mock", o.ExtractorName())
	assert.Equal(t, "mock", o.OCRName())
	assert.Equal(t, 2, o.ItemsPerBatch())

	cfg := *cm.Get()
	cfg.Prompt.InstructionsFile = filepath.Join(dir, "missing.txt")
	_, err = buildOrchestrator(context.Background(), &cfg, log)
	assert.Error(t, err)

	cfg = *cm.Get()
	cfg.Extraction.Provider = "vision"
	_, err = buildOrchestrator(context.Background(), &cfg, log)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "plain text only")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
}

func TestMask(t *testing.T) {
	assert.Equal(t, "", mask(""))
	assert.Equal(t, "****", mask("sk-123"))
}
