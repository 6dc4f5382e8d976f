package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func newTestContext(t *testing.T, args map[string]string) *cli.Context {
	t.Helper()
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	for name, value := range args {
		set.String(name, value, "")
	}
	app := cli.NewApp()
	app.Setup()
	return cli.NewContext(app, set, nil)
}

func TestSetupLogger(t *testing.T) {
	t.Cleanup(func() {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	})

	t.Run("valid levels", func(t *testing.T) {
		for _, level := range []string{"debug", "info", "warn", "error", "WARN"} {
			ctx := newTestContext(t, map[string]string{"log-level": level})
			assert.NoError(t, setupLogger(ctx), "level %q", level)
		}
	})

	t.Run("invalid level", func(t *testing.T) {
		ctx := newTestContext(t, map[string]string{"log-level": "verbose"})
		err := setupLogger(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})
}

func TestLoadFileConfig(t *testing.T) {
	t.Run("empty path yields zero config", func(t *testing.T) {
		cfg, err := loadFileConfig("")
		require.NoError(t, err)
		assert.Empty(t, cfg.Database)
	})

	t.Run("parses yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "stash.yaml")
		data := []byte(`
database: /var/lib/stash
ai:
  embedding_host: http://ollama:11434
  embedding_model: embeddinggemma
redis:
  addr: redis:6379
  queue: stash:jobs
`)
		require.NoError(t, os.WriteFile(path, data, 0644))

		cfg, err := loadFileConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "/var/lib/stash", cfg.Database)
		assert.Equal(t, "http://ollama:11434", cfg.AI.EmbeddingHost)
		assert.Equal(t, "redis:6379", cfg.Redis.Addr)
		assert.Equal(t, "stash:jobs", cfg.Redis.Queue)
	})

	t.Run("missing file errors", func(t *testing.T) {
		_, err := loadFileConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("malformed yaml errors", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("database: [unclosed"), 0644))
		_, err := loadFileConfig(path)
		assert.Error(t, err)
	})
}

func TestAIConfigPrecedence(t *testing.T) {
	ctx := newTestContext(t, map[string]string{
		"embedding-host": "http://flag-host:1234",
	})
	fileCfg := &fileConfig{}
	fileCfg.AI.EmbeddingHost = "http://file-host:1111"
	fileCfg.AI.EmbeddingModel = "file-model"
	ctx.App.Metadata[configKey] = fileCfg

	cfg := aiConfig(ctx)

	// Flag beats file, file beats default, default survives otherwise
	assert.Equal(t, "http://flag-host:1234", cfg.EmbeddingHost)
	assert.Equal(t, "file-model", cfg.EmbeddingModel)
	assert.Equal(t, "qwen2.5:3b", cfg.AnalyzerModel)
}

func TestDBPathFallbacks(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		ctx := newTestContext(t, nil)
		assert.Equal(t, "stash.db", dbPath(ctx))
	})

	t.Run("config file", func(t *testing.T) {
		ctx := newTestContext(t, nil)
		cfg := &fileConfig{}
		cfg.Database = "/data/stash"
		ctx.App.Metadata[configKey] = cfg
		assert.Equal(t, "/data/stash", dbPath(ctx))
	})

	t.Run("flag wins", func(t *testing.T) {
		ctx := newTestContext(t, map[string]string{"db": "/flag/stash"})
		cfg := &fileConfig{}
		cfg.Database = "/data/stash"
		ctx.App.Metadata[configKey] = cfg
		assert.Equal(t, "/flag/stash", dbPath(ctx))
	})
}
