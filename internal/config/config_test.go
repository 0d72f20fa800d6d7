package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/dshills/texmerge/internal/pipeline"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 20, cfg.Expander.MaxDepth)
	assert.Equal(t, 0.8, cfg.Merge.Threshold)
	assert.Equal(t, pipeline.RootModeMerge, cfg.Merge.RootMode)
	assert.Equal(t, runtime.NumCPU(), cfg.Merge.Workers)
	assert.Contains(t, cfg.Cleaner.DropEnvs, "tikzpicture")
	assert.Contains(t, cfg.Expander.ProtectedEnvs, "verbatim")
	assert.Equal(t, []string{".tex"}, cfg.Source.Extensions)
	assert.Equal(t, DefaultDBPath, cfg.Storage.DatabasePath)
	require.NoError(t, cfg.Validate())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Merge.Threshold, cfg.Merge.Threshold)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Expander, cfg.Expander)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	p := filepath.Join(t.TempDir(), "texmerge.yaml")
	yml := `
expander:
  max_depth: 5
cleaner:
  drop_envs: [comment]
  postprocess: true
merge:
  threshold: 0.5
  root_mode: single
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(p, []byte(yml), 0644))

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Expander.MaxDepth)
	assert.Equal(t, []string{"comment"}, cfg.Cleaner.DropEnvs)
	assert.True(t, cfg.Cleaner.Postprocess)
	assert.Equal(t, 0.5, cfg.Merge.Threshold)
	assert.Equal(t, "single", cfg.Merge.RootMode)

	// untouched sections keep their defaults
	assert.Equal(t, DefaultConfig().Cleaner.InlineCommands, cfg.Cleaner.InlineCommands)
	assert.Equal(t, DefaultConfig().Hints, cfg.Hints)

	lvl, err := cfg.LogLevel()
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, lvl)
}

func TestLoad_InvalidYAML(t *testing.T) {
	p := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(p, []byte("merge: [unclosed"), 0644))

	_, err := Load(p)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Run("overrides", func(t *testing.T) {
		t.Setenv(EnvDBPath, "/tmp/x.db")
		t.Setenv(EnvLogLevel, "warn")
		t.Setenv(EnvWorkers, "3")

		cfg := DefaultConfig()
		require.NoError(t, cfg.ApplyEnv())
		assert.Equal(t, "/tmp/x.db", cfg.Storage.DatabasePath)
		assert.Equal(t, "warn", cfg.Logging.Level)
		assert.Equal(t, 3, cfg.Merge.Workers)
	})

	t.Run("empty values ignored", func(t *testing.T) {
		t.Setenv(EnvDBPath, "")
		t.Setenv(EnvWorkers, "")

		cfg := DefaultConfig()
		require.NoError(t, cfg.ApplyEnv())
		assert.Equal(t, DefaultDBPath, cfg.Storage.DatabasePath)
	})

	t.Run("invalid workers", func(t *testing.T) {
		t.Setenv(EnvWorkers, "many")

		cfg := DefaultConfig()
		assert.Error(t, cfg.ApplyEnv())
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"threshold above one", func(c *Config) { c.Merge.Threshold = 1.5 }},
		{"threshold negative", func(c *Config) { c.Merge.Threshold = -0.1 }},
		{"max depth zero", func(c *Config) { c.Expander.MaxDepth = 0 }},
		{"negative workers", func(c *Config) { c.Merge.Workers = -1 }},
		{"unknown root mode", func(c *Config) { c.Merge.RootMode = "all" }},
		{"unknown log level", func(c *Config) { c.Logging.Level = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := DefaultConfig()
	cfg.Merge.Threshold = 0
	assert.NoError(t, cfg.Validate())
}

func TestSaveAndLoad(t *testing.T) {
	p := filepath.Join(t.TempDir(), "nested", "cfg.yaml")
	cfg := DefaultConfig()
	cfg.Merge.Threshold = 0.65
	cfg.Hints.Positive = []string{"thesis"}
	require.NoError(t, cfg.Save(p))

	loaded, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, 0.65, loaded.Merge.Threshold)
	assert.Equal(t, []string{"thesis"}, loaded.Hints.Positive)
}

func TestPipelineConversion(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cleaner.BalancedSetupBlocks = true
	cfg.Hints.MainNames = []string{"thesis.tex"}

	pc := cfg.Pipeline()
	assert.True(t, pc.BalancedSetupBlocks)
	assert.Equal(t, []string{"thesis.tex"}, pc.Hints.MainNames)
	assert.Equal(t, cfg.Merge.Threshold, pc.Threshold)
	assert.Equal(t, cfg.Expander.MaxDepth, pc.MaxDepth)

	opts := cfg.SourceOptions()
	assert.Equal(t, cfg.Source.Extensions, opts.Extensions)
}

func TestDatabasePath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	cfg := DefaultConfig()
	p, err := cfg.DatabasePath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".texmerge", "runs.db"), p)

	cfg.Storage.DatabasePath = "/var/lib/texmerge.db"
	p, err = cfg.DatabasePath()
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/texmerge.db", p)
}

func TestHash(t *testing.T) {
	a := DefaultConfig()
	b := DefaultConfig()
	b.Merge.Workers = 99
	b.Storage.DatabasePath = "elsewhere"
	assert.Equal(t, a.Hash(), b.Hash())

	b.Merge.Threshold = 0.9
	assert.NotEqual(t, a.Hash(), b.Hash())
	assert.Len(t, a.Hash(), 64)
}

func TestRunKey(t *testing.T) {
	c := DefaultConfig()
	assert.Equal(t, c.Hash(), c.RunKey(""))
	assert.NotEqual(t, c.RunKey(""), c.RunKey("main.tex"))
	assert.NotEqual(t, c.RunKey("a.tex"), c.RunKey("b.tex"))
	assert.Equal(t, c.RunKey("a.tex"), DefaultConfig().RunKey("a.tex"))
}
