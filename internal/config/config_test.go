package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/fastfind/internal/types"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), ".fastfind.kdl"))
	require.NoError(t, err)
	assert.Equal(t, -1, cfg.Index.MaxDepth)
	assert.Equal(t, 100, cfg.Monitor.DebounceMs)
	assert.Equal(t, "high_performance", cfg.Storage.Mode)
}

func TestLoadKDL(t *testing.T) {
	path := writeConfig(t, ".fastfind.kdl", `
version 1
index {
    roots "/srv/data" "/home"
    exclude "node_modules" "**/.git/**"
    exclude_extensions ".tmp"
    include_hidden true
    follow_symlinks false
    max_depth 12
    max_file_size 1048576
    parallel_threads 4
    batch_size 256
    monitoring true
}
monitor {
    buffer_size 200
    debounce_ms 250
    exclude "**/.cache/**"
}
storage {
    mode "safe"
    path "/var/lib/fastfind/index.db"
}
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"/srv/data", "/home"}, cfg.Index.Roots)
	assert.Equal(t, []string{"node_modules", "**/.git/**"}, cfg.Index.ExcludedPaths)
	assert.Equal(t, []string{".tmp"}, cfg.Index.ExcludedExtensions)
	assert.True(t, cfg.Index.IncludeHidden)
	assert.Equal(t, 12, cfg.Index.MaxDepth)
	assert.Equal(t, int64(1048576), cfg.Index.MaxFileSize)
	assert.Equal(t, 4, cfg.Index.ParallelThreads)
	assert.Equal(t, 256, cfg.Index.BatchSize)
	assert.True(t, cfg.Index.EnableMonitoring)

	assert.Equal(t, 200, cfg.Monitor.BufferSize)
	assert.Equal(t, 250, cfg.Monitor.DebounceMs)

	popts := cfg.PersistenceOptions()
	assert.Equal(t, types.Safe, popts.Mode)
	assert.Equal(t, "/var/lib/fastfind/index.db", popts.Path)

	mopts := cfg.MonitoringOptions()
	assert.Equal(t, 250*time.Millisecond, mopts.DebounceInterval)
}

func TestLoadTOML(t *testing.T) {
	path := writeConfig(t, "fastfind.toml", `
version = 1

[index]
roots = ["/data"]
exclude = ["build"]
max_depth = 5
parallel_threads = 2
monitoring = false

[monitor]
debounce_ms = 80

[storage]
mode = "high_performance"
path = "ff.db"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"/data"}, cfg.Index.Roots)
	assert.Equal(t, []string{"build"}, cfg.Index.ExcludedPaths)
	assert.Equal(t, 5, cfg.Index.MaxDepth)
	assert.Equal(t, 2, cfg.Index.ParallelThreads)
	assert.Equal(t, 80, cfg.Monitor.DebounceMs)
	assert.Equal(t, types.HighPerformance, cfg.PersistenceOptions().Mode)
}

func TestValidateRejectsBadValues(t *testing.T) {
	path := writeConfig(t, ".fastfind.kdl", `
index {
    max_file_size -1
}
`)
	_, err := Load(path)
	assert.Error(t, err)

	path = writeConfig(t, ".fastfind.kdl", `
storage {
    mode "turbo"
}
`)
	_, err = Load(path)
	assert.Error(t, err)
}

func TestIndexingOptionsConversion(t *testing.T) {
	cfg := Default()
	cfg.Index.Roots = []string{"/x"}
	cfg.Index.ParallelThreads = 3

	opts := cfg.IndexingOptions()
	assert.Equal(t, []string{"/x"}, opts.Roots)
	assert.Equal(t, 3, opts.Workers())
	assert.Equal(t, -1, opts.MaxDepth)
	assert.Equal(t, 512, opts.EffectiveBatchSize())
}
