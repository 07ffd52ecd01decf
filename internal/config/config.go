package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/standardbeagle/fastfind/internal/types"
)

// Config is the file-backed engine configuration. It converts to the
// option structs the subsystems consume.
type Config struct {
	Version int

	Index   Index
	Monitor Monitor
	Storage Storage
}

type Index struct {
	Roots              []string
	ExcludedPaths      []string
	ExcludedExtensions []string
	IncludeHidden      bool
	IncludeSystem      bool
	FollowSymlinks     bool
	MaxDepth           int
	MaxFileSize        int64
	ParallelThreads    int
	BatchSize          int
	EnableMonitoring   bool
}

type Monitor struct {
	IncludeSubdirectories bool
	BufferSize            int
	DebounceMs            int
	ExcludedPaths         []string
}

type Storage struct {
	Mode string // "high_performance" or "safe"
	Path string
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version: 1,
		Index: Index{
			MaxDepth:    -1,
			MaxFileSize: 0,
			BatchSize:   512,
		},
		Monitor: Monitor{
			IncludeSubdirectories: true,
			BufferSize:            500,
			DebounceMs:            100,
		},
		Storage: Storage{
			Mode: "high_performance",
		},
	}
}

// Load reads configuration from path, dispatching on the file extension:
// .kdl and .toml are both understood. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var cfg *Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		cfg, err = parseTOML(content)
	default:
		cfg, err = parseKDL(string(content))
	}
	if err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IndexingOptions converts the config to enumerator options.
func (c *Config) IndexingOptions() *types.IndexingOptions {
	return &types.IndexingOptions{
		Roots:              c.Index.Roots,
		ExcludedPaths:      c.Index.ExcludedPaths,
		ExcludedExtensions: c.Index.ExcludedExtensions,
		IncludeHidden:      c.Index.IncludeHidden,
		IncludeSystem:      c.Index.IncludeSystem,
		FollowSymlinks:     c.Index.FollowSymlinks,
		MaxDepth:           c.Index.MaxDepth,
		MaxFileSize:        c.Index.MaxFileSize,
		ParallelThreads:    c.Index.ParallelThreads,
		BatchSize:          c.Index.BatchSize,
		EnableMonitoring:   c.Index.EnableMonitoring,
	}
}

// MonitoringOptions converts the config to change-monitor options.
func (c *Config) MonitoringOptions() *types.MonitoringOptions {
	return &types.MonitoringOptions{
		IncludeSubdirectories: c.Monitor.IncludeSubdirectories,
		BufferSize:            c.Monitor.BufferSize,
		DebounceInterval:      time.Duration(c.Monitor.DebounceMs) * time.Millisecond,
		Mask:                  types.WatchAll,
		ExcludedPaths:         c.Monitor.ExcludedPaths,
	}
}

// PersistenceOptions converts the config to storage options.
func (c *Config) PersistenceOptions() types.PersistenceOptions {
	mode := types.HighPerformance
	if strings.EqualFold(c.Storage.Mode, "safe") {
		mode = types.Safe
	}
	return types.PersistenceOptions{Mode: mode, Path: c.Storage.Path}
}
