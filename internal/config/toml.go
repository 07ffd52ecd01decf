package config

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"
)

// tomlConfig mirrors Config with the wire field names of fastfind.toml.
type tomlConfig struct {
	Version int `toml:"version"`
	Index   struct {
		Roots              []string `toml:"roots"`
		Exclude            []string `toml:"exclude"`
		ExcludeExtensions  []string `toml:"exclude_extensions"`
		IncludeHidden      bool     `toml:"include_hidden"`
		IncludeSystem      bool     `toml:"include_system"`
		FollowSymlinks     bool     `toml:"follow_symlinks"`
		MaxDepth           *int     `toml:"max_depth"`
		MaxFileSize        int64    `toml:"max_file_size"`
		ParallelThreads    int      `toml:"parallel_threads"`
		BatchSize          int      `toml:"batch_size"`
		Monitoring         bool     `toml:"monitoring"`
	} `toml:"index"`
	Monitor struct {
		IncludeSubdirectories *bool    `toml:"include_subdirectories"`
		BufferSize            int      `toml:"buffer_size"`
		DebounceMs            int      `toml:"debounce_ms"`
		Exclude               []string `toml:"exclude"`
	} `toml:"monitor"`
	Storage struct {
		Mode string `toml:"mode"`
		Path string `toml:"path"`
	} `toml:"storage"`
}

func parseTOML(content []byte) (*Config, error) {
	var tc tomlConfig
	if err := toml.Unmarshal(content, &tc); err != nil {
		return nil, fmt.Errorf("failed to parse TOML config: %w", err)
	}

	cfg := Default()
	if tc.Version != 0 {
		cfg.Version = tc.Version
	}
	if len(tc.Index.Roots) > 0 {
		cfg.Index.Roots = tc.Index.Roots
	}
	cfg.Index.ExcludedPaths = append(cfg.Index.ExcludedPaths, tc.Index.Exclude...)
	cfg.Index.ExcludedExtensions = append(cfg.Index.ExcludedExtensions, tc.Index.ExcludeExtensions...)
	cfg.Index.IncludeHidden = tc.Index.IncludeHidden
	cfg.Index.IncludeSystem = tc.Index.IncludeSystem
	cfg.Index.FollowSymlinks = tc.Index.FollowSymlinks
	if tc.Index.MaxDepth != nil {
		cfg.Index.MaxDepth = *tc.Index.MaxDepth
	}
	if tc.Index.MaxFileSize > 0 {
		cfg.Index.MaxFileSize = tc.Index.MaxFileSize
	}
	if tc.Index.ParallelThreads > 0 {
		cfg.Index.ParallelThreads = tc.Index.ParallelThreads
	}
	if tc.Index.BatchSize > 0 {
		cfg.Index.BatchSize = tc.Index.BatchSize
	}
	cfg.Index.EnableMonitoring = tc.Index.Monitoring

	if tc.Monitor.IncludeSubdirectories != nil {
		cfg.Monitor.IncludeSubdirectories = *tc.Monitor.IncludeSubdirectories
	}
	if tc.Monitor.BufferSize > 0 {
		cfg.Monitor.BufferSize = tc.Monitor.BufferSize
	}
	if tc.Monitor.DebounceMs > 0 {
		cfg.Monitor.DebounceMs = tc.Monitor.DebounceMs
	}
	cfg.Monitor.ExcludedPaths = append(cfg.Monitor.ExcludedPaths, tc.Monitor.Exclude...)

	if tc.Storage.Mode != "" {
		cfg.Storage.Mode = tc.Storage.Mode
	}
	if tc.Storage.Path != "" {
		cfg.Storage.Path = tc.Storage.Path
	}
	return cfg, nil
}
