package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	fferrors "github.com/standardbeagle/fastfind/internal/errors"
)

// validate checks ranges and applies bounds that keep a misconfigured file
// from producing a pathological engine.
func validate(cfg *Config) error {
	if err := validateIndex(&cfg.Index); err != nil {
		return fferrors.New(fferrors.KindInvalidInput, "config", err)
	}
	if err := validateMonitor(&cfg.Monitor); err != nil {
		return fferrors.New(fferrors.KindInvalidInput, "config", err)
	}
	if err := validateStorage(&cfg.Storage); err != nil {
		return fferrors.New(fferrors.KindInvalidInput, "config", err)
	}
	return nil
}

func validateIndex(idx *Index) error {
	if idx.MaxFileSize < 0 {
		return fmt.Errorf("max_file_size must be non-negative, got %d", idx.MaxFileSize)
	}
	if idx.ParallelThreads < 0 {
		return fmt.Errorf("parallel_threads must be non-negative, got %d", idx.ParallelThreads)
	}
	if idx.ParallelThreads > runtime.NumCPU()*16 {
		return fmt.Errorf("parallel_threads %d is unreasonable for %d cores", idx.ParallelThreads, runtime.NumCPU())
	}
	if idx.BatchSize < 0 {
		return errors.New("batch_size must be non-negative")
	}
	return nil
}

func validateMonitor(m *Monitor) error {
	if m.BufferSize < 0 {
		return errors.New("buffer_size must be non-negative")
	}
	if m.DebounceMs < 0 {
		return errors.New("debounce_ms must be non-negative")
	}
	return nil
}

func validateStorage(st *Storage) error {
	switch strings.ToLower(st.Mode) {
	case "", "high_performance", "safe":
		return nil
	default:
		return fmt.Errorf("storage mode must be high_performance or safe, got %q", st.Mode)
	}
}
