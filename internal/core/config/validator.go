package config

import (
	"fmt"
	"net"
	"strings"
)

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateStore(cfg *Config) error {
	if strings.TrimSpace(cfg.Store.Path) == "" {
		return fmt.Errorf("store.path must not be empty")
	}
	if cfg.Store.BusyTimeout < 0 {
		return fmt.Errorf("store.busy_timeout must be >= 0, got %s", cfg.Store.BusyTimeout)
	}
	return nil
}

func validateIndex(cfg *Config) error {
	idx := cfg.Index
	if idx.QueueSize < 1 {
		return fmt.Errorf("index.queue_size must be >= 1, got %d", idx.QueueSize)
	}
	if idx.BatchSize < 1 {
		return fmt.Errorf("index.batch_size must be >= 1, got %d", idx.BatchSize)
	}
	if idx.OfflineRate < 0 {
		return fmt.Errorf("index.offline_rate must be >= 0, got %g", idx.OfflineRate)
	}
	if idx.OfflineBurst < 1 {
		return fmt.Errorf("index.offline_burst must be >= 1, got %d", idx.OfflineBurst)
	}
	if idx.MaxFileSize < 1 {
		return fmt.Errorf("index.max_file_size must be >= 1, got %d", idx.MaxFileSize)
	}
	if idx.FilterLimit < 1 {
		return fmt.Errorf("index.filter_limit must be >= 1, got %d", idx.FilterLimit)
	}
	if idx.FilterCheckpoint < 1 {
		return fmt.Errorf("index.filter_checkpoint must be >= 1, got %d", idx.FilterCheckpoint)
	}
	return nil
}

func validateSearch(cfg *Config) error {
	if cfg.Search.Workers < 1 {
		return fmt.Errorf("search.workers must be >= 1, got %d", cfg.Search.Workers)
	}
	if cfg.Search.MaxResults < 1 {
		return fmt.Errorf("search.max_results must be >= 1, got %d", cfg.Search.MaxResults)
	}
	return nil
}

func validateLanguages(cfg *Config) error {
	claimed := make(map[string]string)
	for id, lang := range cfg.Languages {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("languages: language id must not be empty")
		}
		for _, ext := range lang.Extensions {
			ext = strings.ToLower(strings.TrimSpace(ext))
			if ext == "" {
				return fmt.Errorf("languages.%s.extensions contains an empty entry", id)
			}
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			if other, ok := claimed[ext]; ok {
				return fmt.Errorf("languages.%s.extensions: %s is already claimed by languages.%s", id, ext, other)
			}
			claimed[ext] = id
		}
	}
	for name, opts := range cfg.Extractors {
		if opts.Kind() != KindDict {
			return fmt.Errorf("extractors.%s must be a table, got %s", name, opts.Kind())
		}
	}
	return nil
}

func validateTelemetry(cfg *Config) error {
	t := cfg.Telemetry
	if t.SampleRatio < 0 || t.SampleRatio > 1 {
		return fmt.Errorf("telemetry.sample_ratio must be within [0, 1], got %g", t.SampleRatio)
	}
	if addr := strings.TrimSpace(t.MetricsAddress); addr != "" {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return fmt.Errorf("telemetry.metrics_address %q: %w", addr, err)
		}
	}
	return nil
}
