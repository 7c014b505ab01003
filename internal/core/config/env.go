package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: SCOPEINDEX_[SECTION]_[KEY] (e.g., SCOPEINDEX_STORE_PATH).
func ApplyEnvOverrides(cfg *Config) {
	setEnvString(&cfg.Store.Path, "SCOPEINDEX_STORE_PATH")
	setEnvDuration(&cfg.Store.BusyTimeout, "SCOPEINDEX_STORE_BUSY_TIMEOUT")

	setEnvInt(&cfg.Index.QueueSize, "SCOPEINDEX_INDEX_QUEUE_SIZE")
	setEnvFloat64(&cfg.Index.OfflineRate, "SCOPEINDEX_INDEX_OFFLINE_RATE")
	setEnvInt(&cfg.Index.FilterLimit, "SCOPEINDEX_INDEX_FILTER_LIMIT")

	setEnvInt(&cfg.Search.Workers, "SCOPEINDEX_SEARCH_WORKERS")
	setEnvBool(&cfg.Search.CaseSensitive, "SCOPEINDEX_SEARCH_CASE_SENSITIVE")

	setEnvDuration(&cfg.Watch.Debounce, "SCOPEINDEX_WATCH_DEBOUNCE")

	setEnvString(&cfg.Telemetry.OTLPEndpoint, "SCOPEINDEX_TELEMETRY_OTLP_ENDPOINT")
	setEnvString(&cfg.Telemetry.MetricsAddress, "SCOPEINDEX_TELEMETRY_METRICS_ADDRESS")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(strings.ToLower(val)); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvFloat64(target *float64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = f
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
