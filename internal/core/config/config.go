package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Version    int                 `toml:"version"`
	Store      Store               `toml:"store"`
	Index      Index               `toml:"index"`
	Search     Search              `toml:"search"`
	Watch      Watch               `toml:"watch"`
	Exclude    Exclude             `toml:"exclude"`
	Grammars   []string            `toml:"grammars"`
	Languages  map[string]Language `toml:"languages"`
	Extractors map[string]Value    `toml:"extractors"`
	Telemetry  Telemetry           `toml:"telemetry"`
}

type Store struct {
	Path        string        `toml:"path"`
	BusyTimeout time.Duration `toml:"busy_timeout"`
	// CompletionCache bounds cached completion queries; negative disables.
	CompletionCache int `toml:"completion_cache"`
}

type Index struct {
	QueueSize        int     `toml:"queue_size"`
	BatchSize        int     `toml:"batch_size"`
	OfflineRate      float64 `toml:"offline_rate"`
	OfflineBurst     int     `toml:"offline_burst"`
	MaxFileSize      int64   `toml:"max_file_size"`
	FilterLimit      int     `toml:"filter_limit"`
	FilterCheckpoint int     `toml:"filter_checkpoint"`
}

type Search struct {
	Workers       int  `toml:"workers"`
	MaxResults    int  `toml:"max_results"`
	CaseSensitive bool `toml:"case_sensitive"`
	Regexp        bool `toml:"regexp"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
	Paths    []string      `toml:"paths"`
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
}

// Language binds file extensions to an extractor under a mimetype.
type Language struct {
	Extractor  string   `toml:"extractor"`
	Mimetype   string   `toml:"mimetype"`
	Extensions []string `toml:"extensions"`
}

type Telemetry struct {
	OTLPEndpoint   string  `toml:"otlp_endpoint"`
	Insecure       bool    `toml:"insecure"`
	SampleRatio    float64 `toml:"sample_ratio"`
	MetricsAddress string  `toml:"metrics_address"`
}

// Default returns a validated configuration for library use without a file.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(string(data))
}

// Parse decodes TOML text, applies defaults and environment overrides, then
// validates the result.
func Parse(data string) (*Config, error) {
	var cfg Config
	md, err := toml.Decode(data, &cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			// extractor tables are free-form
			if len(key) > 0 && key[0] == "extractors" {
				continue
			}
			keys = append(keys, key.String())
		}
		if len(keys) > 0 {
			return nil, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
		}
	}

	applyDefaults(&cfg)
	ApplyEnvOverrides(&cfg)

	if err := validateVersion(&cfg); err != nil {
		return nil, err
	}
	if err := validateStore(&cfg); err != nil {
		return nil, err
	}
	if err := validateIndex(&cfg); err != nil {
		return nil, err
	}
	if err := validateSearch(&cfg); err != nil {
		return nil, err
	}
	if err := validateLanguages(&cfg); err != nil {
		return nil, err
	}
	if err := validateTelemetry(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	if strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = ".scopeindex/scopes.db"
	}
	if cfg.Store.BusyTimeout == 0 {
		cfg.Store.BusyTimeout = 5 * time.Second
	}
	if cfg.Store.CompletionCache == 0 {
		cfg.Store.CompletionCache = 512
	}

	if cfg.Index.QueueSize == 0 {
		cfg.Index.QueueSize = 4096
	}
	if cfg.Index.BatchSize == 0 {
		cfg.Index.BatchSize = 32
	}
	if cfg.Index.OfflineBurst == 0 {
		cfg.Index.OfflineBurst = 16
	}
	if cfg.Index.MaxFileSize == 0 {
		cfg.Index.MaxFileSize = 2 << 20
	}
	if cfg.Index.FilterLimit == 0 {
		cfg.Index.FilterLimit = 50
	}
	if cfg.Index.FilterCheckpoint == 0 {
		cfg.Index.FilterCheckpoint = 256
	}

	if cfg.Search.Workers == 0 {
		cfg.Search.Workers = 4
	}
	if cfg.Search.MaxResults == 0 {
		cfg.Search.MaxResults = 1000
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 250 * time.Millisecond
	}

	if len(cfg.Exclude.Dirs) == 0 {
		cfg.Exclude.Dirs = []string{".git", ".hg", ".svn", "__pycache__", "node_modules", ".scopeindex", ".venv"}
	}
	if len(cfg.Exclude.Files) == 0 {
		cfg.Exclude.Files = []string{"*.pyc", "*.min.js", "*.map"}
	}

	if cfg.Languages == nil {
		cfg.Languages = make(map[string]Language)
	}
	if cfg.Extractors == nil {
		cfg.Extractors = make(map[string]Value)
	}
}

// ExtractorOptions returns the option table configured for the named
// extractor, or a None value.
func (c *Config) ExtractorOptions(name string) Value {
	if c == nil {
		return None()
	}
	return c.Extractors[name]
}
