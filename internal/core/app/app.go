// Package app wires the tokenizer, extractors, scope store and project index
// into the Indexer used by editors and the CLI.
package app

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"scopeindex/internal/core/config"
	"scopeindex/internal/core/errors"
	"scopeindex/internal/core/ports"
	"scopeindex/internal/core/watcher"
	"scopeindex/internal/data/queue"
	"scopeindex/internal/data/scopestore"
	"scopeindex/internal/engine/fuzzy"
	"scopeindex/internal/engine/scope"
	"scopeindex/internal/engine/search"
	"scopeindex/internal/engine/symbols"
	"scopeindex/internal/shared/util"
)

// Dependencies lets callers replace the store or registry. Nil fields are
// built from the configuration.
type Dependencies struct {
	Store    ports.ScopeStorePort
	Registry *scope.Registry
}

// Indexer is the entry point to the index.
//
// Concurrency: every method is safe for concurrent use. Populate must not be
// run twice at once for the same Indexer.
type Indexer struct {
	store    ports.ScopeStorePort
	registry *scope.Registry
	project  *symbols.ProjectIndex
	filterer *fuzzy.Filterer
	searcher *search.Searcher

	// indexable accepts files with a registered extension.
	indexable *util.PathFilter

	// filesMu makes Populate and HandleChanges take turns publishing the
	// project file list.
	filesMu sync.Mutex

	mu      sync.RWMutex
	cfg     *config.Config
	filter  *util.PathFilter
	watcher *watcher.Watcher

	closeOnce sync.Once
	closeErr  error
}

var _ ports.ChangeHandler = (*Indexer)(nil)

// New opens the scope store named in cfg. Failing to open it is fatal.
func New(cfg *config.Config) (*Indexer, error) {
	return NewWithDependencies(cfg, Dependencies{})
}

func NewWithDependencies(cfg *config.Config, deps Dependencies) (*Indexer, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	registry := deps.Registry
	if registry == nil {
		var err error
		registry, err = scope.NewDefaultRegistry(registryOptions(cfg))
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeValidationError, "build extractor registry")
		}
	}

	filter, err := util.NewPathFilter(cfg.Exclude.Dirs, cfg.Exclude.Files, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "compile exclude patterns")
	}

	store := deps.Store
	if store == nil {
		if dir := filepath.Dir(cfg.Store.Path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "create store directory"), errors.CtxPath, dir)
			}
		}
		s, err := scopestore.Open(cfg.Store.Path, scopestore.Options{
			CacheSize:   cfg.Store.CompletionCache,
			BusyTimeout: cfg.Store.BusyTimeout,
		})
		if err != nil {
			return nil, err
		}
		store = s
	}

	indexable, err := util.NewPathFilter(nil, nil, registry.Extensions())
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "build extension filter")
	}

	project := symbols.New(symbols.Options{
		Registry:    registry,
		Filter:      filter,
		Queue:       queue.NewMemoryQueue(cfg.Index.QueueSize),
		Limiter:     util.NewLimiter(cfg.Index.OfflineRate, cfg.Index.OfflineBurst),
		BatchSize:   cfg.Index.BatchSize,
		MaxFileSize: cfg.Index.MaxFileSize,
	})
	project.Start(context.Background())

	slog.Debug("indexer ready", "store", cfg.Store.Path, "extensions", len(registry.Extensions()))
	return &Indexer{
		store:     store,
		registry:  registry,
		project:   project,
		filterer:  fuzzy.NewFilterer(cfg.Index.FilterCheckpoint),
		searcher:  search.NewSearcher(cfg.Search.Workers, cfg.Search.MaxResults),
		cfg:       cfg,
		filter:    filter,
		indexable: indexable,
	}, nil
}

func registryOptions(cfg *config.Config) scope.Options {
	opts := scope.Options{
		Grammars:       cfg.Grammars,
		PythonBuiltins: cfg.ExtractorOptions(scope.PythonName).Strings("builtins"),
		Separators:     cfg.ExtractorOptions(scope.PlainName).StringOr("separators", ""),
		Languages:      make(map[string]scope.LanguageOptions, len(cfg.Languages)),
	}
	for id, lang := range cfg.Languages {
		opts.Languages[id] = scope.LanguageOptions{
			Extractor:  lang.Extractor,
			Mimetype:   lang.Mimetype,
			Extensions: lang.Extensions,
		}
	}
	return opts
}

func (ix *Indexer) config() *config.Config {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.cfg
}

// ApplyConfig takes over the settings that can change without reopening the
// store: the watcher debounce, filter and search limits. Everything else
// needs a new Indexer.
func (ix *Indexer) ApplyConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if cfg.Store.Path != ix.cfg.Store.Path {
		slog.Warn("store path change ignored until restart", "current", ix.cfg.Store.Path, "configured", cfg.Store.Path)
	}
	ix.cfg = cfg
	if ix.watcher != nil {
		ix.watcher.SetDebounce(cfg.Watch.Debounce)
	}
	slog.Info("configuration applied", "filter_limit", cfg.Index.FilterLimit, "debounce", cfg.Watch.Debounce)
}

// Registry returns the extractor registry in use.
func (ix *Indexer) Registry() *scope.Registry {
	return ix.registry
}

// Close stops the watcher and the offline worker, then closes the store.
func (ix *Indexer) Close() error {
	ix.closeOnce.Do(func() {
		ix.mu.Lock()
		w := ix.watcher
		ix.watcher = nil
		ix.mu.Unlock()

		var errs []error
		if w != nil {
			if err := w.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close watcher: %w", err))
			}
		}
		if err := ix.project.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close project index: %w", err))
		}
		if err := ix.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
		ix.closeErr = stderrors.Join(errs...)
	})
	return ix.closeErr
}
