package app

import (
	"context"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"scopeindex/internal/engine/fuzzy"
	"scopeindex/internal/engine/scope"
	"scopeindex/internal/engine/search"
	"scopeindex/internal/engine/symbols"
	"scopeindex/internal/shared/observability"
)

// PopulateResult summarises one Populate run. Queued and Dropped count
// offline jobs; Extracted and Failed count files processed in place.
type PopulateResult struct {
	RunID     string
	Files     int
	Queued    int
	Dropped   int
	Extracted int
	Failed    int
}

// Populate walks root breadth first and replaces the project file list, one
// directory level at a time. Once the walk finishes every file is queued for
// offline symbol extraction.
//
// The walk runs on its own goroutine; the calling goroutine applies each
// published level, so the file list only ever changes from one place.
func (ix *Indexer) Populate(ctx context.Context, root string) (PopulateResult, error) {
	return ix.populate(ctx, root, true)
}

// PopulateSync is Populate with every file's symbols extracted before it
// returns. Nothing is queued, so the background worker never repeats the
// work. Files whose symbols cannot be extracted are counted in Failed.
func (ix *Indexer) PopulateSync(ctx context.Context, root string) (PopulateResult, error) {
	return ix.populate(ctx, root, false)
}

func (ix *Indexer) populate(ctx context.Context, root string, offline bool) (PopulateResult, error) {
	res := PopulateResult{RunID: uuid.NewString()}
	ctx, span := observability.Tracer.Start(ctx, "Indexer.Populate", trace.WithAttributes(
		attribute.String("root", root),
		attribute.String("run_id", res.RunID),
		attribute.Bool("offline", offline),
	))
	defer span.End()

	start := time.Now()
	slog.Info("populate started", "run_id", res.RunID, "root", root)

	levels := make(chan []string)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(levels)
		return ix.project.RecursivePopulate(gctx, root, func(files []string) {
			select {
			case levels <- files:
			case <-gctx.Done():
			}
		})
	})

	var files []string
	for level := range levels {
		files = level
		ix.filesMu.Lock()
		ix.project.UpdateFiles(files)
		ix.filesMu.Unlock()
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return res, err
	}
	res.Files = len(files)

	for _, f := range files {
		err := ix.project.AddOrUpdate(ctx, f, offline)
		switch {
		case err == nil && offline:
			res.Queued++
		case err == nil:
			res.Extracted++
		case ctx.Err() != nil:
			return res, ctx.Err()
		case offline && stderrors.Is(err, symbols.ErrQueueFull):
			res.Dropped++
		case offline:
			return res, err
		default:
			slog.Debug("symbols unavailable", "run_id", res.RunID, "path", f, "error", err)
			res.Failed++
		}
	}
	if res.Dropped > 0 {
		slog.Warn("index queue full, symbols skipped", "run_id", res.RunID, "dropped", res.Dropped)
	}

	span.SetAttributes(attribute.Int("files", res.Files))
	slog.Info("populate finished", "run_id", res.RunID, "files", res.Files, "queued", res.Queued,
		"extracted", res.Extracted, "failed", res.Failed, "duration", time.Since(start))
	return res, nil
}

// Filenames returns the current project file list.
func (ix *Indexer) Filenames() []string {
	return ix.project.Filenames()
}

// FilterFilenames ranks the project files against query and returns the
// best limit of them; a non-positive limit uses the configured one. Each call
// supersedes the previous one. ok is false when this call was itself
// superseded or cancelled before finishing, and the result must be dropped.
func (ix *Indexer) FilterFilenames(ctx context.Context, query string, limit int) (fuzzy.Result, bool) {
	id := ix.filterer.Begin()
	if limit <= 0 {
		limit = ix.config().Index.FilterLimit
	}
	res, ok := ix.filterer.Run(ctx, id, ix.project.FilenamesIncluding(query), query, limit)
	if !ok {
		observability.StaleResultsTotal.WithLabelValues("filter").Inc()
	}
	return res, ok
}

// Search looks for query in every project file. A newer Search makes this
// one return search.ErrSuperseded.
func (ix *Indexer) Search(ctx context.Context, query string, opts search.Options) (search.Result, error) {
	id := ix.searcher.Begin()
	ctx, span := observability.Tracer.Start(ctx, "Indexer.Search", trace.WithAttributes(
		attribute.Int64("generation", int64(id)),
	))
	defer span.End()

	if opts.MaxResults <= 0 {
		opts.MaxResults = ix.config().Search.MaxResults
	}
	res, err := ix.searcher.Search(ctx, id, ix.project.Filenames(), query, opts)
	if err != nil {
		span.RecordError(err)
		return res, err
	}
	span.SetAttributes(attribute.Int("hits", len(res.Hits)))
	return res, nil
}

// DefaultSearchOptions returns the search options from the configuration.
func (ix *Indexer) DefaultSearchOptions() search.Options {
	cfg := ix.config()
	return search.Options{
		Regexp:     cfg.Search.Regexp,
		IgnoreCase: !cfg.Search.CaseSensitive,
		MaxResults: cfg.Search.MaxResults,
	}
}

// UpdateSymbols re-extracts the symbols of path, in the background when
// offline is set.
func (ix *Indexer) UpdateSymbols(ctx context.Context, path string, offline bool) error {
	return ix.project.AddOrUpdate(ctx, path, offline)
}

func (ix *Indexer) Symbols(filename string) []scope.Symbol {
	return ix.project.Symbols(filename)
}

func (ix *Indexer) AllSymbols() []scope.Symbol {
	return ix.project.AllSymbols()
}
