package app

import (
	"context"
	"os"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"scopeindex/internal/core/errors"
	"scopeindex/internal/engine/scope"
	"scopeindex/internal/shared/observability"
)

// IndexFile reads path and indexes its content.
func (ix *Indexer) IndexFile(ctx context.Context, path string) ([]scope.Scope, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "read source"), errors.CtxPath, path)
	}
	return ix.IndexData(ctx, path, data)
}

// IndexData extracts the scopes of data, an in-memory copy of path, and
// replaces the stored scopes of path with them.
//
// A tokenization failure returns a CodeSyntax error and leaves the stored
// scopes untouched. A store failure returns the scopes together with a
// CodeStale error: the caller gets a usable result but the persisted index
// for path no longer matches it.
func (ix *Indexer) IndexData(ctx context.Context, path string, data []byte) ([]scope.Scope, error) {
	ex := ix.registry.ForFilename(path)
	ctx, span := observability.Tracer.Start(ctx, "Indexer.IndexData", trace.WithAttributes(
		attribute.String("path", path),
		attribute.String("parser", ex.Name()),
	))
	defer span.End()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	scopes, err := ex.Parse(data, ex.BaseScopeFromFilename(path))
	observability.TokenizeDuration.WithLabelValues(ex.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		observability.UnindexableFilesTotal.Inc()
		span.SetStatus(codes.Error, "file unindexable")
		wrapped := errors.Wrap(err, errors.CodeSyntax, "file unindexable")
		wrapped = errors.AddContext(wrapped, errors.CtxParser, ex.Name())
		return nil, errors.AddContext(wrapped, errors.CtxPath, path)
	}
	span.SetAttributes(attribute.Int("scopes", len(scopes)))

	if err := ix.store.ReplaceScopes(ctx, ex.Name(), path, scopes); err != nil {
		span.RecordError(err)
		if !errors.IsCode(err, errors.CodeStale) {
			err = errors.AddContext(errors.Wrap(err, errors.CodeStale, "persist scopes"), errors.CtxPath, path)
		}
		return scopes, err
	}
	return scopes, nil
}

// QueryCompletions returns the distinct stored scope paths of parser that
// start with prefix. filename, line and col locate the cursor; lookups are
// parser-wide for now.
func (ix *Indexer) QueryCompletions(ctx context.Context, parser, filename string, line, col int, prefix string) ([]string, error) {
	return ix.store.QueryCompletions(ctx, parser, filename, line, col, prefix)
}

// CompletionsAt is QueryCompletions with the parser chosen from filename.
func (ix *Indexer) CompletionsAt(ctx context.Context, filename string, line, col int, prefix string) ([]string, error) {
	return ix.store.QueryCompletions(ctx, ix.registry.ForFilename(filename).Name(), filename, line, col, prefix)
}

// StoredScopes returns what the store currently holds for filename.
func (ix *Indexer) StoredScopes(ctx context.Context, filename string) ([]scope.Scope, error) {
	return ix.store.ScopesForFile(ctx, filename)
}

// Forget removes every trace of filename from the store and project index.
func (ix *Indexer) Forget(ctx context.Context, filename string) error {
	ix.project.Remove(filename)
	return ix.store.DeleteScopesByFilename(ctx, filename)
}
