package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"scopeindex/internal/core/config"
	"scopeindex/internal/engine/lexer"
	"scopeindex/internal/engine/scope"
)

type commandFunc func(ctx context.Context, rt *cliRuntime, opts cliOptions, args []string, out io.Writer) error

var commands = map[string]commandFunc{
	"index":    runIndex,
	"complete": runComplete,
	"find":     runFind,
	"symbols":  runSymbols,
	"search":   runSearch,
	"watch":    runWatch,
}

func needArgs(args []string, n int, form string) error {
	if len(args) < n {
		return fmt.Errorf("%w: %s", errUsage, form)
	}
	return nil
}

func runIndex(ctx context.Context, rt *cliRuntime, _ cliOptions, args []string, out io.Writer) error {
	if err := needArgs(args, 1, "index <file>..."); err != nil {
		return err
	}
	var failures []error
	for _, path := range args {
		scopes, err := rt.indexer.IndexFile(ctx, path)
		if err != nil {
			slog.Warn("index failed", "path", path, "error", err)
			failures = append(failures, err)
			if scopes == nil {
				continue
			}
		}
		for _, s := range scopes {
			fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", path, s.Path, formatSpan(s.Start, s.End), strings.Join(s.Inherited, ","))
		}
	}
	if len(failures) > 0 {
		return fmt.Errorf("%d of %d files could not be indexed: %w", len(failures), len(args), stderrors.Join(failures...))
	}
	return nil
}

func formatSpan(start, end lexer.Position) string {
	if end == (lexer.Position{}) {
		return fmt.Sprintf("%d:%d", start.Line, start.Col)
	}
	return fmt.Sprintf("%d:%d-%d:%d", start.Line, start.Col, end.Line, end.Col)
}

func runComplete(ctx context.Context, rt *cliRuntime, _ cliOptions, args []string, out io.Writer) error {
	const form = "complete <file> <line> <col> <prefix>"
	if err := needArgs(args, 4, form); err != nil {
		return err
	}
	line, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("%w: %s: bad line %q", errUsage, form, args[1])
	}
	col, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("%w: %s: bad column %q", errUsage, form, args[2])
	}
	paths, err := rt.indexer.CompletionsAt(ctx, args[0], line, col, args[3])
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Fprintln(out, p)
	}
	return nil
}

func runFind(ctx context.Context, rt *cliRuntime, opts cliOptions, args []string, out io.Writer) error {
	if err := needArgs(args, 2, "find <root> <query>"); err != nil {
		return err
	}
	if _, err := rt.indexer.Populate(ctx, args[0]); err != nil {
		return err
	}
	res, ok := rt.indexer.FilterFilenames(ctx, args[1], opts.limit)
	if !ok {
		return ctx.Err()
	}
	for _, m := range res.Matches {
		fmt.Fprintf(out, "%d\t%s\n", m.Score, m.Candidate)
	}
	return nil
}

func runSymbols(ctx context.Context, rt *cliRuntime, _ cliOptions, args []string, out io.Writer) error {
	if err := needArgs(args, 1, "symbols <root>"); err != nil {
		return err
	}
	if _, err := rt.indexer.PopulateSync(ctx, args[0]); err != nil {
		return err
	}
	for _, sym := range rt.indexer.AllSymbols() {
		fmt.Fprintf(out, "%s\t%s\t%s:%d\n", sym.Type, sym.Name, sym.Filename, sym.Line)
	}
	return nil
}

func runSearch(ctx context.Context, rt *cliRuntime, opts cliOptions, args []string, out io.Writer) error {
	if err := needArgs(args, 2, "search <root> <query>"); err != nil {
		return err
	}
	if _, err := rt.indexer.Populate(ctx, args[0]); err != nil {
		return err
	}
	so := rt.indexer.DefaultSearchOptions()
	so.Regexp = so.Regexp || opts.regexp
	so.IgnoreCase = so.IgnoreCase || opts.ignoreCase
	if opts.limit > 0 {
		so.MaxResults = opts.limit
	}
	res, err := rt.indexer.Search(ctx, args[1], so)
	if err != nil {
		return err
	}
	for _, h := range res.Hits {
		fmt.Fprintf(out, "%s:%d:%d:%s\n", h.Filename, h.Line, h.Col+1, h.Text)
	}
	if res.Truncated {
		slog.Warn("search results truncated", "limit", so.MaxResults)
	}
	return nil
}

// runWatch populates root, indexes the files with a registered extractor,
// then follows changes and config edits until ctx ends.
func runWatch(ctx context.Context, rt *cliRuntime, opts cliOptions, args []string, _ io.Writer) error {
	if err := needArgs(args, 1, "watch <root>"); err != nil {
		return err
	}
	root := args[0]
	start := time.Now()
	if _, err := rt.indexer.Populate(ctx, root); err != nil {
		return err
	}
	indexed := 0
	for _, f := range rt.indexer.Filenames() {
		if rt.indexer.Registry().MimetypeFor(f) == scope.PlainMimetype {
			continue
		}
		if _, err := rt.indexer.IndexFile(ctx, f); err != nil {
			slog.Debug("initial index skipped file", "path", f, "error", err)
			continue
		}
		indexed++
	}
	slog.Info("initial index complete", "root", root, "files", indexed, "duration", time.Since(start))

	if err := rt.indexer.Watch(ctx, []string{root}); err != nil {
		return err
	}

	cw := config.NewWatcher(opts.configPath, rt.indexer.ApplyConfig)
	if err := cw.Start(ctx); err != nil {
		slog.Debug("config hot reload disabled", "path", opts.configPath, "error", err)
	} else {
		defer cw.Stop()
	}

	<-ctx.Done()
	return nil
}
