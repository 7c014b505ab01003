// Package search runs text searches over many files at once.
package search

import (
	"bufio"
	"bytes"
	"context"
	stderrors "errors"
	"log/slog"
	"os"
	"regexp"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"scopeindex/internal/core/errors"
	"scopeindex/internal/shared/observability"
)

// ErrSuperseded is returned by a search whose generation was overtaken by a
// newer one.
var ErrSuperseded = stderrors.New("search superseded")

const (
	defaultWorkers    = 4
	defaultMaxResults = 1000
	binarySniffLen    = 8000
	maxLineLen        = 1 << 20
)

type Options struct {
	Regexp     bool
	IgnoreCase bool
	// MaxResults caps the hit count. Zero selects the searcher default.
	MaxResults int
}

// Hit is one match. Line is 1-based, Col a 0-based byte offset.
type Hit struct {
	Filename string
	Line     int
	Col      int
	Text     string
}

type Result struct {
	Generation uint64
	Query      string
	Hits       []Hit
	Truncated  bool
}

// Searcher scans files in parallel. Like fuzzy.Filterer each call belongs to
// a generation and is abandoned once a newer generation begins.
//
// Concurrency: safe for use by multiple goroutines simultaneously.
type Searcher struct {
	gen        atomic.Uint64
	workers    int
	maxResults int
}

func NewSearcher(workers, maxResults int) *Searcher {
	if workers <= 0 {
		workers = defaultWorkers
	}
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	return &Searcher{workers: workers, maxResults: maxResults}
}

// Begin starts a new generation, making every earlier search stale.
func (s *Searcher) Begin() uint64 {
	return s.gen.Add(1)
}

func (s *Searcher) Stale(id uint64) bool {
	return s.gen.Load() != id
}

// Search looks for query in files. Files that cannot be read, or look
// binary, are skipped. Hits are ordered by file position in files, then by
// line and column.
func (s *Searcher) Search(ctx context.Context, id uint64, files []string, query string, opts Options) (Result, error) {
	start := time.Now()
	defer func() { observability.SearchDuration.Observe(time.Since(start).Seconds()) }()

	res := Result{Generation: id, Query: query}
	if query == "" {
		return res, nil
	}
	re, err := compile(query, opts)
	if err != nil {
		return res, err
	}
	limit := opts.MaxResults
	if limit <= 0 || limit > s.maxResults {
		limit = s.maxResults
	}

	perFile := make([][]Hit, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, name := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if s.Stale(id) {
				return ErrSuperseded
			}
			hits, err := scanFile(gctx, name, re, limit)
			if err != nil {
				slog.Debug("search skipped file", "path", name, "error", err)
				return nil
			}
			perFile[i] = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if stderrors.Is(err, ErrSuperseded) {
			observability.StaleResultsTotal.WithLabelValues("search").Inc()
		}
		return res, err
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	if s.Stale(id) {
		observability.StaleResultsTotal.WithLabelValues("search").Inc()
		return res, ErrSuperseded
	}

	for _, hits := range perFile {
		res.Hits = append(res.Hits, hits...)
		if len(res.Hits) > limit {
			res.Truncated = true
			res.Hits = res.Hits[:limit]
			break
		}
	}
	return res, nil
}

func compile(query string, opts Options) (*regexp.Regexp, error) {
	pattern := query
	if !opts.Regexp {
		pattern = regexp.QuoteMeta(query)
	}
	if opts.IgnoreCase {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeValidationError, "invalid search pattern"), errors.CtxQuery, query)
	}
	return re, nil
}

// scanFile returns at most limit+1 hits. It stops early when ctx is done,
// and keeps the hits found so far when a line exceeds maxLineLen.
func scanFile(ctx context.Context, name string, re *regexp.Regexp, limit int) ([]Hit, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	if bytes.IndexByte(data[:min(len(data), binarySniffLen)], 0) >= 0 {
		return nil, nil
	}

	var hits []Hit
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), maxLineLen)
	for line := 1; sc.Scan(); line++ {
		if line%1024 == 0 && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		text := sc.Text()
		for _, loc := range re.FindAllStringIndex(text, -1) {
			hits = append(hits, Hit{Filename: name, Line: line, Col: loc[0], Text: text})
			if len(hits) >= limit+1 {
				return hits, nil
			}
		}
	}
	if err := sc.Err(); err != nil {
		slog.Debug("search stopped early in file", "path", name, "hits", len(hits), "error", err)
	}
	return hits, nil
}
