package fuzzy

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
)

const defaultCheckpoint = 256

type Match struct {
	Candidate string
	Score     int
}

// Result is the outcome of one filter run, tagged with the generation that
// produced it.
type Result struct {
	Generation uint64
	Query      string
	Matches    []Match
}

// Filterer runs top-N filters where each new query supersedes the previous
// one. Runs check their generation at fixed intervals and give up as soon as
// a newer generation has begun, so a caller can never publish results for a
// query the user has already typed past.
//
// Concurrency: safe for use by multiple goroutines simultaneously.
type Filterer struct {
	gen        atomic.Uint64
	checkpoint int

	mu      sync.Mutex
	current Result
}

// NewFilterer returns a filterer that checks for cancellation every
// checkpoint candidates. A non-positive value selects the default.
func NewFilterer(checkpoint int) *Filterer {
	if checkpoint <= 0 {
		checkpoint = defaultCheckpoint
	}
	return &Filterer{checkpoint: checkpoint}
}

// Begin starts a new generation, making every earlier run stale.
func (f *Filterer) Begin() uint64 {
	return f.gen.Add(1)
}

// Stale reports whether generation id has been superseded.
func (f *Filterer) Stale(id uint64) bool {
	return f.gen.Load() != id
}

// Run ranks candidates against query and keeps the best limit matches. An
// empty query keeps candidates in input order. The boolean is false when the
// run was superseded or ctx was cancelled; the result must then be dropped.
func (f *Filterer) Run(ctx context.Context, id uint64, candidates []string, query string, limit int) (Result, bool) {
	matches := make([]Match, 0, min(len(candidates), 1024))
	for i, c := range candidates {
		if i%f.checkpoint == 0 && (ctx.Err() != nil || f.Stale(id)) {
			return Result{Generation: id, Query: query}, false
		}
		score := Rank(c, query)
		if score == 0 && query != "" {
			continue
		}
		matches = append(matches, Match{Candidate: c, Score: score})
	}

	if query != "" {
		sort.SliceStable(matches, func(i, j int) bool {
			if matches[i].Score != matches[j].Score {
				return matches[i].Score > matches[j].Score
			}
			return matches[i].Candidate < matches[j].Candidate
		})
	}
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	res := Result{Generation: id, Query: query, Matches: matches}
	if ctx.Err() != nil || f.Stale(id) {
		return res, false
	}

	f.mu.Lock()
	if id >= f.current.Generation {
		f.current = res
	}
	f.mu.Unlock()
	return res, true
}

// Current returns the newest result that completed without being superseded.
func (f *Filterer) Current() Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}
