// Package symbols keeps the live set of project files and the symbols
// declared in them.
package symbols

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"scopeindex/internal/core/errors"
	"scopeindex/internal/core/ports"
	"scopeindex/internal/data/queue"
	"scopeindex/internal/engine/scope"
	"scopeindex/internal/shared/observability"
	"scopeindex/internal/shared/util"
)

// ErrQueueFull is returned by an offline AddOrUpdate whose job was dropped.
var ErrQueueFull = stderrors.New("index queue full")

const (
	defaultBatchSize   = 32
	defaultMaxFileSize = 2 << 20
	dequeueWait        = 200 * time.Millisecond
)

type Options struct {
	Registry *scope.Registry
	Filter   *util.PathFilter
	// Queue carries offline jobs. The index takes ownership and closes it.
	Queue       ports.IndexQueuePort
	Limiter     *util.Limiter
	BatchSize   int
	MaxFileSize int64
}

// snapshot is an immutable filename list with its character index. Each
// index entry lists, in ascending order, the positions of the filenames
// containing that character.
type snapshot struct {
	filenames []string
	chars     map[rune][]int32
}

// ProjectIndex answers "which files contain all of these characters" and
// "which symbols does this file declare".
//
// Concurrency: symbol maps are guarded by one mutex. The filename list and
// character index are published as a whole snapshot, so readers may see a
// previous list but never a partially built one. UpdateFiles must only be
// called from a single coordinating goroutine.
type ProjectIndex struct {
	opts Options
	snap atomic.Pointer[snapshot]

	mu     sync.Mutex
	byFile map[string][]scope.Symbol
	all    []scope.Symbol

	// removals counts Remove calls per file.
	removals map[string]uint64

	lifecycle sync.Mutex
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closed    bool
}

func New(opts Options) *ProjectIndex {
	if opts.Registry == nil {
		opts.Registry = scope.NewRegistry(scope.NewPlainExtractor(""))
	}
	if opts.Queue == nil {
		opts.Queue = queue.NewMemoryQueue(4096)
	}
	if opts.Limiter == nil {
		opts.Limiter = util.NewLimiter(0, 1)
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = defaultMaxFileSize
	}
	idx := &ProjectIndex{
		opts:     opts,
		byFile:   make(map[string][]scope.Symbol),
		removals: make(map[string]uint64),
	}
	idx.snap.Store(&snapshot{chars: map[rune][]int32{}})
	return idx
}

// RecursivePopulate walks root breadth first. After each directory level it
// calls publish with every file found so far. Unreadable directories are
// logged and skipped.
func (p *ProjectIndex) RecursivePopulate(ctx context.Context, root string, publish func([]string)) error {
	info, err := os.Stat(root)
	if err != nil {
		return errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "populate root"), errors.CtxPath, root)
	}
	if !info.IsDir() {
		return errors.AddContext(errors.New(errors.CodeValidationError, "populate root is not a directory"), errors.CtxPath, root)
	}

	var files []string
	level := []string{root}
	for depth := 0; len(level) > 0; depth++ {
		var next []string
		for _, dir := range level {
			if err := ctx.Err(); err != nil {
				return err
			}
			entries, err := os.ReadDir(dir)
			if err != nil {
				slog.Warn("skipping unreadable directory", "path", dir, "error", err)
				continue
			}
			for _, entry := range entries {
				path := filepath.Join(dir, entry.Name())
				switch {
				case entry.Type()&fs.ModeSymlink != 0:
					continue
				case entry.IsDir():
					if !p.opts.Filter.SkipDir(path) {
						next = append(next, path)
					}
				case entry.Type().IsRegular():
					if !p.opts.Filter.SkipFile(path) {
						files = append(files, path)
					}
				}
			}
		}
		slog.Debug("populate level done", "root", root, "depth", depth, "files", len(files))
		if publish != nil {
			publish(append([]string(nil), files...))
		}
		level = next
	}
	return nil
}

// UpdateFiles replaces the filename list and rebuilds the character index.
// Only the coordinating goroutine may call it.
func (p *ProjectIndex) UpdateFiles(files []string) {
	s := &snapshot{
		filenames: append([]string(nil), files...),
		chars:     make(map[rune][]int32),
	}
	for i, name := range s.filenames {
		seen := make(map[rune]bool, len(name))
		for _, r := range name {
			if seen[r] {
				continue
			}
			seen[r] = true
			s.chars[r] = append(s.chars[r], int32(i))
		}
	}
	p.snap.Store(s)
	observability.IndexedFiles.Set(float64(len(s.filenames)))
}

// Filenames returns the current filename list.
func (p *ProjectIndex) Filenames() []string {
	return append([]string(nil), p.snap.Load().filenames...)
}

// FilenamesIncluding returns, in list order, the filenames containing every
// character of chars. An empty chars matches every file.
func (p *ProjectIndex) FilenamesIncluding(chars string) []string {
	s := p.snap.Load()

	var lists [][]int32
	seen := make(map[rune]bool)
	for _, r := range chars {
		if seen[r] {
			continue
		}
		seen[r] = true
		list, ok := s.chars[r]
		if !ok {
			return nil
		}
		lists = append(lists, list)
	}
	if len(lists) == 0 {
		return append([]string(nil), s.filenames...)
	}

	sort.Slice(lists, func(i, j int) bool { return len(lists[i]) < len(lists[j]) })
	hits := lists[0]
	for _, list := range lists[1:] {
		hits = intersect(hits, list)
		if len(hits) == 0 {
			return nil
		}
	}

	out := make([]string, len(hits))
	for i, idx := range hits {
		out[i] = s.filenames[idx]
	}
	return out
}

func intersect(a, b []int32) []int32 {
	out := make([]int32, 0, min(len(a), len(b)))
	for i, j := 0, 0; i < len(a) && j < len(b); {
		switch {
		case a[i] < b[j]:
			i++
		case a[i] > b[j]:
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	return out
}

// AddOrUpdate re-extracts the symbols of filename. Offline requests are
// queued for the background worker; others run before returning.
func (p *ProjectIndex) AddOrUpdate(ctx context.Context, filename string, offline bool) error {
	if offline {
		res := p.opts.Queue.Enqueue(ports.IndexJob{Kind: ports.JobSymbols, Path: filename})
		observability.IndexJobsTotal.WithLabelValues(string(res)).Inc()
		observability.IndexQueueDepth.Set(float64(p.opts.Queue.Len()))
		if res != ports.EnqueueAccepted {
			return fmt.Errorf("%s: %w", filename, ErrQueueFull)
		}
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.refresh(filename)
}

// refresh extracts outside the lock. A Remove that lands in between bumps
// the file's generation and the extracted symbols are discarded.
func (p *ProjectIndex) refresh(filename string) error {
	gen := p.generation(filename)
	symbols, err := p.extract(filename)
	if err != nil {
		return err
	}
	p.commit(filename, gen, symbols)
	return nil
}

func (p *ProjectIndex) generation(filename string) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.removals[filename]
}

// commit stores symbols for filename unless it was removed after gen was
// read. It reports whether the symbols were kept.
func (p *ProjectIndex) commit(filename string, gen uint64, symbols []scope.Symbol) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.removals[filename] != gen {
		return false
	}
	p.dropLocked(filename)
	if len(symbols) > 0 {
		p.byFile[filename] = symbols
		p.all = append(p.all, symbols...)
	}
	return true
}

func (p *ProjectIndex) extract(filename string) ([]scope.Symbol, error) {
	info, err := os.Stat(filename)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "stat source"), errors.CtxPath, filename)
	}
	if info.Size() > p.opts.MaxFileSize {
		slog.Debug("skipping large file", "path", filename, "size", info.Size())
		return nil, nil
	}

	scanner, ok := p.opts.Registry.ForFilename(filename).(scope.SymbolScanner)
	if !ok {
		return nil, nil
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "read source"), errors.CtxPath, filename)
	}
	symbols, err := scanner.Symbols(data, filename)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeSyntax, "file unindexable"), errors.CtxPath, filename)
	}
	return symbols, nil
}

// Remove drops every symbol of filename, including those of an extraction
// still in flight.
func (p *ProjectIndex) Remove(filename string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removals[filename]++
	p.dropLocked(filename)
}

func (p *ProjectIndex) dropLocked(filename string) {
	if _, ok := p.byFile[filename]; !ok {
		return
	}
	delete(p.byFile, filename)
	kept := p.all[:0]
	for _, sym := range p.all {
		if sym.Filename != filename {
			kept = append(kept, sym)
		}
	}
	clear(p.all[len(kept):])
	p.all = kept
}

func (p *ProjectIndex) Symbols(filename string) []scope.Symbol {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]scope.Symbol(nil), p.byFile[filename]...)
}

func (p *ProjectIndex) AllSymbols() []scope.Symbol {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]scope.Symbol(nil), p.all...)
}

// Start launches the offline worker. It is a no-op when already running or
// closed.
func (p *ProjectIndex) Start(ctx context.Context) {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()
	if p.cancel != nil || p.closed {
		return
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.work(ctx)
	}()
}

func (p *ProjectIndex) work(ctx context.Context) {
	for {
		batch, err := p.opts.Queue.DequeueBatch(ctx, p.opts.BatchSize, dequeueWait)
		for _, job := range batch {
			if werr := p.opts.Limiter.Wait(ctx, 1); werr != nil {
				return
			}
			p.run(job)
		}
		observability.IndexQueueDepth.Set(float64(p.opts.Queue.Len()))
		if err != nil {
			if err != io.EOF && ctx.Err() == nil {
				slog.Warn("index worker stopped", "error", err)
			}
			return
		}
	}
}

func (p *ProjectIndex) run(job ports.IndexJob) {
	switch job.Kind {
	case ports.JobSymbols:
		if err := p.refresh(job.Path); err != nil {
			slog.Debug("offline symbol extraction failed", "path", job.Path, "error", err)
		}
	default:
		slog.Warn("unknown index job", "kind", job.Kind, "path", job.Path)
	}
}

// Close stops the worker and closes the queue. Pending jobs are discarded.
func (p *ProjectIndex) Close() error {
	p.lifecycle.Lock()
	if p.closed {
		p.lifecycle.Unlock()
		return nil
	}
	p.closed = true
	cancel := p.cancel
	p.lifecycle.Unlock()

	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
	return p.opts.Queue.Close()
}
