package scope

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

const (
	PythonMimetype = "text/x-python"
	PlainMimetype  = "text/plain"
)

// Registry maps filename extensions to mimetypes and mimetypes to extractors.
// Anything it does not know is handled by the fallback extractor.
//
// Concurrency: safe for use by multiple goroutines simultaneously.
type Registry struct {
	mu       sync.RWMutex
	byExt    map[string]string
	byMime   map[string]Extractor
	byName   map[string]Extractor
	fallback Extractor
}

func NewRegistry(fallback Extractor) *Registry {
	r := &Registry{
		byExt:    make(map[string]string),
		byMime:   make(map[string]Extractor),
		byName:   make(map[string]Extractor),
		fallback: fallback,
	}
	if fallback != nil {
		r.byName[fallback.Name()] = fallback
	}
	return r
}

// Register binds mimetype to ex and claims the given extensions for it. A
// later registration of the same extension wins.
func (r *Registry) Register(mimetype string, ex Extractor, exts ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byMime[mimetype] = ex
	r.byName[ex.Name()] = ex
	for _, ext := range exts {
		r.byExt[normalizeExt(ext)] = mimetype
	}
}

// MimetypeFor returns the mimetype claimed for filename's extension, or
// PlainMimetype.
func (r *Registry) MimetypeFor(filename string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if m, ok := r.byExt[strings.ToLower(filepath.Ext(filename))]; ok {
		return m
	}
	return PlainMimetype
}

func (r *Registry) ForMimetype(mimetype string) Extractor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if ex, ok := r.byMime[mimetype]; ok {
		return ex
	}
	return r.fallback
}

func (r *Registry) ForFilename(filename string) Extractor {
	return r.ForMimetype(r.MimetypeFor(filename))
}

// ByName looks an extractor up by the name it persists scopes under.
func (r *Registry) ByName(name string) (Extractor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ex, ok := r.byName[name]
	return ex, ok
}

// Extensions returns every registered extension in sorted order.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// LanguageOptions overrides or adds one language binding.
type LanguageOptions struct {
	Extractor  string
	Mimetype   string
	Extensions []string
}

type Options struct {
	// Grammars lists the tree-sitter grammars to load; empty loads all.
	Grammars       []string
	PythonBuiltins []string
	Separators     string
	Languages      map[string]LanguageOptions
}

// NewDefaultRegistry registers the python and plain extractors, one tree
// extractor per loaded grammar, then applies the language overrides.
func NewDefaultRegistry(opts Options) (*Registry, error) {
	plain := NewPlainExtractor(opts.Separators)
	r := NewRegistry(plain)
	r.Register(PlainMimetype, plain, ".txt", ".text")
	r.Register(PythonMimetype, NewPythonExtractor(opts.PythonBuiltins...), ".py", ".pyw", ".pyi")

	loader, err := NewGrammarLoader(opts.Grammars)
	if err != nil {
		return nil, err
	}
	for _, id := range loader.Loaded() {
		ex, err := NewTreeExtractor(loader, id)
		if err != nil {
			return nil, err
		}
		lang := treeLanguages[id]
		r.Register(lang.mimetype, ex, lang.extensions...)
	}

	ids := make([]string, 0, len(opts.Languages))
	for id := range opts.Languages {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		lo := opts.Languages[id]
		name := lo.Extractor
		if name == "" {
			name = id
		}
		ex, ok := r.ByName(name)
		if !ok {
			return nil, fmt.Errorf("language %q: unknown extractor %q", id, name)
		}
		mimetype := lo.Mimetype
		if mimetype == "" {
			mimetype = "text/x-" + id
		}
		r.Register(mimetype, ex, lo.Extensions...)
		slog.Debug("language registered", "language", id, "extractor", name, "mimetype", mimetype)
	}
	return r, nil
}
