package app

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"scopeindex/internal/core/config"
	"scopeindex/internal/core/errors"
	"scopeindex/internal/engine/scope"
	"scopeindex/internal/engine/search"
	"scopeindex/internal/shared/observability"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Store.Path = filepath.Join(t.TempDir(), "state", "scopes.db")
	cfg.Grammars = []string{"go"}
	cfg.Watch.Debounce = 50 * time.Millisecond
	return cfg
}

func newIndexer(t *testing.T) *Indexer {
	t.Helper()
	ix, err := New(testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = ix.Close() })
	return ix
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

const shapesSource = "class Shape(object):\n    pass\n\nclass Circle(Shape):\n    pass\n"

func TestIndexData_PersistsAndCompletes(t *testing.T) {
	ix := newIndexer(t)
	ctx := context.Background()

	scopes, err := ix.IndexData(ctx, "pkg/shapes.py", []byte(shapesSource))
	require.NoError(t, err)
	require.Len(t, scopes, 2)
	assert.Equal(t, "shapes.Shape", scopes[0].Path)
	assert.Equal(t, []string{"object"}, scopes[0].Inherited)
	assert.Equal(t, []string{"shapes.Shape"}, scopes[1].Inherited)

	got, err := ix.QueryCompletions(ctx, scope.PythonName, "pkg/shapes.py", 1, 0, "shapes.C")
	require.NoError(t, err)
	assert.Equal(t, []string{"shapes.Circle"}, got)

	got, err = ix.CompletionsAt(ctx, "other.py", 1, 0, "shapes.")
	require.NoError(t, err)
	assert.Equal(t, []string{"shapes.Circle", "shapes.Shape"}, got)

	stored, err := ix.StoredScopes(ctx, "pkg/shapes.py")
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestIndexData_CountsSavedScopesOnce(t *testing.T) {
	ix := newIndexer(t)
	saved := observability.ScopesSavedTotal.WithLabelValues(scope.PythonName)
	before := testutil.ToFloat64(saved)

	scopes, err := ix.IndexData(context.Background(), "shapes.py", []byte(shapesSource))
	require.NoError(t, err)
	require.Len(t, scopes, 2)
	assert.Equal(t, float64(len(scopes)), testutil.ToFloat64(saved)-before)
}

func TestIndexData_ReplacesPreviousScopes(t *testing.T) {
	ix := newIndexer(t)
	ctx := context.Background()

	_, err := ix.IndexData(ctx, "shapes.py", []byte(shapesSource))
	require.NoError(t, err)
	_, err = ix.IndexData(ctx, "shapes.py", []byte("class Square:\n    pass\n"))
	require.NoError(t, err)

	stored, err := ix.StoredScopes(ctx, "shapes.py")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "shapes.Square", stored[0].Path)
}

func TestIndexData_SyntaxErrorKeepsStoredScopes(t *testing.T) {
	ix := newIndexer(t)
	ctx := context.Background()

	_, err := ix.IndexData(ctx, "shapes.py", []byte(shapesSource))
	require.NoError(t, err)

	scopes, err := ix.IndexData(ctx, "shapes.py", []byte("class Broken(\n"))
	require.Error(t, err)
	assert.Nil(t, scopes)
	assert.True(t, errors.IsCode(err, errors.CodeSyntax))

	stored, err := ix.StoredScopes(ctx, "shapes.py")
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestIndexData_PlainFallback(t *testing.T) {
	ix := newIndexer(t)
	scopes, err := ix.IndexData(context.Background(), "notes.unknown", []byte("alpha beta alpha"))
	require.NoError(t, err)
	assert.Len(t, scopes, 2)

	got, err := ix.QueryCompletions(context.Background(), scope.PlainName, "notes.unknown", 1, 0, "al")
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha"}, got)
}

func TestIndexData_TreeExtractor(t *testing.T) {
	ix := newIndexer(t)
	src := "package geo\n\ntype Point struct{ X, Y int }\n\nfunc (p Point) Norm() int { return 0 }\n"
	scopes, err := ix.IndexData(context.Background(), "geo/point.go", []byte(src))
	require.NoError(t, err)

	var paths []string
	for _, s := range scopes {
		paths = append(paths, s.Path)
	}
	assert.Contains(t, paths, "Point")
	assert.Contains(t, paths, "Point.Norm")
}

type failingStore struct{}

func (failingStore) ReplaceScopes(context.Context, string, string, []scope.Scope) error {
	return stderrors.New("disk full")
}
func (failingStore) DeleteScopesByFilename(context.Context, string) error { return nil }
func (failingStore) QueryCompletions(context.Context, string, string, int, int, string) ([]string, error) {
	return nil, nil
}
func (failingStore) ScopesForFile(context.Context, string) ([]scope.Scope, error) { return nil, nil }
func (failingStore) Close() error { return nil }

func TestIndexData_StoreFailureReportsStale(t *testing.T) {
	ix, err := NewWithDependencies(testConfig(t), Dependencies{Store: failingStore{}})
	require.NoError(t, err)
	defer ix.Close()

	scopes, err := ix.IndexData(context.Background(), "shapes.py", []byte(shapesSource))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeStale))
	assert.Len(t, scopes, 2, "scopes are still returned when persisting fails")
}

func TestNew_StoreOpenFailureIsFatal(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Path = t.TempDir()
	_, err := New(cfg)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))
}

func TestNew_UnknownLanguageExtractor(t *testing.T) {
	cfg := testConfig(t)
	cfg.Languages["cython"] = config.Language{Extractor: "nope", Extensions: []string{".pyx"}}
	_, err := New(cfg)
	require.Error(t, err)
}

func TestNew_ExtractorOptions(t *testing.T) {
	cfg, err := config.Parse(`
[extractors.python]
builtins = ["Model"]

[languages.cython]
extractor = "python"
extensions = [".pyx"]
`)
	require.NoError(t, err)
	cfg.Store.Path = filepath.Join(t.TempDir(), "scopes.db")
	cfg.Grammars = []string{"go"}

	ix, err := New(cfg)
	require.NoError(t, err)
	defer ix.Close()

	scopes, err := ix.IndexData(context.Background(), "models.pyx", []byte("class User(Model):\n    pass\n"))
	require.NoError(t, err)
	require.Len(t, scopes, 1)
	assert.Equal(t, []string{"Model"}, scopes[0].Inherited)
}

func TestPopulate_FilterAndSearch(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "app", "models.py"), "class User(object):\n    name = 'user'\n")
	writeFile(t, filepath.Join(root, "app", "views.py"), "def show_user():\n    pass\n")
	writeFile(t, filepath.Join(root, "README.txt"), "users and views\n")
	writeFile(t, filepath.Join(root, ".git", "config"), "user = me\n")

	ix := newIndexer(t)
	ctx := context.Background()

	res, err := ix.Populate(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Files)
	assert.Equal(t, 3, res.Queued)
	assert.NotEmpty(t, res.RunID)

	filtered, ok := ix.FilterFilenames(ctx, "models", 0)
	require.True(t, ok)
	require.NotEmpty(t, filtered.Matches)
	assert.Equal(t, filepath.Join(root, "app", "models.py"), filtered.Matches[0].Candidate)

	hits, err := ix.Search(ctx, "user", search.Options{})
	require.NoError(t, err)
	assert.Len(t, hits.Hits, 3)

	require.Eventually(t, func() bool {
		return len(ix.AllSymbols()) == 3
	}, 3*time.Second, 10*time.Millisecond)
	assert.Len(t, ix.Symbols(filepath.Join(root, "app", "views.py")), 1)
}

func TestPopulateSync_ExtractsWithoutQueueing(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "app", "models.py"), "class User(object):\n    name = 'user'\n")
	writeFile(t, filepath.Join(root, "app", "views.py"), "def show_user():\n    pass\n")
	writeFile(t, filepath.Join(root, "app", "broken.py"), "x = '''never closed\n")

	ix := newIndexer(t)
	res, err := ix.PopulateSync(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Files)
	assert.Zero(t, res.Queued)
	assert.Equal(t, 2, res.Extracted)
	assert.Equal(t, 1, res.Failed)

	assert.Len(t, ix.Symbols(filepath.Join(root, "app", "views.py")), 1)
	assert.Empty(t, ix.Symbols(filepath.Join(root, "app", "broken.py")))
}

func TestPopulate_MissingRoot(t *testing.T) {
	ix := newIndexer(t)
	_, err := ix.Populate(context.Background(), filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}

func TestHandleChanges(t *testing.T) {
	root := t.TempDir()
	keep := filepath.Join(root, "keep.py")
	gone := filepath.Join(root, "gone.py")
	writeFile(t, keep, "class Keep:\n    pass\n")
	writeFile(t, gone, "class Gone:\n    pass\n")

	ix := newIndexer(t)
	ctx := context.Background()
	_, err := ix.Populate(ctx, root)
	require.NoError(t, err)
	_, err = ix.IndexFile(ctx, gone)
	require.NoError(t, err)

	require.NoError(t, os.Remove(gone))
	added := filepath.Join(root, "added.py")
	writeFile(t, added, "class Added:\n    pass\n")

	require.NoError(t, ix.HandleChanges(ctx, []string{gone, added}))

	assert.ElementsMatch(t, []string{keep, added}, ix.Filenames())
	stored, err := ix.StoredScopes(ctx, gone)
	require.NoError(t, err)
	assert.Empty(t, stored)
	stored, err = ix.StoredScopes(ctx, added)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "added.Added", stored[0].Path)
}

func TestWatch_ReindexesSavedFiles(t *testing.T) {
	root := t.TempDir()
	ix := newIndexer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, ix.Watch(ctx, []string{root}))
	require.Error(t, ix.Watch(ctx, []string{root}), "second watch must be rejected")

	path := filepath.Join(root, "live.py")
	writeFile(t, path, "class Live:\n    pass\n")

	require.Eventually(t, func() bool {
		stored, err := ix.StoredScopes(context.Background(), path)
		return err == nil && len(stored) == 1
	}, 3*time.Second, 20*time.Millisecond)
}

func TestApplyConfig(t *testing.T) {
	ix := newIndexer(t)
	ix.project.UpdateFiles([]string{"a1", "a2", "a3"})

	cfg := testConfig(t)
	cfg.Index.FilterLimit = 2
	ix.ApplyConfig(cfg)

	res, ok := ix.FilterFilenames(context.Background(), "a", 0)
	require.True(t, ok)
	assert.Len(t, res.Matches, 2)
}

func TestClose_Idempotent(t *testing.T) {
	ix, err := New(testConfig(t))
	require.NoError(t, err)
	require.NoError(t, ix.Close())
	require.NoError(t, ix.Close())
}

func TestHealth(t *testing.T) {
	ix := newIndexer(t)
	status := ix.Health(context.Background())
	assert.Equal(t, "up", status.Status)
	assert.Equal(t, "ok", status.Components["scope_store"])

	require.NoError(t, ix.Close())
	status = ix.Health(context.Background())
	assert.Equal(t, "degraded", status.Status)
}
