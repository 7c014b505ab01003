package search

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	domainerrors "scopeindex/internal/core/errors"
)

func writeFiles(t *testing.T, contents map[string]string) (string, []string) {
	t.Helper()
	dir := t.TempDir()
	var names []string
	for _, name := range []string{"a.py", "b.py", "c.txt", "blob.bin"} {
		body, ok := contents[name]
		if !ok {
			continue
		}
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		names = append(names, path)
	}
	return dir, names
}

func TestSearch_Literal(t *testing.T) {
	_, files := writeFiles(t, map[string]string{
		"a.py":  "import os\nos.path.join(a, b)\n",
		"b.py":  "x = 'os.path'\n",
		"c.txt": "nothing here\n",
	})
	s := NewSearcher(2, 0)

	res, err := s.Search(context.Background(), s.Begin(), files, "os.path", Options{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Hits) != 2 {
		t.Fatalf("expected 2 hits, got %+v", res.Hits)
	}
	if res.Hits[0].Filename != files[0] || res.Hits[0].Line != 2 || res.Hits[0].Col != 0 {
		t.Errorf("unexpected first hit %+v", res.Hits[0])
	}
	if res.Hits[1].Filename != files[1] || res.Hits[1].Col != 5 {
		t.Errorf("unexpected second hit %+v", res.Hits[1])
	}
	if res.Truncated {
		t.Error("result should not be truncated")
	}
}

func TestSearch_OverlongLineKeepsEarlierHits(t *testing.T) {
	long := strings.Repeat("z", maxLineLen+16)
	_, files := writeFiles(t, map[string]string{
		"a.py": "needle = 1\n" + long + "\nneedle = 2\n",
		"b.py": "needle = 3\n",
	})
	s := NewSearcher(2, 0)

	res, err := s.Search(context.Background(), s.Begin(), files, "needle", Options{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Hits) != 2 {
		t.Fatalf("expected the hit before the long line plus b.py, got %+v", res.Hits)
	}
	if res.Hits[0].Filename != files[0] || res.Hits[0].Line != 1 {
		t.Errorf("unexpected first hit %+v", res.Hits[0])
	}
	if res.Hits[1].Filename != files[1] {
		t.Errorf("unexpected second hit %+v", res.Hits[1])
	}
}

func TestSearch_LiteralIsNotRegexp(t *testing.T) {
	_, files := writeFiles(t, map[string]string{"a.py": "osXpath\n"})
	s := NewSearcher(1, 0)

	res, err := s.Search(context.Background(), s.Begin(), files, "os.path", Options{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Hits) != 0 {
		t.Fatalf("literal query matched as a pattern: %+v", res.Hits)
	}

	res, err = s.Search(context.Background(), s.Begin(), files, "os.path", Options{Regexp: true})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Hits) != 1 {
		t.Fatalf("expected regexp hit, got %+v", res.Hits)
	}
}

func TestSearch_IgnoreCase(t *testing.T) {
	_, files := writeFiles(t, map[string]string{"a.py": "class Shape:\n    SHAPE = 1\n"})
	s := NewSearcher(1, 0)

	res, err := s.Search(context.Background(), s.Begin(), files, "shape", Options{IgnoreCase: true})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Hits) != 2 {
		t.Fatalf("expected 2 case-folded hits, got %+v", res.Hits)
	}

	res, err = s.Search(context.Background(), s.Begin(), files, "shape", Options{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Hits) != 0 {
		t.Fatalf("expected no case-sensitive hits, got %+v", res.Hits)
	}
}

func TestSearch_MaxResults(t *testing.T) {
	_, files := writeFiles(t, map[string]string{
		"a.py": "x x x\n",
		"b.py": "x\n",
	})
	s := NewSearcher(4, 0)

	res, err := s.Search(context.Background(), s.Begin(), files, "x", Options{MaxResults: 3})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Hits) != 3 || !res.Truncated {
		t.Fatalf("expected 3 truncated hits, got %d truncated=%v", len(res.Hits), res.Truncated)
	}
	for _, h := range res.Hits {
		if h.Filename != files[0] {
			t.Errorf("hits must come from the first file first, got %s", h.Filename)
		}
	}

	res, err = s.Search(context.Background(), s.Begin(), files, "x", Options{MaxResults: 4})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Hits) != 4 || res.Truncated {
		t.Fatalf("expected 4 complete hits, got %d truncated=%v", len(res.Hits), res.Truncated)
	}
}

func TestSearch_SkipsUnreadableAndBinary(t *testing.T) {
	dir, files := writeFiles(t, map[string]string{
		"a.py":     "needle\n",
		"blob.bin": "needle\x00\x01",
	})
	files = append(files, filepath.Join(dir, "missing.py"))
	s := NewSearcher(2, 0)

	res, err := s.Search(context.Background(), s.Begin(), files, "needle", Options{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Hits) != 1 || res.Hits[0].Filename != files[0] {
		t.Fatalf("expected only the text file to match, got %+v", res.Hits)
	}
}

func TestSearch_InvalidPattern(t *testing.T) {
	s := NewSearcher(1, 0)
	_, err := s.Search(context.Background(), s.Begin(), nil, "(", Options{Regexp: true})
	if !domainerrors.IsCode(err, domainerrors.CodeValidationError) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSearch_Superseded(t *testing.T) {
	_, files := writeFiles(t, map[string]string{"a.py": "needle\n"})
	s := NewSearcher(1, 0)

	old := s.Begin()
	s.Begin()
	_, err := s.Search(context.Background(), old, files, "needle", Options{})
	if !errors.Is(err, ErrSuperseded) {
		t.Fatalf("expected ErrSuperseded, got %v", err)
	}
}

func TestSearch_Cancelled(t *testing.T) {
	_, files := writeFiles(t, map[string]string{"a.py": "needle\n"})
	s := NewSearcher(1, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Search(ctx, s.Begin(), files, "needle", Options{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	_, files := writeFiles(t, map[string]string{"a.py": "anything\n"})
	s := NewSearcher(1, 0)
	res, err := s.Search(context.Background(), s.Begin(), files, "", Options{})
	if err != nil || len(res.Hits) != 0 {
		t.Fatalf("empty query should match nothing, got %+v, %v", res.Hits, err)
	}
}
