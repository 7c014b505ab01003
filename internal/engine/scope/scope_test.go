// # internal/engine/scope/scope_test.go
package scope

import (
	"reflect"
	"testing"

	"scopeindex/internal/engine/lexer"
)

func tokenize(t *testing.T, src string) []lexer.Token {
	t.Helper()
	tokens, err := lexer.Tokenize(src)
	if err != nil {
		t.Fatalf("tokenize %q: %v", src, err)
	}
	return tokens
}

func TestExtract_BuiltinBase(t *testing.T) {
	scopes := Extract(tokenize(t, "class A(object): pass"), "")
	if len(scopes) != 1 {
		t.Fatalf("expected 1 scope, got %d", len(scopes))
	}
	if scopes[0].Path != "A" {
		t.Errorf("path = %q, want A", scopes[0].Path)
	}
	if !reflect.DeepEqual(scopes[0].Inherited, []string{"object"}) {
		t.Errorf("inherited = %v, want [object]", scopes[0].Inherited)
	}
	if scopes[0].Start != (lexer.Position{Line: 1, Col: 0}) {
		t.Errorf("start = %v, want 1:0", scopes[0].Start)
	}
}

func TestExtract_UserBaseWithEmptyBase(t *testing.T) {
	scopes := Extract(tokenize(t, "class B(A): pass"), "")
	if len(scopes) != 1 {
		t.Fatalf("expected 1 scope, got %d", len(scopes))
	}
	if !reflect.DeepEqual(scopes[0].Inherited, []string{".A"}) {
		t.Errorf("inherited = %v, want [.A]", scopes[0].Inherited)
	}
}

func TestExtract_ModuleBase(t *testing.T) {
	src := "class Foo(Bar, Exception):\n    pass\n\nclass Baz:\n    pass\n"
	scopes := Extract(tokenize(t, src), "mod")
	if len(scopes) != 2 {
		t.Fatalf("expected 2 scopes, got %d: %+v", len(scopes), scopes)
	}
	if scopes[0].Path != "mod.Foo" {
		t.Errorf("path = %q, want mod.Foo", scopes[0].Path)
	}
	if !reflect.DeepEqual(scopes[0].Inherited, []string{"mod.Bar", "Exception"}) {
		t.Errorf("inherited = %v", scopes[0].Inherited)
	}
	if scopes[1].Path != "mod.Baz" || len(scopes[1].Inherited) != 0 {
		t.Errorf("second scope = %+v, want mod.Baz without bases", scopes[1])
	}
	if scopes[1].Start.Line != 4 {
		t.Errorf("second scope line = %d, want 4", scopes[1].Start.Line)
	}
}

func TestExtract_UnclosedBaseList(t *testing.T) {
	tokens := []lexer.Token{
		{Kind: lexer.Name, Text: "class", Start: lexer.Position{Line: 1}, End: lexer.Position{Line: 1, Col: 5}},
		{Kind: lexer.Name, Text: "Foo", Start: lexer.Position{Line: 1, Col: 6}, End: lexer.Position{Line: 1, Col: 9}},
		{Kind: lexer.Op, Text: "(", Start: lexer.Position{Line: 1, Col: 9}, End: lexer.Position{Line: 1, Col: 10}},
		{Kind: lexer.Name, Text: "Bar", Start: lexer.Position{Line: 1, Col: 10}, End: lexer.Position{Line: 1, Col: 13}},
		{Kind: lexer.EndMarker, Start: lexer.Position{Line: 2}, End: lexer.Position{Line: 2}},
	}
	if scopes := Extract(tokens, "mod"); len(scopes) != 0 {
		t.Fatalf("expected no scopes, got %+v", scopes)
	}
}

func TestExtract_NestedParens(t *testing.T) {
	scopes := Extract(tokenize(t, "class C(mk(A), B): pass"), "m")
	if len(scopes) != 1 {
		t.Fatalf("expected 1 scope, got %d", len(scopes))
	}
	want := []string{"m.mk", "m.A", "m.B"}
	if !reflect.DeepEqual(scopes[0].Inherited, want) {
		t.Errorf("inherited = %v, want %v", scopes[0].Inherited, want)
	}
}

func TestPythonExtractor_BaseScope(t *testing.T) {
	e := NewPythonExtractor()
	cases := map[string]string{
		"pkg/mod.py":      "mod",
		"pkg/__init__.py": "pkg",
		"__init__.py":     "",
		"a/b/c.pyi":       "c",
	}
	for in, want := range cases {
		if got := e.BaseScopeFromFilename(in); got != want {
			t.Errorf("BaseScopeFromFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPythonExtractor_ExtraBuiltins(t *testing.T) {
	e := NewPythonExtractor("Model")
	scopes, err := e.Parse([]byte("class User(Model, Base):\n    pass\n"), "app")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []string{"Model", "app.Base"}
	if len(scopes) != 1 || !reflect.DeepEqual(scopes[0].Inherited, want) {
		t.Fatalf("scopes = %+v, want inherited %v", scopes, want)
	}
}

func TestPythonExtractor_TokenizeError(t *testing.T) {
	_, err := NewPythonExtractor().Parse([]byte("class Foo(\n"), "m")
	if err == nil {
		t.Fatal("expected tokenize error")
	}
}

func TestPythonExtractor_Symbols(t *testing.T) {
	src := `VERSION = 1

class Shape(object):
    sides = 0

    def area(self):
        local = 2
        return local

def helper():
    pass
`
	symbols, err := NewPythonExtractor().Symbols([]byte(src), "geo.py")
	if err != nil {
		t.Fatalf("Symbols: %v", err)
	}
	want := []Symbol{
		{Name: "VERSION", Type: SymbolVariable, Filename: "geo.py", Line: 1},
		{Name: "Shape", Type: SymbolClass, Filename: "geo.py", Line: 3},
		{Name: "sides", Type: SymbolVariable, Filename: "geo.py", Line: 4},
		{Name: "area", Type: SymbolMethod, Filename: "geo.py", Line: 6},
		{Name: "helper", Type: SymbolFunction, Filename: "geo.py", Line: 10},
	}
	if !reflect.DeepEqual(symbols, want) {
		t.Fatalf("symbols = %+v\nwant %+v", symbols, want)
	}
}

func TestPlainExtractor(t *testing.T) {
	e := NewPlainExtractor("")
	scopes, err := e.Parse([]byte("alpha beta\nalpha, gamma"), "")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	var paths []string
	for _, sc := range scopes {
		paths = append(paths, sc.Path)
		if sc.End != (lexer.Position{Line: 2, Col: 12}) {
			t.Errorf("%s end = %v, want 2:12", sc.Path, sc.End)
		}
	}
	if !reflect.DeepEqual(paths, []string{"alpha", "beta", "gamma"}) {
		t.Errorf("paths = %v", paths)
	}
}

func TestJoinPath(t *testing.T) {
	if got := JoinPath("", "A"); got != "A" {
		t.Errorf("JoinPath empty base = %q", got)
	}
	if got := JoinPath("m", "A"); got != "m.A" {
		t.Errorf("JoinPath = %q", got)
	}
	if got := (Scope{Path: "m.A.run"}).Name(); got != "run" {
		t.Errorf("Name = %q", got)
	}
}

func TestRegistry_FallbackAndOverrides(t *testing.T) {
	r, err := NewDefaultRegistry(Options{
		Grammars: []string{"go"},
		Languages: map[string]LanguageOptions{
			"pyx": {Extractor: PythonName, Extensions: []string{"pyx"}},
		},
	})
	if err != nil {
		t.Fatalf("NewDefaultRegistry: %v", err)
	}

	if got := r.ForFilename("notes.unknown").Name(); got != PlainName {
		t.Errorf("unknown extension extractor = %q, want plain", got)
	}
	if got := r.MimetypeFor("a/b.py"); got != PythonMimetype {
		t.Errorf("MimetypeFor(.py) = %q", got)
	}
	if got := r.ForFilename("x.PY").Name(); got != PythonName {
		t.Errorf("uppercase extension extractor = %q", got)
	}
	if got := r.ForFilename("main.go").Name(); got != "go" {
		t.Errorf("go extractor = %q", got)
	}
	if got := r.ForFilename("fast.pyx").Name(); got != PythonName {
		t.Errorf("override extractor = %q", got)
	}
	if got := r.MimetypeFor("fast.pyx"); got != "text/x-pyx" {
		t.Errorf("override mimetype = %q", got)
	}
	if _, ok := r.ByName("javascript"); ok {
		t.Error("javascript grammar was not enabled but is registered")
	}
}

func TestRegistry_UnknownExtractor(t *testing.T) {
	_, err := NewDefaultRegistry(Options{
		Grammars:  []string{"go"},
		Languages: map[string]LanguageOptions{"x": {Extractor: "nope"}},
	})
	if err == nil {
		t.Fatal("expected error for unknown extractor")
	}
}

func TestGrammarLoader_Unknown(t *testing.T) {
	if _, err := NewGrammarLoader([]string{"cobol"}); err == nil {
		t.Fatal("expected error for grammar that is not compiled in")
	}
}
