package scope

import (
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"scopeindex/internal/engine/lexer"
)

// declRule describes how a declaring node kind names its scope.
type declRule struct {
	kind  SymbolType
	name  func(n *sitter.Node, src []byte) string
	bases func(n *sitter.Node, src []byte) []string
}

// treeLanguage is the per-grammar configuration of the tree extractor.
type treeLanguage struct {
	mimetype   string
	extensions []string
	stemBase   bool
	rules      map[string]declRule
}

// TreeExtractor is a syntax-tree backed extractor that follows nesting, so
// scopes carry their full enclosing path and an end position.
type TreeExtractor struct {
	id   string
	lang treeLanguage
	pool *ParserPool
}

type declaration struct {
	scope Scope
	local string
	kind  SymbolType
}

// NewTreeExtractor builds the extractor for a grammar loaded by loader.
func NewTreeExtractor(loader *GrammarLoader, id string) (*TreeExtractor, error) {
	lang, ok := treeLanguages[id]
	if !ok {
		return nil, fmt.Errorf("no tree extractor rules for %q", id)
	}
	grammar := loader.Language(id)
	if grammar == nil {
		return nil, fmt.Errorf("grammar %q not loaded", id)
	}
	return &TreeExtractor{id: id, lang: lang, pool: NewParserPool(grammar)}, nil
}

func (e *TreeExtractor) Name() string { return e.id }

func (e *TreeExtractor) SupportsNestedLookups() bool { return true }

func (e *TreeExtractor) BaseScopeFromFilename(filename string) string {
	if !e.lang.stemBase {
		return ""
	}
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (e *TreeExtractor) Parse(src []byte, base string) ([]Scope, error) {
	decls, err := e.declarations(src, base)
	if err != nil {
		return nil, err
	}
	scopes := make([]Scope, len(decls))
	for i, d := range decls {
		scopes[i] = d.scope
	}
	return scopes, nil
}

func (e *TreeExtractor) Symbols(src []byte, filename string) ([]Symbol, error) {
	decls, err := e.declarations(src, "")
	if err != nil {
		return nil, err
	}
	symbols := make([]Symbol, len(decls))
	for i, d := range decls {
		symbols[i] = Symbol{Name: d.local, Type: d.kind, Filename: filename, Line: d.scope.Start.Line}
	}
	return symbols, nil
}

func (e *TreeExtractor) declarations(src []byte, base string) ([]declaration, error) {
	sp := e.pool.Get()
	defer e.pool.Put(sp)

	tree := sp.Parse(src, nil)
	if tree == nil {
		return nil, fmt.Errorf("%s: parse failed", e.id)
	}
	defer tree.Close()

	var out []declaration
	e.walk(tree.RootNode(), src, base, &out)
	return out, nil
}

func (e *TreeExtractor) walk(n *sitter.Node, src []byte, path string, out *[]declaration) {
	if n == nil {
		return
	}
	if rule, ok := e.lang.rules[n.Kind()]; ok {
		if local := strings.TrimSpace(rule.name(n, src)); local != "" {
			path = JoinPath(path, local)
			sc := Scope{
				Path:  path,
				Start: position(n.StartPosition()),
				End:   position(n.EndPosition()),
			}
			if rule.bases != nil {
				sc.Inherited = rule.bases(n, src)
			}
			*out = append(*out, declaration{scope: sc, local: local, kind: rule.kind})
		}
	}
	for i := uint(0); i < n.NamedChildCount(); i++ {
		e.walk(n.NamedChild(i), src, path, out)
	}
}

func position(p sitter.Point) lexer.Position {
	return lexer.Position{Line: int(p.Row) + 1, Col: int(p.Column)}
}

func nodeText(n *sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	return string(src[n.StartByte():n.EndByte()])
}

func namedChildOfKind(n *sitter.Node, kinds ...string) *sitter.Node {
	if n == nil {
		return nil
	}
	for i := uint(0); i < n.NamedChildCount(); i++ {
		child := n.NamedChild(i)
		for _, kind := range kinds {
			if child.Kind() == kind {
				return child
			}
		}
	}
	return nil
}

// namedTexts returns the text of each named child, skipping the given kinds.
func namedTexts(n *sitter.Node, src []byte, skip ...string) []string {
	if n == nil {
		return nil
	}
	var out []string
next:
	for i := uint(0); i < n.NamedChildCount(); i++ {
		child := n.NamedChild(i)
		for _, kind := range skip {
			if child.Kind() == kind {
				continue next
			}
		}
		if text := strings.TrimSpace(nodeText(child, src)); text != "" {
			out = append(out, text)
		}
	}
	return out
}

func field(name string) func(*sitter.Node, []byte) string {
	return func(n *sitter.Node, src []byte) string {
		return nodeText(n.ChildByFieldName(name), src)
	}
}
