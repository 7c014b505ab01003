package scope

import (
	"fmt"
	"sort"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_css "github.com/tree-sitter/tree-sitter-css/bindings/go"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_html "github.com/tree-sitter/tree-sitter-html/bindings/go"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// GrammarLoader holds the compiled-in tree-sitter grammars that are enabled.
type GrammarLoader struct {
	languages map[string]*sitter.Language
}

// NewGrammarLoader loads the named grammars. An empty list loads all of them.
func NewGrammarLoader(enabled []string) (*GrammarLoader, error) {
	if len(enabled) == 0 {
		enabled = KnownGrammars()
	}
	gl := &GrammarLoader{languages: make(map[string]*sitter.Language, len(enabled))}
	for _, id := range enabled {
		id = strings.ToLower(strings.TrimSpace(id))
		switch id {
		case "css":
			gl.languages[id] = sitter.NewLanguage(tree_sitter_css.Language())
		case "go":
			gl.languages[id] = sitter.NewLanguage(tree_sitter_go.Language())
		case "html":
			gl.languages[id] = sitter.NewLanguage(tree_sitter_html.Language())
		case "java":
			gl.languages[id] = sitter.NewLanguage(tree_sitter_java.Language())
		case "javascript":
			gl.languages[id] = sitter.NewLanguage(tree_sitter_javascript.Language())
		case "python-tree":
			gl.languages[id] = sitter.NewLanguage(tree_sitter_python.Language())
		case "rust":
			gl.languages[id] = sitter.NewLanguage(tree_sitter_rust.Language())
		case "tsx":
			gl.languages[id] = sitter.NewLanguage(tree_sitter_typescript.LanguageTSX())
		case "typescript":
			gl.languages[id] = sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript())
		case "":
			continue
		default:
			return nil, fmt.Errorf("grammar %q is enabled but not compiled in", id)
		}
	}
	return gl, nil
}

// KnownGrammars lists every grammar id NewGrammarLoader understands.
func KnownGrammars() []string {
	ids := make([]string, 0, len(treeLanguages))
	for id := range treeLanguages {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (gl *GrammarLoader) Language(id string) *sitter.Language {
	if gl == nil {
		return nil
	}
	return gl.languages[id]
}

// Loaded returns the ids of the loaded grammars in sorted order.
func (gl *GrammarLoader) Loaded() []string {
	ids := make([]string, 0, len(gl.languages))
	for id := range gl.languages {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
