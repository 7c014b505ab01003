package scope

import (
	"path/filepath"
	"strings"

	"scopeindex/internal/engine/lexer"
)

const PythonName = "python"

var pythonKeywords = map[string]bool{
	"False": true, "None": true, "True": true, "and": true, "as": true,
	"assert": true, "async": true, "await": true, "break": true, "class": true,
	"continue": true, "def": true, "del": true, "elif": true, "else": true,
	"except": true, "finally": true, "for": true, "from": true, "global": true,
	"if": true, "import": true, "in": true, "is": true, "lambda": true,
	"nonlocal": true, "not": true, "or": true, "pass": true, "raise": true,
	"return": true, "try": true, "while": true, "with": true, "yield": true,
}

// PythonExtractor is the token-driven class extractor for Python sources.
type PythonExtractor struct {
	extraBuiltins map[string]bool
}

// NewPythonExtractor returns an extractor that additionally treats extra as
// builtin base names.
func NewPythonExtractor(extra ...string) *PythonExtractor {
	e := &PythonExtractor{extraBuiltins: make(map[string]bool, len(extra))}
	for _, name := range extra {
		if name = strings.TrimSpace(name); name != "" {
			e.extraBuiltins[name] = true
		}
	}
	return e
}

func (e *PythonExtractor) Name() string { return PythonName }

func (e *PythonExtractor) SupportsNestedLookups() bool { return false }

// BaseScopeFromFilename derives the module name: pkg/mod.py is "mod" and a
// package initializer pkg/__init__.py is "pkg".
func (e *PythonExtractor) BaseScopeFromFilename(filename string) string {
	base := filepath.Base(filename)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "__init__" {
		dir := filepath.Base(filepath.Dir(filename))
		if dir == "." || dir == string(filepath.Separator) {
			return ""
		}
		return dir
	}
	return stem
}

func (e *PythonExtractor) Parse(src []byte, base string) ([]Scope, error) {
	tokens, err := lexer.Tokenize(string(src))
	if err != nil {
		return nil, err
	}
	return extractClasses(tokens, base, e.isBuiltin), nil
}

func (e *PythonExtractor) isBuiltin(name string) bool {
	return builtinTypes[name] || e.extraBuiltins[name]
}

// Symbols reports classes, functions, methods and module or class level
// assignments.
func (e *PythonExtractor) Symbols(src []byte, filename string) ([]Symbol, error) {
	tokens, err := lexer.Tokenize(string(src))
	if err != nil {
		return nil, err
	}
	return scanSymbols(lexer.Significant(tokens), filename), nil
}

func scanSymbols(tokens []lexer.Token, filename string) []Symbol {
	var (
		out       []Symbol
		depth     int
		classBody []int // indentation depth of each open class body
		stmtStart = true
	)
	inClassBody := func() bool {
		return len(classBody) > 0 && classBody[len(classBody)-1] == depth
	}

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		switch tok.Kind {
		case lexer.Newline:
			stmtStart = true
			continue
		case lexer.Indent:
			depth++
			stmtStart = true
			continue
		case lexer.Dedent:
			depth--
			for len(classBody) > 0 && classBody[len(classBody)-1] > depth {
				classBody = classBody[:len(classBody)-1]
			}
			stmtStart = true
			continue
		}

		atStart := stmtStart
		stmtStart = false
		if tok.Kind != lexer.Name || i+1 >= len(tokens) {
			continue
		}
		next := tokens[i+1]

		switch {
		case tok.Text == "class" && next.Kind == lexer.Name:
			out = append(out, Symbol{Name: next.Text, Type: SymbolClass, Filename: filename, Line: next.Start.Line})
			classBody = append(classBody, depth+1)
			i++
		case tok.Text == "def" && next.Kind == lexer.Name:
			kind := SymbolFunction
			if inClassBody() {
				kind = SymbolMethod
			}
			out = append(out, Symbol{Name: next.Text, Type: kind, Filename: filename, Line: next.Start.Line})
			i++
		case atStart && next.Is(lexer.Op, "=") && !pythonKeywords[tok.Text]:
			if depth == 0 || inClassBody() {
				out = append(out, Symbol{Name: tok.Text, Type: SymbolVariable, Filename: filename, Line: tok.Start.Line})
			}
		}
	}
	return out
}
