// Package scope extracts named scopes from source files and maps filenames
// to the extractor that understands them.
package scope

import (
	"strings"

	"scopeindex/internal/engine/lexer"
)

// Scope is a named region of a file. End is left zero by extractors that do
// not track block structure.
type Scope struct {
	Path      string
	Inherited []string
	Start     lexer.Position
	End       lexer.Position
}

// Name returns the last dotted segment of the path.
func (s Scope) Name() string {
	if i := strings.LastIndexByte(s.Path, '.'); i >= 0 {
		return s.Path[i+1:]
	}
	return s.Path
}

// Extractor is implemented once per language.
type Extractor interface {
	Name() string
	Parse(src []byte, base string) ([]Scope, error)
	BaseScopeFromFilename(filename string) string
	SupportsNestedLookups() bool
}

// SymbolScanner is implemented by extractors that can also produce the
// lighter symbol list used by the project index.
type SymbolScanner interface {
	Symbols(src []byte, filename string) ([]Symbol, error)
}

type SymbolType int

const (
	SymbolClass SymbolType = iota
	SymbolFunction
	SymbolVariable
	SymbolMethod
	SymbolTypeDecl
)

func (t SymbolType) String() string {
	switch t {
	case SymbolClass:
		return "CLASS"
	case SymbolFunction:
		return "FUNCTION"
	case SymbolVariable:
		return "VARIABLE"
	case SymbolMethod:
		return "METHOD"
	case SymbolTypeDecl:
		return "TYPE"
	default:
		return "UNKNOWN"
	}
}

// Symbol is a project-wide searchable name. It is not persisted.
type Symbol struct {
	Name     string
	Type     SymbolType
	Filename string
	Line     int
}

// JoinPath dot-joins a local name onto an enclosing path.
func JoinPath(base, name string) string {
	if base == "" {
		return name
	}
	if name == "" {
		return base
	}
	return base + "." + name
}
