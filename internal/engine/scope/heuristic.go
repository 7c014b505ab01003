package scope

import "scopeindex/internal/engine/lexer"

// builtinTypes are base-class names kept unqualified in inherited paths.
var builtinTypes = map[string]bool{
	"object": true, "type": true, "int": true, "float": true, "complex": true,
	"bool": true, "str": true, "bytes": true, "bytearray": true, "memoryview": true,
	"list": true, "tuple": true, "dict": true, "set": true, "frozenset": true,
	"range": true, "slice": true, "property": true, "staticmethod": true,
	"classmethod": true, "super": true, "enumerate": true, "zip": true,
	"map": true, "filter": true, "reversed": true,

	"BaseException": true, "Exception": true, "ArithmeticError": true,
	"AssertionError": true, "AttributeError": true, "BufferError": true,
	"EOFError": true, "FloatingPointError": true, "GeneratorExit": true,
	"ImportError": true, "ModuleNotFoundError": true, "IndexError": true,
	"KeyError": true, "KeyboardInterrupt": true, "LookupError": true,
	"MemoryError": true, "NameError": true, "NotImplementedError": true,
	"OSError": true, "IOError": true, "EnvironmentError": true,
	"OverflowError": true, "RecursionError": true, "ReferenceError": true,
	"RuntimeError": true, "StopIteration": true, "StopAsyncIteration": true,
	"SyntaxError": true, "IndentationError": true, "TabError": true,
	"SystemError": true, "SystemExit": true, "TypeError": true,
	"UnboundLocalError": true, "UnicodeError": true, "UnicodeDecodeError": true,
	"UnicodeEncodeError": true, "UnicodeTranslateError": true, "ValueError": true,
	"ZeroDivisionError": true, "FileExistsError": true, "FileNotFoundError": true,
	"PermissionError": true, "TimeoutError": true, "ConnectionError": true,
	"Warning": true, "UserWarning": true, "DeprecationWarning": true,
	"RuntimeWarning": true,
}

// IsBuiltinType reports whether name is in the fixed builtin table.
func IsBuiltinType(name string) bool {
	return builtinTypes[name]
}

// Extract runs the positional class heuristic over tokens with the default
// builtin table.
func Extract(tokens []lexer.Token, base string) []Scope {
	return extractClasses(tokens, base, IsBuiltinType)
}

// extractClasses finds `class Name(...)` in a single flat pass. Every name
// inside the base list becomes an inherited path: bare when builtin,
// otherwise prefixed with the enclosing path and a dot, even when that path
// is empty. A base list that never closes contributes no scope. Nesting is
// not tracked, so every class is placed directly under base.
func extractClasses(tokens []lexer.Token, base string, builtin func(string) bool) []Scope {
	var scopes []Scope
	for i := 0; i+1 < len(tokens); i++ {
		if !tokens[i].Is(lexer.Name, "class") || tokens[i+1].Kind != lexer.Name {
			continue
		}
		sc := Scope{
			Path:  JoinPath(base, tokens[i+1].Text),
			Start: tokens[i].Start,
		}

		j := i + 2
		if j < len(tokens) && tokens[j].Is(lexer.Op, "(") {
			depth, closed := 0, false
			for ; j < len(tokens) && !closed; j++ {
				tok := tokens[j]
				switch {
				case tok.Is(lexer.Op, "("):
					depth++
				case tok.Is(lexer.Op, ")"):
					depth--
					closed = depth == 0
				case tok.Kind == lexer.Name:
					if builtin(tok.Text) {
						sc.Inherited = append(sc.Inherited, tok.Text)
					} else {
						sc.Inherited = append(sc.Inherited, base+"."+tok.Text)
					}
				}
			}
			if !closed {
				continue
			}
		}
		scopes = append(scopes, sc)
	}
	return scopes
}
