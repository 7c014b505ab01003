package scope

import (
	"strings"

	"scopeindex/internal/engine/lexer"
)

const PlainName = "plain"

// DefaultSeparators split plain text into words.
const DefaultSeparators = " \t\r\n\f\v.,;:!?()[]{}<>\"'`~@#$%^&*-+=/\\|"

// PlainExtractor treats any file as a bag of words.
type PlainExtractor struct {
	separators string
}

func NewPlainExtractor(separators string) *PlainExtractor {
	if separators == "" {
		separators = DefaultSeparators
	}
	return &PlainExtractor{separators: separators}
}

func (e *PlainExtractor) Name() string { return PlainName }

func (e *PlainExtractor) SupportsNestedLookups() bool { return false }

func (e *PlainExtractor) BaseScopeFromFilename(string) string { return "" }

// Parse emits one scope per distinct word, each spanning the whole document.
func (e *PlainExtractor) Parse(src []byte, base string) ([]Scope, error) {
	text := string(src)
	end := documentEnd(text)
	words := strings.FieldsFunc(text, func(r rune) bool {
		return strings.ContainsRune(e.separators, r)
	})

	seen := make(map[string]bool, len(words))
	scopes := make([]Scope, 0, len(words))
	for _, w := range words {
		if seen[w] {
			continue
		}
		seen[w] = true
		scopes = append(scopes, Scope{
			Path:  JoinPath(base, w),
			Start: lexer.Position{Line: 1, Col: 0},
			End:   end,
		})
	}
	return scopes, nil
}

func documentEnd(text string) lexer.Position {
	line := 1 + strings.Count(text, "\n")
	col := len(text)
	if i := strings.LastIndexByte(text, '\n'); i >= 0 {
		col = len(text) - i - 1
	}
	return lexer.Position{Line: line, Col: col}
}
