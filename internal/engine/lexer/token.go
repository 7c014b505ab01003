// Package lexer tokenizes indentation-structured source text.
package lexer

import "fmt"

// Kind classifies a token.
type Kind int

const (
	EndMarker Kind = iota
	Name
	Number
	String
	Newline
	Indent
	Dedent
	Op
	Comment
	// NL is a non-logical line break: blank lines, comment-only lines and
	// breaks inside brackets or after an explicit continuation.
	NL
	Error
)

var kindNames = [...]string{
	EndMarker: "ENDMARKER",
	Name:      "NAME",
	Number:    "NUMBER",
	String:    "STRING",
	Newline:   "NEWLINE",
	Indent:    "INDENT",
	Dedent:    "DEDENT",
	Op:        "OP",
	Comment:   "COMMENT",
	NL:        "NL",
	Error:     "ERRORTOKEN",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Position is a source location. Line is 1-based, Col is a 0-based byte
// offset into the line.
type Position struct {
	Line int
	Col  int
}

// Before reports whether p sorts strictly before q.
func (p Position) Before(q Position) bool {
	if p.Line != q.Line {
		return p.Line < q.Line
	}
	return p.Col < q.Col
}

func (p Position) IsZero() bool {
	return p.Line == 0 && p.Col == 0
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

// Token is an immutable lexical unit.
type Token struct {
	Kind  Kind
	Text  string
	Start Position
	End   Position
}

func (t Token) String() string {
	return fmt.Sprintf("%s %q %s-%s", t.Kind, t.Text, t.Start, t.End)
}

// Is reports whether the token has the given kind and text.
func (t Token) Is(kind Kind, text string) bool {
	return t.Kind == kind && t.Text == text
}

// Significant drops comments and non-logical line breaks.
func Significant(tokens []Token) []Token {
	out := make([]Token, 0, len(tokens))
	for _, tok := range tokens {
		if tok.Kind == Comment || tok.Kind == NL {
			continue
		}
		out = append(out, tok)
	}
	return out
}
