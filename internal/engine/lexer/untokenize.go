package lexer

import "strings"

// Untokenize rebuilds source text from token positions. Gaps inside a line
// become spaces and skipped rows become backslash continuations, so the
// result matches the input exactly for space-indented source whose explicit
// continuations directly follow the last token on their line.
func Untokenize(tokens []Token) string {
	var b strings.Builder
	row, col := 1, 0
	for _, tok := range tokens {
		if tok.Kind == Dedent || tok.Kind == EndMarker {
			continue
		}
		if tok.Start.Line > row {
			b.WriteString(strings.Repeat("\\\n", tok.Start.Line-row))
			row, col = tok.Start.Line, 0
		}
		if gap := tok.Start.Col - col; gap > 0 {
			b.WriteString(strings.Repeat(" ", gap))
		}
		b.WriteString(tok.Text)
		row, col = tok.End.Line, tok.End.Col
		if tok.Kind == Newline || tok.Kind == NL {
			row, col = row+1, 0
		}
	}
	return b.String()
}
