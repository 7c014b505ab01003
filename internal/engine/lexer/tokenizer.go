package lexer

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const tabSize = 8

// partialString carries a string literal whose closing quote has not been
// seen yet across physical lines.
type partialString struct {
	text     string
	start    Position
	quote    string
	needCont bool
}

// scanner holds the complete tokenizer state. It is advanced one physical
// line at a time by scanLine.
type scanner struct {
	lnum       int
	indents    []int
	parenDepth int
	continued  bool
	partial    *partialString
	tokens     []Token
}

func newScanner() *scanner {
	return &scanner{indents: []int{0}}
}

// Tokenize converts src into tokens. It fails only when input ends inside a
// string or bracketed statement (ErrUnterminated) or when a dedent does not
// match an open indentation level (ErrDedent); no partial token list is
// returned in that case. Every other anomaly becomes an Error token.
func Tokenize(src string) ([]Token, error) {
	lines := splitLines(src)
	s := newScanner()

	var line, last string
	for {
		last = line
		line = ""
		if s.lnum < len(lines) {
			line = lines[s.lnum]
		}
		s.lnum++

		stop, err := s.scanLine(line)
		if err != nil {
			return nil, err
		}
		if stop {
			break
		}
	}

	s.finish(last)
	return s.tokens, nil
}

// splitLines splits after every '\n', keeping the terminator.
func splitLines(src string) []string {
	if src == "" {
		return nil
	}
	lines := strings.SplitAfter(src, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func (s *scanner) emit(kind Kind, text string, start, end Position) {
	s.tokens = append(s.tokens, Token{Kind: kind, Text: text, Start: start, End: end})
}

func (s *scanner) at(col int) Position {
	return Position{Line: s.lnum, Col: col}
}

func (s *scanner) scanLine(line string) (bool, error) {
	pos, max := 0, len(line)

	switch {
	case s.partial != nil:
		if line == "" {
			return false, &SyntaxError{Err: ErrUnterminated, Msg: "EOF in multi-line string", Pos: s.partial.start}
		}
		if end := findClose(line, 0, s.partial.quote); end >= 0 {
			s.emit(String, s.partial.text+line[:end], s.partial.start, s.at(end))
			s.partial = nil
			pos = end
		} else if s.partial.needCont && !strings.HasSuffix(line, "\\\n") && !strings.HasSuffix(line, "\\\r\n") {
			s.emit(Error, s.partial.text+line, s.partial.start, s.at(len(line)))
			s.partial = nil
			return false, nil
		} else {
			s.partial.text += line
			return false, nil
		}

	case s.parenDepth == 0 && !s.continued:
		if line == "" {
			return true, nil
		}
		column := 0
	measure:
		for ; pos < max; pos++ {
			switch line[pos] {
			case ' ':
				column++
			case '\t':
				column = (column/tabSize + 1) * tabSize
			case '\f':
				column = 0
			default:
				break measure
			}
		}
		if pos == max {
			return true, nil
		}

		if c := line[pos]; c == '#' || c == '\r' || c == '\n' {
			if c == '#' {
				comment := strings.TrimRight(line[pos:], "\r\n")
				s.emit(Comment, comment, s.at(pos), s.at(pos+len(comment)))
				pos += len(comment)
			}
			s.emit(NL, line[pos:], s.at(pos), s.at(len(line)))
			return false, nil
		}

		if column > s.indents[len(s.indents)-1] {
			s.indents = append(s.indents, column)
			s.emit(Indent, line[:pos], s.at(0), s.at(pos))
		}
		for column < s.indents[len(s.indents)-1] {
			if !containsInt(s.indents, column) {
				return false, &SyntaxError{
					Err: ErrDedent,
					Msg: "unindent does not match any outer indentation level",
					Pos: s.at(pos),
				}
			}
			s.indents = s.indents[:len(s.indents)-1]
			s.emit(Dedent, "", s.at(pos), s.at(pos))
		}

	default:
		if line == "" {
			return false, &SyntaxError{Err: ErrUnterminated, Msg: "EOF in multi-line statement", Pos: s.at(0)}
		}
		s.continued = false
	}

	for pos < max {
		m := pseudoToken.FindStringSubmatchIndex(line[pos:])
		if m == nil {
			for pos < max && (line[pos] == ' ' || line[pos] == '\t' || line[pos] == '\f') {
				pos++
			}
			_, size := utf8.DecodeRuneInString(line[pos:])
			s.emit(Error, line[pos:pos+size], s.at(pos), s.at(pos+size))
			pos += size
			continue
		}

		start, end := pos+m[2], pos+m[3]
		pos = end
		if start == end {
			continue
		}
		tok, initial := line[start:end], line[start]

		switch {
		case isDigit(initial) || (initial == '.' && tok != "." && tok != "..."):
			s.emit(Number, tok, s.at(start), s.at(end))

		case initial == '\r' || initial == '\n':
			if s.parenDepth > 0 {
				s.emit(NL, tok, s.at(start), s.at(end))
			} else {
				s.emit(Newline, tok, s.at(start), s.at(end))
			}

		case initial == '#':
			s.emit(Comment, tok, s.at(start), s.at(end))

		case isTripleOpener(tok):
			quote := tok[len(tok)-3:]
			if closeAt := findClose(line, pos, quote); closeAt >= 0 {
				pos = closeAt
				s.emit(String, line[start:pos], s.at(start), s.at(pos))
			} else {
				s.partial = &partialString{text: line[start:], start: s.at(start), quote: quote}
				return false, nil
			}

		case isStringOpener(tok):
			if tok[len(tok)-1] == '\n' {
				_, body, _ := splitPrefix(tok)
				s.partial = &partialString{
					text:     line[start:],
					start:    s.at(start),
					quote:    body[:1],
					needCont: true,
				}
				return false, nil
			}
			s.emit(String, tok, s.at(start), s.at(end))

		case isNameStart(tok):
			s.emit(Name, tok, s.at(start), s.at(end))

		case initial == '\\':
			s.continued = true

		default:
			if !isOperator(tok) {
				s.emit(Error, tok, s.at(start), s.at(end))
				continue
			}
			switch initial {
			case '(', '[', '{':
				s.parenDepth++
			case ')', ']', '}':
				if s.parenDepth > 0 {
					s.parenDepth--
				}
			}
			s.emit(Op, tok, s.at(start), s.at(end))
		}
	}
	return false, nil
}

// finish emits the implicit trailing NEWLINE, the closing DEDENTs and the
// ENDMARKER. last is the final physical line that was scanned.
func (s *scanner) finish(last string) {
	if last != "" {
		if c := last[len(last)-1]; c != '\r' && c != '\n' && !strings.HasPrefix(strings.TrimSpace(last), "#") {
			at := Position{Line: s.lnum - 1, Col: len(last)}
			s.emit(Newline, "", at, Position{Line: at.Line, Col: at.Col + 1})
		}
	}
	for range s.indents[1:] {
		s.emit(Dedent, "", s.at(0), s.at(0))
	}
	s.indents = s.indents[:1]
	s.emit(EndMarker, "", s.at(0), s.at(0))
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isTripleOpener(tok string) bool {
	_, body, ok := splitPrefix(tok)
	return ok && (body == `'''` || body == `"""`)
}

func isStringOpener(tok string) bool {
	_, _, ok := splitPrefix(tok)
	return ok
}

func isNameStart(tok string) bool {
	r, _ := utf8.DecodeRuneInString(tok)
	return r == '_' || unicode.IsLetter(r) || unicode.Is(unicode.Nl, r)
}

func isOperator(tok string) bool {
	if tok == "!" {
		return false
	}
	return strings.IndexByte("!%&()*+,-./:;<=>@[]^{|}~", tok[0]) >= 0
}

func containsInt(values []int, v int) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
