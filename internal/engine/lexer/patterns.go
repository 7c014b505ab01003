package lexer

import (
	"regexp"
	"strings"
)

func group(choices ...string) string {
	return "(?:" + strings.Join(choices, "|") + ")"
}

// Longest operators first so alternation picks the longest spelling.
var operators = []string{
	`\*\*=`, `\.\.\.`, `//=`, `>>=`, `<<=`,
	`!=`, `%=`, `&=`, `\*\*`, `\*=`, `\+=`, `-=`, `->`, `//`, `/=`, `:=`,
	`<<`, `<=`, `==`, `>=`, `>>`, `@=`, `\^=`, `\|=`,
	`[!%&()*+,\-./:;<=>@\[\]^{|}~]`,
}

var (
	reWhitespace = `[ \f\t]*`
	reComment    = `#[^\r\n]*`
	reName       = `[\p{L}\p{Nl}\p{Mn}\p{Mc}\p{Nd}\p{Pc}]+`

	reHex      = `0[xX](?:_?[0-9a-fA-F])+`
	reBin      = `0[bB](?:_?[01])+`
	reOct      = `0[oO](?:_?[0-7])+`
	reDec      = `(?:0(?:_?0)*|[1-9](?:_?[0-9])*)`
	reExponent = `[eE][-+]?[0-9](?:_?[0-9])*`
	rePoint    = group(`[0-9](?:_?[0-9])*\.(?:[0-9](?:_?[0-9])*)?`, `\.[0-9](?:_?[0-9])*`) + `(?:` + reExponent + `)?`
	reExpFloat = `[0-9](?:_?[0-9])*` + reExponent
	reFloat    = group(rePoint, reExpFloat)
	reImag     = group(`[0-9](?:_?[0-9])*[jJ]`, reFloat+`[jJ]`)
	reInt      = group(reHex, reBin, reOct, reDec)
	reNumber   = group(reImag, reFloat, reInt)

	reStringPrefix = `(?:[bB][rR]?|[rR][bBfF]?|[uU]|[fF][rR]?)?`
	reTriple       = reStringPrefix + group(`'''`, `"""`)
	// A single-quoted string that closes on this line, or breaks with a
	// backslash-newline and continues on the next.
	reContStr = reStringPrefix + group(
		`'[^\n'\\]*(?:\\.[^\n'\\]*)*`+group(`'`, `\\\r?\n`),
		`"[^\n"\\]*(?:\\.[^\n"\\]*)*`+group(`"`, `\\\r?\n`),
	)
	reFunny = group(`\r?\n`, group(operators...))

	// Alternation order is the classification precedence: numbers are tried
	// before operators and names so that 0x1 is one NUMBER.
	pseudoToken = regexp.MustCompile(`^` + reWhitespace + `(` + group(
		`\\\r?\n|\z`, reComment, reTriple,
	) + `|` + reNumber + `|` + reFunny + `|` + reContStr + `|` + reName + `)`)
)

// splitPrefix separates a string-literal prefix (r, b, f, u and pairs) from
// the quoted body. ok is false when tok does not start a string literal.
func splitPrefix(tok string) (prefix, body string, ok bool) {
	for i := 0; i < len(tok) && i < 3; i++ {
		switch tok[i] {
		case '\'', '"':
			return tok[:i], tok[i:], true
		case 'b', 'B', 'r', 'R', 'u', 'U', 'f', 'F':
			continue
		default:
			return "", "", false
		}
	}
	return "", "", false
}

// findClose returns the offset just past the first unescaped quote sequence
// at or after pos, or -1 when the line does not close the string.
func findClose(line string, pos int, quote string) int {
	for i := pos; i < len(line); {
		if line[i] == '\\' {
			i += 2
			continue
		}
		if strings.HasPrefix(line[i:], quote) {
			return i + len(quote)
		}
		i++
	}
	return -1
}
