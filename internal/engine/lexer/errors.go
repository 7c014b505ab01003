package lexer

import (
	"errors"
	"fmt"
)

var (
	// ErrUnterminated reports end of input inside a string or bracketed statement.
	ErrUnterminated = errors.New("unterminated string or statement")
	// ErrDedent reports a dedent to a column that was never opened.
	ErrDedent = errors.New("inconsistent dedent")
)

// SyntaxError is returned for the conditions that abort tokenization.
type SyntaxError struct {
	Err error
	Msg string
	Pos Position
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s (line %d, column %d)", e.Msg, e.Pos.Line, e.Pos.Col)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}
