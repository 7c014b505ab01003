package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainError(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		err := New(CodeNotFound, "scope not found")
		if err.Error() != "[NOT_FOUND] scope not found" {
			t.Errorf("expected [NOT_FOUND] scope not found, got %s", err.Error())
		}
	})

	t.Run("Wrap", func(t *testing.T) {
		original := errors.New("disk I/O error")
		err := Wrap(original, CodeStale, "save scopes")
		expected := "[INDEX_STALE] save scopes: disk I/O error"
		if err.Error() != expected {
			t.Errorf("expected %s, got %s", expected, err.Error())
		}
		if !errors.Is(err, original) {
			t.Error("expected wrapped error to unwrap to the original")
		}
	})

	t.Run("IsCode", func(t *testing.T) {
		err := New(CodeSyntax, "unterminated string")
		if !IsCode(err, CodeSyntax) {
			t.Error("expected IsCode to return true for CodeSyntax")
		}
		if IsCode(err, CodeStale) {
			t.Error("expected IsCode to return false for CodeStale")
		}
	})

	t.Run("AddContextPromotesPlainErrors", func(t *testing.T) {
		err := AddContext(errors.New("boom"), CtxPath, "a.py")
		if !IsCode(err, CodeInternal) {
			t.Fatalf("expected CodeInternal, got %v", err)
		}
		var de *DomainError
		if !errors.As(err, &de) || de.Context[CtxPath] != "a.py" {
			t.Fatalf("expected path context, got %v", err)
		}
	})

	t.Run("AddContextKeepsCode", func(t *testing.T) {
		err := AddContext(New(CodeSyntax, "bad dedent"), CtxLine, 3)
		if !IsCode(err, CodeSyntax) {
			t.Fatalf("expected CodeSyntax to survive, got %v", err)
		}
	})

	t.Run("ContextRenderedSorted", func(t *testing.T) {
		err := AddContext(New(CodeStale, "persist scopes"), CtxPath, "a.py")
		err = AddContext(err, CtxOperation, "save")
		expected := "[INDEX_STALE] persist scopes operation=save path=a.py"
		if err.Error() != expected {
			t.Errorf("expected %s, got %s", expected, err.Error())
		}
	})

	t.Run("CodeOf", func(t *testing.T) {
		wrapped := fmt.Errorf("index: %w", New(CodeSyntax, "bad dedent"))
		if got := CodeOf(wrapped); got != CodeSyntax {
			t.Errorf("expected CodeSyntax through fmt wrapping, got %q", got)
		}
		if got := CodeOf(errors.New("plain")); got != "" {
			t.Errorf("expected empty code for plain error, got %q", got)
		}
		if IsCode(nil, "") {
			t.Error("expected nil error to match no code")
		}
	})

	t.Run("IsCodeSearchesJoinedErrors", func(t *testing.T) {
		joined := fmt.Errorf("2 files failed: %w", errors.Join(
			New(CodeNotFound, "read source"),
			Wrap(errors.New("EOF in multi-line string"), CodeSyntax, "file unindexable"),
		))
		if !IsCode(joined, CodeSyntax) {
			t.Error("expected CodeSyntax to be found in the second joined error")
		}
		if !IsCode(joined, CodeNotFound) {
			t.Error("expected CodeNotFound to be found in the first joined error")
		}
		if IsCode(joined, CodeStale) {
			t.Error("expected CodeStale to be absent")
		}
		if got := CodeOf(joined); got != CodeNotFound {
			t.Errorf("expected CodeOf to report the first code, got %q", got)
		}
	})
}
