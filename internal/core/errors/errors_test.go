package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainError(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		err := New(CodeNotFound, "resource not found")
		if err.Error() != "[NOT_FOUND] resource not found" {
			t.Errorf("expected [NOT_FOUND] resource not found, got %s", err.Error())
		}
	})

	t.Run("Wrap", func(t *testing.T) {
		original := errors.New("original error")
		err := Wrap(original, CodeCompileFailed, "compile failed")
		expected := "[COMPILE_FAILED] compile failed: original error"
		if err.Error() != expected {
			t.Errorf("expected %s, got %s", expected, err.Error())
		}
		if !errors.Is(err, original) {
			t.Error("expected wrapped error to unwrap to original")
		}
	})

	t.Run("IsCode", func(t *testing.T) {
		err := New(CodeValidationError, "invalid input")
		if !IsCode(err, CodeValidationError) {
			t.Error("expected IsCode to return true for CodeValidationError")
		}
		if IsCode(err, CodeNotFound) {
			t.Error("expected IsCode to return false for CodeNotFound")
		}
	})

	t.Run("IsCodeThroughFmtWrap", func(t *testing.T) {
		err := fmt.Errorf("batch esm: %w", New(CodeCompileFailed, "boom"))
		if !IsCode(err, CodeCompileFailed) {
			t.Error("expected IsCode to see through fmt.Errorf wrapping")
		}
	})

	t.Run("AddContext", func(t *testing.T) {
		err := AddContext(New(CodeConflict, "duplicate module"), CtxModule, "lib/a")
		expected := "[CONFLICT] duplicate module {module=lib/a}"
		if err.Error() != expected {
			t.Errorf("expected %s, got %s", expected, err.Error())
		}

		plain := AddContext(errors.New("disk full"), CtxPath, "/tmp/x")
		if !IsCode(plain, CodeInternal) {
			t.Error("expected plain errors to be wrapped as internal")
		}
	})

	t.Run("ContextKeysSorted", func(t *testing.T) {
		de := &DomainError{Code: CodeIOFailed, Message: "write"}
		de.WithContext(CtxPath, "a.js").WithContext(CtxFormat, "esm")
		expected := "[IO_FAILED] write {format=esm path=a.js}"
		if de.Error() != expected {
			t.Errorf("expected %s, got %s", expected, de.Error())
		}
	})

	t.Run("CodeOf", func(t *testing.T) {
		if got := CodeOf(fmt.Errorf("run: %w", New(CodeNotFound, "missing"))); got != CodeNotFound {
			t.Errorf("expected NOT_FOUND, got %q", got)
		}
		if got := CodeOf(errors.New("plain")); got != "" {
			t.Errorf("expected empty code for plain error, got %q", got)
		}
		if AddContext(nil, CtxPath, "x") != nil {
			t.Error("expected nil error to stay nil")
		}
	})
}
