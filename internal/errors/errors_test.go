package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestErrorString(t *testing.T) {
	e := New(CategoryValidation, SeverityWarning, "unsupported embed URL")
	want := "validation (warning): unsupported embed URL"
	if got := e.Error(); got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestErrorStringWithCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	e := Wrap(cause, CategoryNetwork, SeverityError, "embed key exchange failed")
	if got := e.Error(); got != "network (error): embed key exchange failed: connection refused" {
		t.Fatalf("unexpected error string: %q", got)
	}
	if !stderrors.Is(e, cause) {
		t.Fatal("wrapped cause not reachable via errors.Is")
	}
}

func TestCategoryHelpers(t *testing.T) {
	e := TimeoutError("verify poll exhausted")
	if !IsCategory(e, CategoryTimeout) {
		t.Fatal("expected timeout category")
	}
	if IsCategory(e, CategoryValidation) {
		t.Fatal("timeout error must not match validation category")
	}
	if !IsRetryable(e) {
		t.Fatal("timeout errors are retryable")
	}

	// Category should survive wrapping with %w.
	wrapped := fmt.Errorf("resolving embed: %w", e)
	if !IsCategory(wrapped, CategoryTimeout) {
		t.Fatal("category lost through fmt wrapping")
	}
	if GetCategory(wrapped) != CategoryTimeout {
		t.Fatalf("GetCategory = %s", GetCategory(wrapped))
	}
}

func TestGetCategoryForPlainError(t *testing.T) {
	if got := GetCategory(stderrors.New("plain")); got != CategoryInternal {
		t.Fatalf("plain errors should map to internal, got %s", got)
	}
	if IsRetryable(stderrors.New("plain")) {
		t.Fatal("plain errors are not retryable")
	}
}

func TestConstructors(t *testing.T) {
	cases := []struct {
		err      *NotedownError
		category ErrorCategory
		severity ErrorSeverity
	}{
		{ValidationError("bad"), CategoryValidation, SeverityWarning},
		{IntegrityError("missing key"), CategoryIntegrity, SeverityError},
		{TimeoutError("slow"), CategoryTimeout, SeverityWarning},
		{ActionError(stderrors.New("click failed"), "align"), CategoryAction, SeverityWarning},
	}
	for _, c := range cases {
		if c.err.Category != c.category {
			t.Errorf("%s: category = %s, want %s", c.err.Message, c.err.Category, c.category)
		}
		if c.err.Severity != c.severity {
			t.Errorf("%s: severity = %s, want %s", c.err.Message, c.err.Severity, c.severity)
		}
	}
}

func TestRetryableWrap(t *testing.T) {
	cause := stderrors.New("connection reset")
	e := RetryableWrap(cause, CategoryNetwork, "embed key exchange failed")
	if !IsRetryable(e) {
		t.Fatal("expected retryable error")
	}
	if !stderrors.Is(e, cause) {
		t.Fatal("wrapped cause not reachable via errors.Is")
	}
	if !IsCategory(e, CategoryNetwork) {
		t.Fatal("expected network category")
	}
}

func TestWithContext(t *testing.T) {
	e := ValidationError("unsupported embed URL").WithContext("url", "https://example.com")
	if e.Context["url"] != "https://example.com" {
		t.Fatal("context field not recorded")
	}
}
