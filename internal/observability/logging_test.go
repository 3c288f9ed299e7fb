package observability

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func contains(s, sub string) bool { return strings.Contains(s, sub) }

func TestWithDocumentID(t *testing.T) {
	ctx := context.Background()
	ctx = WithDocumentID(ctx, "doc-123")

	lc := GetContext(ctx)
	if lc.DocumentID != "doc-123" {
		t.Errorf("expected doc-123, got %s", lc.DocumentID)
	}
}

func TestWithClass(t *testing.T) {
	ctx := context.Background()
	ctx = WithClass(ctx, "EMBED")

	lc := GetContext(ctx)
	if lc.Class != "EMBED" {
		t.Errorf("expected EMBED, got %s", lc.Class)
	}
}

func TestWithStage(t *testing.T) {
	ctx := context.Background()
	ctx = WithStage(ctx, "verify")

	lc := GetContext(ctx)
	if lc.Stage != "verify" {
		t.Errorf("expected verify, got %s", lc.Stage)
	}
}

func TestMultipleContextValues(t *testing.T) {
	ctx := context.Background()
	ctx = WithDocumentID(ctx, "doc-1")
	ctx = WithClass(ctx, "IMAGE")
	ctx = WithStage(ctx, "materialize")
	ctx = WithTraceID(ctx, "trace-1")

	lc := GetContext(ctx)

	if lc.DocumentID != "doc-1" {
		t.Error("expected doc-1")
	}
	if lc.Class != "IMAGE" {
		t.Error("expected IMAGE")
	}
	if lc.Stage != "materialize" {
		t.Error("expected materialize")
	}
	if lc.TraceID != "trace-1" {
		t.Error("expected trace-1")
	}
}

func TestOverwriteContextValue(t *testing.T) {
	ctx := context.Background()
	ctx = WithDocumentID(ctx, "doc-1")
	ctx = WithDocumentID(ctx, "doc-2")

	lc := GetContext(ctx)
	if lc.DocumentID != "doc-2" {
		t.Errorf("expected doc-2, got %s", lc.DocumentID)
	}
}

func TestEmptyContext(t *testing.T) {
	ctx := context.Background()
	lc := GetContext(ctx)

	if lc.DocumentID != "" || lc.Class != "" || lc.Stage != "" {
		t.Error("expected empty context")
	}
}

func TestInfoContext(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, nil)
	logger := slog.New(handler)
	slog.SetDefault(logger)

	ctx := context.Background()
	ctx = WithDocumentID(ctx, "doc-1")
	ctx = WithClass(ctx, "EMBED")

	InfoContext(ctx, "test message", slog.String("extra", "value"))

	output := buf.String()
	if !contains(output, "doc-1") {
		t.Error("expected doc-1 in log output")
	}
	if !contains(output, "EMBED") {
		t.Error("expected EMBED in log output")
	}
	if !contains(output, "test message") {
		t.Error("expected message in log output")
	}
}

func TestWarnContext(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, nil)
	logger := slog.New(handler)
	slog.SetDefault(logger)

	ctx := context.Background()
	ctx = WithStage(ctx, "verify")

	WarnContext(ctx, "warning message", slog.String("reason", "timeout"))

	output := buf.String()
	if !contains(output, "verify") {
		t.Error("expected stage in log output")
	}
	if !contains(output, "warning message") {
		t.Error("expected message in log output")
	}
}

func TestErrorContext(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, nil)
	logger := slog.New(handler)
	slog.SetDefault(logger)

	ctx := context.Background()
	ctx = WithDocumentID(ctx, "doc-error")
	ctx = WithTraceID(ctx, "trace-error")

	ErrorContext(ctx, "error occurred", slog.String("error", "connection failed"))

	output := buf.String()
	if !contains(output, "doc-error") {
		t.Error("expected doc-error in log output")
	}
	if !contains(output, "trace-error") {
		t.Error("expected trace-error in log output")
	}
}

func TestLogBuilder(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, nil)
	logger := slog.New(handler)
	slog.SetDefault(logger)

	ctx := context.Background()
	ctx = WithDocumentID(ctx, "doc-1")

	lb := NewLogBuilder(ctx)
	lb.With("operation", "resolve").With("duration_ms", 150).Info("operation completed")

	output := buf.String()
	if !contains(output, "doc-1") {
		t.Error("expected doc-1 in log output")
	}
	if !contains(output, "resolve") {
		t.Error("expected operation in log output")
	}
	if !contains(output, "150") {
		t.Error("expected duration in log output")
	}
}

func TestContextIsolation(t *testing.T) {
	ctx1 := context.Background()
	ctx1 = WithDocumentID(ctx1, "doc-1")

	ctx2 := context.Background()
	ctx2 = WithDocumentID(ctx2, "doc-2")

	lc1 := GetContext(ctx1)
	lc2 := GetContext(ctx2)

	if lc1.DocumentID != "doc-1" {
		t.Error("context1 modified")
	}
	if lc2.DocumentID != "doc-2" {
		t.Error("context2 modified")
	}
}

func TestGetLogAttrsSkipsEmptyFields(t *testing.T) {
	ctx := context.Background()
	ctx = WithDocumentID(ctx, "doc-1")
	ctx = WithClass(ctx, "ALIGN")

	attrs := getLogAttrs(ctx)

	if len(attrs) != 2 {
		t.Errorf("expected 2 attributes, got %d", len(attrs))
	}

	keys := ""
	for _, attr := range attrs {
		keys += attr.Key
	}
	if !contains(keys, "document.id") {
		t.Error("expected document.id attribute")
	}
	if !contains(keys, "class") {
		t.Error("expected class attribute")
	}
	if contains(keys, "stage") {
		t.Error("unexpected stage attribute when not set")
	}
}
