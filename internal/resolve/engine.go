// Package resolve materializes deferred placeholders against a live editor
// surface. The engine runs a per-class SCAN, SELECT, MATERIALIZE, VERIFY
// loop with per-item failure isolation: a failed placeholder becomes inert
// fallback text and resolution continues with the next one.
package resolve

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"git.home.luguber.info/inful/notedown/internal/document"
	"git.home.luguber.info/inful/notedown/internal/errors"
	"git.home.luguber.info/inful/notedown/internal/images"
	"git.home.luguber.info/inful/notedown/internal/metrics"
	"git.home.luguber.info/inful/notedown/internal/observability"
	"git.home.luguber.info/inful/notedown/internal/placeholder"
	"git.home.luguber.info/inful/notedown/internal/surface"
)

// FileResolver turns an IMAGE payload into a local file path. Satisfied by
// *images.Resolver.
type FileResolver interface {
	Resolve(ctx context.Context, payload string) (string, func(), error)
}

// Config bounds the resolution loops. Timeouts differ per class: an image
// upload tolerates a far longer wait than an alignment selection.
type Config struct {
	// MaxIterations caps each per-class loop.
	MaxIterations int
	// PollInterval is the VERIFY re-check interval.
	PollInterval time.Duration

	EmbedTimeout time.Duration
	ImageTimeout time.Duration
	AlignTimeout time.Duration
	TOCTimeout   time.Duration
}

// DefaultConfig returns the production bounds.
func DefaultConfig() Config {
	return Config{
		MaxIterations: 20,
		PollInterval:  250 * time.Millisecond,
		EmbedTimeout:  15 * time.Second,
		ImageTimeout:  60 * time.Second,
		AlignTimeout:  5 * time.Second,
		TOCTimeout:    10 * time.Second,
	}
}

// classOrder is the order ResolveAll works through. Within one class the
// scanner yields first-occurrence document order.
var classOrder = []placeholder.Class{
	placeholder.ClassEmbed,
	placeholder.ClassImage,
	placeholder.ClassAlign,
	placeholder.ClassTOC,
}

// Engine drives one live surface. The surface is exclusively owned by the
// in-progress call; callers must not run two resolutions against the same
// surface concurrently.
type Engine struct {
	drv   surface.Driver
	files FileResolver
	rec   metrics.Recorder
	cfg   Config
}

// Option configures an Engine.
type Option func(*Engine)

// WithFileResolver replaces the IMAGE payload resolver.
func WithFileResolver(f FileResolver) Option {
	return func(e *Engine) { e.files = f }
}

// WithRecorder injects a metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(e *Engine) { e.rec = r }
}

// WithConfig overrides the default bounds.
func WithConfig(cfg Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// New creates an Engine over the given driver.
func New(drv surface.Driver, opts ...Option) *Engine {
	e := &Engine{
		drv:   drv,
		files: images.NewResolver(),
		rec:   metrics.NoopRecorder{},
		cfg:   DefaultConfig(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ResolveAll resolves every placeholder class and returns the aggregate
// summary. Per-item failures are recorded in the summary, never returned as
// an error; the returned error is non-nil only when the surface itself
// becomes unusable or ctx is canceled.
func (e *Engine) ResolveAll(ctx context.Context) (document.Summary, error) {
	ctx, span := observability.GetGlobalTracer().StartResolveSpan(ctx, observability.GetContext(ctx).DocumentID)
	start := time.Now()
	var sum document.Summary
	var loopErr error
	for _, class := range classOrder {
		results, err := e.ResolveClass(ctx, class)
		for _, r := range results {
			sum.Add(r)
		}
		if err != nil {
			loopErr = err
			break
		}
	}
	observability.EndSpan(span, loopErr)
	if loopErr != nil {
		return sum, loopErr
	}
	e.rec.ObserveResolveDuration(time.Since(start))
	observability.InfoContext(ctx, "resolution finished", slog.String("summary", sum.String()))
	return sum, nil
}

// ResolveClass resolves every placeholder of one class in first-occurrence
// order. Each iteration re-reads the document text: positions from before a
// mutation are never reused.
func (e *Engine) ResolveClass(ctx context.Context, class placeholder.Class) ([]document.PlaceholderResult, error) {
	ctx = observability.WithClass(ctx, string(class))
	ctx, span := observability.GetGlobalTracer().StartClassSpan(ctx, string(class), observability.GetContext(ctx).DocumentID)
	defer span.End()
	start := time.Now()
	defer func() { e.rec.ObserveClassDuration(string(class), time.Since(start)) }()

	var results []document.PlaceholderResult
	for i := 0; i < e.cfg.MaxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		text, err := e.drv.Text(ctx)
		if err != nil {
			return results, errors.ActionError(err, "read document text")
		}
		tok, ok := placeholder.NewClassScanner(text, class).Next()
		if !ok {
			return results, nil
		}

		res := e.resolveOne(ctx, tok)
		if res.Outcome == document.OutcomeFailed {
			e.applyFallback(ctx, tok)
		}
		e.rec.IncPlaceholderOutcome(string(class), outcomeLabel(res.Outcome))
		results = append(results, res)
	}

	observability.WarnContext(ctx, "iteration cap reached with placeholders remaining",
		slog.Int("cap", e.cfg.MaxIterations))
	return results, nil
}

func (e *Engine) resolveOne(ctx context.Context, tok placeholder.Token) document.PlaceholderResult {
	res := document.PlaceholderResult{
		Class:   string(tok.Class),
		Token:   tok.Literal(),
		Payload: payloadOf(tok),
	}

	var outcome document.Outcome
	var err error
	switch tok.Class {
	case placeholder.ClassEmbed:
		outcome, err = e.materializeEmbed(ctx, tok)
	case placeholder.ClassImage:
		outcome, err = e.materializeImage(ctx, tok)
	case placeholder.ClassAlign:
		outcome, err = e.materializeAlign(ctx, tok)
	case placeholder.ClassTOC:
		outcome, err = e.materializeTOC(ctx, tok)
	default:
		err = errors.ValidationError("unknown placeholder class").WithContext("class", string(tok.Class))
	}

	if err != nil {
		res.Outcome = document.OutcomeFailed
		res.Err = err
		observability.WarnContext(ctx, "placeholder failed, converting to fallback",
			slog.String("payload", res.Payload),
			slog.String("error", err.Error()))
		return res
	}
	res.Outcome = outcome
	return res
}

// applyFallback replaces a failed placeholder with its inert fallback text
// so the next scan moves on. Embeds already degraded in place (their token
// was replaced by the URL during materialization) are left alone.
func (e *Engine) applyFallback(ctx context.Context, tok placeholder.Token) {
	text, err := e.drv.Text(ctx)
	if err != nil {
		observability.ErrorContext(ctx, "cannot read text for fallback", slog.String("error", err.Error()))
		return
	}
	if !strings.Contains(text, tok.Literal()) {
		return
	}
	if err := e.drv.ReplaceText(ctx, tok.Literal(), tok.Fallback()); err != nil {
		observability.ErrorContext(ctx, "fallback replacement failed", slog.String("error", err.Error()))
	}
}

// materializeEmbed replaces the token with its URL, then asks the editor to
// embed it. A native embed node and a plain hyperlink are both terminal
// successes; an invalid URL simply stays as link text, which doubles as the
// fallback.
func (e *Engine) materializeEmbed(ctx context.Context, tok placeholder.Token) (document.Outcome, error) {
	ctx = observability.WithStage(ctx, "materialize")

	before, err := e.drv.NodeCount(ctx, surface.NodeEmbed)
	if err != nil {
		return "", errors.ActionError(err, "count embed nodes")
	}
	if err := e.drv.SelectText(ctx, tok.Literal()); err != nil {
		return "", errors.ActionError(err, "select embed placeholder")
	}
	if err := e.drv.ReplaceText(ctx, tok.Literal(), tok.URL); err != nil {
		return "", errors.ActionError(err, "replace placeholder with url")
	}
	if err := e.drv.SelectText(ctx, tok.URL); err != nil {
		return "", errors.ActionError(err, "select embed url")
	}
	if err := e.drv.Click(ctx, surface.ControlEmbedMenu); err != nil {
		return "", errors.ActionError(err, "open embed menu")
	}
	if err := e.drv.PressKey(ctx, "Enter"); err != nil {
		return "", errors.ActionError(err, "submit embed")
	}

	ctx = observability.WithStage(ctx, "verify")
	degraded := false
	err = pollUntil(ctx, e.cfg.EmbedTimeout, e.cfg.PollInterval, func(ctx context.Context) (bool, error) {
		n, err := e.drv.NodeCount(ctx, surface.NodeEmbed)
		if err != nil {
			return false, errors.ActionError(err, "count embed nodes")
		}
		if n > before {
			degraded = false
			return true, nil
		}
		links, err := e.drv.LinkCount(ctx, tok.URL)
		if err != nil {
			return false, errors.ActionError(err, "count links")
		}
		if links > 0 {
			degraded = true
			return true, nil
		}
		return false, nil
	})
	if err != nil {
		return "", err
	}
	if degraded {
		return document.OutcomeLinkDegraded, nil
	}
	return document.OutcomeResolved, nil
}

// materializeImage resolves the payload to a local file, removes the token,
// and feeds the file through the editor's upload affordance. Success is an
// image-node count increase; an optional alt text is typed into the new
// caption node.
func (e *Engine) materializeImage(ctx context.Context, tok placeholder.Token) (document.Outcome, error) {
	ctx = observability.WithStage(ctx, "materialize")

	local, cleanup, err := e.files.Resolve(ctx, tok.Path)
	if err != nil {
		return "", err
	}
	defer cleanup()

	before, err := e.drv.NodeCount(ctx, surface.NodeImage)
	if err != nil {
		return "", errors.ActionError(err, "count image nodes")
	}
	if err := e.drv.SelectText(ctx, tok.Literal()); err != nil {
		return "", errors.ActionError(err, "select image placeholder")
	}
	if err := e.drv.ReplaceText(ctx, tok.Literal(), ""); err != nil {
		return "", errors.ActionError(err, "remove image placeholder")
	}
	if err := e.drv.Click(ctx, surface.ControlImageInsert); err != nil {
		return "", errors.ActionError(err, "open image insert")
	}
	if err := e.drv.UploadFile(ctx, local); err != nil {
		return "", errors.ActionError(err, "upload image file")
	}

	ctx = observability.WithStage(ctx, "verify")
	err = pollUntil(ctx, e.cfg.ImageTimeout, e.cfg.PollInterval, func(ctx context.Context) (bool, error) {
		n, err := e.drv.NodeCount(ctx, surface.NodeImage)
		if err != nil {
			return false, errors.ActionError(err, "count image nodes")
		}
		return n > before, nil
	})
	if err != nil {
		return "", err
	}

	if tok.Alt != "" {
		if err := e.drv.TypeText(ctx, tok.Alt); err != nil {
			return "", errors.ActionError(err, "type image caption")
		}
	}
	return document.OutcomeResolved, nil
}

// materializeAlign selects the wrapped span, applies the matching alignment
// control, then rewrites the text dropping the wrapper tokens.
func (e *Engine) materializeAlign(ctx context.Context, tok placeholder.Token) (document.Outcome, error) {
	ctx = observability.WithStage(ctx, "materialize")

	control, ok := alignControls[tok.Alignment]
	if !ok {
		return "", errors.ValidationError("unknown alignment").WithContext("alignment", string(tok.Alignment))
	}
	if err := e.drv.SelectText(ctx, tok.Literal()); err != nil {
		return "", errors.ActionError(err, "select aligned span")
	}
	if err := e.drv.Click(ctx, surface.ControlAlignMenu); err != nil {
		return "", errors.ActionError(err, "open alignment menu")
	}
	if err := e.drv.Click(ctx, control); err != nil {
		return "", errors.ActionError(err, "choose alignment")
	}
	if err := e.drv.ReplaceText(ctx, tok.Literal(), tok.Text); err != nil {
		return "", errors.ActionError(err, "strip alignment tokens")
	}

	ctx = observability.WithStage(ctx, "verify")
	err := pollUntil(ctx, e.cfg.AlignTimeout, e.cfg.PollInterval, func(ctx context.Context) (bool, error) {
		text, err := e.drv.Text(ctx)
		if err != nil {
			return false, errors.ActionError(err, "read document text")
		}
		return !strings.Contains(text, tok.Literal()), nil
	})
	if err != nil {
		return "", err
	}
	return document.OutcomeResolved, nil
}

var alignControls = map[placeholder.Alignment]surface.Control{
	placeholder.AlignCenter: surface.ControlAlignCenter,
	placeholder.AlignRight:  surface.ControlAlignRight,
	placeholder.AlignLeft:   surface.ControlAlignLeft,
}

// materializeTOC removes the token and inserts the native TOC node at its
// place via the insertion menu. The encoder emits at most one TOC token per
// document.
func (e *Engine) materializeTOC(ctx context.Context, tok placeholder.Token) (document.Outcome, error) {
	ctx = observability.WithStage(ctx, "materialize")

	before, err := e.drv.NodeCount(ctx, surface.NodeTOC)
	if err != nil {
		return "", errors.ActionError(err, "count toc nodes")
	}
	if err := e.drv.SetCaretBefore(ctx, tok.Literal()); err != nil {
		return "", errors.ActionError(err, "place caret at toc placeholder")
	}
	if err := e.drv.ReplaceText(ctx, tok.Literal(), ""); err != nil {
		return "", errors.ActionError(err, "remove toc placeholder")
	}
	if err := e.drv.Click(ctx, surface.ControlInsertMenu); err != nil {
		return "", errors.ActionError(err, "open insertion menu")
	}
	if err := e.drv.Click(ctx, surface.ControlTOCInsert); err != nil {
		return "", errors.ActionError(err, "insert toc")
	}

	ctx = observability.WithStage(ctx, "verify")
	err = pollUntil(ctx, e.cfg.TOCTimeout, e.cfg.PollInterval, func(ctx context.Context) (bool, error) {
		n, err := e.drv.NodeCount(ctx, surface.NodeTOC)
		if err != nil {
			return false, errors.ActionError(err, "count toc nodes")
		}
		return n > before, nil
	})
	if err != nil {
		return "", err
	}
	return document.OutcomeResolved, nil
}

func payloadOf(tok placeholder.Token) string {
	switch tok.Class {
	case placeholder.ClassEmbed:
		return tok.URL
	case placeholder.ClassImage:
		return tok.Path
	case placeholder.ClassAlign:
		return tok.Text
	default:
		return ""
	}
}

func outcomeLabel(o document.Outcome) metrics.OutcomeLabel {
	switch o {
	case document.OutcomeResolved:
		return metrics.OutcomeResolved
	case document.OutcomeLinkDegraded:
		return metrics.OutcomeLinkDegraded
	default:
		return metrics.OutcomeFailed
	}
}
