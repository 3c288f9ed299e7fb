package resolve

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/notedown/internal/document"
	"git.home.luguber.info/inful/notedown/internal/errors"
	"git.home.luguber.info/inful/notedown/internal/placeholder"
	"git.home.luguber.info/inful/notedown/internal/surface"
)

// fakeSurface is a scripted in-memory editor. Embed submission behavior is
// configured per URL: "embed" materializes a native node, "link" leaves a
// plain hyperlink, anything else does nothing (so VERIFY times out).
type fakeSurface struct {
	text        string
	embeds      int
	images      int
	tocs        int
	links       map[string]int
	selection   string
	lastControl surface.Control
	clicks      []surface.Control
	typed       []string
	uploads     []string
	embedModes  map[string]string
	replaceNoop bool
}

func newFakeSurface(text string) *fakeSurface {
	return &fakeSurface{
		text:       text,
		links:      map[string]int{},
		embedModes: map[string]string{},
	}
}

func (f *fakeSurface) Text(context.Context) (string, error) { return f.text, nil }

func (f *fakeSurface) SelectText(_ context.Context, s string) error {
	if !strings.Contains(f.text, s) {
		return fmt.Errorf("selection target not found: %q", s)
	}
	f.selection = s
	return nil
}

func (f *fakeSurface) SetCaretBefore(_ context.Context, s string) error {
	if !strings.Contains(f.text, s) {
		return fmt.Errorf("caret target not found: %q", s)
	}
	return nil
}

func (f *fakeSurface) ReplaceText(_ context.Context, old, new string) error {
	if f.replaceNoop {
		return nil
	}
	if !strings.Contains(f.text, old) {
		return fmt.Errorf("replacement target not found: %q", old)
	}
	f.text = strings.Replace(f.text, old, new, 1)
	return nil
}

func (f *fakeSurface) TypeText(_ context.Context, s string) error {
	f.typed = append(f.typed, s)
	return nil
}

func (f *fakeSurface) PressKey(_ context.Context, _ string) error {
	if f.lastControl == surface.ControlEmbedMenu {
		switch f.embedModes[f.selection] {
		case "embed":
			f.text = strings.Replace(f.text, f.selection, "", 1)
			f.embeds++
		case "link":
			f.links[f.selection]++
		}
	}
	return nil
}

func (f *fakeSurface) Click(_ context.Context, c surface.Control) error {
	f.lastControl = c
	f.clicks = append(f.clicks, c)
	if c == surface.ControlTOCInsert {
		f.tocs++
	}
	return nil
}

func (f *fakeSurface) UploadFile(_ context.Context, path string) error {
	f.uploads = append(f.uploads, path)
	f.images++
	return nil
}

func (f *fakeSurface) NodeCount(_ context.Context, kind surface.NodeKind) (int, error) {
	switch kind {
	case surface.NodeEmbed:
		return f.embeds, nil
	case surface.NodeImage:
		return f.images, nil
	case surface.NodeTOC:
		return f.tocs, nil
	}
	return 0, fmt.Errorf("unknown node kind %q", kind)
}

func (f *fakeSurface) LinkCount(_ context.Context, url string) (int, error) {
	return f.links[url], nil
}

type stubFiles struct {
	path     string
	err      error
	resolved []string
	cleaned  bool
}

func (s *stubFiles) Resolve(_ context.Context, payload string) (string, func(), error) {
	if s.err != nil {
		return "", nil, s.err
	}
	s.resolved = append(s.resolved, payload)
	return s.path, func() { s.cleaned = true }, nil
}

func testConfig() Config {
	return Config{
		MaxIterations: 20,
		PollInterval:  time.Millisecond,
		EmbedTimeout:  50 * time.Millisecond,
		ImageTimeout:  50 * time.Millisecond,
		AlignTimeout:  50 * time.Millisecond,
		TOCTimeout:    50 * time.Millisecond,
	}
}

func TestEngineResolvesEmbed(t *testing.T) {
	url := "https://youtu.be/abc123"
	fake := newFakeSurface("intro\n" + placeholder.Embed(url) + "\noutro")
	fake.embedModes[url] = "embed"

	eng := New(fake, WithConfig(testConfig()))
	results, err := eng.ResolveClass(context.Background(), placeholder.ClassEmbed)
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, document.OutcomeResolved, results[0].Outcome)
	assert.Equal(t, url, results[0].Payload)
	assert.NotContains(t, fake.text, "§§")
	assert.Equal(t, 1, fake.embeds)
}

func TestEngineEmbedDegradesToLink(t *testing.T) {
	url := "https://note.com/writer/n/n1234"
	fake := newFakeSurface(placeholder.Embed(url))
	fake.embedModes[url] = "link"

	eng := New(fake, WithConfig(testConfig()))
	results, err := eng.ResolveClass(context.Background(), placeholder.ClassEmbed)
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, document.OutcomeLinkDegraded, results[0].Outcome)
	assert.Equal(t, 0, fake.embeds)
}

func TestEngineEmbedFailureFallsBackAndContinues(t *testing.T) {
	bad := "https://youtu.be/broken"
	good := "https://youtu.be/working"
	fake := newFakeSurface(placeholder.Embed(bad) + "\n" + placeholder.Embed(good))
	fake.embedModes[good] = "embed"
	// bad has no mode: submitting it does nothing, VERIFY times out

	eng := New(fake, WithConfig(testConfig()))
	results, err := eng.ResolveClass(context.Background(), placeholder.ClassEmbed)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, document.OutcomeFailed, results[0].Outcome)
	assert.Equal(t, bad, results[0].Payload)
	assert.True(t, errors.IsCategory(results[0].Err, errors.CategoryTimeout))
	assert.Equal(t, document.OutcomeResolved, results[1].Outcome)

	// fallback text is the literal URL, token delimiters gone
	assert.Contains(t, fake.text, bad)
	assert.NotContains(t, fake.text, "§§")
}

func TestEngineResolvesImage(t *testing.T) {
	fake := newFakeSurface("above\n" + placeholder.Image("a chart", "./chart.png") + "\nbelow")
	files := &stubFiles{path: "/tmp/chart.png"}

	eng := New(fake, WithConfig(testConfig()), WithFileResolver(files))
	results, err := eng.ResolveClass(context.Background(), placeholder.ClassImage)
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, document.OutcomeResolved, results[0].Outcome)
	assert.Equal(t, []string{"./chart.png"}, files.resolved)
	assert.Equal(t, []string{"/tmp/chart.png"}, fake.uploads)
	assert.Equal(t, []string{"a chart"}, fake.typed, "caption typed after upload")
	assert.True(t, files.cleaned, "temp file cleanup invoked")
	assert.NotContains(t, fake.text, "§§")
}

func TestEngineImagePayloadErrorFallsBack(t *testing.T) {
	fake := newFakeSurface(placeholder.Image("alt", "bad.bmp"))
	files := &stubFiles{err: errors.ValidationError("unsupported image file type")}

	eng := New(fake, WithConfig(testConfig()), WithFileResolver(files))
	results, err := eng.ResolveClass(context.Background(), placeholder.ClassImage)
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, document.OutcomeFailed, results[0].Outcome)
	assert.Equal(t, "![alt](bad.bmp)", fake.text, "fallback is Markdown image notation")
}

func TestEngineResolvesAlignment(t *testing.T) {
	fake := newFakeSurface(placeholder.Align(placeholder.AlignCenter, "centered words"))

	eng := New(fake, WithConfig(testConfig()))
	results, err := eng.ResolveClass(context.Background(), placeholder.ClassAlign)
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, document.OutcomeResolved, results[0].Outcome)
	assert.Equal(t, "centered words", fake.text)
	assert.Contains(t, fake.clicks, surface.ControlAlignMenu)
	assert.Contains(t, fake.clicks, surface.ControlAlignCenter)
}

func TestEngineResolvesTOC(t *testing.T) {
	fake := newFakeSurface(placeholder.TOC() + "\nbody")

	eng := New(fake, WithConfig(testConfig()))
	results, err := eng.ResolveClass(context.Background(), placeholder.ClassTOC)
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, document.OutcomeResolved, results[0].Outcome)
	assert.Equal(t, 1, fake.tocs)
	assert.NotContains(t, fake.text, "§§")
}

func TestEngineFirstOccurrenceOrder(t *testing.T) {
	first := "https://youtu.be/first"
	second := "https://youtu.be/second"
	fake := newFakeSurface(placeholder.Embed(first) + "\n" + placeholder.Embed(second))
	fake.embedModes[first] = "embed"
	fake.embedModes[second] = "embed"

	eng := New(fake, WithConfig(testConfig()))
	results, err := eng.ResolveClass(context.Background(), placeholder.ClassEmbed)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, first, results[0].Payload)
	assert.Equal(t, second, results[1].Payload)
}

func TestEngineBoundedTermination(t *testing.T) {
	// The surface never satisfies VERIFY and refuses every mutation, so the
	// same placeholder is found on every scan. The iteration cap is the only
	// thing that stops the loop.
	fake := newFakeSurface(placeholder.Align(placeholder.AlignRight, "stuck"))
	fake.replaceNoop = true

	cfg := testConfig()
	cfg.MaxIterations = 3
	eng := New(fake, WithConfig(cfg))

	done := make(chan struct{})
	var results []document.PlaceholderResult
	go func() {
		results, _ = eng.ResolveClass(context.Background(), placeholder.ClassAlign)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("engine did not terminate within the iteration cap")
	}

	assert.Len(t, results, 3)
	for _, r := range results {
		assert.Equal(t, document.OutcomeFailed, r.Outcome)
	}
}

func TestEngineResolveAllSummary(t *testing.T) {
	embedded := "https://youtu.be/ok"
	linked := "https://note.com/u/n/n99"
	fake := newFakeSurface(strings.Join([]string{
		placeholder.TOC(),
		placeholder.Embed(embedded),
		placeholder.Embed(linked),
		placeholder.Image("pic", "./p.png"),
		placeholder.Align(placeholder.AlignLeft, "left text"),
	}, "\n"))
	fake.embedModes[embedded] = "embed"
	fake.embedModes[linked] = "link"

	eng := New(fake, WithConfig(testConfig()), WithFileResolver(&stubFiles{path: "/tmp/p.png"}))
	sum, err := eng.ResolveAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, sum.Resolved()) // embed, image, align, toc
	assert.Equal(t, 1, sum.LinkDegraded())
	assert.Equal(t, 0, sum.Failed())
	assert.NotContains(t, fake.text, "§§")
}

func TestEngineContextCancellation(t *testing.T) {
	fake := newFakeSurface(placeholder.Embed("https://youtu.be/x"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	eng := New(fake, WithConfig(testConfig()))
	_, err := eng.ResolveClass(ctx, placeholder.ClassEmbed)
	assert.ErrorIs(t, err, context.Canceled)
}
