// Package markup converts Markdown to note.com's native ProseMirror-flavored
// HTML and back. The encoder is a pure transform: it never fails on malformed
// input, degrading to plain text or links instead.
package markup

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	ghtml "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"

	"git.home.luguber.info/inful/notedown/internal/placeholder"
)

// Options controls which document features the encoder defers to live-surface
// placeholders instead of expressing as static markup. The API accepts embed
// figures directly, but images and embeds inserted through the editor need
// the placeholder path.
type Options struct {
	// DeferEmbeds emits §§EMBED:url§§ paragraphs for stand-alone supported
	// URLs instead of embed figures.
	DeferEmbeds bool
	// DeferImages emits §§IMAGE:alt||path§§ paragraphs instead of image
	// figures. Required for local file paths, which only the editor's
	// upload affordance can resolve.
	DeferImages bool
}

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.Strikethrough),
	goldmark.WithRendererOptions(ghtml.WithUnsafe()),
)

// Encode converts Markdown to note.com markup with default options.
func Encode(source string) (string, error) {
	return EncodeWithOptions(source, Options{})
}

// EncodeWithOptions converts Markdown to note.com markup.
func EncodeWithOptions(source string, opts Options) (string, error) {
	if strings.TrimSpace(source) == "" {
		return "", nil
	}

	src := norm.NFC.String(source)
	src = convertRuby(src)
	src = captureTOC(src)
	src = expandTickers(src)
	src = expandAlignment(src)

	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", err
	}

	nodes, err := parseFragment(buf.String())
	if err != nil {
		return "", err
	}

	p := postProcessor{opts: opts}
	nodes = p.run(nodes)

	return renderNodes(nodes), nil
}

// ---- Markdown pre-passes -------------------------------------------------

// Ruby notation: ｜漢字《かんじ》, |漢字《かんじ》 or 漢字《かんじ》.
// Converted to <ruby> markup before rendering; the decoder treats the result
// as opaque text.
var rubyPattern = regexp.MustCompile(`[｜|]?([\x{4E00}-\x{9FAF}\x{3041}-\x{3093}\x{30A1}-\x{30F6}\x{30FC}]+)《([^》]+)》`)

func convertRuby(src string) string {
	return rubyPattern.ReplaceAllString(src, "<ruby>$1<rp>（</rp><rt>$2</rt><rp>）</rp></ruby>")
}

// captureTOC converts the first stand-alone [TOC] line into the TOC
// placeholder and drops every later one. The marker must be the whole line.
func captureTOC(src string) string {
	lines := strings.Split(src, "\n")
	out := make([]string, 0, len(lines))
	captured := false
	walkOutsideFences(lines, func(i int, inFence bool) {
		line := lines[i]
		if !inFence && strings.TrimSpace(line) == "[TOC]" {
			if captured {
				return // drop later markers entirely
			}
			captured = true
			line = placeholder.TOC()
		}
		out = append(out, line)
	})
	return strings.Join(out, "\n")
}

// Stock-ticker notation on a line of its own: ^NNNN is a Japanese security
// code, $SYM a US symbol. Both expand to the canonical money.note.com URL so
// the stand-alone-URL embed pass picks them up.
var (
	tickerJPPattern = regexp.MustCompile(`^\^(\d{4})$`)
	tickerUSPattern = regexp.MustCompile(`^\$([A-Z]{1,6})$`)
)

func expandTickers(src string) string {
	lines := strings.Split(src, "\n")
	walkOutsideFences(lines, func(i int, inFence bool) {
		if inFence {
			return
		}
		trimmed := strings.TrimSpace(lines[i])
		if m := tickerJPPattern.FindStringSubmatch(trimmed); m != nil {
			lines[i] = "https://money.note.com/companies/" + m[1]
		} else if m := tickerUSPattern.FindStringSubmatch(trimmed); m != nil {
			lines[i] = "https://money.note.com/us-companies/" + m[1]
		}
	})
	return strings.Join(lines, "\n")
}

// Alignment notation on a line of its own: ->x<- centers, ->x right-aligns,
// <-x left-aligns. The text is wrapped in ALIGN placeholder tokens so it
// stays editable in the live surface.
func expandAlignment(src string) string {
	lines := strings.Split(src, "\n")
	walkOutsideFences(lines, func(i int, inFence bool) {
		if inFence {
			return
		}
		trimmed := strings.TrimSpace(lines[i])
		switch {
		case strings.HasPrefix(trimmed, "->") && strings.HasSuffix(trimmed, "<-") && len(trimmed) > 4:
			lines[i] = placeholder.Align(placeholder.AlignCenter, trimmed[2:len(trimmed)-2])
		case strings.HasPrefix(trimmed, "->") && len(trimmed) > 2:
			lines[i] = placeholder.Align(placeholder.AlignRight, trimmed[2:])
		case strings.HasPrefix(trimmed, "<-") && len(trimmed) > 2 && !strings.HasPrefix(trimmed, "<--"):
			lines[i] = placeholder.Align(placeholder.AlignLeft, trimmed[2:])
		}
	})
	return strings.Join(lines, "\n")
}

// walkOutsideFences visits every line, tracking fenced code blocks so the
// notation passes can skip them.
func walkOutsideFences(lines []string, visit func(i int, inFence bool)) {
	inFence := false
	fence := ""
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if inFence {
			visit(i, true)
			if strings.HasPrefix(trimmed, fence) {
				inFence = false
			}
			continue
		}
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = true
			fence = trimmed[:3]
			visit(i, true)
			continue
		}
		visit(i, false)
	}
}

// renderNodes renders the processed fragment nodes back to markup text.
func renderNodes(nodes []*html.Node) string {
	var sb strings.Builder
	for _, n := range nodes {
		_ = html.Render(&sb, n)
	}
	return sb.String()
}
