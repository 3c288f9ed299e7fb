package markup

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/notedown/internal/placeholder"
)

// Decode converts note.com markup back to Markdown. It is the structural
// inverse of the encoder's platform-shape wrapping, requires no encoder-side
// state, and is idempotent on text that is already plain.
func Decode(markup string) (string, error) {
	if strings.TrimSpace(markup) == "" {
		return "", nil
	}
	nodes, err := parseFragment(markup)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, n := range nodes {
		decodeBlock(&sb, n, 0)
	}

	out := sb.String()
	out = collapseBlankLines(out)
	return strings.TrimSpace(out), nil
}

var blankRunPattern = regexp.MustCompile(`\n{3,}`)

func collapseBlankLines(s string) string {
	return blankRunPattern.ReplaceAllString(s, "\n\n")
}

func decodeBlock(sb *strings.Builder, n *html.Node, listDepth int) {
	switch n.Type {
	case html.TextNode:
		if strings.TrimSpace(n.Data) != "" {
			sb.WriteString(n.Data)
		}
		return
	case html.ElementNode:
	default:
		return
	}

	switch n.Data {
	case "p":
		text := restorePlaceholders(decodeInline(n))
		if strings.TrimSpace(text) != "" {
			sb.WriteString(strings.TrimSpace(text))
			sb.WriteString("\n\n")
		}
	case "h1", "h2", "h3", "h4", "h5", "h6":
		level := int(n.Data[1] - '0')
		sb.WriteString(strings.Repeat("#", level))
		sb.WriteString(" ")
		sb.WriteString(strings.TrimSpace(decodeInline(n)))
		sb.WriteString("\n\n")
	case "ul":
		decodeList(sb, n, false, listDepth)
		if listDepth == 0 {
			sb.WriteString("\n")
		}
	case "ol":
		decodeList(sb, n, true, listDepth)
		if listDepth == 0 {
			sb.WriteString("\n")
		}
	case "pre":
		decodeCodeBlock(sb, n)
	case "hr":
		sb.WriteString("---\n\n")
	case "figure":
		decodeFigure(sb, n)
	case "blockquote":
		decodeBlockquote(sb, n, nil)
	case "nav":
		// A materialized native TOC node decodes back to the marker.
		sb.WriteString("[TOC]\n\n")
	default:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			decodeBlock(sb, c, listDepth)
		}
	}
}

// restorePlaceholders turns placeholder tokens back into their Markdown
// notation so decode inverts the deferred-encoding path too.
func restorePlaceholders(text string) string {
	if !strings.Contains(text, "§§") {
		return text
	}
	var sb strings.Builder
	s := placeholder.NewScanner(text)
	pos := 0
	for {
		tok, ok := s.Next()
		if !ok {
			break
		}
		sb.WriteString(text[pos:tok.Start])
		switch tok.Class {
		case placeholder.ClassTOC:
			sb.WriteString("[TOC]")
		case placeholder.ClassEmbed:
			sb.WriteString(tok.URL)
		case placeholder.ClassImage:
			sb.WriteString(fmt.Sprintf("![%s](%s)", tok.Alt, tok.Path))
		case placeholder.ClassAlign:
			switch tok.Alignment {
			case placeholder.AlignCenter:
				sb.WriteString("->" + tok.Text + "<-")
			case placeholder.AlignRight:
				sb.WriteString("->" + tok.Text)
			case placeholder.AlignLeft:
				sb.WriteString("<-" + tok.Text)
			}
		}
		pos = tok.End
	}
	sb.WriteString(text[pos:])
	return sb.String()
}

// decodeList renders ul/ol with two-space indentation per nesting level.
// Nesting is resolved through the DOM, so same-name tags inside list items
// can never be mismatched.
func decodeList(sb *strings.Builder, list *html.Node, ordered bool, depth int) {
	indent := strings.Repeat("  ", depth)
	counter := 1
	for li := list.FirstChild; li != nil; li = li.NextSibling {
		if li.Type != html.ElementNode || li.Data != "li" {
			continue
		}
		text := listItemText(li)
		if text != "" {
			if ordered {
				fmt.Fprintf(sb, "%s%d. %s\n", indent, counter, text)
				counter++
			} else {
				fmt.Fprintf(sb, "%s- %s\n", indent, text)
			}
		}
		for c := li.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && (c.Data == "ul" || c.Data == "ol") {
				decodeList(sb, c, c.Data == "ol", depth+1)
			}
		}
	}
}

// listItemText extracts the item's own inline text, unwrapping the paragraph
// wrapper and skipping nested lists.
func listItemText(li *html.Node) string {
	var parts []string
	for c := li.FirstChild; c != nil; c = c.NextSibling {
		switch {
		case c.Type == html.ElementNode && c.Data == "p":
			parts = append(parts, decodeInline(c))
		case c.Type == html.ElementNode && (c.Data == "ul" || c.Data == "ol"):
		case c.Type == html.TextNode:
			parts = append(parts, c.Data)
		case c.Type == html.ElementNode:
			parts = append(parts, decodeInlineNode(c))
		}
	}
	return strings.TrimSpace(strings.Join(parts, ""))
}

var fenceOpenPattern = regexp.MustCompile("^```[a-zA-Z0-9]*\n?")

// decodeCodeBlock reconstructs a fenced block, preserving internal newlines
// exactly and stripping any fence markers that leaked into the code body.
func decodeCodeBlock(sb *strings.Builder, pre *html.Node) {
	code := pre
	for c := pre.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == "code" {
			code = c
			break
		}
	}
	body := textContent(code)
	body = fenceOpenPattern.ReplaceAllString(body, "")
	body = strings.TrimSuffix(strings.TrimRight(body, " \n"), "```")
	body = strings.Trim(body, "\n")
	sb.WriteString("```\n")
	sb.WriteString(body)
	sb.WriteString("\n```\n\n")
}

func decodeFigure(sb *strings.Builder, fig *html.Node) {
	// Embed figures carry their source URL in data-src.
	if src := attrVal(fig, "data-src"); src != "" {
		sb.WriteString(src)
		sb.WriteString("\n\n")
		return
	}

	var bq, img, caption *html.Node
	for c := fig.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.Data {
		case "blockquote":
			bq = c
		case "img":
			img = c
		case "figcaption":
			caption = c
		}
	}

	switch {
	case bq != nil:
		decodeBlockquote(sb, bq, caption)
	case img != nil:
		alt := attrVal(img, "alt")
		src := attrVal(img, "src")
		captionText := ""
		if caption != nil {
			captionText = strings.TrimSpace(textContent(caption))
		}
		if captionText != "" {
			fmt.Fprintf(sb, "![%s](%s %q)\n\n", alt, src, captionText)
		} else {
			fmt.Fprintf(sb, "![%s](%s)\n\n", alt, src)
		}
	default:
		for c := fig.FirstChild; c != nil; c = c.NextSibling {
			decodeBlock(sb, c, 0)
		}
	}
}

// decodeBlockquote emits "> " prefixed lines, appending the figcaption as a
// trailing citation line when present.
func decodeBlockquote(sb *strings.Builder, bq *html.Node, caption *html.Node) {
	var lines []string
	for c := bq.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == "p" {
			text := decodeInline(c)
			for _, line := range strings.Split(text, "\n") {
				if strings.TrimSpace(line) != "" {
					lines = append(lines, strings.TrimSpace(line))
				}
			}
		}
	}

	if caption != nil {
		if a := lastElementChild(caption, "a"); a != nil {
			text := strings.TrimSpace(textContent(a))
			href := attrVal(a, "href")
			lines = append(lines, fmt.Sprintf("— %s (%s)", text, href))
		} else if text := strings.TrimSpace(textContent(caption)); text != "" {
			lines = append(lines, "— "+text)
		}
	}

	for _, line := range lines {
		sb.WriteString("> ")
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	if len(lines) > 0 {
		sb.WriteString("\n")
	}
}

// decodeInline converts the inline children of a node to Markdown
// punctuation. br becomes a newline; unknown tags contribute their text.
func decodeInline(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(decodeInlineNode(c))
	}
	return sb.String()
}

func decodeInlineNode(n *html.Node) string {
	switch n.Type {
	case html.TextNode:
		return n.Data
	case html.ElementNode:
	default:
		return ""
	}

	switch n.Data {
	case "strong", "b":
		return "**" + decodeInline(n) + "**"
	case "em", "i":
		return "*" + decodeInline(n) + "*"
	case "s", "del":
		return "~~" + decodeInline(n) + "~~"
	case "code":
		return "`" + textContent(n) + "`"
	case "a":
		text := decodeInline(n)
		href := attrVal(n, "href")
		if strings.TrimSpace(text) == href {
			return href
		}
		return fmt.Sprintf("[%s](%s)", text, href)
	case "br":
		return "\n"
	case "img":
		if title := attrVal(n, "title"); title != "" {
			return fmt.Sprintf("![%s](%s %q)", attrVal(n, "alt"), attrVal(n, "src"), title)
		}
		return fmt.Sprintf("![%s](%s)", attrVal(n, "alt"), attrVal(n, "src"))
	case "ruby":
		var base, reading strings.Builder
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch {
			case c.Type == html.TextNode:
				base.WriteString(c.Data)
			case c.Type == html.ElementNode && c.Data == "rt":
				reading.WriteString(textContent(c))
			case c.Type == html.ElementNode && c.Data == "rp":
			case c.Type == html.ElementNode:
				base.WriteString(textContent(c))
			}
		}
		if reading.Len() == 0 {
			return base.String()
		}
		return "｜" + base.String() + "《" + reading.String() + "》"
	default:
		// Opaque markup decays to its text content.
		return decodeInline(n)
	}
}
