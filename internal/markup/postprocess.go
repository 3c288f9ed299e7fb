package markup

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"git.home.luguber.info/inful/notedown/internal/embed"
	"git.home.luguber.info/inful/notedown/internal/placeholder"
)

// postProcessor rewrites the rendered CommonMark HTML into the block shapes
// note.com's editor persists: figure-wrapped images and blockquotes, embed
// figures, paragraph-wrapped list items, codeBlock pre tags, stable
// identifiers, and alignment styles.
type postProcessor struct {
	opts Options
}

func (p postProcessor) run(nodes []*html.Node) []*html.Node {
	// Work under a synthetic body so top-level replacements are ordinary
	// child mutations.
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	for _, n := range nodes {
		body.AppendChild(n)
	}

	p.convertImages(body)
	p.wrapListItemText(body)
	p.convertBlockquotes(body)
	p.convertCodeBlocks(body)
	p.convertEmbeds(body)
	assignStableIDs(body)
	applyAlignmentStyles(body)
	stripNewlines(body)

	var out []*html.Node
	for c := body.FirstChild; c != nil; {
		next := c.NextSibling
		body.RemoveChild(c)
		out = append(out, c)
		c = next
	}
	return out
}

// convertImages rewrites paragraphs whose sole content is an image into
// note.com's figure shape, or into IMAGE placeholders when deferred.
func (p postProcessor) convertImages(root *html.Node) {
	for _, para := range collect(root, "p") {
		img := soleImageChild(para)
		if img == nil {
			continue
		}
		src := strings.TrimPrefix(attrVal(img, "src"), "./")
		alt := attrVal(img, "alt")
		caption := attrVal(img, "title")

		if p.opts.DeferImages {
			removeChildren(para)
			para.AppendChild(textNode(placeholder.Image(alt, src)))
			continue
		}

		id := uuid.NewString()
		fig := elem("figure", "name", id, "id", id)
		fig.AppendChild(elem("img",
			"src", src,
			"alt", alt,
			"width", "620",
			"height", "457",
			"contenteditable", "false",
			"draggable", "false",
		))
		cap := elem("figcaption")
		if caption != "" {
			cap.AppendChild(textNode(caption))
		}
		fig.AppendChild(cap)
		replaceNode(para, fig)
	}
}

// soleImageChild returns the paragraph's img child when the image is the only
// non-whitespace content, nil otherwise.
func soleImageChild(para *html.Node) *html.Node {
	var img *html.Node
	for c := para.FirstChild; c != nil; c = c.NextSibling {
		switch {
		case c.Type == html.TextNode && strings.TrimSpace(c.Data) == "":
		case c.Type == html.ElementNode && c.Data == "img" && img == nil:
			img = c
		default:
			return nil
		}
	}
	return img
}

// wrapListItemText wraps runs of direct inline content in list items inside
// paragraph tags. ProseMirror expects li children to be block content.
func (p postProcessor) wrapListItemText(root *html.Node) {
	for _, li := range collect(root, "li") {
		var group []*html.Node
		flush := func(before *html.Node) {
			if !groupHasContent(group) {
				group = nil
				return
			}
			para := elem("p")
			for _, n := range group {
				li.RemoveChild(n)
				para.AppendChild(n)
			}
			li.InsertBefore(para, before)
			group = nil
		}

		c := li.FirstChild
		for c != nil {
			next := c.NextSibling
			if isBlockNode(c) {
				flush(c)
			} else {
				group = append(group, c)
			}
			c = next
		}
		flush(nil)
	}
}

func groupHasContent(group []*html.Node) bool {
	for _, n := range group {
		if n.Type == html.ElementNode {
			return true
		}
		if n.Type == html.TextNode && strings.TrimSpace(n.Data) != "" {
			return true
		}
	}
	return false
}

func isBlockNode(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	switch n.Data {
	case "p", "ul", "ol", "pre", "blockquote", "figure":
		return true
	}
	return false
}

// Citation shapes: "— Text" optionally followed by " (URL)".
var citationURLPattern = regexp.MustCompile(`^(.+?)\s+\((\S+)\)\s*$`)

const citationPrefix = "— " // em dash, space

// convertBlockquotes wraps each blockquote in a figure with a figcaption,
// extracting a trailing citation line. Only the literal last line of quote
// content is recognized; an em dash anywhere else never triggers extraction.
func (p postProcessor) convertBlockquotes(root *html.Node) {
	for _, bq := range collect(root, "blockquote") {
		citation := extractCitation(bq)
		convertSoftBreaks(bq)

		id := uuid.NewString()
		fig := elem("figure", "name", id, "id", id)
		replaceNode(bq, fig)
		fig.AppendChild(bq)
		cap := elem("figcaption")
		for _, n := range citation {
			cap.AppendChild(n)
		}
		fig.AppendChild(cap)
	}
}

// extractCitation removes a trailing "— text [ (url) ]" line from the last
// paragraph of the blockquote and returns the figcaption content for it.
func extractCitation(bq *html.Node) []*html.Node {
	last := lastElementChild(bq, "p")
	if last == nil {
		return nil
	}
	tail := last.LastChild
	if tail == nil || tail.Type != html.TextNode {
		return nil
	}

	var line string
	if idx := strings.LastIndex(tail.Data, "\n"); idx >= 0 {
		candidate := tail.Data[idx+1:]
		if !strings.HasPrefix(candidate, citationPrefix) {
			return nil
		}
		line = candidate
		tail.Data = tail.Data[:idx]
		if tail.Data == "" {
			last.RemoveChild(tail)
		}
	} else {
		// The whole paragraph may be a single citation line, but only
		// when the text node is its only content.
		if tail.PrevSibling != nil || !strings.HasPrefix(tail.Data, citationPrefix) {
			return nil
		}
		line = tail.Data
		bq.RemoveChild(last)
	}

	text := strings.TrimSpace(strings.TrimPrefix(line, citationPrefix))
	if text == "" {
		return nil
	}
	if m := citationURLPattern.FindStringSubmatch(text); m != nil {
		a := elem("a", "href", m[2])
		a.AppendChild(textNode(strings.TrimSpace(m[1])))
		return []*html.Node{a}
	}
	return []*html.Node{textNode(text)}
}

// convertSoftBreaks replaces newlines inside blockquote paragraphs with <br>
// tags, the shape the note.com browser editor produces.
func convertSoftBreaks(bq *html.Node) {
	for _, para := range collect(bq, "p") {
		c := para.FirstChild
		for c != nil {
			next := c.NextSibling
			if c.Type == html.TextNode && strings.Contains(c.Data, "\n") {
				parts := strings.Split(c.Data, "\n")
				for i, part := range parts {
					if part != "" {
						para.InsertBefore(textNode(part), c)
					}
					if i < len(parts)-1 {
						para.InsertBefore(elem("br"), c)
					}
				}
				para.RemoveChild(c)
			}
			c = next
		}
	}
}

// convertCodeBlocks rewrites pre>code into note.com's codeBlock shape,
// dropping the language class goldmark adds.
func (p postProcessor) convertCodeBlocks(root *html.Node) {
	for _, pre := range collect(root, "pre") {
		id := uuid.NewString()
		setAttr(pre, "name", id)
		setAttr(pre, "id", id)
		setAttr(pre, "class", "codeBlock")
		for c := pre.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.Data == "code" {
				removeAttr(c, "class")
			}
		}
	}
}

// convertEmbeds rewrites paragraphs whose entire content is a bare supported
// URL into embed figures, or into EMBED placeholders when deferred. URLs
// inside links or list items never embed.
func (p postProcessor) convertEmbeds(root *html.Node) {
	for _, para := range collect(root, "p") {
		if insideListItem(para) {
			continue
		}
		only := para.FirstChild
		if only == nil || only.NextSibling != nil || only.Type != html.TextNode {
			continue
		}
		url := strings.TrimSpace(only.Data)
		desc, err := embed.NewDescriptor(url, "", "")
		if err != nil {
			continue // unsupported URL stays a plain paragraph
		}

		if p.opts.DeferEmbeds {
			only.Data = placeholder.Embed(url)
			continue
		}

		id := uuid.NewString()
		fig := elem("figure",
			"name", id,
			"id", id,
			"data-src", desc.URL,
			"embedded-service", desc.Service,
			"embedded-content-key", desc.ContentKey,
			"contenteditable", "false",
		)
		replaceNode(para, fig)
	}
}

func insideListItem(n *html.Node) bool {
	for a := n.Parent; a != nil; a = a.Parent {
		if a.Type == html.ElementNode && a.Data == "li" {
			return true
		}
	}
	return false
}

// Tags that carry paired name/id stable identifiers. li and blockquote are
// excluded; note.com does not identify them.
var identifiedTags = map[string]bool{
	"p": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true,
	"h6": true, "ul": true, "ol": true, "hr": true,
}

func assignStableIDs(root *html.Node) {
	walk(root, func(n *html.Node) {
		if n.Type != html.ElementNode || !identifiedTags[n.Data] {
			return
		}
		if attrVal(n, "name") != "" {
			return
		}
		id := uuid.NewString()
		setAttr(n, "name", id)
		setAttr(n, "id", id)
	})
}

// applyAlignmentStyles sets the text-align style on paragraphs that carry an
// ALIGN placeholder. The wrapper tokens stay in the text for the resolution
// engine; the style covers the API rendering path.
func applyAlignmentStyles(root *html.Node) {
	styles := map[placeholder.Alignment]string{
		placeholder.AlignCenter: "text-align: center",
		placeholder.AlignRight:  "text-align: right",
		placeholder.AlignLeft:   "text-align: left",
	}
	for _, para := range collect(root, "p") {
		text := textContent(para)
		for a, style := range styles {
			if strings.Contains(text, placeholder.AlignStart(a)) {
				setAttr(para, "style", style)
				break
			}
		}
	}
}

// stripNewlines removes literal newlines from every text node outside pre
// tags. Code block content keeps its newlines exactly.
func stripNewlines(root *html.Node) {
	var visit func(n *html.Node, inPre bool)
	visit = func(n *html.Node, inPre bool) {
		if n.Type == html.ElementNode && n.Data == "pre" {
			inPre = true
		}
		c := n.FirstChild
		for c != nil {
			next := c.NextSibling
			if c.Type == html.TextNode && !inPre {
				c.Data = strings.ReplaceAll(c.Data, "\n", "")
				if c.Data == "" {
					n.RemoveChild(c)
				}
			} else {
				visit(c, inPre)
			}
			c = next
		}
	}
	visit(root, false)
}
