package markup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, markup string) string {
	t.Helper()
	out, err := Decode(markup)
	require.NoError(t, err)
	return out
}

func TestDecodeEmpty(t *testing.T) {
	assert.Empty(t, decode(t, ""))
	assert.Empty(t, decode(t, "  \n "))
}

func TestDecodeHeadings(t *testing.T) {
	md := decode(t, `<h1 name="a" id="a">Top</h1><h3 name="b" id="b">Deep</h3>`)
	assert.Equal(t, "# Top\n\n### Deep", md)
}

func TestDecodeInlineMarkup(t *testing.T) {
	md := decode(t, `<p name="a" id="a"><strong>bold</strong> and <em>soft</em> and <del>dead</del> and <code>x := 1</code></p>`)
	assert.Equal(t, "**bold** and *soft* and ~~dead~~ and `x := 1`", md)
}

func TestDecodeLinks(t *testing.T) {
	md := decode(t, `<p><a href="https://example.com">the docs</a></p>`)
	assert.Equal(t, "[the docs](https://example.com)", md)

	// a self-link decodes to the bare URL
	md = decode(t, `<p><a href="https://example.com">https://example.com</a></p>`)
	assert.Equal(t, "https://example.com", md)
}

func TestDecodeNestedLists(t *testing.T) {
	md := decode(t, `<ul name="a" id="a"><li><p>first</p></li><li><p>second</p><ul><li><p>nested</p><ul><li><p>deeper</p></li></ul></li></ul></li></ul>`)
	assert.Equal(t, "- first\n- second\n  - nested\n    - deeper", md)
}

func TestDecodeOrderedList(t *testing.T) {
	md := decode(t, `<ol name="a" id="a"><li><p>one</p></li><li><p>two</p></li></ol>`)
	assert.Equal(t, "1. one\n2. two", md)
}

func TestDecodeListItemWithoutParagraphWrapper(t *testing.T) {
	md := decode(t, `<ul><li>bare text</li></ul>`)
	assert.Equal(t, "- bare text", md)
}

func TestDecodeCodeBlockPreservesNewlines(t *testing.T) {
	md := decode(t, "<pre name=\"a\" id=\"a\" class=\"codeBlock\"><code>func main() {\n\tgo run()\n}</code></pre>")
	assert.Equal(t, "```\nfunc main() {\n\tgo run()\n}\n```", md)
}

func TestDecodeCodeBlockStripsLeakedFences(t *testing.T) {
	md := decode(t, "<pre class=\"codeBlock\"><code>```python\nprint(1)\n```</code></pre>")
	assert.Equal(t, "```\nprint(1)\n```", md)
}

func TestDecodeImageFigure(t *testing.T) {
	md := decode(t, `<figure name="a" id="a"><img src="pic.png" alt="a pic" width="620" height="457" contenteditable="false" draggable="false"/><figcaption>the caption</figcaption></figure>`)
	assert.Equal(t, "![a pic](pic.png \"the caption\")", md)

	md = decode(t, `<figure><img src="pic.png" alt=""/><figcaption></figcaption></figure>`)
	assert.Equal(t, "![](pic.png)", md)
}

func TestDecodeBlockquoteFigure(t *testing.T) {
	md := decode(t, `<figure name="a" id="a"><blockquote><p>Stay hungry.</p></blockquote><figcaption><a href="https://example.com/speech">Steve Jobs</a></figcaption></figure>`)
	assert.Equal(t, "> Stay hungry.\n> — Steve Jobs (https://example.com/speech)", md)
}

func TestDecodeBlockquoteSoftBreaks(t *testing.T) {
	md := decode(t, `<figure><blockquote><p>line one<br/>line two</p></blockquote><figcaption></figcaption></figure>`)
	assert.Equal(t, "> line one\n> line two", md)
}

func TestDecodeEmbedFigure(t *testing.T) {
	md := decode(t, `<figure name="a" id="a" data-src="https://youtu.be/dQw4w9WgXcQ" embedded-service="youtube" embedded-content-key="emb0123456789abc" contenteditable="false"></figure>`)
	assert.Equal(t, "https://youtu.be/dQw4w9WgXcQ", md)
}

func TestDecodeHorizontalRule(t *testing.T) {
	md := decode(t, `<p>above</p><hr name="a" id="a"/><p>below</p>`)
	assert.Equal(t, "above\n\n---\n\nbelow", md)
}

func TestDecodePlaceholderTokens(t *testing.T) {
	assert.Equal(t, "[TOC]", decode(t, `<p name="a" id="a">§§TOC§§</p>`))
	assert.Equal(t, "https://youtu.be/x", decode(t, `<p>§§EMBED:https://youtu.be/x§§</p>`))
	assert.Equal(t, "![alt](pic.png)", decode(t, `<p>§§IMAGE:alt||pic.png§§</p>`))
	assert.Equal(t, "->mid<-", decode(t, `<p style="text-align: center">§§ALIGN_CENTER§§mid§§/ALIGN§§</p>`))
	assert.Equal(t, "->right", decode(t, `<p>§§ALIGN_RIGHT§§right§§/ALIGN§§</p>`))
	assert.Equal(t, "<-left", decode(t, `<p>§§ALIGN_LEFT§§left§§/ALIGN§§</p>`))
}

func TestDecodeMaterializedTOC(t *testing.T) {
	md := decode(t, `<nav class="toc"><ol><li>ignored</li></ol></nav><p>body</p>`)
	assert.Equal(t, "[TOC]\n\nbody", md)
}

func TestDecodeRuby(t *testing.T) {
	md := decode(t, `<p><ruby>漢字<rp>（</rp><rt>かんじ</rt><rp>）</rp></ruby>を読む</p>`)
	assert.Equal(t, "｜漢字《かんじ》を読む", md)
}

func TestDecodeEntities(t *testing.T) {
	md := decode(t, `<p>ham &amp; eggs &lt;3</p>`)
	assert.Equal(t, "ham & eggs <3", md)
}

func TestDecodeCollapsesBlankRuns(t *testing.T) {
	md := decode(t, "<p>a</p>\n\n\n\n<p>b</p>")
	assert.Equal(t, "a\n\nb", md)
}

func TestDecodeIdempotentOnPlainText(t *testing.T) {
	plain := "# Title\n\njust some prose with *markdown* left alone\n\n- a list line"
	assert.Equal(t, plain, decode(t, plain))
}
