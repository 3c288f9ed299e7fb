// Package placeholder implements the reversible token grammar used to mark
// document spots that need live materialization in the note.com editor.
//
// The delimiter sequence "§§" is reserved. The codec assumes it never occurs
// in legitimate prose; if it does, scanning behavior is undefined. This is a
// known limitation carried over from the wire format.
package placeholder

import (
	"fmt"
	"regexp"
	"strings"
)

// Class tags a placeholder with the kind of live materialization it needs.
type Class string

const (
	ClassEmbed Class = "EMBED"
	ClassImage Class = "IMAGE"
	ClassAlign Class = "ALIGN"
	ClassTOC   Class = "TOC"
)

// Alignment is the payload variant for ALIGN placeholders.
type Alignment string

const (
	AlignCenter Alignment = "CENTER"
	AlignRight  Alignment = "RIGHT"
	AlignLeft   Alignment = "LEFT"
)

const (
	delim          = "§§"
	embedPrefix    = delim + "EMBED:"
	imagePrefix    = delim + "IMAGE:"
	imageSeparator = "||"
	alignEnd       = delim + "/ALIGN" + delim
	tocToken       = delim + "TOC" + delim
)

var (
	embedPattern = regexp.MustCompile(`§§EMBED:(.+?)§§`)
	imagePattern = regexp.MustCompile(`§§IMAGE:(.*?)\|\|(.+?)§§`)
	alignPattern = regexp.MustCompile(`§§ALIGN_(CENTER|RIGHT|LEFT)§§(.+?)§§/ALIGN§§`)
	tocPattern   = regexp.MustCompile(`§§TOC§§`)
)

// Embed encodes an EMBED placeholder for a URL.
func Embed(url string) string {
	return embedPrefix + url + delim
}

// Image encodes an IMAGE placeholder carrying alt text and a local path or
// remote URL.
func Image(alt, path string) string {
	return imagePrefix + alt + imageSeparator + path + delim
}

// Align wraps text in an ALIGN start/end pair. The inner text stays literal so
// it remains editable in the live surface until the wrapper is dropped.
func Align(a Alignment, text string) string {
	return fmt.Sprintf("%sALIGN_%s%s%s%s", delim, a, delim, text, alignEnd)
}

// AlignStart returns the opening wrapper for an alignment, without content.
func AlignStart(a Alignment) string {
	return fmt.Sprintf("%sALIGN_%s%s", delim, a, delim)
}

// AlignEnd returns the closing ALIGN wrapper.
func AlignEnd() string {
	return alignEnd
}

// TOC encodes the table-of-contents placeholder.
func TOC() string {
	return tocToken
}

// Token is one decoded placeholder occurrence.
type Token struct {
	Class     Class
	URL       string    // EMBED
	Alt       string    // IMAGE
	Path      string    // IMAGE: local path or remote URL
	Alignment Alignment // ALIGN
	Text      string    // ALIGN inner text
	Start     int       // byte offset of the token in the scanned text
	End       int
}

// Literal reconstructs the exact token text as it appears in the document.
func (t Token) Literal() string {
	switch t.Class {
	case ClassEmbed:
		return Embed(t.URL)
	case ClassImage:
		return Image(t.Alt, t.Path)
	case ClassAlign:
		return Align(t.Alignment, t.Text)
	case ClassTOC:
		return TOC()
	}
	return ""
}

// Fallback is the inert literal text a failed placeholder degrades to.
func (t Token) Fallback() string {
	switch t.Class {
	case ClassEmbed:
		return t.URL
	case ClassImage:
		if t.Alt != "" {
			return fmt.Sprintf("![%s](%s)", t.Alt, t.Path)
		}
		return t.Path
	case ClassAlign:
		return t.Text
	case ClassTOC:
		return ""
	}
	return ""
}

// Scanner yields placeholder tokens from a text in document order. It never
// mutates the source; a fresh Scanner can be created at any time to restart
// from the beginning, which is how the resolution engine re-scans after every
// live-surface mutation.
type Scanner struct {
	src     string
	pos     int
	classes map[Class]bool // nil means all classes
}

// NewScanner creates a scanner over all placeholder classes.
func NewScanner(src string) *Scanner {
	return &Scanner{src: src}
}

// NewClassScanner creates a scanner restricted to the given classes.
func NewClassScanner(src string, classes ...Class) *Scanner {
	m := make(map[Class]bool, len(classes))
	for _, c := range classes {
		m[c] = true
	}
	return &Scanner{src: src, classes: m}
}

func (s *Scanner) wants(c Class) bool {
	return s.classes == nil || s.classes[c]
}

// Next returns the next token, or ok=false when the text is exhausted.
func (s *Scanner) Next() (Token, bool) {
	for s.pos < len(s.src) {
		rest := s.src[s.pos:]
		best := Token{Start: -1}

		consider := func(t Token) {
			if best.Start == -1 || t.Start < best.Start {
				best = t
			}
		}

		if s.wants(ClassEmbed) {
			if m := embedPattern.FindStringSubmatchIndex(rest); m != nil {
				consider(Token{
					Class: ClassEmbed,
					URL:   rest[m[2]:m[3]],
					Start: s.pos + m[0],
					End:   s.pos + m[1],
				})
			}
		}
		if s.wants(ClassImage) {
			if m := imagePattern.FindStringSubmatchIndex(rest); m != nil {
				consider(Token{
					Class: ClassImage,
					Alt:   rest[m[2]:m[3]],
					Path:  rest[m[4]:m[5]],
					Start: s.pos + m[0],
					End:   s.pos + m[1],
				})
			}
		}
		if s.wants(ClassAlign) {
			if m := alignPattern.FindStringSubmatchIndex(rest); m != nil {
				consider(Token{
					Class:     ClassAlign,
					Alignment: Alignment(rest[m[2]:m[3]]),
					Text:      rest[m[4]:m[5]],
					Start:     s.pos + m[0],
					End:       s.pos + m[1],
				})
			}
		}
		if s.wants(ClassTOC) {
			if m := tocPattern.FindStringIndex(rest); m != nil {
				consider(Token{
					Class: ClassTOC,
					Start: s.pos + m[0],
					End:   s.pos + m[1],
				})
			}
		}

		if best.Start == -1 {
			s.pos = len(s.src)
			return Token{}, false
		}
		s.pos = best.End
		return best, true
	}
	return Token{}, false
}

// Contains reports whether the text holds any placeholder of the given class.
func Contains(src string, class Class) bool {
	switch class {
	case ClassEmbed:
		return strings.Contains(src, embedPrefix)
	case ClassImage:
		return strings.Contains(src, imagePrefix)
	case ClassAlign:
		return strings.Contains(src, delim+"ALIGN_")
	case ClassTOC:
		return strings.Contains(src, tocToken)
	}
	return false
}
