// Package surface abstracts the live note.com editor the resolution engine
// drives. Implementations wrap a browser-controlled editor session; the
// engine only ever talks to this interface.
package surface

import "context"

// Control identifies a clickable editor affordance.
type Control string

const (
	ControlEmbedMenu   Control = "embed-menu"
	ControlImageInsert Control = "image-insert"
	ControlAlignMenu   Control = "align-menu"
	ControlAlignCenter Control = "align-center"
	ControlAlignRight  Control = "align-right"
	ControlAlignLeft   Control = "align-left"
	ControlInsertMenu  Control = "insert-menu"
	ControlTOCInsert   Control = "toc-insert"
)

// NodeKind identifies a countable native node class in the live document.
type NodeKind string

const (
	NodeEmbed NodeKind = "embed"
	NodeImage NodeKind = "image"
	NodeTOC   NodeKind = "toc"
)

// Driver is the live document collaborator. Every call reflects the surface
// as it is NOW; the document restructures itself after mutations, so callers
// must never hold positional state across calls; re-locate by content
// instead.
type Driver interface {
	// Text returns the current plain-text content of the document body.
	Text(ctx context.Context) (string, error)

	// SelectText range-selects the first occurrence of text. The occurrence
	// must exist; selecting text that is not present is an error.
	SelectText(ctx context.Context, text string) error

	// SetCaretBefore places the caret immediately before the first
	// occurrence of text, collapsing any selection.
	SetCaretBefore(ctx context.Context, text string) error

	// ReplaceText replaces the first occurrence of old with new. An empty
	// new deletes the occurrence.
	ReplaceText(ctx context.Context, old, new string) error

	// TypeText types text at the current caret position.
	TypeText(ctx context.Context, text string) error

	// PressKey sends a single named key ("Enter", "Escape", ...).
	PressKey(ctx context.Context, key string) error

	// Click activates an editor affordance.
	Click(ctx context.Context, control Control) error

	// UploadFile feeds a local file to the currently open upload affordance.
	UploadFile(ctx context.Context, path string) error

	// NodeCount reports how many native nodes of the given kind the
	// document currently contains.
	NodeCount(ctx context.Context, kind NodeKind) (int, error)

	// LinkCount reports how many hyperlinks to exactly url the document
	// currently contains.
	LinkCount(ctx context.Context, url string) (int, error)
}
