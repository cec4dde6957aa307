// internal/dom/dom.go
package dom

import (
	"context"
	"errors"
)

// By determines the query language a Selector is written in.
type By int

const (
	// ByQuery selects elements with a CSS selector.
	ByQuery By = iota
	// ByXPath selects elements with an XPath expression. XPath selectors may
	// be relative when evaluated against an Element (axes such as ancestor::
	// and preceding:: resolve from that element).
	ByXPath
)

// Selector identifies one or more elements on the current page.
type Selector struct {
	Query string
	By    By
}

// CSS builds a CSS selector.
func CSS(q string) Selector { return Selector{Query: q, By: ByQuery} }

// XPath builds an XPath selector.
func XPath(q string) Selector { return Selector{Query: q, By: ByXPath} }

// ErrNotFound is returned when a selector matches nothing, or when a
// previously resolved element is gone from the page.
var ErrNotFound = errors.New("dom: element not found")

// Element is a handle to a live DOM node. Handles are scoped to the page
// state they were resolved from and must not be cached across navigations;
// a stale handle surfaces ErrNotFound on its next use.
type Element interface {
	// Tag returns the lowercase tag name.
	Tag(ctx context.Context) (string, error)
	// Attr returns the attribute value and whether the attribute is present.
	Attr(ctx context.Context, name string) (string, bool, error)
	// Text returns the rendered text content, whitespace-trimmed.
	Text(ctx context.Context) (string, error)
	// Visible reports whether the element takes part in page rendering.
	Visible(ctx context.Context) (bool, error)

	// Find resolves the first descendant (or, for relative XPath, related
	// node) matching the selector. Returns ErrNotFound when nothing matches.
	Find(ctx context.Context, sel Selector) (Element, error)
	// FindAll resolves every match in document order. An empty slice and a
	// nil error mean "no matches".
	FindAll(ctx context.Context, sel Selector) ([]Element, error)

	// Click performs a direct, trusted click on the element.
	Click(ctx context.Context) error
	// MoveClick moves the pointer onto the element before clicking, for
	// markup that only reacts to a preceding pointer movement.
	MoveClick(ctx context.Context) error
	// ScriptClick dispatches element.click() via script execution.
	ScriptClick(ctx context.Context) error

	// Clear empties the element's value.
	Clear(ctx context.Context) error
	// Type sends the text to the element as keystrokes.
	Type(ctx context.Context, text string) error
}

// Page is the accessor for the document currently loaded in the session.
// All methods block until complete; cancellation and deadlines arrive
// through the context.
type Page interface {
	// Navigate loads the URL and blocks until the document is ready.
	Navigate(ctx context.Context, url string) error

	Find(ctx context.Context, sel Selector) (Element, error)
	FindAll(ctx context.Context, sel Selector) ([]Element, error)

	// Eval executes a script in the page. out receives the JSON-decoded
	// result and may be nil when the result is irrelevant.
	Eval(ctx context.Context, script string, out any) error

	// Location returns the current URL.
	Location(ctx context.Context) (string, error)
	// Title returns the current document title.
	Title(ctx context.Context) (string, error)
}
