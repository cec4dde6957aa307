// internal/dom/domtest/fake.go

// Package domtest provides an in-memory dom.Page backed by a parsed HTML
// document. It lets the extraction and authentication logic run against
// fixture markup with scripted click behavior, without a browser process.
package domtest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/vmaturana/corfex-cli/internal/dom"
)

// ClickMode identifies which activation strategy reached the fake element.
type ClickMode string

const (
	ClickDirect ClickMode = "direct"
	ClickMove   ClickMode = "move"
	ClickScript ClickMode = "script"
)

// ClickRecord is one observed click, keyed by the element's id attribute
// (fixtures give ids to everything click-relevant).
type ClickRecord struct {
	ID   string
	Mode ClickMode
}

// Page is the fake dom.Page. Zero values behave sanely: every click
// succeeds, Eval records the script and returns nothing.
type Page struct {
	mu  sync.Mutex
	doc *html.Node

	location string
	title    string

	// FailClicks lists activation modes that error for a given element id,
	// to exercise strategy fallback.
	FailClicks map[string][]ClickMode
	// OnClick handlers run after a successful click on the element id.
	OnClick map[string]func(*Page)
	// VisibleErr injects an error into Visible() for the element id.
	VisibleErr map[string]error
	// EvalFunc overrides script execution when set.
	EvalFunc func(script string, out any) error
	// NavigateFunc overrides navigation when set.
	NavigateFunc func(p *Page, url string) error

	Clicks []ClickRecord
	Evals  []string
}

var _ dom.Page = (*Page)(nil)

// NewPage parses the markup into a fake page.
func NewPage(markup string) *Page {
	p := &Page{
		FailClicks: make(map[string][]ClickMode),
		OnClick:    make(map[string]func(*Page)),
		VisibleErr: make(map[string]error),
	}
	p.SetHTML(markup)
	return p
}

// SetHTML replaces the whole document, simulating a page transition. Element
// handles resolved before the call become stale.
func (p *Page) SetHTML(markup string) {
	doc, err := htmlquery.Parse(strings.NewReader(markup))
	if err != nil {
		panic(fmt.Sprintf("domtest: bad fixture markup: %v", err))
	}
	p.mu.Lock()
	p.doc = doc
	p.mu.Unlock()
}

// SetLocation sets the value returned by Location.
func (p *Page) SetLocation(u string) { p.location = u }

// SetTitle sets the value returned by Title.
func (p *Page) SetTitle(t string) { p.title = t }

// SetAttr sets an attribute on the element with the given id. Panics when
// the id is absent, which in a test means a broken fixture.
func (p *Page) SetAttr(id, name, value string) {
	n := p.mustByID(id)
	for i := range n.Attr {
		if n.Attr[i].Key == name {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: value})
}

// RemoveAttr removes an attribute from the element with the given id.
func (p *Page) RemoveAttr(id, name string) {
	n := p.mustByID(id)
	attrs := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Key != name {
			attrs = append(attrs, a)
		}
	}
	n.Attr = attrs
}

func (p *Page) mustByID(id string) *html.Node {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := htmlquery.FindOne(p.doc, fmt.Sprintf("//*[@id='%s']", id))
	if n == nil {
		panic(fmt.Sprintf("domtest: no element with id %q", id))
	}
	return n
}

// Navigate implements dom.Page.
func (p *Page) Navigate(_ context.Context, url string) error {
	if p.NavigateFunc != nil {
		return p.NavigateFunc(p, url)
	}
	p.location = url
	return nil
}

// Find implements dom.Page.
func (p *Page) Find(ctx context.Context, sel dom.Selector) (dom.Element, error) {
	els, err := p.FindAll(ctx, sel)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, dom.ErrNotFound
	}
	return els[0], nil
}

// FindAll implements dom.Page.
func (p *Page) FindAll(_ context.Context, sel dom.Selector) ([]dom.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resolve(p.doc, sel)
}

func (p *Page) resolve(scope *html.Node, sel dom.Selector) ([]dom.Element, error) {
	var nodes []*html.Node
	switch sel.By {
	case dom.ByXPath:
		found, err := htmlquery.QueryAll(scope, sel.Query)
		if err != nil {
			return nil, fmt.Errorf("domtest: bad xpath %q: %w", sel.Query, err)
		}
		nodes = found
	default:
		nodes = selectAll(scope, sel.Query)
	}
	els := make([]dom.Element, 0, len(nodes))
	for _, n := range nodes {
		if n.Type == html.ElementNode {
			els = append(els, &node{p: p, n: n})
		}
	}
	return els, nil
}

// Eval implements dom.Page.
func (p *Page) Eval(_ context.Context, script string, out any) error {
	p.mu.Lock()
	p.Evals = append(p.Evals, script)
	p.mu.Unlock()
	if p.EvalFunc != nil {
		return p.EvalFunc(script, out)
	}
	return nil
}

// Location implements dom.Page.
func (p *Page) Location(_ context.Context) (string, error) { return p.location, nil }

// Title implements dom.Page.
func (p *Page) Title(_ context.Context) (string, error) { return p.title, nil }
