// internal/dom/domtest/element.go
package domtest

import (
	"context"
	"fmt"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/vmaturana/corfex-cli/internal/dom"
)

// node wraps an *html.Node as a dom.Element. Handles go stale when the page
// swaps its document; staleness is detected by walking up to the root.
type node struct {
	p *Page
	n *html.Node
}

var _ dom.Element = (*node)(nil)

func (e *node) stale() bool {
	root := e.n
	for root.Parent != nil {
		root = root.Parent
	}
	e.p.mu.Lock()
	defer e.p.mu.Unlock()
	return root != e.p.doc
}

func (e *node) check() error {
	if e.stale() {
		return dom.ErrNotFound
	}
	return nil
}

func (e *node) id() string {
	v, _ := attrValue(e.n, "id")
	return v
}

func (e *node) Tag(_ context.Context) (string, error) {
	if err := e.check(); err != nil {
		return "", err
	}
	return strings.ToLower(e.n.Data), nil
}

func (e *node) Attr(_ context.Context, name string) (string, bool, error) {
	if err := e.check(); err != nil {
		return "", false, err
	}
	v, ok := attrValue(e.n, name)
	return v, ok, nil
}

func (e *node) Text(_ context.Context) (string, error) {
	if err := e.check(); err != nil {
		return "", err
	}
	return strings.TrimSpace(htmlquery.InnerText(e.n)), nil
}

// Visible mimics rendered visibility: a node is hidden when it, or any
// ancestor, carries the hidden attribute, an inline display:none, or a
// bare collapse class without the open marker. hidden inputs never render.
func (e *node) Visible(_ context.Context) (bool, error) {
	if err := e.check(); err != nil {
		return false, err
	}
	if injected, ok := e.p.VisibleErr[e.id()]; ok && injected != nil {
		return false, injected
	}
	if t, _ := attrValue(e.n, "type"); strings.ToLower(e.n.Data) == "input" && strings.EqualFold(t, "hidden") {
		return false, nil
	}
	for n := e.n; n != nil && n.Type == html.ElementNode; n = n.Parent {
		if _, hidden := attrValue(n, "hidden"); hidden {
			return false, nil
		}
		if style, ok := attrValue(n, "style"); ok {
			if strings.Contains(strings.ReplaceAll(style, " ", ""), "display:none") {
				return false, nil
			}
		}
		if (hasClass(n, "collapse") || hasClass(n, "panel-collapse")) &&
			!hasClass(n, "in") && !hasClass(n, "show") {
			return false, nil
		}
	}
	return true, nil
}

func (e *node) Find(ctx context.Context, sel dom.Selector) (dom.Element, error) {
	els, err := e.FindAll(ctx, sel)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, dom.ErrNotFound
	}
	return els[0], nil
}

func (e *node) FindAll(_ context.Context, sel dom.Selector) ([]dom.Element, error) {
	if err := e.check(); err != nil {
		return nil, err
	}
	e.p.mu.Lock()
	defer e.p.mu.Unlock()
	return e.p.resolve(e.n, sel)
}

func (e *node) click(mode ClickMode) error {
	if err := e.check(); err != nil {
		return err
	}
	id := e.id()
	for _, failing := range e.p.FailClicks[id] {
		if failing == mode {
			return fmt.Errorf("domtest: %s click rejected for #%s", mode, id)
		}
	}
	e.p.mu.Lock()
	e.p.Clicks = append(e.p.Clicks, ClickRecord{ID: id, Mode: mode})
	hook := e.p.OnClick[id]
	e.p.mu.Unlock()
	if hook != nil {
		hook(e.p)
	}
	return nil
}

func (e *node) Click(_ context.Context) error       { return e.click(ClickDirect) }
func (e *node) MoveClick(_ context.Context) error   { return e.click(ClickMove) }
func (e *node) ScriptClick(_ context.Context) error { return e.click(ClickScript) }

func (e *node) Clear(_ context.Context) error {
	if err := e.check(); err != nil {
		return err
	}
	e.setAttr("value", "")
	return nil
}

func (e *node) Type(_ context.Context, text string) error {
	if err := e.check(); err != nil {
		return err
	}
	current, _ := attrValue(e.n, "value")
	e.setAttr("value", current+text)
	return nil
}

func (e *node) setAttr(name, value string) {
	for i := range e.n.Attr {
		if e.n.Attr[i].Key == name {
			e.n.Attr[i].Val = value
			return
		}
	}
	e.n.Attr = append(e.n.Attr, html.Attribute{Key: name, Val: value})
}
