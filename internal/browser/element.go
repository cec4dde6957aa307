// internal/browser/element.go
package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"

	"github.com/vmaturana/corfex-cli/internal/dom"
)

// element implements dom.Element. It addresses its node exclusively through
// the tag attribute assigned at resolution time, so DOM reshuffling around
// the node cannot redirect an interaction to a different element.
type element struct {
	page *Page
	tag  string
}

func (e *element) selector() string {
	return fmt.Sprintf(`[%s=%q]`, tagAttribute, e.tag)
}

// evalOn runs a script body with `el` bound to this element's node. The body
// must produce an object with a `found` property; found:false maps to
// dom.ErrNotFound.
func (e *element) evalOn(ctx context.Context, body string, out any) error {
	opCtx, cancel := combineContext(e.page.ctx, ctx)
	defer cancel()

	script := fmt.Sprintf(`(() => {
	const el = document.querySelector(%s);
	if (!el) return { found: false };
	%s
})()`, jsString(e.selector()), body)

	if err := chromedp.Run(opCtx, chromedp.Evaluate(script, out)); err != nil {
		return err
	}
	return nil
}

func (e *element) Tag(ctx context.Context) (string, error) {
	var res struct {
		Found bool   `json:"found"`
		Value string `json:"value"`
	}
	if err := e.evalOn(ctx, `return { found: true, value: el.tagName.toLowerCase() };`, &res); err != nil {
		return "", err
	}
	if !res.Found {
		return "", dom.ErrNotFound
	}
	return res.Value, nil
}

func (e *element) Attr(ctx context.Context, name string) (string, bool, error) {
	var res struct {
		Found   bool   `json:"found"`
		Present bool   `json:"present"`
		Value   string `json:"value"`
	}
	body := fmt.Sprintf(`const v = el.getAttribute(%s);
	return { found: true, present: v !== null, value: v === null ? "" : v };`, jsString(name))
	if err := e.evalOn(ctx, body, &res); err != nil {
		return "", false, err
	}
	if !res.Found {
		return "", false, dom.ErrNotFound
	}
	return res.Value, res.Present, nil
}

func (e *element) Text(ctx context.Context) (string, error) {
	var res struct {
		Found bool   `json:"found"`
		Value string `json:"value"`
	}
	body := `const t = el.innerText !== undefined ? el.innerText : el.textContent;
	return { found: true, value: (t || "").trim() };`
	if err := e.evalOn(ctx, body, &res); err != nil {
		return "", err
	}
	if !res.Found {
		return "", dom.ErrNotFound
	}
	return res.Value, nil
}

// Visible mirrors what a user can see: the node occupies layout space and no
// computed style hides it. Hidden inputs never render.
func (e *element) Visible(ctx context.Context) (bool, error) {
	var res struct {
		Found   bool `json:"found"`
		Visible bool `json:"visible"`
	}
	body := `if (el.tagName === 'INPUT' && (el.getAttribute('type') || '').toLowerCase() === 'hidden') {
		return { found: true, visible: false };
	}
	const style = window.getComputedStyle(el);
	if (style.display === 'none' || style.visibility === 'hidden' || style.opacity === '0') {
		return { found: true, visible: false };
	}
	const rect = el.getBoundingClientRect();
	return { found: true, visible: rect.width > 0 && rect.height > 0 };`
	if err := e.evalOn(ctx, body, &res); err != nil {
		return false, err
	}
	if !res.Found {
		return false, dom.ErrNotFound
	}
	return res.Visible, nil
}

func (e *element) Find(ctx context.Context, sel dom.Selector) (dom.Element, error) {
	ids, err := e.page.resolve(ctx, e.tag, sel, true)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, dom.ErrNotFound
	}
	return &element{page: e.page, tag: ids[0]}, nil
}

func (e *element) FindAll(ctx context.Context, sel dom.Selector) ([]dom.Element, error) {
	ids, err := e.page.resolve(ctx, e.tag, sel, false)
	if err != nil {
		return nil, err
	}
	elements := make([]dom.Element, len(ids))
	for i, id := range ids {
		elements[i] = &element{page: e.page, tag: id}
	}
	return elements, nil
}

func (e *element) Click(ctx context.Context) error {
	opCtx, cancel := combineContext(e.page.ctx, ctx)
	defer cancel()
	return chromedp.Run(opCtx, chromedp.Click(e.selector(), chromedp.ByQuery))
}

// MoveClick dispatches raw pointer events: a move onto the element's center
// followed by press and release. Some handlers only arm themselves after a
// real pointer movement, which chromedp.Click does not produce.
func (e *element) MoveClick(ctx context.Context) error {
	var res struct {
		Found bool    `json:"found"`
		X     float64 `json:"x"`
		Y     float64 `json:"y"`
	}
	body := `el.scrollIntoView({ block: 'center', inline: 'center' });
	const rect = el.getBoundingClientRect();
	if (rect.width === 0 || rect.height === 0) return { found: false };
	return { found: true, x: rect.left + rect.width / 2, y: rect.top + rect.height / 2 };`
	if err := e.evalOn(ctx, body, &res); err != nil {
		return err
	}
	if !res.Found {
		return dom.ErrNotFound
	}

	opCtx, cancel := combineContext(e.page.ctx, ctx)
	defer cancel()
	events := []*input.DispatchMouseEventParams{
		input.DispatchMouseEvent(input.MouseMoved, res.X, res.Y),
		input.DispatchMouseEvent(input.MousePressed, res.X, res.Y).
			WithButton(input.Left).WithClickCount(1),
		input.DispatchMouseEvent(input.MouseReleased, res.X, res.Y).
			WithButton(input.Left).WithClickCount(1),
	}
	for _, ev := range events {
		if err := chromedp.Run(opCtx, ev); err != nil {
			return fmt.Errorf("browser: dispatching %s: %w", ev.Type, err)
		}
	}
	return nil
}

func (e *element) ScriptClick(ctx context.Context) error {
	var res struct {
		Found bool `json:"found"`
	}
	if err := e.evalOn(ctx, `el.click(); return { found: true };`, &res); err != nil {
		return err
	}
	if !res.Found {
		return dom.ErrNotFound
	}
	return nil
}

func (e *element) Clear(ctx context.Context) error {
	opCtx, cancel := combineContext(e.page.ctx, ctx)
	defer cancel()
	return chromedp.Run(opCtx, chromedp.Clear(e.selector(), chromedp.ByQuery))
}

func (e *element) Type(ctx context.Context, text string) error {
	opCtx, cancel := combineContext(e.page.ctx, ctx)
	defer cancel()
	return chromedp.Run(opCtx, chromedp.SendKeys(e.selector(), text, chromedp.ByQuery))
}
