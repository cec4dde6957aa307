// internal/browser/page.go
package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/vmaturana/corfex-cli/internal/dom"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// tagAttribute is the temporary attribute used to pin down resolved nodes.
// It is assigned on resolution and left in place for the session's lifetime;
// the page is discarded when the session closes.
const tagAttribute = "data-corfex-id"

// findScript locates matching nodes under a scope and tags each one. It
// reports stale:true when the scope element itself is gone, which is a
// different condition than matching nothing.
const findScript = `(() => {
	const scopeTag = %s, query = %s, byXPath = %s, base = %s, firstOnly = %s;
	let scope = document;
	if (scopeTag !== null) {
		scope = document.querySelector('[` + tagAttribute + `="' + scopeTag + '"]');
		if (!scope) return { stale: true, ids: [] };
	}
	let matches = [];
	if (byXPath) {
		const res = document.evaluate(query, scope, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
		for (let i = 0; i < res.snapshotLength; i++) {
			const n = res.snapshotItem(i);
			if (n.nodeType === Node.ELEMENT_NODE) { matches.push(n); }
		}
	} else {
		matches = Array.from(scope.querySelectorAll(query));
	}
	const ids = [];
	for (let i = 0; i < matches.length; i++) {
		const el = matches[i];
		let id = el.getAttribute('` + tagAttribute + `');
		if (!id) {
			id = base + '-' + i;
			el.setAttribute('` + tagAttribute + `', id);
		}
		ids.push(id);
		if (firstOnly) { break; }
	}
	return { stale: false, ids: ids };
})()`

// Page implements dom.Page over a chromedp target.
type Page struct {
	ctx    context.Context
	logger *zap.Logger
}

func newPage(sessionCtx context.Context, logger *zap.Logger) *Page {
	return &Page{ctx: sessionCtx, logger: logger.Named("page")}
}

// Navigate loads the URL and blocks until the document body is ready.
func (p *Page) Navigate(ctx context.Context, url string) error {
	opCtx, cancel := combineContext(p.ctx, ctx)
	defer cancel()
	return chromedp.Run(opCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

func (p *Page) Find(ctx context.Context, sel dom.Selector) (dom.Element, error) {
	ids, err := p.resolve(ctx, "", sel, true)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, dom.ErrNotFound
	}
	return &element{page: p, tag: ids[0]}, nil
}

func (p *Page) FindAll(ctx context.Context, sel dom.Selector) ([]dom.Element, error) {
	ids, err := p.resolve(ctx, "", sel, false)
	if err != nil {
		return nil, err
	}
	elements := make([]dom.Element, len(ids))
	for i, id := range ids {
		elements[i] = &element{page: p, tag: id}
	}
	return elements, nil
}

// Eval runs a script in the page. out may be nil when the result is
// irrelevant; scripts evaluating to undefined require a nil out.
func (p *Page) Eval(ctx context.Context, script string, out any) error {
	opCtx, cancel := combineContext(p.ctx, ctx)
	defer cancel()
	return chromedp.Run(opCtx, chromedp.Evaluate(script, out))
}

func (p *Page) Location(ctx context.Context) (string, error) {
	opCtx, cancel := combineContext(p.ctx, ctx)
	defer cancel()
	var url string
	if err := chromedp.Run(opCtx, chromedp.Location(&url)); err != nil {
		return "", err
	}
	return url, nil
}

func (p *Page) Title(ctx context.Context) (string, error) {
	opCtx, cancel := combineContext(p.ctx, ctx)
	defer cancel()
	var title string
	if err := chromedp.Run(opCtx, chromedp.Title(&title)); err != nil {
		return "", err
	}
	return title, nil
}

// resolve runs the find-and-tag script. scopeTag of "" searches the whole
// document; otherwise the search is scoped to (and, for XPath, relative to)
// the element carrying that tag.
func (p *Page) resolve(ctx context.Context, scopeTag string, sel dom.Selector, firstOnly bool) ([]string, error) {
	opCtx, cancel := combineContext(p.ctx, ctx)
	defer cancel()

	scopeArg := "null"
	if scopeTag != "" {
		scopeArg = jsString(scopeTag)
	}
	script := fmt.Sprintf(findScript,
		scopeArg,
		jsString(sel.Query),
		jsBool(sel.By == dom.ByXPath),
		jsString(uuid.NewString()),
		jsBool(firstOnly),
	)

	var result struct {
		Stale bool     `json:"stale"`
		IDs   []string `json:"ids"`
	}
	if err := chromedp.Run(opCtx, chromedp.Evaluate(script, &result)); err != nil {
		return nil, fmt.Errorf("browser: resolving %q: %w", sel.Query, err)
	}
	if result.Stale {
		return nil, dom.ErrNotFound
	}
	return result.IDs, nil
}

// jsString encodes a Go string as a JavaScript string literal.
func jsString(s string) string {
	data, _ := json.Marshal(s)
	return string(data)
}

func jsBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
