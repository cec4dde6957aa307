// internal/formscan/labels.go
package formscan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/vmaturana/corfex-cli/internal/dom"
)

// ResolveLabel finds the best human-readable caption for a control. The
// heuristics run in strict priority order and the first non-empty result
// wins:
//
//  1. the caption of the nearest enclosing form-group ancestor;
//  2. the label the control is nested inside;
//  3. a label referencing the control's id, scoped to the nearest
//     enclosing form;
//  4. the nearest preceding label in document order;
//  5. a label nested inside the control itself;
//  6. the placeholder text;
//  7. the control's name, accepted only if it contains a letter.
//
// nil (not "") means no caption qualifies. Opaque numeric names never
// become labels; they are not human-meaningful.
func ResolveLabel(ctx context.Context, page dom.Page, control dom.Element) (*string, error) {
	relational := []dom.Selector{
		dom.XPath(`ancestor::div[contains(@class,'form-group')][1]//label`),
		dom.XPath(`parent::label`),
	}
	for _, sel := range relational {
		if text, err := labelText(ctx, control, sel); err != nil {
			return nil, err
		} else if text != "" {
			return &text, nil
		}
	}

	if text, err := labelByFor(ctx, page, control); err != nil {
		return nil, err
	} else if text != "" {
		return &text, nil
	}

	late := []dom.Selector{
		dom.XPath(`preceding::label[1]`),
		dom.XPath(`descendant::label[1]`),
	}
	for _, sel := range late {
		if text, err := labelText(ctx, control, sel); err != nil {
			return nil, err
		} else if text != "" {
			return &text, nil
		}
	}

	if placeholder, ok, err := control.Attr(ctx, "placeholder"); err != nil {
		return nil, err
	} else if ok {
		if text := strings.TrimSpace(placeholder); text != "" {
			return &text, nil
		}
	}

	if name, ok, err := control.Attr(ctx, "name"); err != nil {
		return nil, err
	} else if ok {
		if text := strings.TrimSpace(name); containsLetter(text) {
			return &text, nil
		}
	}

	return nil, nil
}

func labelText(ctx context.Context, control dom.Element, sel dom.Selector) (string, error) {
	label, err := control.Find(ctx, sel)
	if errors.Is(err, dom.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	text, err := label.Text(ctx)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// labelByFor resolves an explicit label-for reference. The lookup is scoped
// to the control's enclosing form when there is one, so identical ids in
// sibling forms cannot cross-match; without a form it falls back to the
// whole document.
func labelByFor(ctx context.Context, page dom.Page, control dom.Element) (string, error) {
	id, ok, err := control.Attr(ctx, "id")
	if err != nil {
		return "", err
	}
	if !ok || strings.TrimSpace(id) == "" {
		return "", nil
	}

	scoped := dom.XPath(fmt.Sprintf(`ancestor::form[1]//label[@for=%s]`, xpathLiteral(id)))
	if text, err := labelText(ctx, control, scoped); err != nil || text != "" {
		return text, err
	}

	// Only fall back to a document-wide search when no form encloses the
	// control at all.
	if _, err := control.Find(ctx, dom.XPath(`ancestor::form[1]`)); err == nil {
		return "", nil
	} else if !errors.Is(err, dom.ErrNotFound) {
		return "", err
	}

	global, err := page.Find(ctx, dom.XPath(fmt.Sprintf(`//label[@for=%s]`, xpathLiteral(id))))
	if errors.Is(err, dom.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	text, err := global.Text(ctx)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func containsLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// xpathLiteral quotes a string for embedding in an XPath expression. Values
// holding both quote kinds need concat().
func xpathLiteral(s string) string {
	if !strings.Contains(s, `'`) {
		return `'` + s + `'`
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, `'`)
	quoted := make([]string, 0, len(parts)*2)
	for i, part := range parts {
		if i > 0 {
			quoted = append(quoted, `"'"`)
		}
		if part != "" {
			quoted = append(quoted, `'`+part+`'`)
		}
	}
	return "concat(" + strings.Join(quoted, ",") + ")"
}
