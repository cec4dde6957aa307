// internal/formscan/expander.go
package formscan

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vmaturana/corfex-cli/internal/dom"
	"github.com/vmaturana/corfex-cli/internal/interact"
)

// toggleSelector matches the two ways collapsible sections announce their
// toggles on the platform: a bootstrap data-toggle or a bare aria-expanded.
var toggleSelector = dom.CSS(`[data-toggle='collapse'], [aria-expanded]`)

// Expander opens the collapsed sections of a panel so their controls become
// part of the scan. Expansion is strictly best-effort: a section that will
// not open is reported and skipped, never fatal.
type Expander struct {
	page      dom.Page
	activator *interact.Activator
	logger    *zap.Logger
	timeout   time.Duration

	sleep func(ctx context.Context, d time.Duration) error
}

// NewExpander builds an Expander. timeout bounds the visibility wait after
// each toggle activation.
func NewExpander(page dom.Page, activator *interact.Activator, timeout time.Duration, logger *zap.Logger) *Expander {
	return &Expander{
		page:      page,
		activator: activator,
		logger:    logger.Named("expander"),
		timeout:   timeout,
		sleep:     dom.Sleep,
	}
}

// ExpandAll finds every toggle inside the panel and opens the sections that
// are still collapsed. Returns how many sections were confirmed open.
func (e *Expander) ExpandAll(ctx context.Context, panel dom.Element) (int, error) {
	toggles, err := panel.FindAll(ctx, toggleSelector)
	if err != nil {
		return 0, err
	}

	opened := 0
	for _, toggle := range toggles {
		ok, err := e.expand(ctx, toggle)
		if err != nil {
			if errors.Is(err, dom.ErrNotFound) {
				// Toggle went stale mid-scan; the section it guarded is
				// gone with it.
				continue
			}
			return opened, err
		}
		if ok {
			opened++
		}
	}
	return opened, nil
}

// expand opens one collapsed section. Returns true when the section is
// confirmed open (or already was).
func (e *Expander) expand(ctx context.Context, toggle dom.Element) (bool, error) {
	skip, err := e.isAddNewControl(ctx, toggle)
	if err != nil {
		return false, err
	}
	if skip {
		e.logger.Debug("Skipping add-new control masquerading as a toggle.")
		return false, nil
	}

	expanded, ok, err := toggle.Attr(ctx, "aria-expanded")
	if err != nil {
		return false, err
	}
	if ok && strings.EqualFold(strings.TrimSpace(expanded), "true") {
		return true, nil
	}

	region, err := e.resolveRegion(ctx, toggle)
	if err != nil && !errors.Is(err, dom.ErrNotFound) {
		return false, err
	}

	// An already-visible region means the section is open even when the
	// toggle carries no expansion attribute. Activating would close it.
	if region != nil {
		visible, err := region.Visible(ctx)
		if err != nil && !errors.Is(err, dom.ErrNotFound) {
			return false, err
		}
		if err == nil && visible {
			return true, nil
		}
	}

	if err := e.activator.Activate(ctx, toggle, ""); err != nil {
		if errors.Is(err, interact.ErrActivationExhausted) {
			e.logger.Warn("Collapsible toggle would not activate; its section stays closed.", zap.Error(err))
			return false, nil
		}
		return false, err
	}

	if region == nil {
		// No resolvable target region. Settle briefly and trust the
		// toggle's own state.
		if err := e.sleep(ctx, 200*time.Millisecond); err != nil {
			return false, err
		}
		expanded, ok, err := toggle.Attr(ctx, "aria-expanded")
		if err != nil {
			if errors.Is(err, dom.ErrNotFound) {
				return false, nil
			}
			return false, err
		}
		confirmed := ok && strings.EqualFold(strings.TrimSpace(expanded), "true")
		if !confirmed {
			e.logger.Warn("Toggle activated but expansion is unconfirmed; continuing.")
		}
		return confirmed, nil
	}

	deadline := time.Now().Add(e.timeout)
	for {
		visible, err := region.Visible(ctx)
		if err != nil && !errors.Is(err, dom.ErrNotFound) {
			return false, err
		}
		if err == nil && visible {
			return true, nil
		}
		if time.Now().After(deadline) {
			e.logger.Warn("Section did not become visible after toggle activation; continuing.",
				zap.Duration("timeout", e.timeout))
			return false, nil
		}
		if err := e.sleep(ctx, 100*time.Millisecond); err != nil {
			return false, err
		}
	}
}

// isAddNewControl filters out repeater "add another entry" controls, which
// share markup with collapse toggles but mutate the form when activated.
// Matched by id prefix or by caption.
func (e *Expander) isAddNewControl(ctx context.Context, toggle dom.Element) (bool, error) {
	id, _, err := toggle.Attr(ctx, "id")
	if err != nil {
		return false, err
	}
	lowerID := strings.ToLower(strings.TrimSpace(id))
	if strings.HasPrefix(lowerID, "agregar") || strings.HasPrefix(lowerID, "add") {
		return true, nil
	}

	text, err := toggle.Text(ctx)
	if err != nil {
		return false, err
	}
	lowerText := strings.ToLower(text)
	return strings.Contains(lowerText, "agregar") || strings.Contains(lowerText, "add"), nil
}

// resolveRegion finds the section a toggle controls, trying the reference
// attributes in the order the platform's markup actually uses them, then
// falling back to the structurally adjacent collapse container.
func (e *Expander) resolveRegion(ctx context.Context, toggle dom.Element) (dom.Element, error) {
	for _, attr := range []string{"data-target", "href", "aria-controls"} {
		ref, ok, err := toggle.Attr(ctx, attr)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		ref = strings.TrimSpace(ref)
		if attr == "href" {
			if !strings.HasPrefix(ref, "#") {
				continue
			}
		}
		id := strings.TrimPrefix(ref, "#")
		if id == "" || strings.ContainsAny(id, " /?") {
			continue
		}
		var sel dom.Selector
		if attr == "aria-controls" {
			sel = dom.XPath(`//*[@id=` + xpathLiteral(id) + `]`)
		} else if strings.HasPrefix(ref, "#") {
			sel = dom.XPath(`//*[@id=` + xpathLiteral(id) + `]`)
		} else {
			// data-target may be any CSS selector.
			sel = dom.CSS(ref)
		}
		region, err := e.page.Find(ctx, sel)
		if err == nil {
			return region, nil
		}
		if !errors.Is(err, dom.ErrNotFound) {
			return nil, err
		}
	}

	return toggle.Find(ctx, dom.XPath(
		`following-sibling::*[contains(@class,'collapse') or contains(@class,'panel-collapse')][1]`))
}
