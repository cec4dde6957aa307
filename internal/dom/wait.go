// internal/dom/wait.go
package dom

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrWaitTimeout is returned when a wait condition does not hold within its
// timeout. Callers inspect it with errors.Is.
var ErrWaitTimeout = errors.New("dom: wait timed out")

// pollInterval is the pause between condition re-checks. Explicit polling is
// the only wait primitive: the remote page exposes no readiness events.
const pollInterval = 100 * time.Millisecond

// WaitPresent blocks until the selector matches at least one element.
func WaitPresent(ctx context.Context, p Page, sel Selector, timeout time.Duration) (Element, error) {
	return wait(ctx, p, sel, timeout, "present", func(ctx context.Context, el Element) (bool, error) {
		return true, nil
	})
}

// WaitVisible blocks until the selector matches a visible element.
func WaitVisible(ctx context.Context, p Page, sel Selector, timeout time.Duration) (Element, error) {
	return wait(ctx, p, sel, timeout, "visible", func(ctx context.Context, el Element) (bool, error) {
		return el.Visible(ctx)
	})
}

// WaitClickable blocks until the selector matches a visible element without
// a disabled attribute.
func WaitClickable(ctx context.Context, p Page, sel Selector, timeout time.Duration) (Element, error) {
	return wait(ctx, p, sel, timeout, "clickable", func(ctx context.Context, el Element) (bool, error) {
		visible, err := el.Visible(ctx)
		if err != nil || !visible {
			return false, err
		}
		_, disabled, err := el.Attr(ctx, "disabled")
		if err != nil {
			return false, err
		}
		return !disabled, nil
	})
}

func wait(ctx context.Context, p Page, sel Selector, timeout time.Duration, cond string, ok func(context.Context, Element) (bool, error)) (Element, error) {
	deadline := time.Now().Add(timeout)
	for {
		el, err := p.Find(ctx, sel)
		if err == nil {
			ready, condErr := ok(ctx, el)
			if condErr == nil && ready {
				return el, nil
			}
		} else if !errors.Is(err, ErrNotFound) {
			return nil, err
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("waiting for %q to become %s after %s: %w", sel.Query, cond, timeout, ErrWaitTimeout)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// Sleep blocks for the duration unless the context ends first. Fixed settle
// delays go through here so they stay cancelable.
func Sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
