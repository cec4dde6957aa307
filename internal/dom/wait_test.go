// internal/dom/wait_test.go
package dom_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmaturana/corfex-cli/internal/dom"
	"github.com/vmaturana/corfex-cli/internal/dom/domtest"
)

func TestWaitPresentImmediate(t *testing.T) {
	page := domtest.NewPage(`<html><body><input id="rut" type="text"/></body></html>`)

	el, err := dom.WaitPresent(context.Background(), page, dom.CSS("#rut"), time.Second)
	require.NoError(t, err)
	tag, err := el.Tag(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "input", tag)
}

func TestWaitPresentTimeout(t *testing.T) {
	page := domtest.NewPage(`<html><body></body></html>`)

	start := time.Now()
	_, err := dom.WaitPresent(context.Background(), page, dom.CSS("#nunca"), 150*time.Millisecond)
	assert.ErrorIs(t, err, dom.ErrWaitTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}

func TestWaitVisibleHoldsOutForVisibility(t *testing.T) {
	page := domtest.NewPage(`<html><body>
<div id="wrap" style="display: none"><input id="rut" type="text"/></div>
</body></html>`)

	go func() {
		time.Sleep(50 * time.Millisecond)
		page.SetAttr("wrap", "style", "display: block")
	}()

	el, err := dom.WaitVisible(context.Background(), page, dom.CSS("#rut"), time.Second)
	require.NoError(t, err)
	visible, err := el.Visible(context.Background())
	require.NoError(t, err)
	assert.True(t, visible)
}

func TestWaitClickableRejectsDisabled(t *testing.T) {
	page := domtest.NewPage(`<html><body><button id="btn" disabled="disabled">Enviar</button></body></html>`)

	_, err := dom.WaitClickable(context.Background(), page, dom.CSS("#btn"), 150*time.Millisecond)
	assert.ErrorIs(t, err, dom.ErrWaitTimeout)
}

func TestWaitClickableAfterEnable(t *testing.T) {
	page := domtest.NewPage(`<html><body><button id="btn" disabled="disabled">Enviar</button></body></html>`)

	go func() {
		time.Sleep(50 * time.Millisecond)
		page.RemoveAttr("btn", "disabled")
	}()

	_, err := dom.WaitClickable(context.Background(), page, dom.CSS("#btn"), time.Second)
	assert.NoError(t, err)
}

func TestWaitRespectsContextCancellation(t *testing.T) {
	page := domtest.NewPage(`<html><body></body></html>`)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := dom.WaitPresent(ctx, page, dom.CSS("#nunca"), time.Minute)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSleepCancelable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, dom.Sleep(ctx, time.Minute), context.Canceled)

	start := time.Now()
	assert.NoError(t, dom.Sleep(context.Background(), 20*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}
