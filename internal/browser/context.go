// internal/browser/context.go
package browser

import (
	"context"
)

// combineContext derives a context from the session context (which carries
// the CDP target) that is additionally canceled when the caller's
// operational context ends. chromedp operations must run on the session
// context or they lose the connection, so the caller's deadline has to be
// grafted on rather than used directly.
func combineContext(session, op context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(session)
	go func() {
		select {
		case <-op.Done():
			cancel()
		case <-combined.Done():
		}
	}()
	return combined, cancel
}
