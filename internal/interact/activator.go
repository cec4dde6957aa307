// internal/interact/activator.go

// Package interact activates page elements through an ordered list of
// strategies. Real-world markup rejects clicks for different reasons on
// different pages (overlay interception, visibility timing, framework event
// binding), so no single activation style is reliable; each strategy's
// failure is swallowed and the next one is tried.
package interact

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.uber.org/zap"

	"github.com/vmaturana/corfex-cli/internal/dom"
)

// ErrActivationExhausted is returned when every strategy, including the
// optional named fallback handler, failed to activate the target.
var ErrActivationExhausted = errors.New("interact: all activation strategies failed")

// Strategy is one way of activating an element.
type Strategy interface {
	Name() string
	Activate(ctx context.Context, el dom.Element) error
}

type directClick struct{}

func (directClick) Name() string { return "direct-click" }
func (directClick) Activate(ctx context.Context, el dom.Element) error {
	return el.Click(ctx)
}

type pointerClick struct{}

func (pointerClick) Name() string { return "pointer-move-click" }
func (pointerClick) Activate(ctx context.Context, el dom.Element) error {
	return el.MoveClick(ctx)
}

type scriptClick struct{}

func (scriptClick) Name() string { return "script-click" }
func (scriptClick) Activate(ctx context.Context, el dom.Element) error {
	return el.ScriptClick(ctx)
}

// Activator drives the strategy list against a page.
type Activator struct {
	page       dom.Page
	logger     *zap.Logger
	strategies []Strategy
}

// New builds an Activator with the standard strategy order: direct click,
// pointer-move click, script click.
func New(page dom.Page, logger *zap.Logger) *Activator {
	return &Activator{
		page:       page,
		logger:     logger.Named("activator"),
		strategies: []Strategy{directClick{}, pointerClick{}, scriptClick{}},
	}
}

// handlerNamePattern restricts fallback handlers to plain identifiers so the
// name can be spliced into a script safely.
var handlerNamePattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// Activate tries each strategy in order until one succeeds. fallbackFn, when
// non-empty, names a page-level handler invoked directly as the last resort
// (some links do nothing but call such a handler, and calling it is the only
// activation that survives broken event binding). Only exhaustion of every
// option is an error.
func (a *Activator) Activate(ctx context.Context, el dom.Element, fallbackFn string) error {
	for _, s := range a.strategies {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.Activate(ctx, el)
		if err == nil {
			a.logger.Debug("Element activated.", zap.String("strategy", s.Name()))
			return nil
		}
		a.logger.Debug("Activation strategy failed, trying next.",
			zap.String("strategy", s.Name()), zap.Error(err))
	}

	if fallbackFn != "" {
		if err := a.invokeHandler(ctx, fallbackFn); err == nil {
			a.logger.Debug("Element activated via page handler.", zap.String("handler", fallbackFn))
			return nil
		} else {
			a.logger.Debug("Page handler invocation failed.",
				zap.String("handler", fallbackFn), zap.Error(err))
		}
	}

	return fmt.Errorf("activating element (fallback %q): %w", fallbackFn, ErrActivationExhausted)
}

func (a *Activator) invokeHandler(ctx context.Context, name string) error {
	if !handlerNamePattern.MatchString(name) {
		return fmt.Errorf("interact: invalid handler name %q", name)
	}
	script := fmt.Sprintf("if (typeof %s === 'function') { %s(); }", name, name)
	return a.page.Eval(ctx, script, nil)
}
