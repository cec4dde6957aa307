// internal/authflow/sequencer.go

// Package authflow drives the login sequence of the application platform as
// an explicit, strictly linear state machine. Each step is gated by a wait
// on a concrete page condition; a failed mandatory step is fatal for the
// whole sequence, while the final routing step is best-effort. Retries only
// ever happen inside a single step, through the activation strategy list.
package authflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vmaturana/corfex-cli/internal/dom"
	"github.com/vmaturana/corfex-cli/internal/interact"
)

// Step names one state of the login sequence.
type Step string

const (
	StepNavigate        Step = "navigate"
	StepRevealLoginForm Step = "reveal_login_form"
	StepFillCredentials Step = "fill_credentials"
	StepSubmit          Step = "submit"
	StepPostLoginSettle Step = "post_login_settle"
	StepRouteToForm     Step = "route_to_form_entry"
)

// ErrNavigationTimeout marks a required login-flow element that never
// appeared within the step's wait timeout.
var ErrNavigationTimeout = errors.New("authflow: required element never appeared")

// StepError carries which step of the sequence failed.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("authflow: step %s failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Credentials are the platform login pair.
type Credentials struct {
	RUT   string
	Clave string
}

// Config holds the sequence timing knobs.
type Config struct {
	// URL is the login entry point.
	URL string
	// WaitTimeout bounds each step's explicit wait.
	WaitTimeout time.Duration
	// PostLoginSettle is the unconditional pause after submit; the
	// post-auth page assembles asynchronously with no completion signal.
	PostLoginSettle time.Duration
}

// Page bindings for the login flow. The reveal link and the submit button
// are plain elements whose onclick calls a page-level handler, so that
// handler doubles as the activation fallback.
var (
	selRevealLink  = dom.CSS("#mostrarCorfoLoginLink")
	selRUTField    = dom.CSS("#rut")
	selClaveField  = dom.CSS("#pass")
	selSubmit      = dom.CSS("#ingresa_")
	selStepBar     = dom.CSS("#BarraPasosContenedor")
	selNewApp      = dom.XPath(`//span[contains(@class,'btn') and contains(@class,'btn-primary') and contains(@class,'btn-xs') and contains(normalize-space(.),'Nueva Postulación')]`)
	selActiveStep  = dom.XPath(`//div[@id='BarraPasosContenedor']//span[contains(@class,'BotonPaso') and contains(@class,'activo')]`)
	selAnyStep     = dom.XPath(`//div[@id='BarraPasosContenedor']//span[contains(@class,'BotonPaso')]`)
	revealFallback = "mostrarCorfoLogin"
	submitFallback = "validaIngreso"
)

// Sequencer executes the login sequence over a page.
type Sequencer struct {
	page      dom.Page
	activator *interact.Activator
	cfg       Config
	logger    *zap.Logger

	// sleep is swapped out by tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// New builds a Sequencer.
func New(page dom.Page, activator *interact.Activator, cfg Config, logger *zap.Logger) *Sequencer {
	return &Sequencer{
		page:      page,
		activator: activator,
		cfg:       cfg,
		logger:    logger.Named("authflow"),
		sleep:     dom.Sleep,
	}
}

// Run walks the sequence to completion. On return with a nil error the
// session is authenticated; the optional routing step may have soft-failed,
// in which case the caller inspects the page state it ended up with.
func (s *Sequencer) Run(ctx context.Context, creds Credentials) error {
	if err := s.navigate(ctx); err != nil {
		return &StepError{Step: StepNavigate, Err: err}
	}
	if err := s.revealLoginForm(ctx); err != nil {
		return &StepError{Step: StepRevealLoginForm, Err: err}
	}
	if err := s.fillCredentials(ctx, creds); err != nil {
		return &StepError{Step: StepFillCredentials, Err: err}
	}
	if err := s.submit(ctx); err != nil {
		return &StepError{Step: StepSubmit, Err: err}
	}
	if err := s.postLoginSettle(ctx); err != nil {
		return &StepError{Step: StepPostLoginSettle, Err: err}
	}
	if err := s.routeToFormEntry(ctx); err != nil {
		return &StepError{Step: StepRouteToForm, Err: err}
	}
	return nil
}

func (s *Sequencer) navigate(ctx context.Context) error {
	s.logger.Info("Navigating to login page.", zap.String("url", s.cfg.URL))
	return s.page.Navigate(ctx, s.cfg.URL)
}

// revealLoginForm clicks the link that swaps the institutional login form
// into view.
func (s *Sequencer) revealLoginForm(ctx context.Context) error {
	link, err := dom.WaitPresent(ctx, s.page, selRevealLink, s.cfg.WaitTimeout)
	if err != nil {
		if errors.Is(err, dom.ErrWaitTimeout) {
			return fmt.Errorf("login reveal link %q: %w", selRevealLink.Query, ErrNavigationTimeout)
		}
		return err
	}
	return s.activator.Activate(ctx, link, revealFallback)
}

func (s *Sequencer) fillCredentials(ctx context.Context, creds Credentials) error {
	rut, err := dom.WaitVisible(ctx, s.page, selRUTField, s.cfg.WaitTimeout)
	if err != nil {
		if errors.Is(err, dom.ErrWaitTimeout) {
			return fmt.Errorf("rut field after revealing form: %w", ErrNavigationTimeout)
		}
		return err
	}
	if err := rut.Clear(ctx); err != nil {
		return err
	}
	if err := rut.Type(ctx, creds.RUT); err != nil {
		return err
	}

	clave, err := dom.WaitVisible(ctx, s.page, selClaveField, s.cfg.WaitTimeout)
	if err != nil {
		if errors.Is(err, dom.ErrWaitTimeout) {
			return fmt.Errorf("clave field after revealing form: %w", ErrNavigationTimeout)
		}
		return err
	}
	if err := clave.Clear(ctx); err != nil {
		return err
	}
	return clave.Type(ctx, creds.Clave)
}

func (s *Sequencer) submit(ctx context.Context) error {
	btn, err := dom.WaitClickable(ctx, s.page, selSubmit, s.cfg.WaitTimeout)
	if err != nil {
		if errors.Is(err, dom.ErrWaitTimeout) {
			return fmt.Errorf("submit button %q: %w", selSubmit.Query, ErrNavigationTimeout)
		}
		return err
	}
	return s.activator.Activate(ctx, btn, submitFallback)
}

// postLoginSettle waits out the asynchronous post-auth page assembly, then
// records where the session landed for diagnostics.
func (s *Sequencer) postLoginSettle(ctx context.Context) error {
	s.logger.Info("Waiting for post-login page assembly.", zap.Duration("settle", s.cfg.PostLoginSettle))
	if err := s.sleep(ctx, s.cfg.PostLoginSettle); err != nil {
		return err
	}
	location, err := s.page.Location(ctx)
	if err != nil {
		return err
	}
	title, _ := s.page.Title(ctx)
	s.logger.Info("Login submitted.", zap.String("location", location), zap.String("title", title))
	return nil
}

// routeToFormEntry races two acceptance conditions: a "Nueva Postulación"
// affordance, or the multi-step progress bar. Whichever appears first is
// activated. The whole step is best-effort: neither appearing, or the
// winner refusing every activation strategy, leaves the session on
// whatever page it reached; not every account needs routing, so the
// sequence still completes.
func (s *Sequencer) routeToFormEntry(ctx context.Context) error {
	found, el, err := s.raceRoutingAffordances(ctx)
	if err != nil {
		return err
	}

	switch found {
	case "new_application":
		s.logger.Info("Routing via new-application affordance.")
		return s.activateRouting(ctx, el)

	case "step_bar":
		step, err := s.page.Find(ctx, selActiveStep)
		if errors.Is(err, dom.ErrNotFound) {
			// No step marked active; fall back to the first one.
			step, err = s.page.Find(ctx, selAnyStep)
		}
		if errors.Is(err, dom.ErrNotFound) {
			s.logger.Warn("Step bar present but holds no step buttons; leaving page as-is.")
			return nil
		}
		if err != nil {
			return err
		}
		s.logger.Info("Routing via progress-bar step button.")
		return s.activateRouting(ctx, step)

	default:
		s.logger.Warn("Neither the new-application affordance nor the step bar appeared; continuing with current page state.",
			zap.Duration("timeout", s.cfg.WaitTimeout))
		return nil
	}
}

// activateRouting clicks a routing element, downgrading a refused
// activation to a warning. Exhaustion is fatal only for the mandatory
// reveal and submit steps.
func (s *Sequencer) activateRouting(ctx context.Context, el dom.Element) error {
	err := s.activator.Activate(ctx, el, "")
	if errors.Is(err, interact.ErrActivationExhausted) {
		s.logger.Warn("Routing element would not activate; continuing with current page state.", zap.Error(err))
		return nil
	}
	return err
}

func (s *Sequencer) raceRoutingAffordances(ctx context.Context) (string, dom.Element, error) {
	deadline := time.Now().Add(s.cfg.WaitTimeout)
	for {
		if el, err := s.page.Find(ctx, selNewApp); err == nil {
			return "new_application", el, nil
		} else if !errors.Is(err, dom.ErrNotFound) {
			return "", nil, err
		}

		if el, err := s.page.Find(ctx, selStepBar); err == nil {
			return "step_bar", el, nil
		} else if !errors.Is(err, dom.ErrNotFound) {
			return "", nil, err
		}

		if time.Now().After(deadline) {
			return "", nil, nil
		}
		if err := s.sleep(ctx, 100*time.Millisecond); err != nil {
			return "", nil, err
		}
	}
}
