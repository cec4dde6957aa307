// internal/formscan/extractor.go
package formscan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vmaturana/corfex-cli/internal/dom"
	"github.com/vmaturana/corfex-cli/internal/interact"
)

// ErrNoPanelsFound is returned when no form panel appears within the wait
// timeout. Without panels there is nothing to describe, so the scan is
// fatal.
var ErrNoPanelsFound = errors.New("formscan: no form panels appeared")

// controlSelector enumerates every control-bearing tag inside a panel.
var controlSelector = dom.CSS("input, textarea, select")

// Config holds the extraction knobs.
type Config struct {
	// PanelSelector is the CSS query identifying form panel containers.
	PanelSelector string
	// WaitTimeout bounds the wait for the first panel.
	WaitTimeout time.Duration
	// InitialSettle runs before looking for panels at all.
	InitialSettle time.Duration
	// PanelSettle runs after panels are found, for late ajax content.
	PanelSettle time.Duration
	// ExpandTimeout bounds each collapsible-section visibility wait.
	ExpandTimeout time.Duration
}

// Extractor walks the visible form panels and describes every user-facing
// control.
type Extractor struct {
	page      dom.Page
	activator *interact.Activator
	cfg       Config
	logger    *zap.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// NewExtractor builds an Extractor.
func NewExtractor(page dom.Page, activator *interact.Activator, cfg Config, logger *zap.Logger) *Extractor {
	return &Extractor{
		page:      page,
		activator: activator,
		cfg:       cfg,
		logger:    logger.Named("formscan"),
		sleep:     dom.Sleep,
	}
}

// Run performs a full scan: settle, wait for panels, expand collapsed
// sections, then describe each visible panel's controls. The result is
// deterministic for a given page state; rerunning over unchanged markup
// yields the same fields once.
func (x *Extractor) Run(ctx context.Context) ([]Field, error) {
	x.logger.Info("Letting the form page settle before scanning.",
		zap.Duration("settle", x.cfg.InitialSettle))
	if err := x.sleep(ctx, x.cfg.InitialSettle); err != nil {
		return nil, err
	}

	panels, err := x.waitForPanels(ctx)
	if err != nil {
		return nil, err
	}
	x.logger.Info("Form panels located.", zap.Int("count", len(panels)))

	if err := x.sleep(ctx, x.cfg.PanelSettle); err != nil {
		return nil, err
	}

	expander := NewExpander(x.page, x.activator, x.cfg.ExpandTimeout, x.logger)

	fields := make([]Field, 0, 32)
	seen := make(map[fieldKey]bool)
	// Radio groups are emitted once per (panel, group) pair.
	seenGroups := make(map[string]bool)

	for i, panel := range panels {
		visible, err := panel.Visible(ctx)
		if err != nil {
			// A panel that cannot even report visibility is skipped, not
			// fatal; the rest of the form is still worth describing.
			x.logger.Warn("Panel visibility check failed; skipping panel.",
				zap.Int("panel", i), zap.Error(err))
			continue
		}
		if !visible {
			continue
		}

		if opened, err := expander.ExpandAll(ctx, panel); err != nil {
			return nil, err
		} else if opened > 0 {
			x.logger.Debug("Expanded collapsed sections.",
				zap.Int("panel", i), zap.Int("opened", opened))
		}

		panelFields, err := x.scanPanel(ctx, i, panel, seenGroups)
		if err != nil {
			return nil, err
		}
		for _, field := range panelFields {
			key := field.key()
			if seen[key] {
				continue
			}
			seen[key] = true
			fields = append(fields, field)
		}
	}

	x.logger.Info("Scan complete.", zap.Int("fields", len(fields)))
	return fields, nil
}

func (x *Extractor) waitForPanels(ctx context.Context) ([]dom.Element, error) {
	sel := dom.CSS(x.cfg.PanelSelector)
	deadline := time.Now().Add(x.cfg.WaitTimeout)
	for {
		panels, err := x.page.FindAll(ctx, sel)
		if err != nil {
			return nil, err
		}
		if len(panels) > 0 {
			return panels, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("waiting %s for %q: %w",
				x.cfg.WaitTimeout, x.cfg.PanelSelector, ErrNoPanelsFound)
		}
		if err := x.sleep(ctx, 100*time.Millisecond); err != nil {
			return nil, err
		}
	}
}

// scanPanel describes every visible control in one panel. Radio controls
// are folded into a single field per group, keyed by name (falling back to
// id); checkbox members each stand alone as an answer of their own. Both
// kinds list the whole group's members as choices.
func (x *Extractor) scanPanel(ctx context.Context, index int, panel dom.Element, seenGroups map[string]bool) ([]Field, error) {
	controls, err := panel.FindAll(ctx, controlSelector)
	if err != nil {
		return nil, err
	}

	fields := make([]Field, 0, len(controls))
	for _, control := range controls {
		visible, err := control.Visible(ctx)
		if err != nil {
			if errors.Is(err, dom.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if !visible {
			continue
		}

		field, err := classifyControl(ctx, panel, control)
		if err != nil {
			if errors.Is(err, dom.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if field == nil {
			continue
		}

		if field.Kind == "radio" || field.Kind == "checkbox" {
			if field.Kind == "radio" {
				groupKey := fmt.Sprintf("%d/%s", index, groupName(field))
				if seenGroups[groupKey] {
					continue
				}
				seenGroups[groupKey] = true
			}
			if field.Choices, err = collectChoices(ctx, x.page, panel, field); err != nil {
				return nil, err
			}
		}

		if field.Label, err = ResolveLabel(ctx, x.page, control); err != nil {
			return nil, err
		}
		fields = append(fields, *field)
	}
	return fields, nil
}

func groupName(f *Field) string {
	if f.Name != "" {
		return "n:" + f.Name
	}
	return "i:" + f.ID
}
