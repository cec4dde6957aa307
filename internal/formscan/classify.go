// internal/formscan/classify.go
package formscan

import (
	"context"
	"errors"
	"strings"

	"github.com/vmaturana/corfex-cli/internal/dom"
)

// Input types that carry no user-facing answer. Controls of these types are
// skipped outright, never described.
var skippedInputTypes = map[string]bool{
	"hidden": true,
	"button": true,
	"submit": true,
	"reset":  true,
}

// Text-like kinds that may carry a placeholder or a maxlength hint.
var textLikeKinds = map[string]bool{
	"text":     true,
	"textarea": true,
	"number":   true,
	"file":     true,
	"email":    true,
	"tel":      true,
}

// classifyControl fills in everything about a control except its label:
// kind, requiredness, identifiers, and the kind-specific extras (select
// options, text hints, radio/checkbox group membership). A nil return with a
// nil error means the control does not represent a user answer.
//
// panel scopes radio/checkbox sibling discovery so groups never bleed
// across panels.
func classifyControl(ctx context.Context, panel, control dom.Element) (*Field, error) {
	tag, err := control.Tag(ctx)
	if err != nil {
		return nil, err
	}

	field := &Field{}
	switch tag {
	case "textarea":
		field.Kind = "textarea"
	case "select":
		field.Kind = "select"
	case "input":
		typ, ok, err := control.Attr(ctx, "type")
		if err != nil {
			return nil, err
		}
		kind := "text"
		if ok {
			if t := strings.ToLower(strings.TrimSpace(typ)); t != "" {
				kind = t
			}
		}
		if skippedInputTypes[kind] {
			return nil, nil
		}
		field.Kind = kind
	default:
		// Anything else enumerated by the control selector still gets
		// reported, under its tag name.
		field.Kind = tag
	}

	if field.ID, err = attrOrEmpty(ctx, control, "id"); err != nil {
		return nil, err
	}
	if field.Name, err = attrOrEmpty(ctx, control, "name"); err != nil {
		return nil, err
	}
	if field.Required, err = isRequired(ctx, control); err != nil {
		return nil, err
	}

	switch {
	case field.Kind == "select":
		if field.Options, err = collectOptions(ctx, control); err != nil {
			return nil, err
		}
	case field.Kind == "radio" || field.Kind == "checkbox":
		// Group membership is resolved later by the extractor, which has
		// the page handle needed for label resolution.
	case textLikeKinds[field.Kind]:
		if field.Placeholder, err = attrOrEmpty(ctx, control, "placeholder"); err != nil {
			return nil, err
		}
		if field.MaxLength, err = attrOrEmpty(ctx, control, "maxlength"); err != nil {
			return nil, err
		}
	}

	return field, nil
}

// isRequired combines the three ways the platform marks mandatory fields:
// the native attribute, the ARIA attribute, and a bare "required" class
// token.
func isRequired(ctx context.Context, control dom.Element) (bool, error) {
	if _, ok, err := control.Attr(ctx, "required"); err != nil {
		return false, err
	} else if ok {
		return true, nil
	}

	// Any non-empty aria-required value counts; the platform never writes
	// "false", it just omits the attribute.
	if aria, ok, err := control.Attr(ctx, "aria-required"); err != nil {
		return false, err
	} else if ok && strings.TrimSpace(aria) != "" {
		return true, nil
	}

	class, _, err := control.Attr(ctx, "class")
	if err != nil {
		return false, err
	}
	for _, token := range strings.Fields(class) {
		if token == "required" {
			return true, nil
		}
	}
	return false, nil
}

// collectOptions lists a select's options in document order. An option
// without a value attribute submits its text, so the text doubles as the
// value.
func collectOptions(ctx context.Context, sel dom.Element) ([]Option, error) {
	nodes, err := sel.FindAll(ctx, dom.CSS("option"))
	if err != nil {
		return nil, err
	}
	options := make([]Option, 0, len(nodes))
	for _, node := range nodes {
		text, err := node.Text(ctx)
		if err != nil {
			return nil, err
		}
		text = strings.TrimSpace(text)

		value, ok, err := node.Attr(ctx, "value")
		if err != nil {
			return nil, err
		}
		if !ok {
			value = text
		}
		options = append(options, Option{Value: value, Text: text})
	}
	return options, nil
}

// collectChoices finds every member of the radio/checkbox group the seed
// control belongs to, scoped to the panel, and labels each member
// individually.
func collectChoices(ctx context.Context, page dom.Page, panel dom.Element, seed *Field) ([]Choice, error) {
	var cond string
	switch {
	case seed.Name != "":
		cond = "@name=" + xpathLiteral(seed.Name)
	case seed.ID != "":
		cond = "@id=" + xpathLiteral(seed.ID)
	default:
		// Anonymous controls have nothing to group on; they pool together,
		// matching how the extractor keys them.
		cond = "not(@name) and not(@id)"
	}

	query := `.//input[@type=` + xpathLiteral(seed.Kind) + ` and (` + cond + `)]`

	members, err := panel.FindAll(ctx, dom.XPath(query))
	if err != nil {
		return nil, err
	}

	choices := make([]Choice, 0, len(members))
	for _, member := range members {
		choice := Choice{}
		if choice.ID, err = attrOrEmpty(ctx, member, "id"); err != nil {
			return nil, err
		}
		if choice.Value, err = attrOrEmpty(ctx, member, "value"); err != nil {
			return nil, err
		}
		if choice.Label, err = choiceLabel(ctx, page, member, choice.ID); err != nil {
			return nil, err
		}
		choices = append(choices, choice)
	}
	return choices, nil
}

// choiceLabel resolves a group member's own caption. Unlike the field-level
// cascade this prefers the wrapping label, which is how the platform marks
// up individual radio and checkbox entries; the form-group caption belongs
// to the group, not the member.
func choiceLabel(ctx context.Context, page dom.Page, member dom.Element, id string) (*string, error) {
	if text, err := labelText(ctx, member, dom.XPath(`ancestor::label[1]`)); err != nil {
		return nil, err
	} else if text != "" {
		return &text, nil
	}
	if id != "" {
		label, err := page.Find(ctx, dom.XPath(`//label[@for=`+xpathLiteral(id)+`]`))
		if err == nil {
			text, err := label.Text(ctx)
			if err != nil {
				return nil, err
			}
			if text = strings.TrimSpace(text); text != "" {
				return &text, nil
			}
		} else if !errors.Is(err, dom.ErrNotFound) {
			return nil, err
		}
	}
	return nil, nil
}

func attrOrEmpty(ctx context.Context, el dom.Element, name string) (string, error) {
	value, ok, err := el.Attr(ctx, name)
	if err != nil || !ok {
		return "", err
	}
	return strings.TrimSpace(value), nil
}
