// internal/formscan/field.go

// Package formscan introspects the form panels of an authenticated page and
// produces a structured description of every visible control.
package formscan

// Option is one <option> of a select control, in document order. Empty-value
// placeholder options are kept: they tell the consumer a select starts
// unanswered.
type Option struct {
	Value string `json:"value"`
	Text  string `json:"text"`
}

// Choice is one member of a radio or checkbox group, annotated with its own
// resolved label.
type Choice struct {
	ID    string  `json:"identifier,omitempty"`
	Value string  `json:"value,omitempty"`
	Label *string `json:"label"`
}

// Field describes one user-facing form control. Label is nullable on
// purpose: when no human-readable caption exists, emitting null is more
// honest than synthesizing one from an opaque identifier.
type Field struct {
	Label       *string  `json:"label"`
	Kind        string   `json:"kind"`
	Required    bool     `json:"required"`
	ID          string   `json:"identifier,omitempty"`
	Name        string   `json:"name,omitempty"`
	Options     []Option `json:"options,omitempty"`
	Placeholder string   `json:"placeholder,omitempty"`
	MaxLength   string   `json:"maxLength,omitempty"`
	Choices     []Choice `json:"choices,omitempty"`
}

// fieldKey is the deduplication tuple. A section re-expansion can surface
// the same control twice during a scan; two controls agreeing on all four
// parts are the same control.
type fieldKey struct {
	id    string
	name  string
	label string
	kind  string
}

func (f *Field) key() fieldKey {
	k := fieldKey{id: f.ID, name: f.Name, kind: f.Kind}
	if f.Label != nil {
		k.label = "\x00" + *f.Label
	}
	return k
}
