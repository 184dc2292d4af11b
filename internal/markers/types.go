// Package markers records time-stamped annotations against the session
// timeline and manages the marker-type registry.
package markers

import (
	"strings"

	"github.com/google/uuid"
)

// Built-in marker type keys.
const (
	TypeDecisionPoint = "decision_point"
	TypeInsight       = "insight"
	TypeQuestion      = "question"
	TypeActionItem    = "action_item"
	TypeKeyRisk       = "key_risk"
	TypeSpeakerTag    = "speaker_tag_event"
)

// Type describes a marker type, built-in or operator-registered.
type Type struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Key   string `json:"type"`
	Color string `json:"color,omitempty"`
}

// Custom types registered at runtime get this color hint.
const customTypeColor = "#AAAAAA"

// BuiltinTypes returns the fixed built-in marker type set.
func BuiltinTypes() []Type {
	return []Type{
		{ID: "builtin-decision", Label: "Decision Point", Key: TypeDecisionPoint, Color: "#FF5555"},
		{ID: "builtin-insight", Label: "Insight", Key: TypeInsight, Color: "#55FF55"},
		{ID: "builtin-question", Label: "Question", Key: TypeQuestion, Color: "#5555FF"},
		{ID: "builtin-action", Label: "Action Item", Key: TypeActionItem, Color: "#FFFF55"},
		{ID: "builtin-risk", Label: "Key Risk", Key: TypeKeyRisk, Color: "#FF55FF"},
		{ID: "builtin-speaker", Label: "Speaker Tag", Key: TypeSpeakerTag, Color: "#55FFFF"},
	}
}

// Registry holds the marker types available to a process. Labels are unique
// case-insensitively.
type Registry struct {
	types []Type
}

// NewRegistry returns a registry seeded with the built-in types.
func NewRegistry() *Registry {
	return &Registry{types: BuiltinTypes()}
}

// Types returns the registered types in registration order.
func (r *Registry) Types() []Type {
	out := make([]Type, len(r.types))
	copy(out, r.types)
	return out
}

// Lookup finds a type by its machine key.
func (r *Registry) Lookup(key string) (Type, bool) {
	for _, t := range r.types {
		if t.Key == key {
			return t, true
		}
	}
	return Type{}, false
}

// Register adds a custom type by label. Returns false without modifying the
// registry when the label case-insensitively matches an existing type.
func (r *Registry) Register(label string) (Type, bool) {
	label = strings.TrimSpace(label)
	if label == "" {
		return Type{}, false
	}
	for _, t := range r.types {
		if strings.EqualFold(t.Label, label) {
			return Type{}, false
		}
	}

	t := Type{
		ID:    uuid.NewString(),
		Label: label,
		Key:   machineKey(label),
		Color: customTypeColor,
	}
	r.types = append(r.types, t)
	return t, true
}

func machineKey(label string) string {
	key := strings.ToLower(strings.TrimSpace(label))
	return strings.ReplaceAll(key, " ", "_")
}
