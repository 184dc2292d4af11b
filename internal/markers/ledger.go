package markers

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrOutOfRange is returned when a marker timestamp falls outside the known
// session timeline.
var ErrOutOfRange = errors.New("marker timestamp outside session timeline")

// Speaker identifies the participant referenced by a speaker-tag marker.
type Speaker struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}

// Marker is a time-stamped annotation on the session timeline.
type Marker struct {
	ID             string    `json:"id"`
	Type           string    `json:"type"`
	Timestamp      float64   `json:"timestamp"`
	Description    string    `json:"description,omitempty"`
	Classification string    `json:"classification,omitempty"`
	Author         string    `json:"author,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	Speaker        *Speaker  `json:"speaker,omitempty"`
}

// Ledger is the ordered set of markers for one session. Display order follows
// insertion; consumers sort by timestamp as needed.
type Ledger struct {
	registry *Registry
	markers  []Marker
}

// NewLedger returns an empty ledger backed by the given registry.
func NewLedger(registry *Registry) *Ledger {
	return &Ledger{registry: registry}
}

// Registry returns the marker-type registry.
func (l *Ledger) Registry() *Registry { return l.registry }

// Add appends a marker stamped at the given timeline position. The timestamp
// must lie within [0, limit]; limit <= 0 means only the lower bound applies.
func (l *Ledger) Add(typeKey, description, classification, author string, at, limit float64) (Marker, error) {
	if _, ok := l.registry.Lookup(typeKey); !ok {
		return Marker{}, fmt.Errorf("unknown marker type %q", typeKey)
	}
	if err := checkRange(at, limit); err != nil {
		return Marker{}, err
	}

	m := Marker{
		ID:             uuid.NewString(),
		Type:           typeKey,
		Timestamp:      at,
		Description:    description,
		Classification: classification,
		Author:         author,
		CreatedAt:      time.Now(),
	}
	l.markers = append(l.markers, m)
	return m, nil
}

// AddSpeakerTag appends a speaker-tag-event marker for the given participant.
func (l *Ledger) AddSpeakerTag(sp Speaker, author string, at, limit float64) (Marker, error) {
	if err := checkRange(at, limit); err != nil {
		return Marker{}, err
	}

	m := Marker{
		ID:          uuid.NewString(),
		Type:        TypeSpeakerTag,
		Timestamp:   at,
		Description: sp.Name,
		Author:      author,
		CreatedAt:   time.Now(),
		Speaker:     &sp,
	}
	l.markers = append(l.markers, m)
	return m, nil
}

// Remove deletes the marker with the given id. Returns false if absent.
func (l *Ledger) Remove(id string) bool {
	for i, m := range l.markers {
		if m.ID == id {
			l.markers = append(l.markers[:i], l.markers[i+1:]...)
			return true
		}
	}
	return false
}

// Replace seeds the ledger from a loaded session record.
func (l *Ledger) Replace(ms []Marker) {
	l.markers = make([]Marker, len(ms))
	copy(l.markers, ms)
}

// All returns a copy of the markers in insertion order.
func (l *Ledger) All() []Marker {
	out := make([]Marker, len(l.markers))
	copy(out, l.markers)
	return out
}

// Len reports the number of markers.
func (l *Ledger) Len() int { return len(l.markers) }

func checkRange(at, limit float64) error {
	if at < 0 {
		return ErrOutOfRange
	}
	if limit > 0 && at > limit {
		return ErrOutOfRange
	}
	return nil
}
