package session

import (
	"reflect"

	"opscribe/internal/markers"
)

// Snapshot captures every tracked session field for dirty comparison.
type Snapshot struct {
	Name           string
	Transcript     string
	Classification string
	CaveatType     string
	CaveatText     string
	Metadata       EventMetadata
	Participants   []Participant
	Markers        []markers.Marker
}

// TakeSnapshot deep-copies the tracked fields of a session plus its markers.
func TakeSnapshot(s *Session, ms []markers.Marker) Snapshot {
	parts := make([]Participant, len(s.Participants))
	copy(parts, s.Participants)
	mks := make([]markers.Marker, len(ms))
	copy(mks, ms)

	return Snapshot{
		Name:           s.Name,
		Transcript:     s.Transcript,
		Classification: s.Classification,
		CaveatType:     s.CaveatType,
		CaveatText:     s.CaveatText,
		Metadata:       s.Metadata,
		Participants:   parts,
		Markers:        mks,
	}
}

// Equal reports structural equality with another snapshot.
func (sn Snapshot) Equal(other Snapshot) bool {
	return reflect.DeepEqual(sn, other)
}

// Tracker detects unsaved edits on a loaded session by comparing current
// values against the snapshot taken at load time or at last successful save.
// It does nothing until Load enables it.
type Tracker struct {
	tracking bool
	saved    Snapshot
	dirty    bool
}

// Load snapshots the just-loaded session as the saved baseline and clears
// the dirty flag.
func (t *Tracker) Load(s *Session, ms []markers.Marker) {
	t.saved = TakeSnapshot(s, ms)
	t.tracking = true
	t.dirty = false
}

// Disable stops tracking; Dirty reports false until the next Load.
func (t *Tracker) Disable() {
	t.tracking = false
	t.dirty = false
	t.saved = Snapshot{}
}

// Recompute re-evaluates dirtiness after a mutation to any tracked field.
func (t *Tracker) Recompute(s *Session, ms []markers.Marker) {
	if !t.tracking {
		return
	}
	t.dirty = !TakeSnapshot(s, ms).Equal(t.saved)
}

// MarkSaved atomically replaces the baseline with the current values and
// clears the dirty flag.
func (t *Tracker) MarkSaved(s *Session, ms []markers.Marker) {
	if !t.tracking {
		return
	}
	t.saved = TakeSnapshot(s, ms)
	t.dirty = false
}

// CommitMarkers updates only the marker portion of the baseline, used when a
// marker-array replace succeeds against the backend while other fields may
// still hold unsaved edits.
func (t *Tracker) CommitMarkers(ms []markers.Marker) {
	if !t.tracking {
		return
	}
	mks := make([]markers.Marker, len(ms))
	copy(mks, ms)
	t.saved.Markers = mks
}

// Dirty reports whether tracked fields diverge from the saved baseline.
func (t *Tracker) Dirty() bool { return t.dirty }

// Tracking reports whether a loaded session is being tracked.
func (t *Tracker) Tracking() bool { return t.tracking }
