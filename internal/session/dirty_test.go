package session

import (
	"testing"

	"opscribe/internal/markers"
)

func loadedSession() (*Session, []markers.Marker) {
	s := &Session{
		ID:             "sess-7",
		LoadedID:       "sess-7",
		Name:           "Staff huddle",
		State:          Stopped,
		Classification: "UNCLASSIFIED",
		Transcript:     "[00:00:01] UNKNOWN: hello\n",
		Participants:   []Participant{{ID: "p1", Name: "CPT Vega"}},
	}
	ms := []markers.Marker{{ID: "m1", Type: markers.TypeInsight, Timestamp: 3}}
	return s, ms
}

func TestLoadClearsDirty(t *testing.T) {
	s, ms := loadedSession()
	var tr Tracker
	tr.Load(s, ms)

	if tr.Dirty() {
		t.Error("freshly loaded session should not be dirty")
	}
	if !tr.Tracking() {
		t.Error("tracker should be tracking after Load")
	}
}

func TestMutationSetsDirty(t *testing.T) {
	s, ms := loadedSession()
	var tr Tracker
	tr.Load(s, ms)

	s.Transcript = "edited"
	tr.Recompute(s, ms)
	if !tr.Dirty() {
		t.Error("transcript edit should set dirty")
	}

	// Reverting the edit clears it again.
	s.Transcript = "[00:00:01] UNKNOWN: hello\n"
	tr.Recompute(s, ms)
	if tr.Dirty() {
		t.Error("reverted edit should clear dirty")
	}
}

func TestMarkerMutationSetsDirty(t *testing.T) {
	s, ms := loadedSession()
	var tr Tracker
	tr.Load(s, ms)

	ms = append(ms, markers.Marker{ID: "m2", Type: markers.TypeQuestion, Timestamp: 9})
	tr.Recompute(s, ms)
	if !tr.Dirty() {
		t.Error("marker add should set dirty")
	}
}

func TestParticipantMutationSetsDirty(t *testing.T) {
	s, ms := loadedSession()
	var tr Tracker
	tr.Load(s, ms)

	s.Participants[0].Role = "S2"
	tr.Recompute(s, ms)
	if !tr.Dirty() {
		t.Error("participant edit should set dirty")
	}
}

func TestMarkSavedResetsBaseline(t *testing.T) {
	s, ms := loadedSession()
	var tr Tracker
	tr.Load(s, ms)

	s.Name = "Renamed"
	tr.Recompute(s, ms)
	if !tr.Dirty() {
		t.Fatal("rename should set dirty")
	}

	tr.MarkSaved(s, ms)
	if tr.Dirty() {
		t.Error("MarkSaved should clear dirty")
	}

	// Re-applying the same values leaves dirty false.
	s.Name = "Renamed"
	tr.Recompute(s, ms)
	if tr.Dirty() {
		t.Error("re-applying saved values should not set dirty")
	}
}

func TestCommitMarkersOnly(t *testing.T) {
	s, ms := loadedSession()
	var tr Tracker
	tr.Load(s, ms)

	// Transcript edit plus a marker delete, then a successful marker replace.
	s.Transcript = "edited"
	ms = ms[:0]
	tr.Recompute(s, ms)
	if !tr.Dirty() {
		t.Fatal("edits should set dirty")
	}

	tr.CommitMarkers(ms)
	tr.Recompute(s, ms)
	if !tr.Dirty() {
		t.Error("transcript edit still pending; dirty should remain set")
	}

	s.Transcript = "[00:00:01] UNKNOWN: hello\n"
	tr.Recompute(s, ms)
	if tr.Dirty() {
		t.Error("after transcript revert only committed markers remain; dirty should be clear")
	}
}

func TestDisable(t *testing.T) {
	s, ms := loadedSession()
	var tr Tracker
	tr.Load(s, ms)
	tr.Disable()

	s.Name = "changed"
	tr.Recompute(s, ms)
	if tr.Dirty() {
		t.Error("disabled tracker should never report dirty")
	}
}

func TestTrackerInertUntilLoad(t *testing.T) {
	s, ms := loadedSession()
	var tr Tracker

	tr.Recompute(s, ms)
	if tr.Dirty() {
		t.Error("tracker without a baseline should not report dirty")
	}
}
