// Package session models a recording session: its lifecycle state machine,
// the timeline clock markers are stamped from, and dirty tracking for
// loaded sessions.
package session

import "time"

// Participant is a named attendee of the session.
type Participant struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Role         string `json:"role,omitempty"`
	Rank         string `json:"rank,omitempty"`
	Organization string `json:"organization,omitempty"`
	Color        string `json:"color,omitempty"`
}

// EventMetadata describes the exercise or event being recorded.
type EventMetadata struct {
	Wargame      string `json:"wargame,omitempty"`
	Scenario     string `json:"scenario,omitempty"`
	Phase        string `json:"phase,omitempty"`
	Location     string `json:"location,omitempty"`
	Organization string `json:"organization,omitempty"`
}

// Identifying reports whether at least one scenario-identifying field is set.
func (m EventMetadata) Identifying() bool {
	return m.Wargame != "" || m.Scenario != "" || m.Phase != "" ||
		m.Location != "" || m.Organization != ""
}

// CaveatCustom is the caveat type that requires free-text caveat content.
const CaveatCustom = "custom"

// Session is one recording or reviewed-recording unit. A session is either
// live (LoadedID empty, created fresh) or loaded (fetched from the backend
// for review). A live session acquires its backend-assigned ID once capture
// starts; a loaded session's ID never changes.
type Session struct {
	ID             string
	LoadedID       string
	Name           string
	State          State
	Classification string
	CaveatType     string
	CaveatText     string
	Metadata       EventMetadata
	Participants   []Participant
	Transcript     string
	AudioURL       string
	StartedAt      time.Time
}

// Loaded reports whether this session was fetched from the backend for review.
func (s *Session) Loaded() bool { return s.LoadedID != "" }

// HasNamedParticipant reports whether at least one participant has a name.
func (s *Session) HasNamedParticipant() bool {
	for _, p := range s.Participants {
		if p.Name != "" {
			return true
		}
	}
	return false
}

// Reset returns the session to fresh defaults in INACTIVE. Process-wide
// state (the marker-type registry, the fetched session list) is owned by
// callers and survives.
func (s *Session) Reset() {
	*s = Session{}
}
