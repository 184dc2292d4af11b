package session

import (
	"fmt"
	"strings"
	"time"
)

// State is the session lifecycle state.
type State int

const (
	Inactive State = iota
	Recording
	Paused
	Stopped
)

func (s State) String() string {
	switch s {
	case Inactive:
		return "INACTIVE"
	case Recording:
		return "RECORDING"
	case Paused:
		return "PAUSED"
	case Stopped:
		return "STOPPED"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// TransitionError reports an operation attempted from an illegal state.
type TransitionError struct {
	Op   string
	From State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s from %s", e.Op, e.From)
}

// ValidationError names every required field missing before capture may
// start. No state change accompanies it.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return "missing required fields: " + strings.Join(e.Missing, ", ")
}

// ValidateStart checks the fresh-session start guard: session name, at least
// one scenario-identifying metadata field, at least one named participant, a
// classification, and caveat text when the caveat type is custom.
func (s *Session) ValidateStart() error {
	var missing []string
	if s.Name == "" {
		missing = append(missing, "session name")
	}
	if !s.Metadata.Identifying() {
		missing = append(missing, "event metadata")
	}
	if !s.HasNamedParticipant() {
		missing = append(missing, "named participant")
	}
	if s.Classification == "" {
		missing = append(missing, "classification")
	}
	if s.CaveatType == CaveatCustom && strings.TrimSpace(s.CaveatText) == "" {
		missing = append(missing, "caveat text")
	}

	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}

// Start transitions a fresh session from INACTIVE to RECORDING. Legal only
// when the start guard holds; on refusal no side effect occurs.
func (s *Session) Start() error {
	if s.State != Inactive || s.Loaded() {
		return &TransitionError{Op: "start", From: s.State}
	}
	if err := s.ValidateStart(); err != nil {
		return err
	}
	s.State = Recording
	s.StartedAt = time.Now()
	return nil
}

// Pause transitions RECORDING to PAUSED.
func (s *Session) Pause() error {
	if s.State != Recording {
		return &TransitionError{Op: "pause", From: s.State}
	}
	s.State = Paused
	return nil
}

// Resume transitions PAUSED back to RECORDING.
func (s *Session) Resume() error {
	if s.State != Paused {
		return &TransitionError{Op: "resume", From: s.State}
	}
	s.State = Recording
	return nil
}

// Stop transitions RECORDING or PAUSED to STOPPED. The local transition is
// immediate; backend finalization happens asynchronously afterwards.
func (s *Session) Stop() error {
	if s.State != Recording && s.State != Paused {
		return &TransitionError{Op: "stop", From: s.State}
	}
	s.State = Stopped
	return nil
}
