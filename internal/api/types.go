package api

import (
	"time"

	"opscribe/internal/markers"
	"opscribe/internal/session"
	"opscribe/internal/transcript"
)

// Metadata is the event metadata payload including the classification block.
type Metadata struct {
	session.EventMetadata
	Classification string `json:"classification"`
	CaveatType     string `json:"caveat_type,omitempty"`
	CaveatText     string `json:"caveat_text,omitempty"`
}

// StartSessionRequest is the POST /start-session body.
type StartSessionRequest struct {
	OperatorID    string                `json:"operator_id"`
	SessionName   string                `json:"session_name"`
	OutputFormats []string              `json:"output_formats,omitempty"`
	EventMetadata Metadata              `json:"event_metadata"`
	Participants  []session.Participant `json:"participants"`
}

// StartSessionResponse carries the backend-assigned session id and the
// streaming endpoint for the capture socket.
type StartSessionResponse struct {
	SessionID    string `json:"session_id"`
	StreamingURL string `json:"streaming_url"`
}

// StopSessionRequest is the POST /sessions/{id}/stop body.
type StopSessionRequest struct {
	AudioFilename         string `json:"audio_filename"`
	TranscriptionFilename string `json:"transcription_filename"`
}

// SessionSummary is one entry of GET /sessions.
type SessionSummary struct {
	SessionID     string    `json:"session_id"`
	SessionName   string    `json:"session_name"`
	StartTime     time.Time `json:"start_time"`
	EventMetadata Metadata  `json:"event_metadata"`
}

// SessionRecord is the full GET /sessions/{id} record.
type SessionRecord struct {
	SessionID          string                `json:"session_id"`
	SessionName        string                `json:"session_name"`
	EventMetadata      Metadata              `json:"event_metadata"`
	Participants       []session.Participant `json:"participants"`
	Markers            []markers.Marker      `json:"markers"`
	FullTranscriptText string                `json:"full_transcript_text"`
	AudioURL           string                `json:"audio_url,omitempty"`
	DurationSeconds    float64               `json:"duration_seconds,omitempty"`
}

// UpdateSessionRequest is the PUT /sessions/{id} body. Nil fields are
// omitted, allowing partial updates.
type UpdateSessionRequest struct {
	SessionName        *string                `json:"session_name,omitempty"`
	EventMetadata      *Metadata              `json:"event_metadata,omitempty"`
	Participants       *[]session.Participant `json:"participants,omitempty"`
	FullTranscriptText *string                `json:"full_transcript_text,omitempty"`
	Markers            *[]markers.Marker      `json:"markers,omitempty"`
}

// TranscribeFileResponse is the POST /transcribe-file result.
type TranscribeFileResponse struct {
	Language string               `json:"language"`
	Segments []transcript.Segment `json:"segments"`
}

// TranscriptionResponse is the GET /sessions/{id}/transcription result.
type TranscriptionResponse struct {
	FullTranscriptText string `json:"full_transcript_text"`
}

// StringPtr returns a pointer to s. Convenience for partial updates.
func StringPtr(s string) *string { return &s }
