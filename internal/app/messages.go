package app

import (
	"opscribe/internal/api"
	"opscribe/internal/capture"
	"opscribe/internal/db"
	"opscribe/internal/markers"
	"opscribe/internal/stream"
)

// SessionStartedMsg is sent when the backend registered the session and the
// audio device initialized. The recorder is ready but not yet running.
type SessionStartedMsg struct {
	Resp     api.StartSessionResponse
	Recorder *capture.Recorder
}

// StartFailedMsg is sent when device initialization or session registration
// fails. No state change happened.
type StartFailedMsg struct {
	Err error
}

// ChannelOpenedMsg is sent when the streaming socket is established.
type ChannelOpenedMsg struct {
	Channel *stream.Channel
}

// ChannelErrorMsg is sent when dialing or the inbound read loop fails.
type ChannelErrorMsg struct {
	Err error
}

// InboundMsg wraps one inbound message from the streaming socket.
type InboundMsg struct {
	In stream.Inbound
}

// ReconnectTickMsg fires when the backoff delay elapses and the next
// reconnection attempt should be made.
type ReconnectTickMsg struct{}

// ClockTickMsg advances the session clock once per second.
type ClockTickMsg struct{}

// PauseSyncedMsg carries the result of the pause notification.
type PauseSyncedMsg struct {
	Err error
}

// ResumeSyncedMsg carries the result of the resume notification.
type ResumeSyncedMsg struct {
	Err error
}

// StopSyncedMsg carries the result of the stop finalization call.
type StopSyncedMsg struct {
	Gen int
	Err error
}

// CancelSyncedMsg carries the result of the cancel call.
type CancelSyncedMsg struct {
	Err error
}

// ReconcileDoneMsg carries the reconciled transcript produced from the
// retained audio after stop. Gen identifies which stop initiated it; stale
// results are discarded.
type ReconcileDoneMsg struct {
	Gen  int
	Text string
	Err  error
}

// BackupSavedMsg carries the result of the local backup write.
type BackupSavedMsg struct {
	Err error
}

// SessionsLoadedMsg carries the stored-session list for the browser.
type SessionsLoadedMsg struct {
	Sessions []api.SessionSummary
	Err      error
}

// SessionOpenedMsg carries a full stored-session record for review.
type SessionOpenedMsg struct {
	Record api.SessionRecord
	Err    error
}

// MarkerAppendedMsg carries the result of persisting one live marker.
type MarkerAppendedMsg struct {
	Err error
}

// MarkersReplacedMsg carries the result of a full marker-array replace on a
// loaded session, with the array that was sent.
type MarkersReplacedMsg struct {
	Markers []markers.Marker
	Err     error
}

// SaveDoneMsg carries the result of saving a loaded session's edits.
type SaveDoneMsg struct {
	Err error
}

// ClearNoticeMsg clears a transient notice after a timeout.
type ClearNoticeMsg struct{}

// storeOpenedMsg delivers the opened backup store.
type storeOpenedMsg struct{ store *db.Store }
