package api

import "fmt"

// AuthenticationError means no bearer token was available. The operation is
// refused before any network call is attempted.
type AuthenticationError struct {
	Reason string
}

func (e *AuthenticationError) Error() string {
	return "authentication: " + e.Reason
}

// SyncError wraps a failed best-effort backend notification (pause, resume,
// marker append). Local state has already advanced; the failure is surfaced
// as a warning, not a hard failure.
type SyncError struct {
	Op  string
	Err error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync %s: %v", e.Op, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// ReconciliationError wraps a failed post-stop re-transcription or save. The
// prior authoritative data is retained and the operator may retry.
type ReconciliationError struct {
	Op  string
	Err error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("reconciliation %s: %v", e.Op, e.Err)
}

func (e *ReconciliationError) Unwrap() error { return e.Err }

// StatusError reports a non-2xx backend response.
type StatusError struct {
	Op   string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: backend returned %d: %s", e.Op, e.Code, e.Body)
}
