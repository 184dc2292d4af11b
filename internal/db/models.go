// Package db stores local session backups in SQLite: the concatenated audio
// blob retained during capture plus the last known transcript. The backup is
// the local fallback artifact when streaming or reconciliation degrades.
package db

import "time"

// Backup is one stored session backup.
type Backup struct {
	SessionID  string
	Name       string
	SavedAt    time.Time
	Transcript string
	Audio      []byte
}

// Info summarizes a backup without its audio payload.
type Info struct {
	SessionID  string
	Name       string
	SavedAt    time.Time
	AudioBytes int64
}
