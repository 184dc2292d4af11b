package db

import (
	"fmt"
	"os"
	"testing"
)

// TestLiveBackups opens the real local backup database and lists its
// contents. Skipped if the database doesn't exist.
func TestLiveBackups(t *testing.T) {
	path := DefaultPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Skip("backup database not found at", path)
	}

	store, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	infos, err := store.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, info := range infos {
		fmt.Printf("backup: session=%s name=%q saved=%s audio=%dB\n",
			info.SessionID, info.Name, info.SavedAt.Format("2006-01-02 15:04:05"), info.AudioBytes)
	}
}
