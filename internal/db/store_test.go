package db

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "backups.sqlite"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveAndLoadBackup(t *testing.T) {
	store := openTestStore(t)

	saved := Backup{
		SessionID:  "sess-1",
		Name:       "Exercise Alpha",
		SavedAt:    time.Date(2026, 3, 4, 10, 30, 0, 0, time.UTC),
		Transcript: "[00:00:01] UNKNOWN: hello\n",
		Audio:      []byte{0x01, 0x02, 0x03},
	}
	if err := store.Save(saved); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.Backup("sess-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got == nil {
		t.Fatal("backup not found")
	}
	if got.Name != "Exercise Alpha" {
		t.Errorf("name = %q", got.Name)
	}
	if got.Transcript != saved.Transcript {
		t.Errorf("transcript = %q", got.Transcript)
	}
	if len(got.Audio) != 3 || got.Audio[2] != 0x03 {
		t.Errorf("audio = %v", got.Audio)
	}
	if got.SavedAt.Unix() != saved.SavedAt.Unix() {
		t.Errorf("savedAt = %v, want %v", got.SavedAt, saved.SavedAt)
	}
}

func TestBackupAbsent(t *testing.T) {
	store := openTestStore(t)

	got, err := store.Backup("missing")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != nil {
		t.Errorf("got = %+v, want nil", got)
	}
}

func TestSaveReplacesExisting(t *testing.T) {
	store := openTestStore(t)

	store.Save(Backup{SessionID: "sess-1", Name: "first", Audio: []byte("aa")})
	store.Save(Backup{SessionID: "sess-1", Name: "second", Audio: []byte("bbbb")})

	got, err := store.Backup("sess-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Name != "second" {
		t.Errorf("name = %q, want second", got.Name)
	}
	if len(got.Audio) != 4 {
		t.Errorf("audio len = %d, want 4", len(got.Audio))
	}
}

func TestListMostRecentFirst(t *testing.T) {
	store := openTestStore(t)

	base := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	store.Save(Backup{SessionID: "old", SavedAt: base, Audio: []byte("x")})
	store.Save(Backup{SessionID: "new", SavedAt: base.Add(time.Hour), Audio: []byte("xyzw")})

	infos, err := store.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("infos = %d, want 2", len(infos))
	}
	if infos[0].SessionID != "new" {
		t.Errorf("infos[0] = %q, want new", infos[0].SessionID)
	}
	if infos[1].AudioBytes != 1 {
		t.Errorf("old audio bytes = %d, want 1", infos[1].AudioBytes)
	}
}

func TestDelete(t *testing.T) {
	store := openTestStore(t)
	store.Save(Backup{SessionID: "sess-1"})

	if err := store.Delete("sess-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, _ := store.Backup("sess-1")
	if got != nil {
		t.Error("backup should be gone")
	}
}
