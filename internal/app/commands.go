package app

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"opscribe/internal/api"
	"opscribe/internal/capture"
	"opscribe/internal/config"
	"opscribe/internal/db"
	"opscribe/internal/markers"
	"opscribe/internal/session"
	"opscribe/internal/stream"
	"opscribe/internal/transcript"
)

// startSessionCmd initializes the audio device and registers the session with
// the backend. The device is released again if registration fails, so a
// refused start leaves nothing held open.
func startSessionCmd(client *api.Client, cfg config.Config, sess session.Session) tea.Cmd {
	return func() tea.Msg {
		dev := capture.NewExecDevice(cfg.CaptureCommand)
		if err := dev.Initialize(context.Background()); err != nil {
			return StartFailedMsg{Err: err}
		}

		req := api.StartSessionRequest{
			OperatorID:    cfg.OperatorID,
			SessionName:   sess.Name,
			OutputFormats: cfg.OutputFormats,
			EventMetadata: api.Metadata{
				EventMetadata:  sess.Metadata,
				Classification: sess.Classification,
				CaveatType:     sess.CaveatType,
				CaveatText:     sess.CaveatText,
			},
			Participants: sess.Participants,
		}
		resp, err := client.StartSession(context.Background(), req)
		if err != nil {
			dev.Close()
			return StartFailedMsg{Err: err}
		}

		return SessionStartedMsg{
			Resp:     resp,
			Recorder: capture.NewRecorder(dev, cfg.ChunkBytes()),
		}
	}
}

// openChannelCmd dials the streaming socket.
func openChannelCmd(url string) tea.Cmd {
	return func() tea.Msg {
		ch, err := stream.Dial(context.Background(), url)
		if err != nil {
			return ChannelErrorMsg{Err: err}
		}
		return ChannelOpenedMsg{Channel: ch}
	}
}

// readInboundCmd reads the next message from the streaming socket.
func readInboundCmd(ch *stream.Channel) tea.Cmd {
	return func() tea.Msg {
		in, err := ch.Read()
		if err != nil {
			return ChannelErrorMsg{Err: err}
		}
		return InboundMsg{In: in}
	}
}

// reconnectTickCmd schedules the next reconnection attempt after the backoff
// delay for the given attempt number.
func reconnectTickCmd(b stream.Backoff, attempt int) tea.Cmd {
	return tea.Tick(b.Delay(attempt), func(time.Time) tea.Msg {
		return ReconnectTickMsg{}
	})
}

// clockTickCmd advances the session clock once per second.
func clockTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return ClockTickMsg{}
	})
}

// pauseCmd notifies the backend of a pause.
func pauseCmd(client *api.Client, id string) tea.Cmd {
	return func() tea.Msg {
		return PauseSyncedMsg{Err: client.PauseSession(context.Background(), id)}
	}
}

// resumeCmd notifies the backend of a resume.
func resumeCmd(client *api.Client, id string) tea.Cmd {
	return func() tea.Msg {
		return ResumeSyncedMsg{Err: client.ResumeSession(context.Background(), id)}
	}
}

// cancelCmd discards the session server-side.
func cancelCmd(client *api.Client, id string) tea.Cmd {
	return func() tea.Msg {
		return CancelSyncedMsg{Err: client.CancelSession(context.Background(), id)}
	}
}

// stopCmd finalizes the session server-side.
func stopCmd(client *api.Client, id string, gen int, req api.StopSessionRequest) tea.Cmd {
	return func() tea.Msg {
		err := client.StopSession(context.Background(), id, req)
		if err != nil {
			err = &api.SyncError{Op: "stop session", Err: err}
		}
		return StopSyncedMsg{Gen: gen, Err: err}
	}
}

// reconcileCmd uploads the retained audio for a full re-transcription,
// formats the result, and writes it back as the transcript of record.
func reconcileCmd(client *api.Client, id string, gen int, filename string, audio []byte) tea.Cmd {
	return func() tea.Msg {
		resp, err := client.TranscribeFile(context.Background(), filename, audio)
		if err != nil {
			return ReconcileDoneMsg{Gen: gen, Err: &api.ReconciliationError{Op: "transcribe file", Err: err}}
		}

		text := transcript.FormatFinal(resp.Segments)
		err = client.UpdateSession(context.Background(), id, api.UpdateSessionRequest{
			FullTranscriptText: api.StringPtr(text),
		})
		if err != nil {
			return ReconcileDoneMsg{Gen: gen, Text: text, Err: &api.ReconciliationError{Op: "store transcript", Err: err}}
		}
		return ReconcileDoneMsg{Gen: gen, Text: text}
	}
}

// saveBackupCmd writes the local backup artifact for the stopped session.
func saveBackupCmd(store *db.Store, b db.Backup) tea.Cmd {
	return func() tea.Msg {
		if store == nil {
			return BackupSavedMsg{}
		}
		return BackupSavedMsg{Err: store.Save(b)}
	}
}

// loadSessionsCmd fetches the stored-session list.
func loadSessionsCmd(client *api.Client) tea.Cmd {
	return func() tea.Msg {
		list, err := client.ListSessions(context.Background())
		return SessionsLoadedMsg{Sessions: list, Err: err}
	}
}

// openSessionCmd fetches one stored session for review.
func openSessionCmd(client *api.Client, id string) tea.Cmd {
	return func() tea.Msg {
		rec, err := client.GetSession(context.Background(), id)
		return SessionOpenedMsg{Record: rec, Err: err}
	}
}

// appendMarkerCmd persists one new marker on the active live session.
func appendMarkerCmd(client *api.Client, id string, m markers.Marker) tea.Cmd {
	return func() tea.Msg {
		err := client.AppendMarker(context.Background(), id, m)
		if err != nil {
			err = &api.SyncError{Op: "append marker", Err: err}
		}
		return MarkerAppendedMsg{Err: err}
	}
}

// replaceMarkersCmd sends the full marker array of a loaded session.
func replaceMarkersCmd(client *api.Client, id string, ms []markers.Marker) tea.Cmd {
	return func() tea.Msg {
		err := client.UpdateSession(context.Background(), id, api.UpdateSessionRequest{Markers: &ms})
		if err != nil {
			err = &api.SyncError{Op: "replace markers", Err: err}
		}
		return MarkersReplacedMsg{Markers: ms, Err: err}
	}
}

// saveSessionCmd pushes every edited field of a loaded session.
func saveSessionCmd(client *api.Client, id string, req api.UpdateSessionRequest) tea.Cmd {
	return func() tea.Msg {
		err := client.UpdateSession(context.Background(), id, req)
		if err != nil {
			err = &api.SyncError{Op: "save session", Err: err}
		}
		return SaveDoneMsg{Err: err}
	}
}

// openStoreCmd opens the local backup store.
func openStoreCmd(path string) tea.Cmd {
	return func() tea.Msg {
		if path == "" {
			path = db.DefaultPath()
		}
		store, err := db.Open(path)
		if err != nil {
			return nil // backups are best-effort; run without the store
		}
		return storeOpenedMsg{store: store}
	}
}

// clearNoticeCmd fires after a delay to clear transient notices.
func clearNoticeCmd() tea.Cmd {
	return tea.Tick(5*time.Second, func(time.Time) tea.Msg {
		return ClearNoticeMsg{}
	})
}
