package stream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"opscribe/internal/markers"
	"opscribe/internal/transcript"
)

var upgrader = websocket.Upgrader{}

// startMockBackend runs a websocket endpoint driven by the given handler.
func startMockBackend(t *testing.T, handle func(conn *websocket.Conn)) string {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		handle(conn)
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestDialFailure(t *testing.T) {
	_, err := Dial(context.Background(), "ws://127.0.0.1:1/nope")

	var cerr *ConnectionError
	if !errors.As(err, &cerr) {
		t.Fatalf("err = %v, want ConnectionError", err)
	}
	if cerr.Op != "dial" {
		t.Errorf("op = %q, want dial", cerr.Op)
	}
}

func TestSendChunkAndReadTranscription(t *testing.T) {
	url := startMockBackend(t, func(conn *websocket.Conn) {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if mt != websocket.BinaryMessage {
			return
		}
		// Echo a transcription update once audio arrives.
		conn.WriteJSON(Inbound{
			Type: InboundTranscription,
			Segments: []transcript.Segment{
				{Start: 0, Text: "received " + string(data[:2])},
			},
		})
		// Hold the socket open until the client closes.
		conn.ReadMessage()
	})

	ch, err := Dial(context.Background(), url)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ch.Close()

	if err := ch.SendChunk([]byte("pcm-bytes")); err != nil {
		t.Fatalf("send chunk: %v", err)
	}

	in, err := ch.Read()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if in.Type != InboundTranscription {
		t.Errorf("type = %q", in.Type)
	}
	if len(in.Segments) != 1 || in.Segments[0].Text != "received pc" {
		t.Errorf("segments = %+v", in.Segments)
	}
}

func TestReadStatusUpdate(t *testing.T) {
	url := startMockBackend(t, func(conn *websocket.Conn) {
		conn.WriteJSON(Inbound{Type: InboundStatus, Status: StatusError, Message: "asr overloaded"})
		conn.ReadMessage()
	})

	ch, err := Dial(context.Background(), url)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ch.Close()

	in, err := ch.Read()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if in.Status != StatusError || in.Message != "asr overloaded" {
		t.Errorf("inbound = %+v", in)
	}
}

func TestSendSpeakerTag(t *testing.T) {
	got := make(chan SpeakerTag, 1)
	url := startMockBackend(t, func(conn *websocket.Conn) {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var tag SpeakerTag
		if json.Unmarshal(data, &tag) == nil {
			got <- tag
		}
		conn.ReadMessage()
	})

	ch, err := Dial(context.Background(), url)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ch.Close()

	m := markers.Marker{ID: "m1", Type: markers.TypeSpeakerTag, Timestamp: 12,
		Speaker: &markers.Speaker{ID: "p1", Name: "CPT Vega"}}
	if err := ch.SendSpeakerTag(m); err != nil {
		t.Fatalf("send speaker tag: %v", err)
	}

	tag := <-got
	if tag.Type != "speaker_tag" {
		t.Errorf("type = %q", tag.Type)
	}
	if tag.Marker.Speaker == nil || tag.Marker.Speaker.Name != "CPT Vega" {
		t.Errorf("marker = %+v", tag.Marker)
	}
}

func TestNormalCloseClassification(t *testing.T) {
	url := startMockBackend(t, func(conn *websocket.Conn) {
		msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down")
		conn.WriteMessage(websocket.CloseMessage, msg)
	})

	ch, err := Dial(context.Background(), url)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ch.Close()

	_, err = ch.Read()
	if err == nil {
		t.Fatal("read after close should fail")
	}
	if !NormalClose(err) {
		t.Errorf("going-away close should classify as normal, got %v", err)
	}
}

func TestAbnormalCloseClassification(t *testing.T) {
	url := startMockBackend(t, func(conn *websocket.Conn) {
		// Drop the TCP connection without a close frame.
		conn.Close()
	})

	ch, err := Dial(context.Background(), url)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ch.Close()

	_, err = ch.Read()
	if err == nil {
		t.Fatal("read after drop should fail")
	}
	if NormalClose(err) {
		t.Errorf("dropped connection should not classify as normal, got %v", err)
	}
}

func TestSendAfterCloseFails(t *testing.T) {
	url := startMockBackend(t, func(conn *websocket.Conn) {
		conn.ReadMessage()
	})

	ch, err := Dial(context.Background(), url)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	if err := ch.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := ch.Close(); err != nil {
		t.Errorf("second close should be a no-op, got %v", err)
	}

	if err := ch.SendChunk([]byte("late")); err == nil {
		t.Error("send after close should fail")
	}
}

func TestConnectionStateString(t *testing.T) {
	cases := map[ConnectionState]string{
		Disconnected: "disconnected",
		Connecting:   "connecting",
		Open:         "open",
		Reconnecting: "reconnecting",
		Failed:       "failed",
	}
	for state, want := range cases {
		if state.String() != want {
			t.Errorf("%d.String() = %q, want %q", state, state.String(), want)
		}
	}
}
