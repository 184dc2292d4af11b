// Package stream maintains the persistent socket to the transcription
// backend: outbound binary audio chunks, inbound JSON transcript and status
// messages, and the reconnection policy.
package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"

	"opscribe/internal/markers"
	"opscribe/internal/transcript"
)

// Inbound message types.
const (
	InboundTranscription = "transcription_update"
	InboundStatus        = "status_update"
)

// StatusError marks a status_update carrying a backend error. Treated as a
// non-fatal warning.
const StatusError = "error"

// Inbound is a JSON control/data message from the backend.
type Inbound struct {
	Type     string               `json:"type"`
	Segments []transcript.Segment `json:"segments,omitempty"`
	Status   string               `json:"status,omitempty"`
	Message  string               `json:"message,omitempty"`
}

// SpeakerTag is the outbound shape for a live speaker-tag event.
type SpeakerTag struct {
	Type   string         `json:"type"`
	Marker markers.Marker `json:"marker"`
}

// ConnectionState of the channel. Runtime-only, never persisted.
type ConnectionState int

const (
	Disconnected ConnectionState = iota
	Connecting
	Open
	Reconnecting
	Failed
)

func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Reconnecting:
		return "reconnecting"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("ConnectionState(%d)", int(s))
}

// ConnectionError wraps a socket open/send/close failure. Never fatal to the
// session: capture degrades to local-only recording.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("stream %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Channel is one open socket to the transcription backend. Writes are
// serialized; reads happen from a single reader loop.
type Channel struct {
	conn *websocket.Conn

	writeMu sync.Mutex
	closed  bool
}

// Dial opens the channel against the streaming URL returned by the
// session-start API.
func Dial(ctx context.Context, url string) (*Channel, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, &ConnectionError{Op: "dial", Err: err}
	}
	return &Channel{conn: conn}, nil
}

// SendChunk writes one binary audio chunk. Failures are reported, not
// retried; the caller drops the chunk and relies on the retained local
// sequence.
func (c *Channel) SendChunk(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.closed {
		return &ConnectionError{Op: "send chunk", Err: errClosed}
	}
	if err := c.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return &ConnectionError{Op: "send chunk", Err: err}
	}
	return nil
}

// SendSpeakerTag writes a live speaker-tag event as JSON.
func (c *Channel) SendSpeakerTag(m markers.Marker) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.closed {
		return &ConnectionError{Op: "send speaker tag", Err: errClosed}
	}
	if err := c.conn.WriteJSON(SpeakerTag{Type: "speaker_tag", Marker: m}); err != nil {
		return &ConnectionError{Op: "send speaker tag", Err: err}
	}
	return nil
}

// Read blocks until the next inbound JSON message arrives.
func (c *Channel) Read() (Inbound, error) {
	var in Inbound
	if err := c.conn.ReadJSON(&in); err != nil {
		return Inbound{}, &ConnectionError{Op: "read", Err: err}
	}
	return in, nil
}

// Close performs an operator-initiated shutdown: a normal close frame is
// written so the backend does not treat the drop as abnormal. Idempotent.
func (c *Channel) Close() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.conn.WriteMessage(websocket.CloseMessage, msg)
	return c.conn.Close()
}

// NormalClose reports whether the error is a normal/going-away close, after
// which no reconnection is attempted.
func NormalClose(err error) bool {
	var cerr *ConnectionError
	if errors.As(err, &cerr) {
		err = cerr.Err
	}
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}

var errClosed = fmt.Errorf("channel closed")
