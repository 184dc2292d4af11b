// Package api is the HTTP client for the session backend: session CRUD,
// lifecycle notifications, marker persistence, and the file-transcription
// upload used by the post-stop reconciliation pass.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"opscribe/internal/markers"
)

// TokenProvider supplies the bearer token held by the external auth
// collaborator.
type TokenProvider interface {
	Token() (string, error)
}

// StaticToken is a fixed token value.
type StaticToken string

func (t StaticToken) Token() (string, error) { return string(t), nil }

// FileToken reads the token from a file on every call, trimmed.
type FileToken string

func (t FileToken) Token() (string, error) {
	data, err := os.ReadFile(string(t))
	if err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Client talks to the session backend.
type Client struct {
	base   string
	http   *http.Client
	upload *http.Client
	tokens TokenProvider
}

// NewClient builds a client for the given base URL. The upload client gets a
// long timeout; complete-audio transcriptions are slow.
func NewClient(base string, tokens TokenProvider) *Client {
	return &Client{
		base:   strings.TrimRight(base, "/"),
		http:   &http.Client{Timeout: 30 * time.Second},
		upload: &http.Client{Timeout: 10 * time.Minute},
		tokens: tokens,
	}
}

// bearer resolves the token, failing fast before any network call.
func (c *Client) bearer() (string, error) {
	if c.tokens == nil {
		return "", &AuthenticationError{Reason: "no token provider configured"}
	}
	tok, err := c.tokens.Token()
	if err != nil {
		return "", &AuthenticationError{Reason: err.Error()}
	}
	if tok == "" {
		return "", &AuthenticationError{Reason: "empty bearer token"}
	}
	return tok, nil
}

// doJSON performs an authenticated JSON round trip. out may be nil when the
// response body is irrelevant.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	tok, err := c.bearer()
	if err != nil {
		return err
	}

	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Op: method + " " + path, Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// StartSession registers a new live session and returns its id plus the
// streaming endpoint.
func (c *Client) StartSession(ctx context.Context, req StartSessionRequest) (StartSessionResponse, error) {
	var resp StartSessionResponse
	err := c.doJSON(ctx, http.MethodPost, "/start-session", req, &resp)
	return resp, err
}

// PauseSession notifies the backend of a pause. Best-effort.
func (c *Client) PauseSession(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodPost, "/sessions/"+url.PathEscape(id)+"/pause", nil, nil)
}

// ResumeSession notifies the backend of a resume. Best-effort.
func (c *Client) ResumeSession(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodPost, "/sessions/"+url.PathEscape(id)+"/resume", nil, nil)
}

// CancelSession discards the session server-side.
func (c *Client) CancelSession(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodPost, "/sessions/"+url.PathEscape(id)+"/cancel", nil, nil)
}

// StopSession finalizes the session server-side.
func (c *Client) StopSession(ctx context.Context, id string, req StopSessionRequest) error {
	return c.doJSON(ctx, http.MethodPost, "/sessions/"+url.PathEscape(id)+"/stop", req, nil)
}

// ListSessions fetches summaries of stored sessions.
func (c *Client) ListSessions(ctx context.Context) ([]SessionSummary, error) {
	var out []SessionSummary
	err := c.doJSON(ctx, http.MethodGet, "/sessions", nil, &out)
	return out, err
}

// GetSession fetches the full record of a stored session.
func (c *Client) GetSession(ctx context.Context, id string) (SessionRecord, error) {
	var out SessionRecord
	err := c.doJSON(ctx, http.MethodGet, "/sessions/"+url.PathEscape(id), nil, &out)
	return out, err
}

// UpdateSession applies a partial or full update to a stored session.
func (c *Client) UpdateSession(ctx context.Context, id string, req UpdateSessionRequest) error {
	return c.doJSON(ctx, http.MethodPut, "/sessions/"+url.PathEscape(id), req, nil)
}

// AppendMarker persists one new marker on an active live session.
func (c *Client) AppendMarker(ctx context.Context, id string, m markers.Marker) error {
	return c.doJSON(ctx, http.MethodPost, "/sessions/"+url.PathEscape(id)+"/markers", m, nil)
}

// GetTranscription fetches the stored transcript text.
func (c *Client) GetTranscription(ctx context.Context, id string) (string, error) {
	var out TranscriptionResponse
	err := c.doJSON(ctx, http.MethodGet, "/sessions/"+url.PathEscape(id)+"/transcription", nil, &out)
	return out.FullTranscriptText, err
}

// TranscribeFile uploads a complete audio blob for offline re-transcription.
func (c *Client) TranscribeFile(ctx context.Context, filename string, audio []byte) (TranscribeFileResponse, error) {
	var zero TranscribeFileResponse

	tok, err := c.bearer()
	if err != nil {
		return zero, err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return zero, fmt.Errorf("build multipart: %w", err)
	}
	if _, err := fw.Write(audio); err != nil {
		return zero, fmt.Errorf("write multipart: %w", err)
	}
	if err := mw.Close(); err != nil {
		return zero, fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/transcribe-file", &body)
	if err != nil {
		return zero, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.upload.Do(req)
	if err != nil {
		return zero, fmt.Errorf("POST /transcribe-file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return zero, &StatusError{Op: "POST /transcribe-file", Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	var out TranscribeFileResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return zero, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}
