package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"

	"opscribe/internal/api"
	"opscribe/internal/capture"
	"opscribe/internal/config"
	"opscribe/internal/db"
	"opscribe/internal/markers"
	"opscribe/internal/session"
	"opscribe/internal/stream"
	"opscribe/internal/transcript"
	"opscribe/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
)

// viewMode selects the active screen.
type viewMode int

const (
	viewMain viewMode = iota
	viewBrowse
)

// inputMode selects what the text input line is collecting.
type inputMode int

const (
	inputNone inputMode = iota
	inputMarker
	inputCustomType
)

// confirmMode is the pending unsaved-changes prompt, if any.
type confirmMode int

const (
	confirmNone confirmMode = iota
	confirmQuit
	confirmClose
)

// PanelFocus tracks which panel has keyboard focus.
type PanelFocus int

const (
	FocusTranscript PanelFocus = iota
	FocusMarkers
)

// Model is the root bubbletea model for the opscribe console.
type Model struct {
	cfg    config.Config
	client *api.Client
	store  *db.Store

	// Session state
	sess     session.Session
	clock    *session.Clock
	registry *markers.Registry
	ledger   *markers.Ledger
	tracker  session.Tracker
	asm      transcript.Assembler
	starting bool

	// Capture and streaming
	recorder         *capture.Recorder
	channel          *stream.Channel
	streamURL        string
	connState        stream.ConnectionState
	backoff          stream.Backoff
	reconnectAttempt int

	// Stop and reconciliation
	stopGen     int
	reconciling bool
	spinner     spinner.Model

	// Session browser
	summaries   []api.SessionSummary
	selectedRow int

	// Marker entry
	input         textinput.Model
	inputMode     inputMode
	markerTypeIdx int
	speakerIdx    int

	// Review-mode transcript editing
	editor  textarea.Model
	editing bool

	// UI state
	view           viewMode
	focusedPanel   PanelFocus
	confirm        confirmMode
	quitAfterSave  bool
	closeAfterSave bool
	width          int
	height         int
	selectedMarker int
	notice         string
	noticeWarning  bool
	noticeSticky   bool
}

// New creates a model for a fresh session. The session carries the required
// start fields supplied on the command line.
func New(cfg config.Config, client *api.Client, sess session.Session) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = ui.SpinnerStyle

	in := textinput.New()
	in.CharLimit = 200

	ed := textarea.New()
	ed.CharLimit = 0

	reg := markers.NewRegistry()

	return Model{
		cfg:      cfg,
		client:   client,
		sess:     sess,
		registry: reg,
		ledger:   markers.NewLedger(reg),
		backoff: stream.Backoff{
			Base:        cfg.ReconnectBase(),
			MaxAttempts: cfg.ReconnectMaxAttempts,
		},
		spinner:      sp,
		input:        in,
		editor:       ed,
		view:         viewMain,
		focusedPanel: FocusTranscript,
	}
}

// Init opens the local backup store.
func (m Model) Init() tea.Cmd {
	return openStoreCmd(m.cfg.BackupDB)
}

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		if !m.reconciling && !m.starting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case storeOpenedMsg:
		m.store = msg.store
		return m, nil

	case SessionStartedMsg:
		m.starting = false
		m.sess.ID = msg.Resp.SessionID
		if err := m.sess.Start(); err != nil {
			msg.Recorder.Stop()
			return m.warn(err.Error())
		}
		m.recorder = msg.Recorder
		m.recorder.Start()
		m.clock = session.NewRecordingClock()
		m.streamURL = msg.Resp.StreamingURL
		m.connState = stream.Connecting
		m.reconnectAttempt = 0
		return m, tea.Batch(openChannelCmd(m.streamURL), clockTickCmd())

	case StartFailedMsg:
		m.starting = false
		var perm *capture.PermissionError
		if errors.As(msg.Err, &perm) {
			return m.warn("microphone unavailable: " + perm.Error())
		}
		return m.warn("start failed: " + msg.Err.Error())

	case ChannelOpenedMsg:
		if !m.capturing() {
			// Stopped while the dial was in flight.
			msg.Channel.Close()
			return m, nil
		}
		m.channel = msg.Channel
		m.connState = stream.Open
		m.reconnectAttempt = 0
		ch := m.channel
		m.recorder.SetSink(ch.SendChunk)
		return m, readInboundCmd(ch)

	case ChannelErrorMsg:
		return m.handleChannelError(msg.Err)

	case ReconnectTickMsg:
		if !m.capturing() || m.connState != stream.Reconnecting {
			return m, nil
		}
		m.connState = stream.Connecting
		return m, openChannelCmd(m.streamURL)

	case InboundMsg:
		cmd := m.handleInbound(msg.In)
		if m.channel == nil {
			return m, cmd
		}
		return m, tea.Batch(cmd, readInboundCmd(m.channel))

	case ClockTickMsg:
		if m.sess.State == session.Recording && m.clock != nil {
			m.clock.Tick()
		}
		if m.capturing() {
			return m, clockTickCmd()
		}
		return m, nil

	case PauseSyncedMsg:
		if msg.Err != nil {
			return m.warn("pause not acknowledged: " + msg.Err.Error())
		}
		return m, nil

	case ResumeSyncedMsg:
		if msg.Err != nil {
			return m.warn("resume not acknowledged: " + msg.Err.Error())
		}
		return m, nil

	case StopSyncedMsg:
		if msg.Gen != m.stopGen {
			return m, nil
		}
		if msg.Err != nil {
			return m.warn(msg.Err.Error())
		}
		return m, nil

	case CancelSyncedMsg:
		if msg.Err != nil {
			return m.warn("cancel not acknowledged: " + msg.Err.Error())
		}
		return m, nil

	case ReconcileDoneMsg:
		if msg.Gen != m.stopGen {
			return m, nil
		}
		m.reconciling = false
		if msg.Err != nil {
			if msg.Text != "" {
				m.sess.Transcript = msg.Text
				m.asm.SetText(msg.Text)
			}
			return m.warn(msg.Err.Error())
		}
		m.sess.Transcript = msg.Text
		m.asm.SetText(msg.Text)
		return m.info("transcript reconciled")

	case BackupSavedMsg:
		if msg.Err != nil {
			return m.warn("local backup failed: " + msg.Err.Error())
		}
		return m, nil

	case SessionsLoadedMsg:
		if msg.Err != nil {
			m.view = viewMain
			return m.warn("load sessions: " + msg.Err.Error())
		}
		m.summaries = msg.Sessions
		if m.selectedRow >= len(m.summaries) {
			m.selectedRow = max(0, len(m.summaries)-1)
		}
		return m, nil

	case SessionOpenedMsg:
		if msg.Err != nil {
			return m.warn("open session: " + msg.Err.Error())
		}
		m.openRecord(msg.Record)
		return m, nil

	case MarkerAppendedMsg:
		if msg.Err != nil {
			// The marker stays on the local timeline regardless.
			return m.warn(msg.Err.Error())
		}
		return m, nil

	case MarkersReplacedMsg:
		if msg.Err != nil {
			return m.warn(msg.Err.Error())
		}
		m.tracker.CommitMarkers(msg.Markers)
		m.tracker.Recompute(&m.sess, m.ledger.All())
		return m, nil

	case SaveDoneMsg:
		if msg.Err != nil {
			m.quitAfterSave = false
			m.closeAfterSave = false
			return m.warn(msg.Err.Error())
		}
		m.tracker.MarkSaved(&m.sess, m.ledger.All())
		if m.quitAfterSave {
			return m, tea.Quit
		}
		if m.closeAfterSave {
			m.closeAfterSave = false
			m.closeLoaded()
			return m, nil
		}
		return m.info("session saved")

	case ClearNoticeMsg:
		if !m.noticeSticky {
			m.notice = ""
			m.noticeWarning = false
		}
		return m, nil
	}

	return m, nil
}

// capturing reports whether audio capture is in progress.
func (m Model) capturing() bool {
	return m.sess.State == session.Recording || m.sess.State == session.Paused
}

// handleChannelError classifies a socket failure and drives the reconnection
// policy. Capture continues regardless: chunks are retained locally.
func (m Model) handleChannelError(err error) (tea.Model, tea.Cmd) {
	if m.recorder != nil {
		m.recorder.SetSink(nil)
	}
	m.channel = nil

	if !m.capturing() || stream.NormalClose(err) {
		m.connState = stream.Disconnected
		return m, nil
	}

	if m.backoff.Exhausted(m.reconnectAttempt) {
		m.connState = stream.Failed
		m.notice = "streaming lost; recording continues locally (r to retry)"
		m.noticeWarning = true
		m.noticeSticky = true
		return m, nil
	}

	m.connState = stream.Reconnecting
	cmd := reconnectTickCmd(m.backoff, m.reconnectAttempt)
	m.reconnectAttempt++
	return m, cmd
}

// handleInbound processes a streamed backend message.
func (m *Model) handleInbound(in stream.Inbound) tea.Cmd {
	switch in.Type {
	case stream.InboundTranscription:
		m.sess.Transcript = m.asm.MergeBatch(in.Segments)

	case stream.InboundStatus:
		if in.Status == stream.StatusError {
			m.notice = "backend: " + in.Message
			m.noticeWarning = true
			m.noticeSticky = false
			return clearNoticeCmd()
		}
	}
	return nil
}

// openRecord populates the model from a stored session record and enables
// dirty tracking against it.
func (m *Model) openRecord(rec api.SessionRecord) {
	m.sess.Reset()
	m.sess.LoadedID = rec.SessionID
	m.sess.ID = rec.SessionID
	m.sess.State = session.Stopped
	m.sess.Name = rec.SessionName
	m.sess.Metadata = rec.EventMetadata.EventMetadata
	m.sess.Classification = rec.EventMetadata.Classification
	m.sess.CaveatType = rec.EventMetadata.CaveatType
	m.sess.CaveatText = rec.EventMetadata.CaveatText
	m.sess.Participants = rec.Participants
	m.sess.Transcript = rec.FullTranscriptText
	m.sess.AudioURL = rec.AudioURL

	m.asm.SetText(rec.FullTranscriptText)
	m.ledger.Replace(rec.Markers)
	m.clock = session.NewPlaybackClock(rec.DurationSeconds)
	m.tracker.Load(&m.sess, m.ledger.All())

	m.view = viewMain
	m.selectedMarker = 0
	m.connState = stream.Disconnected
}

// closeLoaded discards the loaded session and returns to a fresh state. The
// marker-type registry and the fetched session list survive.
func (m *Model) closeLoaded() {
	m.sess.Reset()
	m.tracker.Disable()
	m.ledger = markers.NewLedger(m.registry)
	m.asm.SetText("")
	m.clock = nil
	m.selectedMarker = 0
}

// fullUpdateRequest builds the complete-save body for a loaded session.
func (m Model) fullUpdateRequest() api.UpdateSessionRequest {
	meta := api.Metadata{
		EventMetadata:  m.sess.Metadata,
		Classification: m.sess.Classification,
		CaveatType:     m.sess.CaveatType,
		CaveatText:     m.sess.CaveatText,
	}
	parts := m.sess.Participants
	ms := m.ledger.All()
	return api.UpdateSessionRequest{
		SessionName:        api.StringPtr(m.sess.Name),
		EventMetadata:      &meta,
		Participants:       &parts,
		FullTranscriptText: api.StringPtr(m.sess.Transcript),
		Markers:            &ms,
	}
}

// handleKey processes key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirm != confirmNone {
		return m.handleConfirmKey(msg)
	}
	if m.editing {
		return m.handleEditorKey(msg)
	}
	if m.inputMode != inputNone {
		return m.handleInputKey(msg)
	}
	if m.view == viewBrowse {
		return m.handleBrowseKey(msg)
	}

	switch msg.String() {
	case KeyQuit, KeyQuitUpper, KeyCtrlC:
		if m.tracker.Dirty() {
			m.confirm = confirmQuit
			return m, nil
		}
		m.shutdown()
		return m, tea.Quit

	case KeySpace:
		return m.handleSpace()

	case KeyStop:
		return m.handleStop()

	case KeyCancel:
		return m.handleCancel()

	case KeyRetry:
		if m.capturing() && (m.connState == stream.Failed || m.connState == stream.Disconnected) {
			m.reconnectAttempt = 0
			m.connState = stream.Connecting
			m.notice = ""
			m.noticeSticky = false
			return m, openChannelCmd(m.streamURL)
		}
		return m, nil

	case KeyBrowse:
		if m.sess.State == session.Inactive && !m.sess.Loaded() {
			m.view = viewBrowse
			return m, loadSessionsCmd(m.client)
		}
		return m, nil

	case KeyMarker:
		if !m.canAnnotate() {
			return m.warn("markers can only be added while recording or reviewing")
		}
		m.inputMode = inputMarker
		m.input.Placeholder = "marker description"
		m.input.SetValue("")
		m.input.Focus()
		return m, textinput.Blink

	case KeyNewType:
		m.inputMode = inputCustomType
		m.input.Placeholder = "new marker type label"
		m.input.SetValue("")
		m.input.Focus()
		return m, textinput.Blink

	case KeySpeakerTag:
		return m.handleSpeakerTag()

	case KeyCycleSpkr:
		if n := len(m.sess.Participants); n > 0 {
			m.speakerIdx = (m.speakerIdx + 1) % n
		}
		return m, nil

	case KeyDelete:
		return m.handleDeleteMarker()

	case KeySave:
		return m.handleSave()

	case KeyEdit:
		if !m.sess.Loaded() {
			return m, nil
		}
		m.editing = true
		m.editor.SetValue(m.sess.Transcript)
		m.editor.SetWidth(max(40, m.width-4))
		m.editor.SetHeight(max(5, m.contentHeight()-1))
		return m, m.editor.Focus()

	case KeyTab:
		if m.focusedPanel == FocusTranscript {
			m.focusedPanel = FocusMarkers
		} else {
			m.focusedPanel = FocusTranscript
		}
		return m, nil

	case KeyJ, "down":
		if m.focusedPanel == FocusMarkers && m.selectedMarker < m.ledger.Len()-1 {
			m.selectedMarker++
		}
		return m, nil

	case KeyK, "up":
		if m.focusedPanel == FocusMarkers && m.selectedMarker > 0 {
			m.selectedMarker--
		}
		return m, nil

	case KeySeekBack:
		if m.sess.Loaded() && m.clock != nil {
			m.clock.SetPosition(m.clock.Now() - 5)
		}
		return m, nil

	case KeySeekForward:
		if m.sess.Loaded() && m.clock != nil {
			m.clock.SetPosition(m.clock.Now() + 5)
		}
		return m, nil

	case KeyEsc:
		if m.sess.Loaded() {
			if m.tracker.Dirty() {
				m.confirm = confirmClose
				return m, nil
			}
			m.closeLoaded()
			return m, nil
		}
		if m.sess.State == session.Stopped && !m.reconciling {
			m.sess.Reset()
			m.ledger = markers.NewLedger(m.registry)
			m.asm.SetText("")
			m.clock = nil
			m.recorder = nil
			m.connState = stream.Disconnected
			return m, nil
		}
		return m, nil
	}

	return m, nil
}

// handleSpace starts a fresh session or toggles pause while capturing.
func (m Model) handleSpace() (tea.Model, tea.Cmd) {
	switch m.sess.State {
	case session.Inactive:
		if m.sess.Loaded() || m.starting {
			return m, nil
		}
		if err := m.sess.ValidateStart(); err != nil {
			return m.warn(err.Error())
		}
		m.starting = true
		return m, tea.Batch(startSessionCmd(m.client, m.cfg, m.sess), m.spinner.Tick)

	case session.Recording:
		if err := m.sess.Pause(); err != nil {
			return m.warn(err.Error())
		}
		m.recorder.Pause()
		return m, pauseCmd(m.client, m.sess.ID)

	case session.Paused:
		if err := m.sess.Resume(); err != nil {
			return m.warn(err.Error())
		}
		m.recorder.Resume()
		return m, resumeCmd(m.client, m.sess.ID)
	}
	return m, nil
}

// handleStop transitions to STOPPED immediately and kicks off the
// finalization chain: local backup, backend stop, reconciliation upload.
func (m Model) handleStop() (tea.Model, tea.Cmd) {
	if err := m.sess.Stop(); err != nil {
		return m, nil
	}

	m.recorder.Stop()
	if m.channel != nil {
		m.channel.Close()
		m.channel = nil
	}
	m.connState = stream.Disconnected

	audio := m.recorder.Combined()
	m.stopGen++
	m.reconciling = true

	return m, tea.Batch(
		saveBackupCmd(m.store, db.Backup{
			SessionID:  m.sess.ID,
			Name:       m.sess.Name,
			SavedAt:    time.Now(),
			Transcript: m.asm.Text(),
			Audio:      audio,
		}),
		stopCmd(m.client, m.sess.ID, m.stopGen, api.StopSessionRequest{
			AudioFilename:         m.sess.ID + ".wav",
			TranscriptionFilename: m.sess.ID + ".txt",
		}),
		reconcileCmd(m.client, m.sess.ID, m.stopGen, m.sess.ID+".wav", audio),
		m.spinner.Tick,
	)
}

// handleCancel abandons an in-progress session without finalization.
func (m Model) handleCancel() (tea.Model, tea.Cmd) {
	if !m.capturing() {
		return m, nil
	}

	m.recorder.Stop()
	if m.channel != nil {
		m.channel.Close()
		m.channel = nil
	}
	id := m.sess.ID

	m.sess.Reset()
	m.ledger = markers.NewLedger(m.registry)
	m.asm.SetText("")
	m.clock = nil
	m.recorder = nil
	m.connState = stream.Disconnected

	return m, cancelCmd(m.client, id)
}

// canAnnotate reports whether markers may be added right now.
func (m Model) canAnnotate() bool {
	return m.sess.State == session.Recording || m.sess.Loaded()
}

// handleSpeakerTag tags the currently selected participant at the clock
// position.
func (m Model) handleSpeakerTag() (tea.Model, tea.Cmd) {
	if !m.canAnnotate() {
		return m.warn("speaker tags can only be added while recording or reviewing")
	}
	if m.speakerIdx >= len(m.sess.Participants) {
		return m.warn("no participant selected")
	}

	p := m.sess.Participants[m.speakerIdx]
	sp := markers.Speaker{ID: p.ID, Name: p.Name, Role: p.Role}
	mk, err := m.ledger.AddSpeakerTag(sp, m.cfg.OperatorID, m.clock.Now(), m.clock.Limit())
	if err != nil {
		return m.warn(err.Error())
	}
	m.selectedMarker = m.ledger.Len() - 1

	if m.sess.Loaded() {
		m.tracker.Recompute(&m.sess, m.ledger.All())
		return m, replaceMarkersCmd(m.client, m.sess.LoadedID, m.ledger.All())
	}

	cmds := []tea.Cmd{appendMarkerCmd(m.client, m.sess.ID, mk)}
	if ch := m.channel; ch != nil && m.connState == stream.Open {
		cmds = append(cmds, func() tea.Msg {
			if err := ch.SendSpeakerTag(mk); err != nil {
				return ChannelErrorMsg{Err: err}
			}
			return nil
		})
	}
	return m, tea.Batch(cmds...)
}

// handleDeleteMarker removes the selected marker on a loaded session.
func (m Model) handleDeleteMarker() (tea.Model, tea.Cmd) {
	if !m.sess.Loaded() || m.focusedPanel != FocusMarkers {
		return m, nil
	}
	all := m.ledger.All()
	if m.selectedMarker >= len(all) {
		return m, nil
	}
	m.ledger.Remove(all[m.selectedMarker].ID)
	if m.selectedMarker >= m.ledger.Len() {
		m.selectedMarker = max(0, m.ledger.Len()-1)
	}
	m.tracker.Recompute(&m.sess, m.ledger.All())
	return m, replaceMarkersCmd(m.client, m.sess.LoadedID, m.ledger.All())
}

// handleSave pushes every edited field of a loaded session.
func (m Model) handleSave() (tea.Model, tea.Cmd) {
	if !m.sess.Loaded() {
		return m, nil
	}
	if !m.tracker.Dirty() {
		return m.info("nothing to save")
	}
	return m, saveSessionCmd(m.client, m.sess.LoadedID, m.fullUpdateRequest())
}

// handleConfirmKey answers the unsaved-changes prompt.
func (m Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case KeyStop: // save
		which := m.confirm
		m.confirm = confirmNone
		m.quitAfterSave = which == confirmQuit
		m.closeAfterSave = which == confirmClose
		return m, saveSessionCmd(m.client, m.sess.LoadedID, m.fullUpdateRequest())

	case "d": // discard
		which := m.confirm
		m.confirm = confirmNone
		if which == confirmQuit {
			m.shutdown()
			return m, tea.Quit
		}
		m.closeLoaded()
		return m, nil

	case KeyEsc, KeyCancel:
		m.confirm = confirmNone
		return m, nil
	}
	return m, nil
}

// handleEditorKey drives the review-mode transcript editor. Esc commits the
// edit locally; persistence waits for an explicit save.
func (m Model) handleEditorKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == KeyEsc {
		m.editing = false
		m.editor.Blur()
		m.sess.Transcript = m.editor.Value()
		m.asm.SetText(m.sess.Transcript)
		m.tracker.Recompute(&m.sess, m.ledger.All())
		return m, nil
	}

	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	return m, cmd
}

// handleInputKey drives the text input line.
func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case KeyEsc:
		m.inputMode = inputNone
		m.input.Blur()
		return m, nil

	case KeyTab:
		if m.inputMode == inputMarker {
			m.markerTypeIdx = (m.markerTypeIdx + 1) % len(m.registry.Types())
		}
		return m, nil

	case KeyEnter:
		return m.commitInput()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// commitInput finalizes the pending marker or custom-type entry.
func (m Model) commitInput() (tea.Model, tea.Cmd) {
	value := strings.TrimSpace(m.input.Value())
	mode := m.inputMode
	m.inputMode = inputNone
	m.input.Blur()

	if mode == inputCustomType {
		if _, ok := m.registry.Register(value); !ok {
			return m.warn("marker type not added: blank or duplicate label")
		}
		return m.info("marker type added")
	}

	types := m.registry.Types()
	key := types[m.markerTypeIdx].Key
	mk, err := m.ledger.Add(key, value, m.sess.Classification, m.cfg.OperatorID, m.clock.Now(), m.clock.Limit())
	if err != nil {
		return m.warn(err.Error())
	}
	m.selectedMarker = m.ledger.Len() - 1

	if m.sess.Loaded() {
		m.tracker.Recompute(&m.sess, m.ledger.All())
		return m, replaceMarkersCmd(m.client, m.sess.LoadedID, m.ledger.All())
	}
	return m, appendMarkerCmd(m.client, m.sess.ID, mk)
}

// handleBrowseKey drives the stored-session browser.
func (m Model) handleBrowseKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case KeyQuit, KeyCtrlC:
		m.shutdown()
		return m, tea.Quit

	case KeyEsc:
		m.view = viewMain
		return m, nil

	case KeyJ, "down":
		if m.selectedRow < len(m.summaries)-1 {
			m.selectedRow++
		}
		return m, nil

	case KeyK, "up":
		if m.selectedRow > 0 {
			m.selectedRow--
		}
		return m, nil

	case KeyEnter:
		if m.selectedRow < len(m.summaries) {
			return m, openSessionCmd(m.client, m.summaries[m.selectedRow].SessionID)
		}
		return m, nil

	case KeyRetry:
		return m, loadSessionsCmd(m.client)
	}
	return m, nil
}

// shutdown releases capture and streaming resources on exit.
func (m *Model) shutdown() {
	if m.recorder != nil {
		m.recorder.Stop()
	}
	if m.channel != nil {
		m.channel.Close()
	}
	if m.store != nil {
		m.store.Close()
	}
}

// warn sets a transient warning notice.
func (m Model) warn(text string) (tea.Model, tea.Cmd) {
	m.notice = text
	m.noticeWarning = true
	m.noticeSticky = false
	return m, clearNoticeCmd()
}

// info sets a transient informational notice.
func (m Model) info(text string) (tea.Model, tea.Cmd) {
	m.notice = text
	m.noticeWarning = false
	m.noticeSticky = false
	return m, clearNoticeCmd()
}

// View renders the full console.
func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}
	if m.view == viewBrowse {
		return m.renderBrowse()
	}

	var sections []string
	sections = append(sections, m.renderHeader())
	sections = append(sections, m.renderStatusBar())
	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))
	if m.editing {
		sections = append(sections, m.editor.View())
	} else {
		sections = append(sections, m.renderMainContent())
	}
	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))

	if m.confirm != confirmNone {
		sections = append(sections, m.renderConfirmBar())
	} else if m.inputMode != inputNone {
		sections = append(sections, m.renderInputBar())
	} else if m.notice != "" {
		sections = append(sections, m.renderNoticeBar())
	}

	sections = append(sections, m.renderFooter())
	return strings.Join(sections, "\n")
}

func (m Model) renderHeader() string {
	title := ui.TitleStyle.Render("OPSCRIBE")

	var name string
	if m.sess.Name != "" {
		name = ui.DimStyle.Render(" — " + m.sess.Name)
	}

	var class string
	if m.sess.Classification != "" {
		class = "  " + ui.WarningStyle.Render("["+strings.ToUpper(m.sess.Classification)+"]")
	}

	var loaded string
	if m.sess.Loaded() {
		loaded = ui.DimStyle.Render("  (review)")
	}

	return title + name + class + loaded
}

func (m Model) renderStatusBar() string {
	var dot string
	switch m.sess.State {
	case session.Recording:
		dot = ui.RecordingDotStyle.Render("● REC")
	case session.Paused:
		dot = ui.PausedDotStyle.Render("‖ PAUSED")
	case session.Stopped:
		dot = ui.StoppedDotStyle.Render("■ STOPPED")
	default:
		dot = ui.IdleDotStyle.Render("○ INACTIVE")
	}

	clock := ""
	if m.clock != nil {
		clock = "  " + ui.TimestampStyle.Render(formatClock(m.clock.Now()))
	}

	var conn string
	if m.capturing() || m.starting {
		switch m.connState {
		case stream.Open:
			conn = "  " + ui.ConnOpenStyle.Render("⇅ STREAMING")
		case stream.Connecting:
			conn = "  " + ui.ConnReconnectingStyle.Render("⇅ CONNECTING")
		case stream.Reconnecting:
			conn = "  " + ui.ConnReconnectingStyle.Render(fmt.Sprintf("⇅ RECONNECTING (%d/%d)", m.reconnectAttempt, m.backoff.MaxAttempts))
		case stream.Failed:
			conn = "  " + ui.ConnFailedStyle.Render("⇅ OFFLINE")
		}
	}

	var busy string
	if m.reconciling {
		busy = "  " + m.spinner.View() + ui.DimStyle.Render("reconciling transcript")
	} else if m.starting {
		busy = "  " + m.spinner.View() + ui.DimStyle.Render("starting")
	}

	var dirty string
	if m.tracker.Dirty() {
		dirty = "  " + ui.DirtyStyle.Render("● unsaved")
	}

	var dropped string
	if m.recorder != nil && m.recorder.DroppedSends() > 0 {
		dropped = "  " + ui.WarningStyle.Render(fmt.Sprintf("%d chunks local-only", m.recorder.DroppedSends()))
	}

	return dot + clock + conn + busy + dirty + dropped
}

func (m Model) renderMainContent() string {
	markerW := m.markerPanelWidth()
	transcriptW := m.transcriptPanelWidth()
	contentH := m.contentHeight()

	markerPanel := m.renderMarkerPanel(markerW, contentH)
	transcriptPanel := m.renderTranscriptPanel(transcriptW, contentH)

	divider := ui.DividerStyle.Render("│")

	markerLines := strings.Split(markerPanel, "\n")
	transcriptLines := strings.Split(transcriptPanel, "\n")

	var rows []string
	for i := 0; i < contentH; i++ {
		ml := ""
		if i < len(markerLines) {
			ml = markerLines[i]
		}
		tl := ""
		if i < len(transcriptLines) {
			tl = transcriptLines[i]
		}
		rows = append(rows, padRight(ml, markerW)+divider+tl)
	}
	return strings.Join(rows, "\n")
}

func (m Model) renderMarkerPanel(width, height int) string {
	var header string
	title := fmt.Sprintf("MARKERS (%d)", m.ledger.Len())
	if m.focusedPanel == FocusMarkers {
		header = ui.PanelTitleActiveStyle.Render(title)
	} else {
		header = ui.PanelTitleStyle.Render(title)
	}

	lines := []string{header}

	all := m.ledger.All()
	if len(all) == 0 {
		lines = append(lines, ui.DimStyle.Render("  No markers yet"))
	}
	for i, mk := range all {
		label := mk.Type
		if t, ok := m.registry.Lookup(mk.Type); ok {
			label = t.Label
		}
		line := "  "
		if i == m.selectedMarker && m.focusedPanel == FocusMarkers {
			line = ui.SelectedStyle.Render("> ")
		}
		line += ui.TimestampStyle.Render(formatClock(mk.Timestamp)) + " " + ui.MarkerTypeStyle.Render(label)
		if mk.Speaker != nil {
			line += " " + ui.SpeakerStyle.Render(mk.Speaker.Name)
		} else if mk.Description != "" {
			line += " " + mk.Description
		}
		lines = append(lines, truncateToWidth(line, width))
	}

	for len(lines) < height {
		lines = append(lines, "")
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderTranscriptPanel(width, height int) string {
	var header string
	if m.focusedPanel == FocusTranscript {
		header = ui.PanelTitleActiveStyle.Render("TRANSCRIPT")
	} else {
		header = ui.PanelTitleStyle.Render("TRANSCRIPT")
	}

	lines := []string{header}

	text := m.asm.Text()
	if text == "" {
		if m.sess.State == session.Inactive && !m.sess.Loaded() {
			lines = append(lines, "")
			lines = append(lines, ui.DimStyle.Render("  Press Space to start recording"))
			lines = append(lines, ui.DimStyle.Render("  Press b to browse stored sessions"))
		} else {
			lines = append(lines, ui.DimStyle.Render("  Waiting for transcription..."))
		}
	} else {
		var displayLines []string
		for _, raw := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
			for _, wl := range wrapText(raw, max(10, width-4)) {
				displayLines = append(displayLines, "  "+wl)
			}
		}
		// Tail the newest lines
		contentHeight := height - 1
		start := 0
		if len(displayLines) > contentHeight {
			start = len(displayLines) - contentHeight
		}
		lines = append(lines, displayLines[start:]...)
	}

	for len(lines) < height {
		lines = append(lines, "")
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderBrowse() string {
	var sections []string
	sections = append(sections, ui.TitleStyle.Render("OPSCRIBE")+ui.DimStyle.Render(" — stored sessions"))
	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))

	if len(m.summaries) == 0 {
		sections = append(sections, ui.DimStyle.Render("  No stored sessions"))
	}
	for i, s := range m.summaries {
		line := fmt.Sprintf("  %s  %s", s.StartTime.Format("2006-01-02 15:04"), s.SessionName)
		if s.EventMetadata.Wargame != "" {
			line += ui.DimStyle.Render("  (" + s.EventMetadata.Wargame + ")")
		}
		if i == m.selectedRow {
			line = ui.SelectedStyle.Render(">") + line[1:]
		}
		sections = append(sections, truncateToWidth(line, m.width))
	}

	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))
	sections = append(sections,
		ui.FooterKeyStyle.Render("Enter")+ui.FooterDescStyle.Render(" Open")+"  "+
			ui.FooterKeyStyle.Render("r")+ui.FooterDescStyle.Render(" Refresh")+"  "+
			ui.FooterKeyStyle.Render("Esc")+ui.FooterDescStyle.Render(" Back")+"  "+
			ui.FooterKeyStyle.Render("q")+ui.FooterDescStyle.Render(" Quit"))
	return strings.Join(sections, "\n")
}

func (m Model) renderNoticeBar() string {
	if m.noticeWarning {
		return ui.ErrorStyle.Render("! ") + ui.ErrorTextStyle.Render(m.notice)
	}
	return ui.DimStyle.Render(m.notice)
}

func (m Model) renderInputBar() string {
	if m.inputMode == inputCustomType {
		return ui.PanelTitleStyle.Render("New marker type: ") + m.input.View()
	}
	types := m.registry.Types()
	label := types[m.markerTypeIdx].Label
	return ui.MarkerTypeStyle.Render("["+label+"]") +
		ui.DimStyle.Render(" (Tab to change) ") + m.input.View()
}

func (m Model) renderConfirmBar() string {
	return ui.WarningStyle.Render("Unsaved changes. ") +
		ui.FooterKeyStyle.Render("s") + ui.FooterDescStyle.Render(" save") + "  " +
		ui.FooterKeyStyle.Render("d") + ui.FooterDescStyle.Render(" discard") + "  " +
		ui.FooterKeyStyle.Render("Esc") + ui.FooterDescStyle.Render(" cancel")
}

func (m Model) renderFooter() string {
	var parts []string
	key := func(k, desc string) {
		parts = append(parts, ui.FooterKeyStyle.Render(k)+ui.FooterDescStyle.Render(" "+desc))
	}

	switch {
	case m.editing:
		key("Esc", "Done editing")
		return strings.Join(parts, "  ")
	case m.sess.Loaded():
		key("m", "Marker")
		key("t", "Tag")
		key("p", "Speaker")
		key("x", "Delete")
		key("e", "Edit")
		key("w", "Save")
		key(",/.", "Seek")
		key("Esc", "Close")
	case m.sess.State == session.Recording:
		key("Space", "Pause")
		key("s", "Stop")
		key("m", "Marker")
		key("t", "Tag")
		key("p", "Speaker")
		key("c", "Cancel")
	case m.sess.State == session.Paused:
		key("Space", "Resume")
		key("s", "Stop")
		key("c", "Cancel")
	case m.sess.State == session.Stopped:
		key("Esc", "New session")
	default:
		key("Space", "Record")
		key("b", "Browse")
		key("n", "New marker type")
	}
	key("Tab", "Focus")
	key("q", "Quit")

	return strings.Join(parts, "  ")
}

// Layout helpers

func (m Model) contentHeight() int {
	if m.height == 0 {
		return 20
	}
	// header(1) + status(1) + dividers(2) + notice/input(1) + footer(1)
	return max(5, m.height-6)
}

func (m Model) markerPanelWidth() int {
	if m.width == 0 {
		return 34
	}
	return max(24, m.width*35/100)
}

func (m Model) transcriptPanelWidth() int {
	if m.width == 0 {
		return 60
	}
	return max(30, m.width-m.markerPanelWidth()-1)
}

func formatClock(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	total := int(sec)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

func padRight(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}

func truncateToWidth(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible <= width {
		return s
	}
	runes := []rune(s)
	if len(runes) > width-1 {
		return string(runes[:width-1]) + "…"
	}
	return s
}

func wrapText(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}

	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		var current string
		for _, word := range strings.Fields(paragraph) {
			if current == "" {
				current = word
			} else if len(current)+1+len(word) <= width {
				current += " " + word
			} else {
				lines = append(lines, current)
				current = word
			}
		}
		if current != "" {
			lines = append(lines, current)
		} else {
			lines = append(lines, "")
		}
	}
	if len(lines) == 0 {
		return []string{""}
	}
	return lines
}
