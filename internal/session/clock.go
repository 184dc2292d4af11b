package session

// ClockMode selects which elapsed-time source the clock reads from.
type ClockMode int

const (
	// ModeRecording counts elapsed capture seconds while recording.
	ModeRecording ClockMode = iota
	// ModePlayback follows the play-back position of a stored recording.
	ModePlayback
)

// Clock is the single authoritative elapsed-time source for a session. All
// markers and speaker tags are stamped from it.
type Clock struct {
	mode     ClockMode
	elapsed  float64
	position float64
	duration float64
}

// NewRecordingClock returns a clock counting live capture time from zero.
func NewRecordingClock() *Clock {
	return &Clock{mode: ModeRecording}
}

// NewPlaybackClock returns a clock following playback of a stored recording
// with the given total duration in seconds.
func NewPlaybackClock(duration float64) *Clock {
	return &Clock{mode: ModePlayback, duration: duration}
}

// Mode returns the clock mode.
func (c *Clock) Mode() ClockMode { return c.mode }

// Tick advances recording time by one second. No-op in playback mode.
func (c *Clock) Tick() {
	if c.mode == ModeRecording {
		c.elapsed++
	}
}

// SetPosition moves the playback position. No-op in recording mode.
func (c *Clock) SetPosition(pos float64) {
	if c.mode != ModePlayback {
		return
	}
	if pos < 0 {
		pos = 0
	}
	if c.duration > 0 && pos > c.duration {
		pos = c.duration
	}
	c.position = pos
}

// Now returns the current timeline position in seconds.
func (c *Clock) Now() float64 {
	if c.mode == ModePlayback {
		return c.position
	}
	return c.elapsed
}

// Limit returns the known maximum timeline value: current elapsed time while
// recording, or the stored duration during playback.
func (c *Clock) Limit() float64 {
	if c.mode == ModePlayback {
		return c.duration
	}
	return c.elapsed
}
