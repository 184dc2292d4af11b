package capture

import (
	"io"
	"sync"
)

// Sink receives a produced chunk, typically forwarding it to the streaming
// channel. A send failure is dropped, never retried: the chunk survives in
// the retained local sequence for the post-stop reconciliation pass.
type Sink func(chunk []byte) error

// Recorder slices device audio into fixed-size chunks, retains the complete
// ordered sequence for the session's duration, and forwards each chunk to
// the sink while one is set.
type Recorder struct {
	dev        Device
	chunkBytes int

	mu           sync.Mutex
	chunks       [][]byte
	sink         Sink
	paused       bool
	droppedSends int
	started      bool
	stopped      bool

	done chan struct{}
}

// NewRecorder wraps an initialized device. chunkBytes is the raw size of one
// time slice (sample rate × bytes per sample × slice seconds).
func NewRecorder(dev Device, chunkBytes int) *Recorder {
	return &Recorder{
		dev:        dev,
		chunkBytes: chunkBytes,
		done:       make(chan struct{}),
	}
}

// SetSink installs the forwarding sink. Pass nil to detach (chunks are then
// only retained locally).
func (r *Recorder) SetSink(s Sink) {
	r.mu.Lock()
	r.sink = s
	r.mu.Unlock()
}

// Pause discards produced chunks until Resume. The device stays open.
func (r *Recorder) Pause() {
	r.mu.Lock()
	r.paused = true
	r.mu.Unlock()
}

// Resume re-enables chunk retention after Pause.
func (r *Recorder) Resume() {
	r.mu.Lock()
	r.paused = false
	r.mu.Unlock()
}

// Start begins the chunk-producing loop. The loop ends when the device
// errors or Stop is called.
func (r *Recorder) Start() {
	r.mu.Lock()
	if r.started || r.stopped {
		r.mu.Unlock()
		return
	}
	r.started = true
	r.mu.Unlock()

	go r.loop()
}

func (r *Recorder) loop() {
	defer close(r.done)
	for {
		buf := make([]byte, r.chunkBytes)
		if _, err := io.ReadFull(r.dev, buf); err != nil {
			return
		}

		r.mu.Lock()
		if r.stopped {
			r.mu.Unlock()
			return
		}
		if r.paused {
			r.mu.Unlock()
			continue
		}
		r.chunks = append(r.chunks, buf)
		sink := r.sink
		r.mu.Unlock()

		if sink != nil {
			if err := sink(buf); err != nil {
				r.mu.Lock()
				r.droppedSends++
				r.mu.Unlock()
			}
		}
	}
}

// Stop releases the device and ends the loop. Idempotent.
func (r *Recorder) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	started := r.started
	r.mu.Unlock()

	r.dev.Close()
	if started {
		<-r.done
	}
}

// Len reports the number of retained chunks.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.chunks)
}

// DroppedSends reports how many chunk sends failed and were dropped.
func (r *Recorder) DroppedSends() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.droppedSends
}

// Combined concatenates the retained chunk sequence into one blob for the
// reconciliation upload and the local backup artifact.
func (r *Recorder) Combined() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := 0
	for _, c := range r.chunks {
		total += len(c)
	}
	out := make([]byte, 0, total)
	for _, c := range r.chunks {
		out = append(out, c...)
	}
	return out
}
