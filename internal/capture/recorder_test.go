package capture

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"
)

// scriptDevice yields a fixed byte stream, then blocks until closed.
type scriptDevice struct {
	mu     sync.Mutex
	data   []byte
	closed chan struct{}
	once   sync.Once
}

func newScriptDevice(data []byte) *scriptDevice {
	return &scriptDevice{data: data, closed: make(chan struct{})}
}

func (d *scriptDevice) Initialize(context.Context) error { return nil }

func (d *scriptDevice) Read(p []byte) (int, error) {
	for {
		d.mu.Lock()
		if len(d.data) > 0 {
			n := copy(p, d.data)
			d.data = d.data[n:]
			d.mu.Unlock()
			return n, nil
		}
		d.mu.Unlock()

		select {
		case <-d.closed:
			return 0, io.EOF
		case <-time.After(2 * time.Millisecond):
		}
	}
}

func (d *scriptDevice) Close() error {
	d.once.Do(func() { close(d.closed) })
	return nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestRecorderRetainsOrderedChunks(t *testing.T) {
	dev := newScriptDevice([]byte("aaaabbbbcccc"))
	r := NewRecorder(dev, 4)
	r.Start()

	waitFor(t, func() bool { return r.Len() == 3 })
	r.Stop()

	if got := string(r.Combined()); got != "aaaabbbbcccc" {
		t.Errorf("combined = %q, want %q", got, "aaaabbbbcccc")
	}
}

func TestRecorderForwardsToSink(t *testing.T) {
	dev := newScriptDevice([]byte("xxyy"))
	r := NewRecorder(dev, 2)

	var mu sync.Mutex
	var sent []string
	r.SetSink(func(chunk []byte) error {
		mu.Lock()
		sent = append(sent, string(chunk))
		mu.Unlock()
		return nil
	})
	r.Start()

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(sent) == 2
	})
	r.Stop()

	mu.Lock()
	defer mu.Unlock()
	if sent[0] != "xx" || sent[1] != "yy" {
		t.Errorf("sent = %v", sent)
	}
}

func TestRecorderCountsDroppedSends(t *testing.T) {
	dev := newScriptDevice([]byte("abcd"))
	r := NewRecorder(dev, 2)
	r.SetSink(func([]byte) error { return errors.New("socket gone") })
	r.Start()

	waitFor(t, func() bool { return r.DroppedSends() == 2 })
	r.Stop()

	// Chunks survive locally even when every send failed.
	if r.Len() != 2 {
		t.Errorf("retained = %d, want 2", r.Len())
	}
}

func TestRecorderNoSinkOnlyRetains(t *testing.T) {
	dev := newScriptDevice([]byte("abcd"))
	r := NewRecorder(dev, 2)
	r.Start()

	waitFor(t, func() bool { return r.Len() == 2 })
	r.Stop()

	if r.DroppedSends() != 0 {
		t.Errorf("droppedSends = %d, want 0", r.DroppedSends())
	}
}

func TestRecorderPauseDiscards(t *testing.T) {
	dev := newScriptDevice(nil)
	r := NewRecorder(dev, 2)
	r.Pause()
	r.Start()

	dev.mu.Lock()
	dev.data = []byte("abcd")
	dev.mu.Unlock()

	time.Sleep(50 * time.Millisecond)
	if r.Len() != 0 {
		t.Errorf("paused recorder retained %d chunks", r.Len())
	}

	r.Stop()
}

func TestRecorderStopIdempotent(t *testing.T) {
	dev := newScriptDevice([]byte("ab"))
	r := NewRecorder(dev, 2)
	r.Start()
	waitFor(t, func() bool { return r.Len() == 1 })

	r.Stop()
	r.Stop() // second stop is a no-op
}

func TestExecDeviceRequiresCommand(t *testing.T) {
	d := NewExecDevice(nil)
	err := d.Initialize(context.Background())

	var perr *PermissionError
	if !errors.As(err, &perr) {
		t.Fatalf("err = %v, want PermissionError", err)
	}
}

func TestExecDeviceMissingBinary(t *testing.T) {
	d := NewExecDevice([]string{"opscribe-no-such-binary"})
	err := d.Initialize(context.Background())

	var perr *PermissionError
	if !errors.As(err, &perr) {
		t.Fatalf("err = %v, want PermissionError", err)
	}
	// Close after failed initialize must be safe.
	if err := d.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
}
