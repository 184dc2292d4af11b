// Package capture owns the microphone handle and produces the ordered
// sequence of fixed-size audio chunks for a session.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
)

// PermissionError indicates the capture device could not be acquired, either
// denied or unavailable. Any partially-acquired resources are released
// before it is returned.
type PermissionError struct {
	Err error
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("microphone unavailable: %v", e.Err)
}

func (e *PermissionError) Unwrap() error { return e.Err }

// Device is an exclusive handle on an audio source producing raw PCM.
type Device interface {
	// Initialize acquires the device. Fails with PermissionError when the
	// source is denied or unavailable.
	Initialize(ctx context.Context) error
	// Read blocks until raw audio bytes are available.
	Read(p []byte) (int, error)
	// Close releases the device. Idempotent.
	Close() error
}

// ExecDevice captures audio by running a subprocess (ffmpeg, arecord, or
// similar) that writes raw PCM to stdout.
type ExecDevice struct {
	command []string

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdout io.ReadCloser
	closed bool
}

// NewExecDevice builds a device around the given capture command line.
func NewExecDevice(command []string) *ExecDevice {
	return &ExecDevice{command: command}
}

// Initialize starts the capture subprocess.
func (d *ExecDevice) Initialize(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.command) == 0 {
		return &PermissionError{Err: errors.New("no capture command configured")}
	}
	if d.cmd != nil {
		return errors.New("device already initialized")
	}

	cmd := exec.CommandContext(ctx, d.command[0], d.command[1:]...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return &PermissionError{Err: err}
	}
	if err := cmd.Start(); err != nil {
		stdout.Close()
		return &PermissionError{Err: err}
	}

	d.cmd = cmd
	d.stdout = stdout
	d.closed = false
	return nil
}

// Read reads raw PCM from the subprocess.
func (d *ExecDevice) Read(p []byte) (int, error) {
	d.mu.Lock()
	stdout := d.stdout
	d.mu.Unlock()

	if stdout == nil {
		return 0, errors.New("device not initialized")
	}
	return stdout.Read(p)
}

// Close terminates the subprocess and releases the handle.
func (d *ExecDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed || d.cmd == nil {
		return nil
	}
	d.closed = true

	d.stdout.Close()
	if d.cmd.Process != nil {
		_ = d.cmd.Process.Kill()
	}
	_ = d.cmd.Wait()
	return nil
}
