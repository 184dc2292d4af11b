// Package transcript maintains the displayed transcript from incoming
// segment batches and formats the final reconciliation result.
package transcript

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultSpeaker labels segments whose speaker is absent or unknown in the
// final reconciled transcript.
const DefaultSpeaker = "UNKNOWN"

// Segment is a single transcribed span as returned by the backend.
type Segment struct {
	Start   float64 `json:"start"`
	Text    string  `json:"text"`
	Speaker string  `json:"speaker,omitempty"`
}

// Assembler holds the transcript of record. Each inbound batch is treated as
// authoritative full-so-far content: MergeBatch replaces the prior text
// rather than appending to it.
type Assembler struct {
	text string
}

// Text returns the current transcript.
func (a *Assembler) Text() string { return a.text }

// SetText replaces the transcript directly. Used for review-mode edits and
// for seeding from a loaded session record.
func (a *Assembler) SetText(s string) { a.text = s }

// MergeBatch sorts the entire batch by start time, drops blank segments,
// formats each as "speaker: text" (speaker omitted when empty), and replaces
// the displayed transcript with the result.
func (a *Assembler) MergeBatch(batch []Segment) string {
	segs := clean(batch)

	var b strings.Builder
	for _, s := range segs {
		if s.Speaker != "" {
			b.WriteString(s.Speaker)
			b.WriteString(": ")
		}
		b.WriteString(strings.TrimSpace(s.Text))
		b.WriteByte('\n')
	}

	a.text = b.String()
	return a.text
}

// FormatFinal renders the full re-transcription result as
// "[HH:MM:SS] SPEAKER: text" lines in ascending start-time order.
func FormatFinal(batch []Segment) string {
	segs := clean(batch)

	var b strings.Builder
	for _, s := range segs {
		spk := s.Speaker
		if spk == "" {
			spk = DefaultSpeaker
		}
		fmt.Fprintf(&b, "[%s] %s: %s\n", clockTimestamp(s.Start), spk, strings.TrimSpace(s.Text))
	}
	return b.String()
}

// clean returns the batch sorted by start time with blank segments removed.
// The input slice is not modified.
func clean(batch []Segment) []Segment {
	segs := make([]Segment, 0, len(batch))
	for _, s := range batch {
		if strings.TrimSpace(s.Text) == "" {
			continue
		}
		segs = append(segs, s)
	}
	sort.SliceStable(segs, func(i, j int) bool {
		return segs[i].Start < segs[j].Start
	})
	return segs
}

func clockTimestamp(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	total := int(sec)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
