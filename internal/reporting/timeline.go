package reporting

import (
	"sync"
	"time"
)

// Timeline is an in-memory Sink. It backs the "memory" report format and is
// what tests inspect after driving a scenario.
type Timeline struct {
	mu      sync.Mutex
	seq     int64
	entries []Entry
	now     func() time.Time
}

// NewTimeline returns an empty timeline.
func NewTimeline() *Timeline {
	return &Timeline{now: time.Now}
}

func (t *Timeline) Step(caseName, text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq++
	t.entries = append(t.entries, Entry{Seq: t.seq, Time: t.now(), Case: caseName, Text: text})
}

func (t *Timeline) Attach(caseName, label string, png []byte) {
	data := append([]byte(nil), png...)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq++
	t.entries = append(t.entries, Entry{
		Seq:   t.seq,
		Time:  t.now(),
		Case:  caseName,
		Label: label,
		Attachment: &Attachment{
			Name: label,
			MIME: "image/png",
			Size: len(data),
			Data: data,
		},
	})
}

// Entries returns a copy of everything recorded so far.
func (t *Timeline) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Entry(nil), t.entries...)
}

// Steps returns the narration text recorded for caseName, in order.
func (t *Timeline) Steps(caseName string) []string {
	var out []string
	for _, e := range t.Entries() {
		if e.Case == caseName && e.Attachment == nil {
			out = append(out, e.Text)
		}
	}
	return out
}

// Attachments returns the labels of the images recorded for caseName, in order.
func (t *Timeline) Attachments(caseName string) []string {
	var out []string
	for _, e := range t.Entries() {
		if e.Case == caseName && e.Attachment != nil {
			out = append(out, e.Label)
		}
	}
	return out
}

// Len reports the number of entries.
func (t *Timeline) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
