// -- internal/reporting/reporter.go --
package reporting

import (
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
)

// Sink receives the narration and screenshots produced while a case runs.
// Implementations must be safe for concurrent use and preserve the order in
// which entries arrive.
type Sink interface {
	// Step records a line of narration for the named case.
	Step(caseName, text string)
	// Attach records a PNG image under label for the named case.
	Attach(caseName, label string, png []byte)
}

// Reporter is a Sink that owns resources which must be released at the end
// of a run.
type Reporter interface {
	Sink
	io.Closer
}

// Entry is one timeline record. Attachment is nil for narration steps.
type Entry struct {
	Seq        int64       `json:"seq"`
	Time       time.Time   `json:"time"`
	Case       string      `json:"case"`
	Label      string      `json:"label,omitempty"`
	Text       string      `json:"text,omitempty"`
	Attachment *Attachment `json:"attachment,omitempty"`
}

// Attachment describes an image attached to the timeline. Data is kept in
// memory only; on disk the image lives at Path.
type Attachment struct {
	Name string `json:"name"`
	MIME string `json:"mime"`
	Size int    `json:"size"`
	Path string `json:"path,omitempty"`
	Data []byte `json:"-"`
}

// nopCloser turns a Sink into a Reporter whose Close does nothing.
type nopCloser struct {
	Sink
}

func (nopCloser) Close() error {
	return nil
}

// New creates a reporter for the configured format. "dir" writes a per-run
// directory under dir, "memory" keeps a Timeline, and "none" discards
// everything.
func New(format, dir string, logger *zap.Logger) (Reporter, error) {
	switch format {
	case "dir":
		return NewDirSink(dir, logger)
	case "memory":
		return nopCloser{NewTimeline()}, nil
	case "none", "":
		return nopCloser{Null{}}, nil
	default:
		return nil, fmt.Errorf("unsupported report format: %s", format)
	}
}

// Null discards every entry.
type Null struct{}

func (Null) Step(string, string)           {}
func (Null) Attach(string, string, []byte) {}

// multi fans every entry out to several sinks in order.
type multi []Sink

// Multi returns a Sink that forwards to every non-nil sink given.
func Multi(sinks ...Sink) Sink {
	out := make(multi, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (m multi) Step(caseName, text string) {
	for _, s := range m {
		s.Step(caseName, text)
	}
}

func (m multi) Attach(caseName, label string, png []byte) {
	for _, s := range m {
		s.Attach(caseName, label, png)
	}
}
