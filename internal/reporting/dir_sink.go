package reporting

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	timelineFile   = "timeline.jsonl"
	attachmentsDir = "attachments"
	maxSlugLen     = 60
)

// DirSink writes a run's timeline to disk:
//
//	<root>/<run-id>/timeline.jsonl
//	<root>/<run-id>/attachments/<seq>-<slug>.png
//
// Write failures are logged and otherwise ignored so reporting never fails
// a case.
type DirSink struct {
	runID  string
	runDir string
	logger *zap.Logger

	mu     sync.Mutex
	seq    int64
	file   *os.File
	w      *bufio.Writer
	enc    *jsoniter.Encoder
	closed bool
}

// NewDirSink creates the per-run directory under root and opens its timeline.
func NewDirSink(root string, logger *zap.Logger) (*DirSink, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	expanded, err := homedir.Expand(root)
	if err != nil {
		return nil, fmt.Errorf("failed to expand results dir %q: %w", root, err)
	}

	runID := uuid.NewString()
	runDir := filepath.Join(expanded, runID)
	if err := os.MkdirAll(filepath.Join(runDir, attachmentsDir), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create run directory %s: %w", runDir, err)
	}

	f, err := os.Create(filepath.Join(runDir, timelineFile))
	if err != nil {
		return nil, fmt.Errorf("failed to create timeline file: %w", err)
	}

	w := bufio.NewWriter(f)
	s := &DirSink{
		runID:  runID,
		runDir: runDir,
		logger: logger.Named("reporting").With(zap.String("run_id", runID)),
		file:   f,
		w:      w,
		enc:    json.NewEncoder(w),
	}
	s.logger.Info("Writing report timeline.", zap.String("dir", runDir))
	return s, nil
}

// RunID returns the identifier of this run's directory.
func (s *DirSink) RunID() string { return s.runID }

// Dir returns the absolute-or-relative path of this run's directory.
func (s *DirSink) Dir() string { return s.runDir }

func (s *DirSink) Step(caseName, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.seq++
	s.write(Entry{Seq: s.seq, Time: time.Now(), Case: caseName, Text: text})
}

func (s *DirSink) Attach(caseName, label string, png []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.seq++

	name := fmt.Sprintf("%04d-%s.png", s.seq, slugify(label))
	rel := filepath.Join(attachmentsDir, name)
	if err := os.WriteFile(filepath.Join(s.runDir, rel), png, 0o644); err != nil {
		s.logger.Warn("Failed to write attachment.", zap.String("label", label), zap.Error(err))
		rel = ""
	}

	s.write(Entry{
		Seq:   s.seq,
		Time:  time.Now(),
		Case:  caseName,
		Label: label,
		Attachment: &Attachment{
			Name: label,
			MIME: "image/png",
			Size: len(png),
			Path: filepath.ToSlash(rel),
		},
	})
}

// write must be called with s.mu held.
func (s *DirSink) write(e Entry) {
	if err := s.enc.Encode(e); err != nil {
		s.logger.Warn("Failed to encode timeline entry.", zap.Int64("seq", e.Seq), zap.Error(err))
		return
	}
	// Flush per entry so a crashed run still leaves a readable timeline.
	if err := s.w.Flush(); err != nil {
		s.logger.Warn("Failed to flush timeline.", zap.Error(err))
	}
}

// Close flushes and closes the timeline file. It is safe to call twice.
func (s *DirSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.w.Flush(); err != nil {
		s.file.Close()
		return fmt.Errorf("failed to flush timeline: %w", err)
	}
	return s.file.Close()
}

// slugify lowercases label and collapses everything that is not a letter or
// digit into single dashes.
func slugify(label string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(label) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimRight(b.String(), "-")
	if runes := []rune(out); len(runes) > maxSlugLen {
		out = strings.TrimRight(string(runes[:maxSlugLen]), "-")
	}
	if out == "" {
		return "screenshot"
	}
	return out
}
