// Package debuglog writes per-run JSONL traces of stream activity.
// All methods are safe on a nil *Logger, so callers wire tracing
// unconditionally and a single constructor call turns it on.
package debuglog

import (
	"bufio"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Old traces are removed after a week.
const maxLogAge = 7 * 24 * time.Hour

// Logger appends JSONL entries to one file per run.
type Logger struct {
	runID     string
	mu        sync.Mutex
	file      *os.File
	writer    *bufio.Writer
	closeOnce sync.Once
	closed    bool
}

type logEntry struct {
	Timestamp string `json:"timestamp"`
	RunID     string `json:"run_id"`
	Type      string `json:"type"`
}

type runStartEntry struct {
	logEntry
	Mode     string `json:"mode"`
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
	Prompt   string `json:"prompt,omitempty"`
}

type chunkEntry struct {
	logEntry
	Bytes int `json:"bytes"`
	Total int `json:"total"`
}

type publicationEntry struct {
	logEntry
	Seq   int `json:"seq"`
	Bytes int `json:"bytes"`
}

type runEndEntry struct {
	logEntry
	Status       string  `json:"status"`
	Error        string  `json:"error,omitempty"`
	Publications int     `json:"publications"`
	DurationSecs float64 `json:"duration_secs"`
}

// NewRunID returns a unique, sortable run identifier.
func NewRunID() string {
	now := time.Now().Format("20060102-150405")
	randBytes := make([]byte, 3)
	_, _ = rand.Read(randBytes)
	return fmt.Sprintf("run-%s-%s", now, hex.EncodeToString(randBytes))
}

// New creates a logger writing to <baseDir>/<runID>.jsonl. Traces
// older than a week are cleaned up on the way in.
func New(baseDir, runID string) (*Logger, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, err
	}

	_ = CleanupOldLogs(baseDir, maxLogAge)

	filename := filepath.Join(baseDir, runID+".jsonl")
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, err
	}

	return &Logger{
		runID:  runID,
		file:   file,
		writer: bufio.NewWriter(file),
	}, nil
}

// LogRunStart records the run's source and destination parameters.
func (l *Logger) LogRunStart(mode, provider, model, prompt string) {
	if l == nil {
		return
	}
	l.writeEntry(runStartEntry{
		logEntry: l.entry("run_start"),
		Mode:     mode,
		Provider: provider,
		Model:    model,
		Prompt:   prompt,
	})
	l.Flush()
}

// LogChunk records one source increment. High-frequency; not flushed.
func (l *Logger) LogChunk(bytes, total int) {
	if l == nil {
		return
	}
	l.writeEntry(chunkEntry{
		logEntry: l.entry("chunk"),
		Bytes:    bytes,
		Total:    total,
	})
}

// LogPublication records one published snapshot. Not flushed.
func (l *Logger) LogPublication(seq, bytes int) {
	if l == nil {
		return
	}
	l.writeEntry(publicationEntry{
		logEntry: l.entry("publication"),
		Seq:      seq,
		Bytes:    bytes,
	})
}

// LogRunEnd records the run outcome and flushes the trace.
func (l *Logger) LogRunEnd(status string, err error, publications int, duration time.Duration) {
	if l == nil {
		return
	}
	entry := runEndEntry{
		logEntry:     l.entry("run_end"),
		Status:       status,
		Publications: publications,
		DurationSecs: duration.Seconds(),
	}
	if err != nil {
		entry.Error = err.Error()
	}
	l.writeEntry(entry)
	l.Flush()
}

// Flush writes buffered entries to disk.
func (l *Logger) Flush() {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed || l.writer == nil {
		return
	}
	l.writer.Flush()
}

// Close flushes and closes the trace file. Idempotent.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}

	var closeErr error
	l.closeOnce.Do(func() {
		l.mu.Lock()
		defer l.mu.Unlock()

		if l.file == nil {
			return
		}
		if err := l.writer.Flush(); err != nil {
			closeErr = err
		}
		if err := l.file.Close(); err != nil && closeErr == nil {
			closeErr = err
		}
		l.closed = true
	})
	return closeErr
}

func (l *Logger) entry(kind string) logEntry {
	return logEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		RunID:     l.runID,
		Type:      kind,
	}
}

// writeEntry appends one JSON line. Callers flush when appropriate.
func (l *Logger) writeEntry(entry any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	l.writer.Write(data)
	l.writer.WriteString("\n")
}

// CleanupOldLogs removes .jsonl files older than maxAge from baseDir.
func CleanupOldLogs(baseDir string, maxAge time.Duration) error {
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".jsonl" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			_ = os.Remove(filepath.Join(baseDir, entry.Name()))
		}
	}
	return nil
}
