package logbook

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level represents the severity of a log entry.
type Level string

const (
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Logbook persists dashboard activity to a plain text file so remote-call
// failures can be inspected after the terminal session ends. The activity
// pane in the UI reads the same file back through Tail.
type Logbook struct {
	path string
	mu   sync.Mutex
	file *os.File
}

// New opens (or creates) a logbook at the given path.
func New(path string) (*Logbook, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &Logbook{path: path, file: f}, nil
}

// Path returns the file backing this logbook.
func (l *Logbook) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Close releases the underlying file handle.
func (l *Logbook) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	err := l.file.Close()
	l.file = nil
	return err
}

// Append writes a single entry. A nil logbook discards entries so callers
// never need to guard their logging.
func (l *Logbook) Append(level Level, message string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return
	}
	fmt.Fprintf(l.file, "%s %-5s %s\n",
		time.Now().UTC().Format(time.RFC3339),
		string(level),
		strings.TrimSpace(message),
	)
}

// Tail returns up to maxLines of the most recent entries plus the total
// number of entries in the file.
func (l *Logbook) Tail(maxLines int) ([]string, int) {
	if l == nil || maxLines <= 0 {
		return nil, 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	file, err := os.Open(l.path)
	if err != nil {
		return nil, 0
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	total := len(lines)
	if total > maxLines {
		lines = lines[total-maxLines:]
	}
	return lines, total
}

// Info appends an informational entry.
func (l *Logbook) Info(format string, args ...any) {
	l.Append(LevelInfo, fmt.Sprintf(format, args...))
}

// Warn appends a warning entry.
func (l *Logbook) Warn(format string, args ...any) {
	l.Append(LevelWarn, fmt.Sprintf(format, args...))
}

// Error appends an error entry.
func (l *Logbook) Error(format string, args ...any) {
	l.Append(LevelError, fmt.Sprintf(format, args...))
}

// Run returns a view of the logbook that prefixes every entry with a run
// identifier, used to correlate the steps of one workflow invocation.
func (l *Logbook) Run(runID string) *RunLog {
	return &RunLog{book: l, runID: strings.TrimSpace(runID)}
}

// RunLog is a logbook view scoped to a single workflow run.
type RunLog struct {
	book  *Logbook
	runID string
}

func (r *RunLog) prefix(message string) string {
	if r == nil || r.runID == "" {
		return message
	}
	return fmt.Sprintf("[%s] %s", r.runID, message)
}

// Info appends an informational entry tagged with the run id.
func (r *RunLog) Info(format string, args ...any) {
	if r == nil {
		return
	}
	r.book.Append(LevelInfo, r.prefix(fmt.Sprintf(format, args...)))
}

// Warn appends a warning entry tagged with the run id.
func (r *RunLog) Warn(format string, args ...any) {
	if r == nil {
		return
	}
	r.book.Append(LevelWarn, r.prefix(fmt.Sprintf(format, args...)))
}

// Error appends an error entry tagged with the run id.
func (r *RunLog) Error(format string, args ...any) {
	if r == nil {
		return
	}
	r.book.Append(LevelError, r.prefix(fmt.Sprintf(format, args...)))
}
