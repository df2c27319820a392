// Package statslog writes one line per gesture outcome to a size-rotated file.
package statslog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LogLevel defines the logging verbosity.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Event is the kind of gesture outcome being logged.
type Event string

const (
	EventSettled        Event = "SETTLED"
	EventSuperseded     Event = "SUPERSEDED"
	EventNoEnd          Event = "NO-END"
	EventCorrected      Event = "CORRECTED"
	EventLaunchFailed   Event = "LAUNCH-FAILED"
	EventUnexpectedTask Event = "UNEXPECTED-TASK"
	EventStale          Event = "STALE-SESSION"
)

func eventLevel(e Event) LogLevel {
	switch e {
	case EventCorrected:
		return LevelDebug
	case EventLaunchFailed, EventUnexpectedTask, EventStale:
		return LevelWarn
	default:
		return LevelInfo
	}
}

// Entry is one gesture outcome.
type Entry struct {
	Event     Event
	GestureID int64
	DisplayID int
	SessionID string
	EndTarget string
	Reason    string
	Origin    string
	Duration  time.Duration
}

// LogConfig holds configuration for the stats logger.
type LogConfig struct {
	Enabled   bool
	Level     LogLevel
	FilePath  string
	MaxSizeMB int
	MaxFiles  int
}

// Logger writes gesture outcomes with file rotation. A nil or disabled
// Logger drops entries.
type Logger struct {
	mu          sync.Mutex
	file        *os.File
	config      LogConfig
	currentSize int64
	now         func() time.Time
}

// NewLogger creates a new logger with the given configuration.
func NewLogger(cfg LogConfig) (*Logger, error) {
	if !cfg.Enabled {
		return &Logger{config: cfg, now: time.Now}, nil
	}

	dir := filepath.Dir(cfg.FilePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}

	f, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", cfg.FilePath, err)
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat log file: %w", err)
	}

	return &Logger{
		file:        f,
		config:      cfg,
		currentSize: stat.Size(),
		now:         time.Now,
	}, nil
}

// Record writes e.
func (l *Logger) Record(e Entry) {
	if l == nil || !l.config.Enabled {
		return
	}
	if eventLevel(e.Event) < l.config.Level {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return
	}

	maxBytes := int64(l.config.MaxSizeMB) * 1024 * 1024
	if maxBytes > 0 && l.currentSize >= maxBytes {
		if err := l.rotate(); err != nil {
			fmt.Fprintf(os.Stderr, "stats log rotation failed: %v\n", err)
		}
		if l.file == nil {
			return
		}
	}

	n, err := l.file.WriteString(format(l.now(), e))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to write stats entry: %v\n", err)
		return
	}
	l.currentSize += int64(n)
}

func format(ts time.Time, e Entry) string {
	var sb strings.Builder
	sb.WriteString(ts.Format("2006-01-02 15:04:05.000"))
	sb.WriteString(" [")
	sb.WriteString(string(e.Event))
	sb.WriteString("]")
	fmt.Fprintf(&sb, " gesture=%d display=%d", e.GestureID, e.DisplayID)
	if e.EndTarget != "" {
		sb.WriteString(" end_target=")
		sb.WriteString(e.EndTarget)
	}
	if e.Origin != "" {
		sb.WriteString(" origin=")
		sb.WriteString(e.Origin)
	}
	if e.Duration > 0 {
		fmt.Fprintf(&sb, " duration_ms=%d", e.Duration.Milliseconds())
	}
	if e.SessionID != "" {
		sb.WriteString(" session=")
		sb.WriteString(e.SessionID)
	}
	if e.Reason != "" {
		fmt.Fprintf(&sb, " reason=%q", e.Reason)
	}
	sb.WriteString("\n")
	return sb.String()
}

// Close closes the logger and releases resources.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	err := l.file.Close()
	l.file = nil
	return err
}

// rotate shifts gestures.log -> gestures.log.1 -> ... keeping MaxFiles
// rotated files.
func (l *Logger) rotate() error {
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}

	basePath := l.config.FilePath
	for i := l.config.MaxFiles; i >= 1; i-- {
		oldPath := fmt.Sprintf("%s.%d", basePath, i)
		if i == l.config.MaxFiles {
			os.Remove(oldPath)
		} else {
			os.Rename(oldPath, fmt.Sprintf("%s.%d", basePath, i+1))
		}
	}

	if err := os.Rename(basePath, basePath+".1"); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to rotate log file: %w", err)
	}

	f, err := os.OpenFile(basePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open new log file: %w", err)
	}

	l.file = f
	l.currentSize = 0
	return nil
}

// ParseLogLevel converts a string to LogLevel.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}
