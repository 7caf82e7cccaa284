package testutil

import (
	"fmt"
	"strings"
	"sync"
)

// RecordingLogger keeps every message as "LEVEL msg" for assertions.
type RecordingLogger struct {
	mu      sync.Mutex
	Entries []string
}

func (l *RecordingLogger) add(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry := level + " " + msg
	if len(args) > 0 {
		entry += " " + strings.TrimSuffix(fmt.Sprintln(args...), "\n")
	}
	l.Entries = append(l.Entries, entry)
}

func (l *RecordingLogger) Debug(msg string, args ...any) { l.add("DEBUG", msg, args) }
func (l *RecordingLogger) Info(msg string, args ...any)  { l.add("INFO", msg, args) }
func (l *RecordingLogger) Warn(msg string, args ...any)  { l.add("WARN", msg, args) }
func (l *RecordingLogger) Error(msg string, args ...any) { l.add("ERROR", msg, args) }

// Has reports whether an entry with the given level and message was logged.
func (l *RecordingLogger) Has(level, msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.Entries {
		if strings.HasPrefix(e, level+" "+msg) {
			return true
		}
	}
	return false
}
