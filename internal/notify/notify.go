// Package notify is the notification surface: short success and error
// messages raised by session operations for whatever is showing them.
package notify

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Level of a notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is one transient message.
type Notification struct {
	Level   Level
	Message string
	Time    time.Time
}

// Notifier receives transient user-facing messages.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// Discard drops every notification.
type Discard struct{}

func (Discard) Success(string) {}
func (Discard) Error(string)   {}

// Log writes notifications to a zerolog logger.
type Log struct {
	Logger zerolog.Logger
}

func (l Log) Success(msg string) { l.Logger.Info().Str("notification", "success").Msg(msg) }
func (l Log) Error(msg string)   { l.Logger.Warn().Str("notification", "error").Msg(msg) }

// Writer prints notifications as single lines, e.g. to a terminal.
type Writer struct {
	mu  sync.Mutex
	out io.Writer
}

// NewWriter creates a Writer printing to out.
func NewWriter(out io.Writer) *Writer {
	return &Writer{out: out}
}

func (w *Writer) Success(msg string) { w.print("✓", msg) }
func (w *Writer) Error(msg string)   { w.print("✗", msg) }

func (w *Writer) print(mark, msg string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.out, "%s %s\n", mark, msg)
}

// Multi fans a notification out to several notifiers.
type Multi []Notifier

func (m Multi) Success(msg string) {
	for _, n := range m {
		n.Success(msg)
	}
}

func (m Multi) Error(msg string) {
	for _, n := range m {
		n.Error(msg)
	}
}
