package testdoubles

import (
	"context"
	"log/slog"
	"os"
	"sync"
)

// LogHandlerSpy is a slog.Handler implementation that captures log records in order.
type LogHandlerSpy struct {
	records     []slog.Record
	mu          sync.Mutex
	logToStdout bool
}

// NewLogHandlerSpy creates a new LogHandlerSpy.
// Switchable to log to stdout, which can be useful for debugging tests by seeing the actual log output.
func NewLogHandlerSpy(logToStdout bool) *LogHandlerSpy {
	return &LogHandlerSpy{logToStdout: logToStdout}
}

// Handle implements slog.Handler.
func (s *LogHandlerSpy) Handle(ctx context.Context, record slog.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record.Clone())

	if s.logToStdout {
		_ = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}).Handle(ctx, record)
	}

	return nil
}

// Enabled implements slog.Handler.
func (s *LogHandlerSpy) Enabled(context.Context, slog.Level) bool {
	return true
}

// WithAttrs implements slog.Handler.
func (s *LogHandlerSpy) WithAttrs([]slog.Attr) slog.Handler {
	return s
}

// WithGroup implements slog.Handler.
func (s *LogHandlerSpy) WithGroup(string) slog.Handler {
	return s
}

// Records returns a copy of all captured records.
func (s *LogHandlerSpy) Records() []slog.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]slog.Record(nil), s.records...)
}

// Messages returns the messages of all captured records, in order.
func (s *LogHandlerSpy) Messages() []string {
	records := s.Records()
	messages := make([]string, 0, len(records))
	for _, record := range records {
		messages = append(messages, record.Message)
	}

	return messages
}

// MessagesAt returns the messages logged at level, in order.
func (s *LogHandlerSpy) MessagesAt(level slog.Level) []string {
	var messages []string
	for _, record := range s.Records() {
		if record.Level == level {
			messages = append(messages, record.Message)
		}
	}

	return messages
}

// Find returns the first record with message, if any.
func (s *LogHandlerSpy) Find(message string) (slog.Record, bool) {
	for _, record := range s.Records() {
		if record.Message == message {
			return record, true
		}
	}

	return slog.Record{}, false
}

// Attr returns the value of key in the first record with message.
func (s *LogHandlerSpy) Attr(message, key string) (slog.Value, bool) {
	record, ok := s.Find(message)
	if !ok {
		return slog.Value{}, false
	}

	var value slog.Value
	found := false
	record.Attrs(func(attr slog.Attr) bool {
		if attr.Key == key {
			value = attr.Value
			found = true

			return false
		}

		return true
	})

	return value, found
}

// Reset clears all captured records.
func (s *LogHandlerSpy) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
}
