package apperror

import (
	"io"
	"log"
)

// Logger records origin/classified pairs while developing. It never panics
// and writes nothing unless enabled.
type Logger struct {
	logger  *log.Logger
	enabled bool
}

// NewLogger returns a Logger; a nil logger discards output.
func NewLogger(logger *log.Logger, development bool) *Logger {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Logger{logger: logger, enabled: development}
}

// Enabled reports whether the logger writes anything.
func (l *Logger) Enabled() bool {
	return l != nil && l.enabled
}

// Log writes one line for origin and its classification. where names the
// calling flow and may be empty.
func (l *Logger) Log(origin any, classified *Error, where string) {
	if !l.Enabled() {
		return
	}
	defer func() {
		_ = recover()
	}()
	if classified == nil {
		classified = Classify(origin)
	}
	if where != "" {
		where = " in " + where
	}
	l.logger.Printf("error%s: kind=%s status=%d message=%q origin=%v", where, classified.Kind, classified.HTTPStatus, classified.Message, origin)
}
