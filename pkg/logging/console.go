package logging

import (
	"io"
	"os"

	"golang.org/x/term"
)

// ConsoleLogger writes human readable entries to a terminal stream
// Used for --verbose runs alongside or instead of the file log
type ConsoleLogger struct {
	zeroAdapter
}

// NewConsoleLogger creates a console logger writing to w
// Colors are enabled only when w is a terminal
func NewConsoleLogger(w io.Writer, level Level) *ConsoleLogger {
	noColor := true
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		noColor = false
	}
	return &ConsoleLogger{
		zeroAdapter: zeroAdapter{zl: newZerolog(w, FormatText, level, noColor)},
	}
}

// WithFields returns a logger with additional fields
func (l *ConsoleLogger) WithFields(fields Fields) Logger {
	return &ConsoleLogger{zeroAdapter: zeroAdapter{zl: l.with(fields)}}
}

// Close does nothing; the stream belongs to the caller
func (l *ConsoleLogger) Close() error {
	return nil
}
