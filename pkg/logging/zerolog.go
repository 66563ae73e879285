package logging

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

func init() {
	zerolog.TimestampFieldName = "timestamp"
	zerolog.LevelFieldMarshalFunc = func(l zerolog.Level) string {
		return strings.ToUpper(l.String())
	}
}

// Format represents the log output format
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// zeroLevel maps a Level onto the zerolog level
func zeroLevel(level Level) zerolog.Level {
	switch level {
	case DebugLevel:
		return zerolog.DebugLevel
	case InfoLevel:
		return zerolog.InfoLevel
	case WarnLevel:
		return zerolog.WarnLevel
	case ErrorLevel:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// textWriter wraps out in a zerolog console writer producing
// "timestamp [LEVEL] message key=value" lines
func textWriter(out io.Writer, noColor bool) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    noColor,
		TimeFormat: time.RFC3339,
		FormatLevel: func(i interface{}) string {
			return fmt.Sprintf("[%s]", strings.ToUpper(fmt.Sprint(i)))
		},
	}
}

// newZerolog builds a zerolog logger for the given writer, format and level
func newZerolog(out io.Writer, format Format, level Level, noColor bool) zerolog.Logger {
	var w io.Writer = out
	if format != FormatJSON {
		w = textWriter(out, noColor)
	}
	return zerolog.New(w).Level(zeroLevel(level)).With().Timestamp().Logger()
}

// zeroAdapter implements the Logger methods on top of a zerolog.Logger
type zeroAdapter struct {
	zl zerolog.Logger
}

func (a zeroAdapter) Debug(ctx context.Context, msg string, fields Fields) {
	a.zl.Debug().Fields(map[string]interface{}(fields)).Msg(msg)
}

func (a zeroAdapter) Info(ctx context.Context, msg string, fields Fields) {
	a.zl.Info().Fields(map[string]interface{}(fields)).Msg(msg)
}

func (a zeroAdapter) Warn(ctx context.Context, msg string, fields Fields) {
	a.zl.Warn().Fields(map[string]interface{}(fields)).Msg(msg)
}

func (a zeroAdapter) Error(ctx context.Context, msg string, err error, fields Fields) {
	a.zl.Error().Err(err).Fields(map[string]interface{}(fields)).Msg(msg)
}

func (a zeroAdapter) with(fields Fields) zerolog.Logger {
	return a.zl.With().Fields(map[string]interface{}(fields)).Logger()
}
