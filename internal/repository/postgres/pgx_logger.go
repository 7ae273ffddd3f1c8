package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/tracelog"
	"github.com/rs/zerolog"
)

var pgxLevels = map[tracelog.LogLevel]zerolog.Level{
	tracelog.LogLevelTrace: zerolog.TraceLevel,
	tracelog.LogLevelDebug: zerolog.DebugLevel,
	tracelog.LogLevelInfo:  zerolog.InfoLevel,
	tracelog.LogLevelWarn:  zerolog.WarnLevel,
	tracelog.LogLevelError: zerolog.ErrorLevel,
}

// pgxLogger forwards pgx query traces into zerolog under component=pgx.
type pgxLogger struct {
	logger zerolog.Logger
}

func newPgxLogger(logger zerolog.Logger) *pgxLogger {
	return &pgxLogger{logger: logger.With().Str("component", "pgx").Logger()}
}

func (l *pgxLogger) Log(_ context.Context, level tracelog.LogLevel, msg string, data map[string]any) {
	if level == tracelog.LogLevelNone {
		return
	}
	zl, ok := pgxLevels[level]
	if !ok {
		zl = zerolog.InfoLevel
	}

	event := l.logger.WithLevel(zl)
	for k, v := range data {
		switch val := v.(type) {
		case string:
			event = event.Str(k, val)
		case time.Duration:
			event = event.Dur(k, val)
		case error:
			event = event.AnErr(k, val)
		default:
			event = event.Interface(k, val)
		}
	}
	event.Msg(msg)
}

// traceLevel maps the logger threshold onto pgx so dropped events are never formatted.
func traceLevel(level zerolog.Level) tracelog.LogLevel {
	for _, tl := range []tracelog.LogLevel{
		tracelog.LogLevelTrace,
		tracelog.LogLevelDebug,
		tracelog.LogLevelInfo,
		tracelog.LogLevelWarn,
	} {
		if level <= pgxLevels[tl] {
			return tl
		}
	}
	return tracelog.LogLevelError
}
