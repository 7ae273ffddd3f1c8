package postgres

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/tracelog"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestPgxLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	l := newPgxLogger(zerolog.New(&buf))

	l.Log(context.Background(), tracelog.LogLevelError, "Query", map[string]any{
		"sql":  "SELECT 1",
		"time": 3 * time.Millisecond,
		"err":  errors.New("boom"),
		"args": []any{1},
	})

	out := buf.String()
	assert.Contains(t, out, `"level":"error"`)
	assert.Contains(t, out, `"component":"pgx"`)
	assert.Contains(t, out, `"sql":"SELECT 1"`)
	assert.Contains(t, out, `"err":"boom"`)
	assert.Contains(t, out, `"message":"Query"`)

	buf.Reset()
	l.Log(context.Background(), tracelog.LogLevelNone, "ignored", nil)
	assert.Empty(t, buf.String())
}

func TestTraceLevel(t *testing.T) {
	assert.Equal(t, tracelog.LogLevelTrace, traceLevel(zerolog.TraceLevel))
	assert.Equal(t, tracelog.LogLevelDebug, traceLevel(zerolog.DebugLevel))
	assert.Equal(t, tracelog.LogLevelInfo, traceLevel(zerolog.InfoLevel))
	assert.Equal(t, tracelog.LogLevelWarn, traceLevel(zerolog.WarnLevel))
	assert.Equal(t, tracelog.LogLevelError, traceLevel(zerolog.ErrorLevel))
	assert.Equal(t, tracelog.LogLevelError, traceLevel(zerolog.Disabled))
}
