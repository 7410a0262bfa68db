package logger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func newObservedGormLogger(level gormlogger.LogLevel, opts ...GormLoggerOption) (*GormLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewGormLogger(zap.New(core), level, opts...), logs
}

func selectPromotions() (string, int64) {
	return "SELECT * FROM promotions WHERE is_active = true", 4
}

func TestGormLogger_TraceLogsQuery(t *testing.T) {
	gl, logs := newObservedGormLogger(gormlogger.Info)

	gl.Trace(context.Background(), time.Now(), selectPromotions, nil)

	entries := logs.FilterMessage("SQL Query").All()
	require.Len(t, entries, 1)

	fields := entries[0].ContextMap()
	assert.Equal(t, "SELECT * FROM promotions WHERE is_active = true", fields["sql"])
	assert.Equal(t, int64(4), fields["rows"])
}

func TestGormLogger_TraceLogsError(t *testing.T) {
	gl, logs := newObservedGormLogger(gormlogger.Error)

	gl.Trace(context.Background(), time.Now(), selectPromotions, assert.AnError)

	entries := logs.FilterMessage("SQL Error").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
}

func TestGormLogger_RecordNotFoundSuppressed(t *testing.T) {
	gl, logs := newObservedGormLogger(gormlogger.Error)

	gl.Trace(context.Background(), time.Now(), selectPromotions, gormlogger.ErrRecordNotFound)

	assert.Zero(t, logs.Len(), "missing rows are routine, not query errors")
}

func TestGormLogger_RecordNotFoundLoggedWhenConfigured(t *testing.T) {
	gl, logs := newObservedGormLogger(gormlogger.Error, WithIgnoreRecordNotFoundError(false))

	gl.Trace(context.Background(), time.Now(), selectPromotions, gormlogger.ErrRecordNotFound)

	assert.Len(t, logs.FilterMessage("SQL Error").All(), 1)
}

func TestGormLogger_SlowQueryWarns(t *testing.T) {
	gl, logs := newObservedGormLogger(gormlogger.Warn, WithSlowThreshold(time.Nanosecond))

	began := time.Now().Add(-time.Millisecond)
	gl.Trace(context.Background(), began, selectPromotions, nil)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
}

func TestGormLogger_SilentLogsNothing(t *testing.T) {
	gl, logs := newObservedGormLogger(gormlogger.Silent)

	gl.Trace(context.Background(), time.Now(), selectPromotions, assert.AnError)

	assert.Zero(t, logs.Len())
}

func TestGormLogger_TraceCarriesRequestID(t *testing.T) {
	gl, logs := newObservedGormLogger(gormlogger.Info)

	ctx, _ := WithRequestID(context.Background(), zap.NewNop(), "req-7")
	gl.Trace(ctx, time.Now(), selectPromotions, nil)

	entries := logs.FilterMessage("SQL Query").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "req-7", entries[0].ContextMap()["request_id"])
}

func TestGormLogger_LogMode(t *testing.T) {
	gl, _ := newObservedGormLogger(gormlogger.Warn)

	quieter := gl.LogMode(gormlogger.Silent)
	require.NotSame(t, gl, quieter)
	assert.Equal(t, gormlogger.Warn, gl.level, "original level unchanged")
}

func TestGormLogger_LevelGatesInfoWarnError(t *testing.T) {
	gl, logs := newObservedGormLogger(gormlogger.Error)

	gl.Info(context.Background(), "info %s", "msg")
	gl.Warn(context.Background(), "warn %s", "msg")
	gl.Error(context.Background(), "error %s", "msg")

	assert.Equal(t, 1, logs.Len(), "only error passes at error level")
}

func TestMapGormLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want gormlogger.LogLevel
	}{
		{"silent", gormlogger.Silent},
		{"error", gormlogger.Error},
		{"warn", gormlogger.Warn},
		{"info", gormlogger.Info},
		{"debug", gormlogger.Info},
		{"anything", gormlogger.Warn},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, MapGormLogLevel(tt.in), "level %q", tt.in)
	}
}
