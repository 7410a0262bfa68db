package telemetry

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/storefront/backend/internal/infrastructure/config"
)

func newMockGorm(t *testing.T) *gorm.DB {
	t.Helper()

	mockDB, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return gormDB
}

func newSpanRecorder(t *testing.T) (*sdktrace.TracerProvider, *tracetest.SpanRecorder) {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return tp, sr
}

func TestRegisterGormTracing_Disabled(t *testing.T) {
	db := newMockGorm(t)

	cfg := config.TelemetryConfig{Enabled: false, DBTraceEnabled: true}
	err := RegisterGormTracing(db, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	// No plugin means no callback registration left behind
	assert.Nil(t, db.Callback().Query().Get("storefront_trace:after_query"))
}

func TestRegisterGormTracing_DBTracingOff(t *testing.T) {
	db := newMockGorm(t)

	cfg := config.TelemetryConfig{Enabled: true, DBTraceEnabled: false}
	err := RegisterGormTracing(db, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.Nil(t, db.Callback().Query().Get("storefront_trace:after_query"))
}

func TestRegisterGormTracing_Enabled(t *testing.T) {
	db := newMockGorm(t)

	cfg := config.TelemetryConfig{Enabled: true, DBTraceEnabled: true}
	err := RegisterGormTracing(db, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.NotNil(t, db.Callback().Query().Get("storefront_trace:after_query"))
	assert.NotNil(t, db.Callback().Row().Get("storefront_trace:after_row"))
	assert.NotNil(t, db.Callback().Raw().Get("storefront_trace:after_raw"))
}

func TestEnrichQuerySpan_TableAndRowAttributes(t *testing.T) {
	tp, sr := newSpanRecorder(t)

	ctx, span := tp.Tracer("test").Start(context.Background(), "promotions-query")

	db := &gorm.DB{}
	db.Statement = &gorm.Statement{DB: db, Context: ctx, Table: "promotions"}
	db.RowsAffected = 3

	enrichQuerySpan(db)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)

	tableFound := false
	rowsFound := false
	for _, attr := range spans[0].Attributes() {
		switch attr.Key {
		case "db.sql.table":
			assert.Equal(t, "promotions", attr.Value.AsString())
			tableFound = true
		case "db.rows_affected":
			assert.Equal(t, int64(3), attr.Value.AsInt64())
			rowsFound = true
		}
	}
	assert.True(t, tableFound, "table attribute missing")
	assert.True(t, rowsFound, "rows_affected attribute missing")
}

func TestEnrichQuerySpan_RecordNotFoundIsNotAnError(t *testing.T) {
	tp, sr := newSpanRecorder(t)

	ctx, span := tp.Tracer("test").Start(context.Background(), "coupon-lookup")

	db := &gorm.DB{}
	db.Statement = &gorm.Statement{DB: db, Context: ctx, Table: "coupons"}
	db.Error = gorm.ErrRecordNotFound

	enrichQuerySpan(db)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.NotEqual(t, codes.Error, spans[0].Status().Code)
}

func TestEnrichQuerySpan_QueryErrorMarksSpan(t *testing.T) {
	tp, sr := newSpanRecorder(t)

	ctx, span := tp.Tracer("test").Start(context.Background(), "promotions-query")

	db := &gorm.DB{}
	db.Statement = &gorm.Statement{DB: db, Context: ctx, Table: "promotions"}
	db.Error = assert.AnError

	enrichQuerySpan(db)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestEnrichQuerySpan_NilContext(t *testing.T) {
	db := &gorm.DB{}
	db.Statement = &gorm.Statement{DB: db, Context: nil}

	// Must not panic without a span in scope
	enrichQuerySpan(db)
}
