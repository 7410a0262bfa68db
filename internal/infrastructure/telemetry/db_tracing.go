package telemetry

import (
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/storefront/backend/internal/infrastructure/config"
)

// RegisterGormTracing installs the otelgorm plugin on the promotion
// database so every query produces a span, plus a callback that tags
// spans with the touched table and marks real errors. Query variables
// are always excluded from spans; coupon codes are customer data.
func RegisterGormTracing(db *gorm.DB, cfg config.TelemetryConfig, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Enabled || !cfg.DBTraceEnabled {
		logger.Debug("Database tracing disabled, skipping otelgorm registration")
		return nil
	}

	plugin := otelgorm.NewPlugin(
		otelgorm.WithDBName("postgresql"),
		otelgorm.WithoutQueryVariables(),
	)
	if err := db.Use(plugin); err != nil {
		return err
	}

	if err := registerSpanEnrichment(db); err != nil {
		return err
	}

	logger.Info("Database tracing enabled",
		zap.String("db_system", "postgresql"),
	)
	return nil
}

// registerSpanEnrichment adds after callbacks on the query paths the
// promotion repositories use. Writes go through migrations, not gorm,
// so only Query, Row and Raw are instrumented.
func registerSpanEnrichment(db *gorm.DB) error {
	if err := db.Callback().Query().After("gorm:query").Register("storefront_trace:after_query", enrichQuerySpan); err != nil {
		return err
	}
	if err := db.Callback().Row().After("gorm:row").Register("storefront_trace:after_row", enrichQuerySpan); err != nil {
		return err
	}
	return db.Callback().Raw().After("gorm:raw").Register("storefront_trace:after_raw", enrichQuerySpan)
}

// enrichQuerySpan tags the active span with table and row-count
// attributes and flags failures. ErrRecordNotFound stays clean since a
// missing coupon is an expected outcome, not a query failure.
func enrichQuerySpan(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}

	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}

	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	if db.Statement.RowsAffected >= 0 {
		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	}

	if db.Error != nil && db.Error != gorm.ErrRecordNotFound {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}
}
