package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/guillermoBallester/querytally"

// Instrument names.
const (
	metricStatementCount    = "querytally.statement.count"
	metricStatementDuration = "querytally.statement.duration"
	metricStatementErrors   = "querytally.statement.errors"
	metricToolDuration      = "querytally.tool.duration"
)

// Instruments holds pre-created OTel metric instruments. It implements
// port.Instrumentation.
type Instruments struct {
	StatementCount    metric.Int64Counter
	StatementDuration metric.Float64Histogram
	StatementErrors   metric.Int64Counter
	ToolDuration      metric.Float64Histogram
}

// NewInstruments creates metric instruments from the global MeterProvider.
func NewInstruments() *Instruments {
	return newInstrumentsFromMeter(otel.Meter(meterName))
}

// NoopInstruments returns instruments that record nothing.
func NoopInstruments() *Instruments {
	return newInstrumentsFromMeter(noop.NewMeterProvider().Meter(meterName))
}

func newInstrumentsFromMeter(meter metric.Meter) *Instruments {
	// OTel SDK returns noop instruments on error; safe to discard.
	count, _ := meter.Int64Counter(metricStatementCount,
		metric.WithDescription("Statements sent over traced connections"),
	)
	duration, _ := meter.Float64Histogram(metricStatementDuration,
		metric.WithDescription("Statement round-trip duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	errs, _ := meter.Int64Counter(metricStatementErrors,
		metric.WithDescription("Statements rejected by validation or failed by the server"),
	)
	toolDuration, _ := meter.Float64Histogram(metricToolDuration,
		metric.WithDescription("MCP tool call duration in milliseconds"),
		metric.WithUnit("ms"),
	)

	return &Instruments{
		StatementCount:    count,
		StatementDuration: duration,
		StatementErrors:   errs,
		ToolDuration:      toolDuration,
	}
}

func (i *Instruments) RecordQueryDuration(ctx context.Context, ms float64) {
	i.StatementDuration.Record(ctx, ms)
}

func (i *Instruments) IncrementQueryCount(ctx context.Context) {
	i.StatementCount.Add(ctx, 1)
}

func (i *Instruments) IncrementQueryErrors(ctx context.Context) {
	i.StatementErrors.Add(ctx, 1)
}

func (i *Instruments) RecordToolDuration(ctx context.Context, ms float64) {
	i.ToolDuration.Record(ctx, ms)
}
