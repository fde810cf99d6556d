package tmpldb

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/pthm/tmpldb"

// instruments records Initialize activity. Built from the DB's meter and
// tracer providers; both default to the global otel providers.
type instruments struct {
	tracer      trace.Tracer
	rendered    metric.Int64Counter
	suppressed  metric.Int64Counter
	cacheHits   metric.Int64Counter
	cacheMisses metric.Int64Counter
	saveErrors  metric.Int64Counter
	duration    metric.Float64Histogram
}

func newInstruments(mp metric.MeterProvider, tp trace.TracerProvider) (*instruments, error) {
	meter := mp.Meter(instrumentationName)

	rendered, err := meter.Int64Counter(
		"tmpldb.templates.rendered",
		metric.WithDescription("Templates rendered during initialization"),
		metric.WithUnit("{template}"),
	)
	if err != nil {
		return nil, err
	}

	suppressed, err := meter.Int64Counter(
		"tmpldb.templates.suppressed",
		metric.WithDescription("Templates skipped by ShouldRender"),
		metric.WithUnit("{template}"),
	)
	if err != nil {
		return nil, err
	}

	cacheHits, err := meter.Int64Counter(
		"tmpldb.cache.hits",
		metric.WithDescription("Descriptor types restored from record files"),
		metric.WithUnit("{type}"),
	)
	if err != nil {
		return nil, err
	}

	cacheMisses, err := meter.Int64Counter(
		"tmpldb.cache.misses",
		metric.WithDescription("Descriptor types with no usable record file"),
		metric.WithUnit("{type}"),
	)
	if err != nil {
		return nil, err
	}

	saveErrors, err := meter.Int64Counter(
		"tmpldb.cache.save_errors",
		metric.WithDescription("Record files that could not be written"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"tmpldb.initialize.duration_ms",
		metric.WithDescription("Initialize duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &instruments{
		tracer:      tp.Tracer(instrumentationName),
		rendered:    rendered,
		suppressed:  suppressed,
		cacheHits:   cacheHits,
		cacheMisses: cacheMisses,
		saveErrors:  saveErrors,
		duration:    duration,
	}, nil
}

func typeAttr(name string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("tmpldb.descriptor", name))
}

func (in *instruments) recordDuration(ctx context.Context, start time.Time, err error) {
	in.duration.Record(ctx, float64(time.Since(start).Milliseconds()),
		metric.WithAttributes(attribute.Bool("error", err != nil)))
}
