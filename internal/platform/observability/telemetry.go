package observability

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationPrefix = "github.com/T0MGL/0rdefy-sub009/"

// Tracer returns the globally registered tracer scoped to the given package path.
// Without an installed provider the tracer is a no-op.
func Tracer(pkg string) trace.Tracer {
	return otel.Tracer(instrumentationPrefix + pkg)
}

// Meter returns the globally registered meter scoped to the given package path.
func Meter(pkg string) metric.Meter {
	return otel.Meter(instrumentationPrefix + pkg)
}

// Counter creates an int64 counter, falling back to a no-op instrument when the
// provider rejects the definition.
func Counter(meter metric.Meter, name, description string) metric.Int64Counter {
	counter, err := meter.Int64Counter(name, metric.WithDescription(description))
	if err != nil {
		otel.Handle(err)
		fallback, _ := noop.NewMeterProvider().Meter(instrumentationPrefix).Int64Counter(name)
		return fallback
	}
	return counter
}
