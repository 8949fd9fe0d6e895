package httpmiddleware

import (
	"net/http"

	"github.com/go-faster/sdk/app"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Instrument returns a middleware that wraps the server in an otelhttp
// handler: one span per request using the application's tracer and
// propagators, plus a completed-request counter keyed by method and status.
func Instrument(serviceName string, m *app.Telemetry) Middleware {
	return instrument(serviceName, m.TracerProvider(), m.MeterProvider(), m.TextMapPropagator())
}

func instrument(
	serviceName string,
	tp trace.TracerProvider,
	mp metric.MeterProvider,
	prop propagation.TextMapPropagator,
) Middleware {
	meter := mp.Meter(serviceName)
	requests, err := meter.Int64Counter("http.server.requests",
		metric.WithDescription("Completed HTTP requests"),
	)
	if err != nil {
		// Only happens with a misbehaving meter provider; fall back to a
		// counter that drops its measurements.
		requests, _ = noop.NewMeterProvider().Meter(serviceName).Int64Counter("http.server.requests")
	}

	return func(next http.Handler) http.Handler {
		counted := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			requests.Add(r.Context(), 1, metric.WithAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.Int("http.response.status_code", sw.status),
			))
		})

		return otelhttp.NewHandler(counted, serviceName,
			otelhttp.WithTracerProvider(tp),
			otelhttp.WithMeterProvider(mp),
			otelhttp.WithPropagators(prop),
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	}
}
