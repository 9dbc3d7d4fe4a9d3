package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the portal's OpenTelemetry instruments.
type Metrics struct {
	HTTPRequestsTotal metric.Int64Counter
	HTTPDurationMs    metric.Float64Histogram

	AuthFailuresTotal  metric.Int64Counter
	GateDecisionsTotal metric.Int64Counter
	SessionOpsTotal    metric.Int64Counter

	BookingsTotal        metric.Int64Counter
	SurveysTotal         metric.Int64Counter
	EventsPublishedTotal metric.Int64Counter
}

// InitMetrics creates the instruments on the global meter provider.
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("github.com/WailSalutem-Health-Care/care-portal")
	m := &Metrics{}

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
		unit string
	}{
		{&m.HTTPRequestsTotal, "http_server_requests_total", "Total number of HTTP requests", "{request}"},
		{&m.AuthFailuresTotal, "auth_failures_total", "Total number of bearer token failures", "{failure}"},
		{&m.GateDecisionsTotal, "gate_decisions_total", "Authorization gate decisions by outcome", "{decision}"},
		{&m.SessionOpsTotal, "session_operations_total", "Login, register and logout outcomes", "{operation}"},
		{&m.BookingsTotal, "booking_submissions_total", "Booking wizard submissions by outcome", "{submission}"},
		{&m.SurveysTotal, "health_surveys_total", "Health survey submissions by outcome", "{submission}"},
		{&m.EventsPublishedTotal, "events_published_total", "Domain events handed to the broker", "{event}"},
	}
	for _, c := range counters {
		ctr, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit(c.unit))
		if err != nil {
			return nil, err
		}
		*c.dst = ctr
	}

	h, err := meter.Float64Histogram(
		"http_server_duration_milliseconds",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}
	m.HTTPDurationMs = h

	return m, nil
}

// RecordHTTPRequest records an HTTP request metric
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, route string, statusCode int, durationMs float64) {
	attrs := metric.WithAttributes(
		attribute.String("http_method", method),
		attribute.String("http_route", route),
		attribute.Int("http_status_code", statusCode),
	)
	m.HTTPRequestsTotal.Add(ctx, 1, attrs)
	m.HTTPDurationMs.Record(ctx, durationMs, attrs)
}

// RecordAuthFailure records a rejected bearer token.
func (m *Metrics) RecordAuthFailure(ctx context.Context, reason string) {
	m.AuthFailuresTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordGateDecision counts one gate evaluation.
func (m *Metrics) RecordGateDecision(ctx context.Context, decision string) {
	m.GateDecisionsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("decision", decision)))
}

// RecordSessionOperation counts a login/register/logout attempt and whether it succeeded.
func (m *Metrics) RecordSessionOperation(ctx context.Context, operation string, ok bool) {
	m.SessionOpsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.Bool("success", ok),
	))
}

func (m *Metrics) RecordBooking(ctx context.Context, ok bool) {
	m.BookingsTotal.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", ok)))
}

func (m *Metrics) RecordSurvey(ctx context.Context, ok bool) {
	m.SurveysTotal.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", ok)))
}

// RecordEventPublished counts a publish attempt by routing key.
func (m *Metrics) RecordEventPublished(ctx context.Context, routingKey string, ok bool) {
	m.EventsPublishedTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("routing_key", routingKey),
		attribute.Bool("success", ok),
	))
}
