package api

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	eventsTracerName  = "eventboard-api/api"
	eventsSpanName    = "GET /api/events"
	eventsEventName   = "events.fetch"
	eventsEventDomain = "eventboard"
	eventsRoute       = "/api/events"

	attrPrefix = "eventboard.events."
)

// eventRequestMetrics collects per-request timings for the listing path and
// emits them once, as a span plus a structured log entry sharing the trace id.
type eventRequestMetrics struct {
	logger *log.Logger
	span   trace.Span
	start  time.Time

	fetchDuration  time.Duration
	encodeDuration time.Duration
	ownerFilter    bool
	eventsReturned int
	errorStage     string
}

func newEventRequestMetrics(ctx context.Context, logger *log.Logger) (*eventRequestMetrics, context.Context) {
	m := &eventRequestMetrics{
		logger: logger,
		start:  time.Now(),
	}
	spanCtx, span := otel.Tracer(eventsTracerName).Start(ctx, eventsSpanName)
	m.span = span
	return m, spanCtx
}

func (m *eventRequestMetrics) ObserveFetch(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.fetchDuration = duration
}

func (m *eventRequestMetrics) ObserveEncode(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.encodeDuration = duration
}

func (m *eventRequestMetrics) SetOwnerFilterProvided(provided bool) {
	m.ownerFilter = provided
}

func (m *eventRequestMetrics) SetEventsReturned(count int) {
	if count < 0 {
		count = 0
	}
	m.eventsReturned = count
}

func (m *eventRequestMetrics) SetErrorStage(stage string) {
	if stage == "" {
		return
	}
	m.errorStage = stage
}

// Log finalizes the span and emits one structured summary entry. It must be
// called exactly once, after the response is written.
func (m *eventRequestMetrics) Log(status int, err error) {
	if m == nil {
		return
	}

	totalMillis := durationToMillis(time.Since(m.start))
	severityText, severityNumber := "INFO", 9
	if err != nil {
		severityText, severityNumber = "ERROR", 17
	}

	attrs := map[string]any{
		"http.route":                   eventsRoute,
		"http.status_code":             status,
		attrPrefix + "owner_filter":    m.ownerFilter,
		attrPrefix + "events_returned": m.eventsReturned,
		attrPrefix + "total_ms":        totalMillis,
	}
	if m.fetchDuration > 0 {
		attrs[attrPrefix+"fetch_ms"] = durationToMillis(m.fetchDuration)
	}
	if m.encodeDuration > 0 {
		attrs[attrPrefix+"encode_ms"] = durationToMillis(m.encodeDuration)
	}
	if m.errorStage != "" {
		attrs[attrPrefix+"error_stage"] = m.errorStage
	}

	if m.span != nil {
		spanAttrs := []attribute.KeyValue{
			attribute.String("http.route", eventsRoute),
			attribute.Int("http.status_code", status),
			attribute.Bool(attrPrefix+"owner_filter", m.ownerFilter),
			attribute.Int(attrPrefix+"events_returned", m.eventsReturned),
			attribute.Float64(attrPrefix+"total_ms", totalMillis),
		}
		if m.errorStage != "" {
			spanAttrs = append(spanAttrs, attribute.String(attrPrefix+"error_stage", m.errorStage))
		}
		m.span.SetAttributes(spanAttrs...)
		m.span.AddEvent("observability.event", trace.WithAttributes(
			attribute.String("event.name", eventsEventName),
			attribute.String("event.domain", eventsEventDomain),
			attribute.String("severity_text", severityText),
			attribute.Float64(attrPrefix+"total_ms", totalMillis),
		))
		if err != nil {
			m.span.RecordError(err)
			m.span.SetStatus(codes.Error, err.Error())
		} else {
			m.span.SetStatus(codes.Ok, "")
		}
		m.span.End()
	}

	if m.logger == nil {
		return
	}

	fields := log.Fields{
		"event.name":      eventsEventName,
		"event.domain":    eventsEventDomain,
		"attributes":      attrs,
		"severity_text":   severityText,
		"severity_number": severityNumber,
	}
	if m.span != nil {
		if sc := m.span.SpanContext(); sc.HasTraceID() {
			fields["trace_id"] = sc.TraceID().String()
		}
	}
	if err != nil {
		fields["error"] = err.Error()
	}

	m.logger.WithFields(fields).Info("observability.event")
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
