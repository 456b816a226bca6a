package board

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "siteboard/board"
	transitionSpanName  = "board.transition"
	resyncSpanName      = "board.resync"
	transitionEventName = "board.transition.metrics"
	resyncEventName     = "board.resync.metrics"
	eventDomain         = "siteboard"
)

// transitionMetrics is written by Persist off the UI goroutine; mu guards
// persist and completed.
type transitionMetrics struct {
	mu        sync.Mutex
	logger    *log.Logger
	span      trace.Span
	start     time.Time
	board     string
	itemID    string
	from, to  string
	persist   time.Duration
	outcome   TransitionState
	completed bool
}

func newTransitionMetrics(ctx context.Context, logger *log.Logger, board string, t *Transition) (*transitionMetrics, context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	spanCtx, span := otel.Tracer(instrumentationName).Start(ctx, transitionSpanName,
		trace.WithAttributes(
			attribute.String("board.name", board),
			attribute.String("board.item_id", t.ItemID),
			attribute.String("board.from", string(t.From)),
			attribute.String("board.to", string(t.To)),
		))
	return &transitionMetrics{
		logger: logger,
		span:   span,
		start:  time.Now(),
		board:  board,
		itemID: t.ItemID,
		from:   string(t.From),
		to:     string(t.To),
	}, spanCtx
}

func (m *transitionMetrics) ObservePersist(d time.Duration) {
	if m == nil || d <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.completed {
		return
	}
	m.persist = d
}

func (m *transitionMetrics) SetOutcome(s TransitionState) {
	if m == nil {
		return
	}
	m.outcome = s
}

func (m *transitionMetrics) End(err error) {
	if m == nil {
		return
	}
	m.mu.Lock()
	if m.completed {
		m.mu.Unlock()
		return
	}
	m.completed = true
	persist := m.persist
	m.mu.Unlock()

	attrs := []attribute.KeyValue{
		attribute.String("board.name", m.board),
		attribute.String("board.item_id", m.itemID),
		attribute.String("board.from", m.from),
		attribute.String("board.to", m.to),
		attribute.String("board.outcome", m.outcome.String()),
		attribute.Float64("board.total_ms", durationToMillis(time.Since(m.start))),
	}
	if persist > 0 {
		attrs = append(attrs, attribute.Float64("board.persist_ms", durationToMillis(persist)))
	}
	emit(m.logger, m.span, transitionEventName, attrs, err)
}

type resyncMetrics struct {
	logger *log.Logger
	span   trace.Span
	start  time.Time
	board  string
	gen    uint64
}

func newResyncMetrics(logger *log.Logger, board string, gen uint64) *resyncMetrics {
	_, span := otel.Tracer(instrumentationName).Start(context.Background(), resyncSpanName)
	return &resyncMetrics{logger: logger, span: span, start: time.Now(), board: board, gen: gen}
}

func (m *resyncMetrics) End(items, dropped int, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("board.name", m.board),
		attribute.Int64("board.resync_generation", int64(m.gen)),
		attribute.Int("board.items", items),
		attribute.Int("board.dropped", dropped),
		attribute.Float64("board.total_ms", durationToMillis(time.Since(m.start))),
	}
	emit(m.logger, m.span, resyncEventName, attrs, err)
}

// emit mirrors one observation into the log and onto the span, then ends
// the span.
func emit(logger *log.Logger, span trace.Span, name string, attrs []attribute.KeyValue, err error) {
	severityText, severityNumber := severityFor(err)
	if err != nil {
		attrs = append(attrs, attribute.String("error.message", err.Error()))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.SetAttributes(attrs...)
	span.AddEvent("observability.event", trace.WithAttributes(append([]attribute.KeyValue{
		attribute.String("event.name", name),
		attribute.String("event.domain", eventDomain),
		attribute.String("severity_text", severityText),
	}, attrs...)...))

	if logger != nil {
		fields := log.Fields{
			"event.name":      name,
			"event.domain":    eventDomain,
			"severity_text":   severityText,
			"severity_number": severityNumber,
			"attributes":      attributesToMap(attrs),
		}
		if sc := span.SpanContext(); sc.HasTraceID() {
			fields["trace_id"] = sc.TraceID().String()
			fields["span_id"] = sc.SpanID().String()
		}
		entry := logger.WithFields(fields)
		if err != nil {
			entry.Warn("observability.event")
		} else {
			entry.Info("observability.event")
		}
	}
	span.End()
}

func severityFor(err error) (string, int) {
	if err != nil {
		return "WARN", 13
	}
	return "INFO", 9
}

func attributesToMap(attrs []attribute.KeyValue) map[string]any {
	out := make(map[string]any, len(attrs))
	for _, kv := range attrs {
		out[string(kv.Key)] = kv.Value.AsInterface()
	}
	return out
}

func withSpanFrom(ctx, from context.Context) context.Context {
	span := trace.SpanFromContext(from)
	if !span.SpanContext().IsValid() {
		return ctx
	}
	return trace.ContextWithSpan(ctx, span)
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
