package board

import (
	"context"
	"errors"
	"reflect"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"siteboard/domain"
)

func newTestCoordinator(t *testing.T, server []domain.WorkItem) (*Coordinator, *fakeBackend, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	backend := &fakeBackend{items: server}
	store := NewStore(issueVocabulary)
	c := NewCoordinator("issues", store, backend, logger)
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("initial refresh: %v", err)
	}
	hook.Reset()
	return c, backend, hook
}

func TestDropSuccessMovesItem(t *testing.T) {
	c, backend, _ := newTestCoordinator(t, []domain.WorkItem{item("A", "open"), item("B", "open")})

	outcome, err := c.Drop(context.Background(), "A", "in_review")
	if err != nil || outcome != OutcomeConfirmed {
		t.Fatalf("expected confirmed drop, got %v %v", outcome, err)
	}
	if !equalIDs(c.Store().ByStatus("open"), "B") || !equalIDs(c.Store().ByStatus("in_review"), "A") {
		t.Fatalf("unexpected grouping open=%v in_review=%v", ids(c.Store().ByStatus("open")), ids(c.Store().ByStatus("in_review")))
	}
	if backend.fetches != 1 {
		t.Fatalf("success must not refetch, got %d fetches", backend.fetches)
	}
}

func TestDropFailureResyncsToServerSnapshot(t *testing.T) {
	c, backend, _ := newTestCoordinator(t, []domain.WorkItem{item("A", "open"), item("B", "open")})
	backend.updateErr = errors.New("502 bad gateway")

	outcome, err := c.Drop(context.Background(), "A", "in_review")
	if outcome != OutcomeRolledBack || !errors.Is(err, backend.updateErr) {
		t.Fatalf("expected rollback with persistence error, got %v %v", outcome, err)
	}
	if !equalIDs(c.Store().ByStatus("open"), "A", "B") {
		t.Fatalf("expected A back in open, got %v", ids(c.Store().ByStatus("open")))
	}
	if len(c.Store().ByStatus("in_review")) != 0 {
		t.Fatalf("expected in_review to be empty")
	}
}

func TestDropOntoCurrentStatusIsNoOp(t *testing.T) {
	c, backend, _ := newTestCoordinator(t, []domain.WorkItem{item("A", "open")})
	before := c.Store().Snapshot()

	for _, target := range []domain.Status{"open", "archived"} {
		outcome, err := c.Drop(context.Background(), "A", target)
		if err != nil || outcome != OutcomeNoOp {
			t.Fatalf("expected no-op for %s, got %v %v", target, outcome, err)
		}
	}
	if outcome, _ := c.Drop(context.Background(), "missing", "resolved"); outcome != OutcomeNoOp {
		t.Fatalf("expected no-op for unknown item")
	}
	if len(backend.Updates()) != 0 {
		t.Fatalf("expected no persistence call, got %v", backend.Updates())
	}
	if !reflect.DeepEqual(before, c.Store().Snapshot()) {
		t.Fatalf("snapshot changed on no-op")
	}
}

func TestResyncEqualsServerRegardlessOfOptimisticState(t *testing.T) {
	server := []domain.WorkItem{item("A", "open"), item("B", "in_review"), item("C", "resolved")}
	c, backend, _ := newTestCoordinator(t, server)

	// Two optimistic moves in flight; the second one fails.
	t1, ok := c.Begin(context.Background(), "B", "resolved")
	if !ok {
		t.Fatalf("expected first transition to begin")
	}
	t2, ok := c.Begin(context.Background(), "A", "in_review")
	if !ok {
		t.Fatalf("expected second transition to begin")
	}
	if c.InFlight() != 2 || !c.Pending("A") {
		t.Fatalf("expected two transitions in flight")
	}

	if !c.Settle(t2, errors.New("rejected")) {
		t.Fatalf("expected failure to require resync")
	}
	if t2.State != StateRolledBack {
		t.Fatalf("expected rolled back state, got %s", t2.State)
	}
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("resync: %v", err)
	}
	if !reflect.DeepEqual(c.Store().Snapshot(), backend.items) {
		t.Fatalf("store diverges from server: %#v", c.Store().Snapshot())
	}

	// The earlier request resolves after the resync; it is simply confirmed.
	if c.Settle(t1, nil) {
		t.Fatalf("success must not require resync")
	}
	if t1.State != StateConfirmed || c.InFlight() != 0 {
		t.Fatalf("unexpected state after late confirmation")
	}
}

func TestOlderResyncDoesNotOverwriteNewer(t *testing.T) {
	c, _, _ := newTestCoordinator(t, []domain.WorkItem{item("A", "open")})

	older := c.StartResync()
	newer := c.StartResync()
	if err := c.Reload(newer, []domain.WorkItem{item("A", "resolved")}, nil); err != nil {
		t.Fatalf("reload newer: %v", err)
	}
	if err := c.Reload(older, []domain.WorkItem{item("A", "open")}, nil); err != nil {
		t.Fatalf("reload older: %v", err)
	}
	if got, _ := c.Store().Get("A"); got.Status != "resolved" {
		t.Fatalf("expected newest resync to win, got %s", got.Status)
	}
}

func TestFailedResyncKeepsLastSnapshot(t *testing.T) {
	c, backend, _ := newTestCoordinator(t, []domain.WorkItem{item("A", "open"), item("B", "open")})
	backend.updateErr = errors.New("offline")
	backend.fetchErr = errors.New("offline")

	_, err := c.Drop(context.Background(), "A", "resolved")
	if !errors.Is(err, ErrStaleSnapshot) {
		t.Fatalf("expected stale snapshot error, got %v", err)
	}
	if !c.Stale() {
		t.Fatalf("expected board to be flagged stale")
	}
	if c.Store().Len() != 2 {
		t.Fatalf("failed resync must not clear the store")
	}

	backend.fetchErr = nil
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if c.Stale() {
		t.Fatalf("expected stale flag cleared")
	}
	if got, _ := c.Store().Get("A"); got.Status != "open" {
		t.Fatalf("expected server status after recovery, got %s", got.Status)
	}
}

func TestClosedCoordinatorIgnoresResults(t *testing.T) {
	c, _, _ := newTestCoordinator(t, []domain.WorkItem{item("A", "open")})
	tr, ok := c.Begin(context.Background(), "A", "resolved")
	if !ok {
		t.Fatalf("expected transition")
	}
	gen := c.StartResync()
	c.Close()

	if c.Settle(tr, errors.New("late failure")) {
		t.Fatalf("closed coordinator must not request resync")
	}
	if err := c.Reload(gen, nil, nil); err != nil {
		t.Fatalf("reload after close: %v", err)
	}
	if c.Store().Len() != 1 {
		t.Fatalf("closed coordinator must not touch the store")
	}
	if _, ok := c.Begin(context.Background(), "A", "open"); ok {
		t.Fatalf("closed coordinator must not begin transitions")
	}
}

// slowBackend holds UpdateStatus until release is closed.
type slowBackend struct {
	*fakeBackend
	started chan struct{}
	release chan struct{}
}

func (s *slowBackend) UpdateStatus(ctx context.Context, id string, status domain.Status) error {
	close(s.started)
	<-s.release
	return s.fakeBackend.UpdateStatus(ctx, id, status)
}

func TestCloseWhilePersistIsRunning(t *testing.T) {
	logger, hook := test.NewNullLogger()
	backend := &slowBackend{
		fakeBackend: &fakeBackend{items: []domain.WorkItem{item("A", "open")}},
		started:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	c := NewCoordinator("issues", NewStore(issueVocabulary), backend, logger)
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("initial refresh: %v", err)
	}
	hook.Reset()

	tr, ok := c.Begin(context.Background(), "A", "resolved")
	if !ok {
		t.Fatalf("expected transition")
	}
	done := make(chan error, 1)
	go func() { done <- c.Persist(context.Background(), tr) }()
	<-backend.started

	c.Close()
	close(backend.release)
	if err := <-done; err != nil {
		t.Fatalf("persist: %v", err)
	}
	if c.Settle(tr, nil) {
		t.Fatalf("closed coordinator must not request resync")
	}
	if n := len(hook.AllEntries()); n != 1 {
		t.Fatalf("expected a single transition entry, got %d", n)
	}
}

func TestTransitionEmitsSpanAndLog(t *testing.T) {
	tp, exporter, restore := setupTestTracer(t)
	defer restore()
	c, backend, hook := newTestCoordinator(t, []domain.WorkItem{item("A", "open")})
	exporter.Reset()
	backend.updateErr = errors.New("rejected")

	tr, _ := c.Begin(context.Background(), "A", "resolved")
	c.Settle(tr, c.Persist(context.Background(), tr))

	if err := tp.ForceFlush(context.Background()); err != nil {
		t.Fatalf("force flush spans: %v", err)
	}
	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	span := spans[0]
	if span.Name != transitionSpanName {
		t.Fatalf("unexpected span name %s", span.Name)
	}
	if span.Status.Code != codes.Error {
		t.Fatalf("expected error status, got %v", span.Status.Code)
	}
	attrs := attributesOf(span.Attributes)
	if attrs["board.outcome"] != "rolled_back" || attrs["board.to"] != "resolved" {
		t.Fatalf("unexpected span attributes %#v", attrs)
	}

	entry := hook.LastEntry()
	if entry == nil {
		t.Fatalf("expected a log entry")
	}
	if entry.Level != log.WarnLevel || entry.Data["event.name"] != transitionEventName {
		t.Fatalf("unexpected log entry %#v", entry.Data)
	}
	if traceID, ok := entry.Data["trace_id"].(string); !ok || traceID == "" {
		t.Fatalf("expected trace id on log entry")
	}
}

func setupTestTracer(t *testing.T) (*sdktrace.TracerProvider, *tracetest.InMemoryExporter, func()) {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)),
	)
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)

	return tp, exporter, func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			t.Logf("shutdown tracer provider: %v", err)
		}
		otel.SetTracerProvider(prev)
	}
}

func attributesOf(attrs []attribute.KeyValue) map[string]any {
	out := make(map[string]any, len(attrs))
	for _, kv := range attrs {
		out[string(kv.Key)] = kv.Value.AsInterface()
	}
	return out
}
