package board

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"siteboard/domain"
)

// Backend is the persistence collaborator of a board.
type Backend interface {
	// Items returns the authoritative snapshot for the board's scope.
	Items(ctx context.Context) ([]domain.WorkItem, error)
	// UpdateStatus persists a status change. Any error, transport or
	// rejection, means the change was not accepted.
	UpdateStatus(ctx context.Context, id string, status domain.Status) error
}

// TransitionState is the phase of one status change.
type TransitionState int

const (
	StateApplied TransitionState = iota + 1
	StateConfirmed
	StateRolledBack
)

func (s TransitionState) String() string {
	switch s {
	case StateApplied:
		return "applied"
	case StateConfirmed:
		return "confirmed"
	case StateRolledBack:
		return "rolled_back"
	default:
		return "idle"
	}
}

// Transition is one optimistic status change. ItemID, From and To are
// fixed at Begin; State and Err change only in Settle.
type Transition struct {
	Seq    uint64
	ItemID string
	From   domain.Status
	To     domain.Status
	State  TransitionState
	Err    error

	metrics *transitionMetrics
	ctx     context.Context
}

// Outcome is the result of a synchronous Drop.
type Outcome int

const (
	OutcomeNoOp Outcome = iota
	OutcomeConfirmed
	OutcomeRolledBack
)

// ErrStaleSnapshot is returned when a resync fails and the store keeps its
// last good snapshot.
var ErrStaleSnapshot = errors.New("board snapshot is stale")

// Coordinator applies status transitions to a Store and reconciles them
// with the Backend. It is not safe for concurrent use; Persist and Fetch
// are the only methods that may be called from another goroutine.
type Coordinator struct {
	store   *Store
	backend Backend
	logger  *log.Logger
	board   string

	seq      uint64
	inflight map[uint64]*Transition

	resyncIssued  uint64
	resyncApplied uint64
	stale         bool
	closed        bool
}

// NewCoordinator binds a store to its backend. name labels logs and spans.
func NewCoordinator(name string, store *Store, backend Backend, logger *log.Logger) *Coordinator {
	if store == nil || backend == nil {
		panic("board.NewCoordinator: store and backend are required")
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Coordinator{
		store:    store,
		backend:  backend,
		logger:   logger,
		board:    name,
		inflight: map[uint64]*Transition{},
	}
}

func (c *Coordinator) Store() *Store { return c.store }

// Stale reports whether the last resync failed.
func (c *Coordinator) Stale() bool { return c.stale }

// Pending reports whether itemID has a transition that has not settled.
func (c *Coordinator) Pending(itemID string) bool {
	for _, t := range c.inflight {
		if t.ItemID == itemID {
			return true
		}
	}
	return false
}

// InFlight returns the number of unsettled transitions.
func (c *Coordinator) InFlight() int { return len(c.inflight) }

// Close makes the coordinator ignore every result that arrives later.
func (c *Coordinator) Close() {
	c.closed = true
	for seq, t := range c.inflight {
		t.metrics.End(errClosed)
		delete(c.inflight, seq)
	}
}

var errClosed = errors.New("board closed before the transition settled")

// Begin applies the change optimistically. It returns false, touching
// nothing, when the drop is a no-op: unknown item, status outside the
// vocabulary, or the status the item already has.
func (c *Coordinator) Begin(ctx context.Context, itemID string, to domain.Status) (*Transition, bool) {
	if c.closed {
		return nil, false
	}
	item, ok := c.store.Get(itemID)
	if !ok || item.Status == to || !c.store.vocab.Contains(to) {
		return nil, false
	}
	prev, ok := c.store.ApplyStatus(itemID, to)
	if !ok {
		return nil, false
	}
	c.seq++
	t := &Transition{Seq: c.seq, ItemID: itemID, From: prev, To: to, State: StateApplied}
	t.metrics, t.ctx = newTransitionMetrics(ctx, c.logger, c.board, t)
	c.inflight[t.Seq] = t
	return t, true
}

// Persist sends the change to the backend. It only reads the immutable
// fields of t and may run on any goroutine.
func (c *Coordinator) Persist(ctx context.Context, t *Transition) error {
	if t.ctx != nil {
		ctx = withSpanFrom(ctx, t.ctx)
	}
	start := time.Now()
	err := c.backend.UpdateStatus(ctx, t.ItemID, t.To)
	t.metrics.ObservePersist(time.Since(start))
	return err
}

// Settle records the backend's answer. It returns true when the failure
// requires a full resync; the optimistic value is never restored from
// memory.
func (c *Coordinator) Settle(t *Transition, err error) (resync bool) {
	if t == nil {
		return false
	}
	if _, ok := c.inflight[t.Seq]; !ok {
		return false
	}
	delete(c.inflight, t.Seq)
	if c.closed {
		return false
	}
	if err == nil {
		t.State = StateConfirmed
		t.metrics.SetOutcome(StateConfirmed)
		t.metrics.End(nil)
		return false
	}
	t.State = StateRolledBack
	t.Err = err
	t.metrics.SetOutcome(StateRolledBack)
	t.metrics.End(err)
	return true
}

// StartResync reserves a resync generation. Results of older generations
// are discarded by Reload once a newer one has been applied.
func (c *Coordinator) StartResync() uint64 {
	c.resyncIssued++
	return c.resyncIssued
}

// Fetch reads the authoritative snapshot. It may run on any goroutine.
func (c *Coordinator) Fetch(ctx context.Context) ([]domain.WorkItem, error) {
	return c.backend.Items(ctx)
}

// Reload applies the result of resync generation gen. A failed fetch keeps
// the current snapshot and marks the board stale.
func (c *Coordinator) Reload(gen uint64, items []domain.WorkItem, fetchErr error) error {
	if c.closed || gen <= c.resyncApplied {
		return nil
	}
	m := newResyncMetrics(c.logger, c.board, gen)
	if fetchErr != nil {
		c.stale = true
		m.End(0, 0, fetchErr)
		return errors.Join(ErrStaleSnapshot, fetchErr)
	}
	c.resyncApplied = gen
	dropped := c.store.Load(items)
	c.stale = false
	m.End(c.store.Len(), dropped, nil)
	return nil
}

// Refresh fetches and reloads inline.
func (c *Coordinator) Refresh(ctx context.Context) error {
	gen := c.StartResync()
	items, err := c.Fetch(ctx)
	return c.Reload(gen, items, err)
}

// Drop runs a whole transition inline: optimistic apply, persist, and a
// full resync on failure. The returned error is the persistence error, or
// the resync error if that failed too.
func (c *Coordinator) Drop(ctx context.Context, itemID string, to domain.Status) (Outcome, error) {
	t, ok := c.Begin(ctx, itemID, to)
	if !ok {
		return OutcomeNoOp, nil
	}
	err := c.Persist(ctx, t)
	if !c.Settle(t, err) {
		return OutcomeConfirmed, nil
	}
	if rerr := c.Refresh(ctx); rerr != nil {
		return OutcomeRolledBack, errors.Join(err, rerr)
	}
	return OutcomeRolledBack, err
}
