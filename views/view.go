package views

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"siteboard/board"
	"siteboard/domain"
	"siteboard/session"
)

// ErrForbidden is returned when the signed-in role may not perform an
// action.
var ErrForbidden = errors.New("action not permitted for role")

// ErrUnsupported is returned when the backend cannot perform an action.
var ErrUnsupported = errors.New("action not supported by backend")

// Deleter is implemented by backends that can delete items.
type Deleter interface {
	Delete(ctx context.Context, id string) error
}

// NameForgetter is implemented by backends that cache directory names.
type NameForgetter interface {
	ForgetNames(ctx context.Context)
}

// View is one board screen: a definition bound to a signed-in user and a
// backend. Every mutating call is gated here before it reaches the engine.
type View struct {
	def     *Definition
	id      session.Identity
	backend board.Backend
	coord   *board.Coordinator
	now     func() time.Time
}

func New(def *Definition, id session.Identity, backend board.Backend, logger *log.Logger) *View {
	store := board.NewStore(def.Vocabulary)
	return &View{
		def:     def,
		id:      id,
		backend: backend,
		coord:   board.NewCoordinator(def.Name, store, backend, logger),
		now:     time.Now,
	}
}

func (v *View) Definition() *Definition { return v.def }

func (v *View) Identity() session.Identity { return v.id }

func (v *View) Coordinator() *board.Coordinator { return v.coord }

func (v *View) Store() *board.Store { return v.coord.Store() }

// Can reports whether the signed-in role may perform action at all.
func (v *View) Can(action Action) bool {
	return v.def.Permissions.Allowed(v.id.Role, action)
}

// CanOn reports whether action is allowed on item, honouring the item's
// role constraint.
func (v *View) CanOn(item domain.WorkItem, action Action) bool {
	return v.def.Permits(v.id.Role, item, action)
}

// Begin starts a status transition if the user may move the item.
func (v *View) Begin(ctx context.Context, itemID string, to domain.Status) (*board.Transition, bool) {
	if !v.canTransition(itemID) {
		return nil, false
	}
	return v.coord.Begin(ctx, itemID, to)
}

// Drop runs a whole transition inline. A forbidden move is a no-op.
func (v *View) Drop(ctx context.Context, itemID string, to domain.Status) (board.Outcome, error) {
	if !v.canTransition(itemID) {
		return board.OutcomeNoOp, nil
	}
	return v.coord.Drop(ctx, itemID, to)
}

// CanDrag reports whether itemID may be lifted at all.
func (v *View) CanDrag(itemID string) bool {
	return v.canTransition(itemID)
}

func (v *View) canTransition(itemID string) bool {
	item, ok := v.coord.Store().Get(itemID)
	if !ok {
		return false
	}
	return v.CanOn(item, ActionTransition)
}

// ForgetNames drops the backend's cached directory names, if it keeps any.
// It may run on any goroutine.
func (v *View) ForgetNames(ctx context.Context) {
	if f, ok := v.backend.(NameForgetter); ok {
		f.ForgetNames(ctx)
	}
}

// Delete removes an item upstream and then from the store.
func (v *View) Delete(ctx context.Context, itemID string) error {
	remove, err := v.PrepareDelete(itemID)
	if err != nil || remove == nil {
		return err
	}
	err = remove(ctx)
	v.FinishDelete(itemID, err)
	return err
}

// PrepareDelete checks that itemID may be deleted and returns the network
// step, which may run on any goroutine. A nil step with a nil error means
// the item is already gone.
func (v *View) PrepareDelete(itemID string) (func(ctx context.Context) error, error) {
	item, ok := v.coord.Store().Get(itemID)
	if !ok {
		return nil, nil
	}
	if !v.CanOn(item, ActionDelete) {
		return nil, ErrForbidden
	}
	d, ok := v.backend.(Deleter)
	if !ok {
		return nil, ErrUnsupported
	}
	return func(ctx context.Context) error { return d.Delete(ctx, itemID) }, nil
}

// FinishDelete drops itemID from the store once the backend confirmed.
func (v *View) FinishDelete(itemID string, err error) {
	if err == nil {
		v.coord.Store().Remove(itemID)
	}
}

// Columns returns the visible columns for f.
func (v *View) Columns(f board.Filter) []board.Column {
	return board.VisibleColumns(v.coord.Store(), f)
}

// Urgency classifies item for display.
func (v *View) Urgency(item domain.WorkItem) domain.Urgency {
	return domain.ClassifyUrgency(v.def.Vocabulary, item.Status, item.DueDate, v.now(), v.def.DueSoon)
}

// SetClock replaces the clock used for urgency.
func (v *View) SetClock(now func() time.Time) { v.now = now }
