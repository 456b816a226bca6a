package board

import (
	"math"

	"siteboard/domain"
)

// Point is a pointer position in whatever unit the caller lays out in
// (terminal cells for the console).
type Point struct {
	X, Y float64
}

// Rect is an axis-aligned box.
type Rect struct {
	X, Y, W, H float64
}

func (r Rect) Center() Point {
	return Point{X: r.X + r.W/2, Y: r.Y + r.H/2}
}

func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.X+r.W && p.Y >= r.Y && p.Y < r.Y+r.H
}

func (r Rect) union(o Rect) Rect {
	x0 := math.Min(r.X, o.X)
	y0 := math.Min(r.Y, o.Y)
	x1 := math.Max(r.X+r.W, o.X+o.W)
	y1 := math.Max(r.Y+r.H, o.Y+o.H)
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// DropTarget is a region that accepts a drop. Column targets and item
// targets both resolve to the status of the column they belong to, so an
// empty column remains droppable.
type DropTarget struct {
	Status domain.Status
	ItemID string
	Bounds Rect
}

// DragState is the phase of a drag session.
type DragState int

const (
	DragIdle DragState = iota
	// DragPending means the pointer is down but has not yet moved past the
	// activation threshold.
	DragPending
	DragDragging
)

func (s DragState) String() string {
	switch s {
	case DragPending:
		return "pending"
	case DragDragging:
		return "dragging"
	default:
		return "idle"
	}
}

// DropOutcome says what a release amounted to.
type DropOutcome int

const (
	DropNoOp DropOutcome = iota
	DropMoved
	// DropClick is a release before the drag activated.
	DropClick
)

// DropResult is reported when a session terminates.
type DropResult struct {
	ItemID  string
	Target  domain.Status
	Outcome DropOutcome
}

// DefaultActivationDistance is the pointer travel, in layout units, needed
// to turn a press into a drag.
const DefaultActivationDistance = 2

// DragSession turns raw pointer input into lift, hover and drop. Only one
// item can be in flight; presses are ignored until the session is idle.
type DragSession struct {
	threshold float64
	targets   []DropTarget
	columns   []DropTarget
	region    Rect

	state   DragState
	itemID  string
	from    domain.Status
	origin  Point
	pointer Point
	over    domain.Status
	hasOver bool
}

// NewDragSession creates an idle session. A non-positive threshold uses
// DefaultActivationDistance.
func NewDragSession(threshold float64) *DragSession {
	if threshold <= 0 {
		threshold = DefaultActivationDistance
	}
	return &DragSession{threshold: threshold}
}

// SetTargets declares the drop targets for the current layout. It may be
// called while dragging; hover is recomputed at the last pointer position.
// Targets sharing a status are merged into one column region, so an item
// target never competes with its own column.
func (d *DragSession) SetTargets(targets []DropTarget) {
	d.targets = append(d.targets[:0], targets...)
	d.columns = d.columns[:0]
	d.region = Rect{}
	for i, t := range d.targets {
		if i == 0 {
			d.region = t.Bounds
		} else {
			d.region = d.region.union(t.Bounds)
		}
		d.addToColumn(t)
	}
	if d.state == DragDragging {
		d.resolve()
	}
}

func (d *DragSession) addToColumn(t DropTarget) {
	for i := range d.columns {
		if d.columns[i].Status == t.Status {
			d.columns[i].Bounds = d.columns[i].Bounds.union(t.Bounds)
			return
		}
	}
	d.columns = append(d.columns, DropTarget{Status: t.Status, Bounds: t.Bounds})
}

// Press starts tracking a potential drag of itemID, which currently has
// status from. It returns false when a session is already active.
func (d *DragSession) Press(itemID string, from domain.Status, p Point) bool {
	if d.state != DragIdle || itemID == "" {
		return false
	}
	d.state = DragPending
	d.itemID = itemID
	d.from = from
	d.origin = p
	d.pointer = p
	d.hasOver = false
	return true
}

// Move feeds a pointer position. It returns true on the move that
// activates the drag.
func (d *DragSession) Move(p Point) bool {
	d.pointer = p
	switch d.state {
	case DragPending:
		if math.Hypot(p.X-d.origin.X, p.Y-d.origin.Y) <= d.threshold {
			return false
		}
		d.state = DragDragging
		d.resolve()
		return true
	case DragDragging:
		d.resolve()
	}
	return false
}

// Release terminates the session at p.
func (d *DragSession) Release(p Point) DropResult {
	if d.state == DragIdle {
		return DropResult{}
	}
	res := DropResult{ItemID: d.itemID}
	if d.state == DragPending {
		res.Outcome = DropClick
		d.reset()
		return res
	}
	d.pointer = p
	d.resolve()
	if d.hasOver && d.over != d.from {
		res.Target = d.over
		res.Outcome = DropMoved
	}
	d.reset()
	return res
}

// Cancel abandons the session without a result.
func (d *DragSession) Cancel() { d.reset() }

func (d *DragSession) State() DragState { return d.state }

// ItemID returns the item being lifted, if any.
func (d *DragSession) ItemID() string { return d.itemID }

// Pointer returns the last known pointer position.
func (d *DragSession) Pointer() Point { return d.pointer }

// Over returns the status currently under the pointer while dragging.
func (d *DragSession) Over() (domain.Status, bool) {
	if d.state != DragDragging {
		return "", false
	}
	return d.over, d.hasOver
}

// resolve picks the column containing the pointer, or else the column
// whose center is nearest. The pointer has to be inside the board region.
func (d *DragSession) resolve() {
	d.hasOver = false
	if len(d.columns) == 0 || !d.region.Contains(d.pointer) {
		return
	}
	best := math.Inf(1)
	for _, col := range d.columns {
		if col.Bounds.Contains(d.pointer) {
			d.over = col.Status
			d.hasOver = true
			return
		}
		c := col.Bounds.Center()
		dist := math.Hypot(d.pointer.X-c.X, d.pointer.Y-c.Y)
		if dist < best {
			best = dist
			d.over = col.Status
			d.hasOver = true
		}
	}
}

func (d *DragSession) reset() {
	d.state = DragIdle
	d.itemID = ""
	d.from = ""
	d.over = ""
	d.hasOver = false
}
