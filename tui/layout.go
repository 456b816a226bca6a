package tui

import (
	"siteboard/board"
	"siteboard/domain"
)

// Screen rows. The column area sits between the two header rows and the
// footer row.
const (
	titleRow        = 0
	filterRow       = 1
	columnHeaderRow = 2
	firstCardRow    = 3
	cardHeight      = 2
	cardStride      = cardHeight + 1
	footerRows      = 1
)

// cellAspect scales rows to roughly match the width of a column so that
// distances in the drag session are not skewed by tall terminal cells.
const cellAspect = 2.0

// cardBox is one rendered card.
type cardBox struct {
	ItemID string
	Status domain.Status
	Column int
	Row    int
	X, Y   int
	W, H   int
}

// columnBox is one rendered column.
type columnBox struct {
	Status  domain.Status
	X, Y    int
	W, H    int
	Visible int
	Hidden  int
}

type layout struct {
	columns []columnBox
	cards   []cardBox
}

// computeLayout places columns side by side and cards top to bottom. Cards
// that do not fit the height are hidden and counted.
func computeLayout(width, height int, columns []board.Column) layout {
	var l layout
	n := len(columns)
	if n == 0 || width <= 0 {
		return l
	}
	colW := width / n
	bodyH := height - columnHeaderRow - footerRows
	if bodyH < 1 {
		bodyH = 1
	}
	// the last card needs no spacer below it
	fit := bodyH / cardStride
	for i, col := range columns {
		box := columnBox{Status: col.Meta.Status, X: i * colW, Y: columnHeaderRow, W: colW, H: bodyH}
		for row, it := range col.Items {
			if row >= fit {
				box.Hidden = len(col.Items) - fit
				break
			}
			l.cards = append(l.cards, cardBox{
				ItemID: it.ID,
				Status: col.Meta.Status,
				Column: i,
				Row:    row,
				X:      box.X + 1,
				Y:      firstCardRow + row*cardStride,
				W:      max(colW-2, 1),
				H:      cardHeight,
			})
			box.Visible++
		}
		l.columns = append(l.columns, box)
	}
	return l
}

// targets returns the drop targets of the layout in drag-session units.
func (l layout) targets() []board.DropTarget {
	out := make([]board.DropTarget, 0, len(l.columns)+len(l.cards))
	for _, c := range l.columns {
		out = append(out, board.DropTarget{Status: c.Status, Bounds: cellRect(c.X, c.Y, c.W, c.H)})
	}
	for _, c := range l.cards {
		out = append(out, board.DropTarget{Status: c.Status, ItemID: c.ItemID, Bounds: cellRect(c.X, c.Y, c.W, c.H)})
	}
	return out
}

// cardAt returns the card under the cell, if any.
func (l layout) cardAt(x, y int) (cardBox, bool) {
	for _, c := range l.cards {
		if x >= c.X && x < c.X+c.W && y >= c.Y && y < c.Y+c.H {
			return c, true
		}
	}
	return cardBox{}, false
}

func (l layout) card(id string) (cardBox, bool) {
	for _, c := range l.cards {
		if c.ItemID == id {
			return c, true
		}
	}
	return cardBox{}, false
}

// columnIndex returns the column that shows status, or -1.
func (l layout) columnIndex(status domain.Status) int {
	for i, c := range l.columns {
		if c.Status == status {
			return i
		}
	}
	return -1
}

// cellPoint converts a terminal cell to the center of that cell in
// drag-session units.
func cellPoint(x, y int) board.Point {
	return board.Point{X: float64(x) + 0.5, Y: (float64(y) + 0.5) * cellAspect}
}

func cellRect(x, y, w, h int) board.Rect {
	return board.Rect{X: float64(x), Y: float64(y) * cellAspect, W: float64(w), H: float64(h) * cellAspect}
}
