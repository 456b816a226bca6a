package domain

import "time"

// Urgency is a presentation-only label derived from status and due date.
type Urgency string

const (
	UrgencyNormal    Urgency = "normal"
	UrgencyDueSoon   Urgency = "due-soon"
	UrgencyOverdue   Urgency = "overdue"
	UrgencyCompleted Urgency = "completed"
)

// DefaultDueSoon is the horizon used when a board does not declare one.
const DefaultDueSoon = 72 * time.Hour

// ClassifyUrgency labels an item. Items in the terminal status are always
// completed; items without a due date are normal.
func ClassifyUrgency(v Vocabulary, status Status, due *time.Time, now time.Time, horizon time.Duration) Urgency {
	if status == v.Terminal() {
		return UrgencyCompleted
	}
	if due == nil {
		return UrgencyNormal
	}
	if due.Before(now) {
		return UrgencyOverdue
	}
	if horizon <= 0 {
		horizon = DefaultDueSoon
	}
	if !due.After(now.Add(horizon)) {
		return UrgencyDueSoon
	}
	return UrgencyNormal
}
