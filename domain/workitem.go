package domain

import (
	"strings"
	"time"
)

// Priority is an ordinal severity, independent of status.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

var priorityNames = [...]string{"low", "medium", "high", "critical"}

func (p Priority) String() string {
	if p < PriorityLow || p > PriorityCritical {
		return priorityNames[PriorityMedium]
	}
	return priorityNames[p]
}

// ParsePriority maps a wire value onto a Priority. Unknown values become
// PriorityMedium.
func ParsePriority(s string) Priority {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return PriorityLow
	case "high":
		return PriorityHigh
	case "critical", "urgent":
		return PriorityCritical
	default:
		return PriorityMedium
	}
}

func (p Priority) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Priority) UnmarshalText(b []byte) error {
	*p = ParsePriority(string(b))
	return nil
}

// Role identifies what a console user is allowed to do.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleManager    Role = "project_manager"
	RoleSupervisor Role = "site_supervisor"
	RoleWorker     Role = "worker"
	RoleClient     Role = "client"
)

// Ref is a weak reference to an entity owned outside the board.
type Ref struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// WorkItem is the unit managed by a board.
type WorkItem struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Status         Status     `json:"status"`
	Priority       Priority   `json:"priority"`
	Project        Ref        `json:"project"`
	Assignees      []Ref      `json:"assignees,omitempty"`
	DueDate        *time.Time `json:"dueDate,omitempty"`
	RoleConstraint Role       `json:"role,omitempty"`
}

// Clone returns a deep copy of the item.
func (w WorkItem) Clone() WorkItem {
	out := w
	if w.Assignees != nil {
		out.Assignees = append([]Ref(nil), w.Assignees...)
	}
	if w.DueDate != nil {
		d := *w.DueDate
		out.DueDate = &d
	}
	return out
}
