package board

import (
	"strings"
	"time"

	"siteboard/domain"
)

// Filter narrows the visible items of a board. Zero-valued fields place no
// constraint; all set fields must match.
type Filter struct {
	Text    string
	Status  domain.Status
	Role    domain.Role
	Project string
	DueFrom *time.Time
	DueTo   *time.Time
}

// IsZero reports whether the filter constrains nothing.
func (f Filter) IsZero() bool {
	return strings.TrimSpace(f.Text) == "" && f.Status == "" && f.Role == "" &&
		f.Project == "" && f.DueFrom == nil && f.DueTo == nil
}

// Matches reports whether item satisfies every constraint of f.
//
// Items without a due date always satisfy the date range.
func (f Filter) Matches(item domain.WorkItem) bool {
	if f.Status != "" && item.Status != f.Status {
		return false
	}
	if f.Role != "" && item.RoleConstraint != "" && item.RoleConstraint != f.Role {
		return false
	}
	if f.Project != "" && item.Project.ID != f.Project {
		return false
	}
	if item.DueDate != nil {
		if f.DueFrom != nil && item.DueDate.Before(*f.DueFrom) {
			return false
		}
		if f.DueTo != nil && item.DueDate.After(*f.DueTo) {
			return false
		}
	}
	return matchesText(item, f.Text)
}

func matchesText(item domain.WorkItem, text string) bool {
	query := strings.ToLower(strings.TrimSpace(text))
	if query == "" {
		return true
	}
	if strings.Contains(strings.ToLower(item.Title), query) {
		return true
	}
	if strings.Contains(strings.ToLower(item.Project.Name), query) {
		return true
	}
	for _, a := range item.Assignees {
		if strings.Contains(strings.ToLower(a.Name), query) {
			return true
		}
	}
	return false
}

// Apply returns the items matching f, preserving order. It never mutates
// its input.
func Apply(items []domain.WorkItem, f Filter) []domain.WorkItem {
	out := make([]domain.WorkItem, 0, len(items))
	for _, it := range items {
		if f.Matches(it) {
			out = append(out, it.Clone())
		}
	}
	return out
}

// VisibleColumns groups the filtered snapshot of s by status. Columns with
// no visible item are still returned so they stay valid drop targets.
func VisibleColumns(s *Store, f Filter) []Column {
	return groupColumns(s.vocab, Apply(s.items, f))
}
