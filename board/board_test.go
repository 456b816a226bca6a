package board

import (
	"context"
	"errors"
	"sync"

	"siteboard/domain"
)

var issueVocabulary = domain.MustVocabulary("resolved",
	domain.StatusMeta{Status: "open", Label: "Open"},
	domain.StatusMeta{Status: "in_review", Label: "In review"},
	domain.StatusMeta{Status: "resolved", Label: "Resolved"},
)

func item(id string, status domain.Status) domain.WorkItem {
	return domain.WorkItem{ID: id, Title: "Item " + id, Status: status}
}

func ids(items []domain.WorkItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func equalIDs(got []domain.WorkItem, want ...string) bool {
	g := ids(got)
	if len(g) != len(want) {
		return false
	}
	for i := range g {
		if g[i] != want[i] {
			return false
		}
	}
	return true
}

// fakeBackend plays the server: it owns the authoritative snapshot and can
// be told to reject updates or fail reads.
type fakeBackend struct {
	mu        sync.Mutex
	items     []domain.WorkItem
	updateErr error
	fetchErr  error
	updates   []string
	fetches   int
}

func (f *fakeBackend) Items(ctx context.Context) ([]domain.WorkItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	out := make([]domain.WorkItem, len(f.items))
	copy(out, f.items)
	return out, nil
}

func (f *fakeBackend) UpdateStatus(ctx context.Context, id string, status domain.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, id+"->"+string(status))
	if f.updateErr != nil {
		return f.updateErr
	}
	for i := range f.items {
		if f.items[i].ID == id {
			f.items[i].Status = status
			return nil
		}
	}
	return errors.New("not found")
}

func (f *fakeBackend) Updates() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.updates...)
}
