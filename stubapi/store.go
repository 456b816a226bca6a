package stubapi

import (
	"errors"
	"sort"
	"sync"

	"siteboard/domain"
	"siteboard/views"
)

var (
	errNotFound      = errors.New("item not found")
	errUnknownStatus = errors.New("unknown status")
)

// Store keeps the stub's state in memory, per site and resource.
type Store struct {
	mu       sync.Mutex
	sites    map[string]map[string][]domain.WorkItem
	projects map[string]string
	users    map[string]string
}

func NewStore() *Store {
	return &Store{
		sites:    map[string]map[string][]domain.WorkItem{},
		projects: map[string]string{},
		users:    map[string]string{},
	}
}

// Put replaces the items of one board.
func (s *Store) Put(site string, def *views.Definition, items []domain.WorkItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sites[site] == nil {
		s.sites[site] = map[string][]domain.WorkItem{}
	}
	cp := make([]domain.WorkItem, len(items))
	for i, it := range items {
		cp[i] = it.Clone()
	}
	s.sites[site][def.Resource] = cp
}

func (s *Store) AddProject(id, name string) {
	s.mu.Lock()
	s.projects[id] = name
	s.mu.Unlock()
}

func (s *Store) AddUser(id, name string) {
	s.mu.Lock()
	s.users[id] = name
	s.mu.Unlock()
}

// List returns a copy of the items of one board.
func (s *Store) List(site string, def *views.Definition) []domain.WorkItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.sites[site][def.Resource]
	out := make([]domain.WorkItem, len(items))
	for i, it := range items {
		out[i] = it.Clone()
	}
	return out
}

func (s *Store) Get(site string, def *views.Definition, id string) (domain.WorkItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.sites[site][def.Resource] {
		if it.ID == id {
			return it.Clone(), true
		}
	}
	return domain.WorkItem{}, false
}

func (s *Store) SetStatus(site string, def *views.Definition, id string, status domain.Status) error {
	if !def.Vocabulary.Contains(status) {
		return errUnknownStatus
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.sites[site][def.Resource]
	for i := range items {
		if items[i].ID == id {
			items[i].Status = status
			return nil
		}
	}
	return errNotFound
}

func (s *Store) Delete(site string, def *views.Definition, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.sites[site][def.Resource]
	for i := range items {
		if items[i].ID == id {
			s.sites[site][def.Resource] = append(items[:i:i], items[i+1:]...)
			return nil
		}
	}
	return errNotFound
}

// Projects returns the project directory ordered by id.
func (s *Store) Projects() []domain.Ref {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedRefs(s.projects)
}

// Users returns the user directory ordered by id.
func (s *Store) Users() []domain.Ref {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedRefs(s.users)
}

func sortedRefs(m map[string]string) []domain.Ref {
	out := make([]domain.Ref, 0, len(m))
	for id, name := range m {
		out = append(out, domain.Ref{ID: id, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
