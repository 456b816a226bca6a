package board

import "siteboard/domain"

// Store holds the current snapshot of work items for one board.
type Store struct {
	vocab domain.Vocabulary
	items []domain.WorkItem
	index map[string]int
}

// Column is the ordered group of items bearing one status.
type Column struct {
	Meta  domain.StatusMeta
	Items []domain.WorkItem
}

func NewStore(vocab domain.Vocabulary) *Store {
	return &Store{vocab: vocab, index: map[string]int{}}
}

func (s *Store) Vocabulary() domain.Vocabulary { return s.vocab }

// Load replaces the whole snapshot. Records with an empty id, a status
// outside the vocabulary, or an id already seen earlier in the payload are
// discarded; the number discarded is returned.
func (s *Store) Load(items []domain.WorkItem) int {
	next := make([]domain.WorkItem, 0, len(items))
	index := make(map[string]int, len(items))
	dropped := 0
	for _, it := range items {
		if it.ID == "" || !s.vocab.Contains(it.Status) {
			dropped++
			continue
		}
		if _, dup := index[it.ID]; dup {
			dropped++
			continue
		}
		index[it.ID] = len(next)
		next = append(next, it.Clone())
	}
	s.items = next
	s.index = index
	return dropped
}

// ApplyStatus sets the status of one item and returns the status it had.
// ok is false, and nothing changes, when the id is unknown or the status is
// not part of the vocabulary.
func (s *Store) ApplyStatus(id string, status domain.Status) (prev domain.Status, ok bool) {
	i, found := s.index[id]
	if !found || !s.vocab.Contains(status) {
		return "", false
	}
	prev = s.items[i].Status
	s.items[i].Status = status
	return prev, true
}

// ByStatus returns the items bearing status in snapshot order.
func (s *Store) ByStatus(status domain.Status) []domain.WorkItem {
	out := []domain.WorkItem{}
	for _, it := range s.items {
		if it.Status == status {
			out = append(out, it.Clone())
		}
	}
	return out
}

// Columns groups the snapshot by status in vocabulary order. Every status
// gets a column, empty or not.
func (s *Store) Columns() []Column {
	return groupColumns(s.vocab, s.items)
}

func (s *Store) Get(id string) (domain.WorkItem, bool) {
	i, ok := s.index[id]
	if !ok {
		return domain.WorkItem{}, false
	}
	return s.items[i].Clone(), true
}

// Snapshot returns a copy of every item in snapshot order.
func (s *Store) Snapshot() []domain.WorkItem {
	out := make([]domain.WorkItem, len(s.items))
	for i, it := range s.items {
		out[i] = it.Clone()
	}
	return out
}

func (s *Store) Len() int { return len(s.items) }

// Add appends a newly created item. It returns false when the item would
// break the store invariants.
func (s *Store) Add(item domain.WorkItem) bool {
	if item.ID == "" || !s.vocab.Contains(item.Status) {
		return false
	}
	if _, dup := s.index[item.ID]; dup {
		return false
	}
	s.index[item.ID] = len(s.items)
	s.items = append(s.items, item.Clone())
	return true
}

// Remove drops an item after it was deleted upstream.
func (s *Store) Remove(id string) bool {
	i, ok := s.index[id]
	if !ok {
		return false
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	delete(s.index, id)
	for j := i; j < len(s.items); j++ {
		s.index[s.items[j].ID] = j
	}
	return true
}

func groupColumns(vocab domain.Vocabulary, items []domain.WorkItem) []Column {
	cols := make([]Column, vocab.Len())
	for i, st := range vocab.Statuses() {
		meta, _ := vocab.Meta(st)
		cols[i] = Column{Meta: meta, Items: []domain.WorkItem{}}
	}
	for _, it := range items {
		i := vocab.Index(it.Status)
		if i < 0 {
			continue
		}
		cols[i].Items = append(cols[i].Items, it.Clone())
	}
	return cols
}
