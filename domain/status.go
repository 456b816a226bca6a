package domain

import (
	"errors"
	"fmt"
)

// Status is one value of a board's closed status vocabulary.
type Status string

// StatusMeta carries the display metadata of a status column.
type StatusMeta struct {
	Status Status `json:"status" yaml:"status"`
	Label  string `json:"label" yaml:"label"`
	Color  string `json:"color" yaml:"color"`
}

var (
	errEmptyVocabulary  = errors.New("vocabulary has no statuses")
	errUnknownTerminal  = errors.New("terminal status is not part of the vocabulary")
	errDuplicatedStatus = errors.New("duplicated status")
)

// Vocabulary is the ordered, closed set of statuses a board may show.
// The zero value contains no statuses.
type Vocabulary struct {
	metas    []StatusMeta
	index    map[Status]int
	terminal Status
}

// NewVocabulary builds a vocabulary in column order. terminal names the
// status that counts as successfully finished.
func NewVocabulary(terminal Status, metas ...StatusMeta) (Vocabulary, error) {
	if len(metas) == 0 {
		return Vocabulary{}, errEmptyVocabulary
	}
	v := Vocabulary{
		metas:    make([]StatusMeta, 0, len(metas)),
		index:    make(map[Status]int, len(metas)),
		terminal: terminal,
	}
	for _, m := range metas {
		if m.Status == "" {
			return Vocabulary{}, errors.New("empty status in vocabulary")
		}
		if _, dup := v.index[m.Status]; dup {
			return Vocabulary{}, fmt.Errorf("%w: %s", errDuplicatedStatus, m.Status)
		}
		if m.Label == "" {
			m.Label = string(m.Status)
		}
		v.index[m.Status] = len(v.metas)
		v.metas = append(v.metas, m)
	}
	if _, ok := v.index[terminal]; !ok {
		return Vocabulary{}, fmt.Errorf("%w: %s", errUnknownTerminal, terminal)
	}
	return v, nil
}

// MustVocabulary is like NewVocabulary but panics on error. Used for the
// statically declared board vocabularies.
func MustVocabulary(terminal Status, metas ...StatusMeta) Vocabulary {
	v, err := NewVocabulary(terminal, metas...)
	if err != nil {
		panic("domain.MustVocabulary: " + err.Error())
	}
	return v
}

// Contains reports whether s belongs to the vocabulary.
func (v Vocabulary) Contains(s Status) bool {
	_, ok := v.index[s]
	return ok
}

// Statuses returns the statuses in column order.
func (v Vocabulary) Statuses() []Status {
	out := make([]Status, len(v.metas))
	for i, m := range v.metas {
		out[i] = m.Status
	}
	return out
}

// Meta returns the display metadata for s.
func (v Vocabulary) Meta(s Status) (StatusMeta, bool) {
	i, ok := v.index[s]
	if !ok {
		return StatusMeta{}, false
	}
	return v.metas[i], true
}

// Index returns the column position of s, or -1.
func (v Vocabulary) Index(s Status) int {
	i, ok := v.index[s]
	if !ok {
		return -1
	}
	return i
}

// At returns the status in column i.
func (v Vocabulary) At(i int) (Status, bool) {
	if i < 0 || i >= len(v.metas) {
		return "", false
	}
	return v.metas[i].Status, true
}

func (v Vocabulary) Len() int { return len(v.metas) }

// Terminal returns the terminal success status.
func (v Vocabulary) Terminal() Status { return v.terminal }
