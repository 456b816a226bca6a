package views

import (
	"bytes"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"siteboard/domain"
)

// Names carries the directory lookups used to denormalise references.
type Names struct {
	Projects map[string]string
	Users    map[string]string
}

func (n Names) project(id, fallback string) domain.Ref {
	if fallback == "" {
		fallback = n.Projects[id]
	}
	if fallback == "" {
		fallback = id
	}
	return domain.Ref{ID: id, Name: fallback}
}

func (n Names) user(id, fallback string) domain.Ref {
	if fallback == "" {
		fallback = n.Users[id]
	}
	if fallback == "" {
		fallback = id
	}
	return domain.Ref{ID: id, Name: fallback}
}

// Definition binds the generic engine to one screen: its status
// vocabulary, the wire spelling of each status, who may do what, and how
// its entities decode into work items.
type Definition struct {
	Name        string
	Resource    string
	Vocabulary  domain.Vocabulary
	Permissions PermissionTable
	DueSoon     time.Duration

	wire   map[domain.Status]string
	decode func(raw []byte, names Names, def *Definition) ([]domain.WorkItem, error)
	encode func(items []domain.WorkItem, def *Definition) any
}

// WireStatus returns the backend spelling of s.
func (d *Definition) WireStatus(s domain.Status) string {
	if w, ok := d.wire[s]; ok {
		return w
	}
	return string(s)
}

// ParseStatus maps a backend spelling onto the vocabulary. ok is false for
// values the board does not know.
func (d *Definition) ParseStatus(wire string) (domain.Status, bool) {
	norm := normalizeStatus(wire)
	for s, w := range d.wire {
		if normalizeStatus(w) == norm || string(s) == norm {
			return s, true
		}
	}
	if d.Vocabulary.Contains(domain.Status(norm)) {
		return domain.Status(norm), true
	}
	return "", false
}

// Decode turns a list payload into work items.
func (d *Definition) Decode(raw []byte, names Names) ([]domain.WorkItem, error) {
	return d.decode(raw, names, d)
}

// Encode returns the wire representation of items, as the backend would
// list them.
func (d *Definition) Encode(items []domain.WorkItem) any {
	return d.encode(items, d)
}

// listEnvelope is the shape of list responses.
type listEnvelope[T any] struct {
	Items []T `json:"items"`
}

// decodeList accepts either a bare JSON array or a {"items": [...]}
// envelope.
func decodeList[T any](raw []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []T
		if err := sonic.Unmarshal(trimmed, &list); err != nil {
			return nil, err
		}
		return list, nil
	}
	var env listEnvelope[T]
	if err := sonic.Unmarshal(trimmed, &env); err != nil {
		return nil, err
	}
	return env.Items, nil
}

func normalizeStatus(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	return s
}

// parseDate accepts the date formats the backend has been seen to emit.
func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// Lookup returns the definition registered under name.
func Lookup(name string) (*Definition, bool) {
	switch strings.ToLower(name) {
	case Issues.Name:
		return Issues, true
	case Tasks.Name:
		return Tasks, true
	}
	return nil, false
}
