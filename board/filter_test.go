package board

import (
	"reflect"
	"testing"
	"time"

	"siteboard/domain"
)

var taskVocabulary = domain.MustVocabulary("completed",
	domain.StatusMeta{Status: "todo"},
	domain.StatusMeta{Status: "in_progress"},
	domain.StatusMeta{Status: "review"},
	domain.StatusMeta{Status: "completed"},
)

func date(day int) *time.Time {
	d := time.Date(2026, 6, day, 9, 0, 0, 0, time.UTC)
	return &d
}

func filterFixture() []domain.WorkItem {
	return []domain.WorkItem{
		{ID: "1", Title: "Pour Foundation slab", Status: "completed", Project: domain.Ref{ID: "p1", Name: "Harbour Tower"}, DueDate: date(3)},
		{ID: "2", Title: "Rebar inspection", Status: "completed", Project: domain.Ref{ID: "p2", Name: "North foundation works"}},
		{ID: "3", Title: "Scaffold check", Status: "completed", Assignees: []domain.Ref{{ID: "u1", Name: "FOUNDATION crew"}}, RoleConstraint: domain.RoleSupervisor},
		{ID: "4", Title: "Foundation drainage", Status: "in_progress", Project: domain.Ref{ID: "p1", Name: "Harbour Tower"}, DueDate: date(20)},
		{ID: "5", Title: "Window fitting", Status: "completed", Project: domain.Ref{ID: "p1", Name: "Harbour Tower"}, RoleConstraint: domain.RoleWorker},
	}
}

func TestFilterStatusAndTextAreConjunctive(t *testing.T) {
	got := Apply(filterFixture(), Filter{Status: "completed", Text: "foundation"})
	if !equalIDs(got, "1", "2", "3") {
		t.Fatalf("unexpected match set %v", ids(got))
	}
}

func TestFilterZeroMatchesEverything(t *testing.T) {
	f := Filter{Text: "   "}
	if !f.IsZero() {
		t.Fatalf("expected blank text to be no constraint")
	}
	if got := Apply(filterFixture(), f); len(got) != 5 {
		t.Fatalf("expected all items, got %d", len(got))
	}
}

func TestFilterIsPure(t *testing.T) {
	items := filterFixture()
	before := filterFixture()
	f := Filter{Text: "harbour", DueFrom: date(1), DueTo: date(10)}
	first := Apply(items, f)
	second := Apply(items, f)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("filter output differs between calls")
	}
	if !reflect.DeepEqual(items, before) {
		t.Fatalf("filter mutated its input")
	}
}

func TestFilterDateRangeIsInclusiveAndLenient(t *testing.T) {
	got := Apply(filterFixture(), Filter{DueFrom: date(3), DueTo: date(3)})
	// 1 is due exactly on the bound; 2, 3 and 5 have no due date.
	if !equalIDs(got, "1", "2", "3", "5") {
		t.Fatalf("unexpected match set %v", ids(got))
	}
	got = Apply(filterFixture(), Filter{DueFrom: date(4)})
	if !equalIDs(got, "2", "3", "4", "5") {
		t.Fatalf("unexpected match set %v", ids(got))
	}
}

func TestFilterRoleAndProject(t *testing.T) {
	got := Apply(filterFixture(), Filter{Role: domain.RoleWorker})
	if !equalIDs(got, "1", "2", "4", "5") {
		t.Fatalf("unexpected role match set %v", ids(got))
	}
	got = Apply(filterFixture(), Filter{Project: "p1", Status: "completed"})
	if !equalIDs(got, "1", "5") {
		t.Fatalf("unexpected project match set %v", ids(got))
	}
}

func TestVisibleColumnsKeepEmptyColumns(t *testing.T) {
	s := NewStore(taskVocabulary)
	s.Load(filterFixture())
	cols := VisibleColumns(s, Filter{Text: "drainage"})
	if len(cols) != 4 {
		t.Fatalf("expected every status column, got %d", len(cols))
	}
	if len(cols[0].Items) != 0 || !equalIDs(cols[1].Items, "4") || len(cols[3].Items) != 0 {
		t.Fatalf("unexpected visible columns %#v", cols)
	}
	if s.Len() != 5 {
		t.Fatalf("filter must not shrink the store")
	}
}
