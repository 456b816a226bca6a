package stubapi

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"siteboard/domain"
	"siteboard/views"
)

// Fixtures is the seed data of the stub, usually read from a YAML file.
type Fixtures struct {
	Projects []domain.Ref           `yaml:"projects"`
	Users    []domain.Ref           `yaml:"users"`
	Sites    map[string]SiteFixture `yaml:"sites"`
}

// SiteFixture holds the boards of one site in their wire shape.
type SiteFixture struct {
	Issues []views.Issue `yaml:"issues"`
	Tasks  []views.Task  `yaml:"tasks"`
}

// ReadFixtures decodes YAML fixtures from r.
func ReadFixtures(r io.Reader) (Fixtures, error) {
	var f Fixtures
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return Fixtures{}, fmt.Errorf("decode fixtures: %w", err)
	}
	return f, nil
}

// LoadFixtures reads the fixture file at path.
func LoadFixtures(path string) (Fixtures, error) {
	fh, err := os.Open(path)
	if err != nil {
		return Fixtures{}, err
	}
	defer fh.Close()
	return ReadFixtures(fh)
}

// Seed loads the fixtures into s.
func (f Fixtures) Seed(s *Store) {
	names := views.Names{Projects: map[string]string{}, Users: map[string]string{}}
	for _, p := range f.Projects {
		s.AddProject(p.ID, p.Name)
		names.Projects[p.ID] = p.Name
	}
	for _, u := range f.Users {
		s.AddUser(u.ID, u.Name)
		names.Users[u.ID] = u.Name
	}
	for site, sf := range f.Sites {
		issues := make([]domain.WorkItem, 0, len(sf.Issues))
		for _, is := range sf.Issues {
			issues = append(issues, is.WorkItem(views.Issues, names))
		}
		s.Put(site, views.Issues, issues)

		tasks := make([]domain.WorkItem, 0, len(sf.Tasks))
		for _, tk := range sf.Tasks {
			tasks = append(tasks, tk.WorkItem(views.Tasks, names))
		}
		s.Put(site, views.Tasks, tasks)
	}
}

// DefaultFixtures is a small demo site used when no file is configured.
func DefaultFixtures() Fixtures {
	return Fixtures{
		Projects: []domain.Ref{{ID: "p1", Name: "Harbour Tower"}, {ID: "p2", Name: "Riverside Annex"}},
		Users:    []domain.Ref{{ID: "u1", Name: "Ana Duarte"}, {ID: "u2", Name: "Ben Okafor"}, {ID: "u3", Name: "Chen Wei"}},
		Sites: map[string]SiteFixture{
			"north-yard": {
				Issues: []views.Issue{
					{ID: "i1", Title: "Water ingress at level B2", Status: "Open", Priority: "critical", ProjectID: "p1", AssignedTo: []string{"u1"}, DueDate: "2026-01-05"},
					{ID: "i2", Title: "Scaffold tag expired", Status: "Open", Priority: "high", ProjectID: "p1", AssignTo: "site_supervisor"},
					{ID: "i3", Title: "Cracked curtain wall panel", Status: "In Review", Priority: "medium", ProjectID: "p2", AssignedTo: []string{"u2"}},
					{ID: "i4", Title: "Missing handrail east stair", Status: "Resolved", Priority: "low", ProjectID: "p1"},
				},
				Tasks: []views.Task{
					{ID: "t1", TaskName: "Pour level 3 slab", Status: "To Do", Priority: "high", Project: views.TaskRef{ID: "p1"}, AssignedTo: []views.TaskRef{{ID: "u2"}}, EndDate: "2026-02-01"},
					{ID: "t2", TaskName: "Install rebar cages", Status: "In Progress", Priority: "medium", Project: views.TaskRef{ID: "p1"}, AssignedTo: []views.TaskRef{{ID: "u3"}}, AssignedRole: "worker"},
					{ID: "t3", TaskName: "Formwork inspection", Status: "Review", Priority: "high", Project: views.TaskRef{ID: "p2"}},
					{ID: "t4", TaskName: "Site fencing", Status: "Completed", Priority: "low", Project: views.TaskRef{ID: "p2"}},
				},
			},
		},
	}
}
