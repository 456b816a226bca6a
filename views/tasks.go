package views

import (
	"time"

	"siteboard/domain"
)

// TaskRef is the populated reference shape used inside tasks.
type TaskRef struct {
	ID   string `json:"_id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Task is a site task as the backend serialises it.
type Task struct {
	ID           string    `json:"_id" yaml:"id"`
	TaskName     string    `json:"taskName" yaml:"taskName"`
	Status       string    `json:"status" yaml:"status"`
	Priority     string    `json:"priority" yaml:"priority"`
	Project      TaskRef   `json:"projectId" yaml:"project"`
	AssignedTo   []TaskRef `json:"assignedTo,omitempty" yaml:"assignedTo,omitempty"`
	EndDate      string    `json:"endDate,omitempty" yaml:"endDate,omitempty"`
	AssignedRole string    `json:"assignedRole,omitempty" yaml:"assignedRole,omitempty"`
}

// Tasks is the site task board.
var Tasks = &Definition{
	Name:     "tasks",
	Resource: "tasks",
	Vocabulary: domain.MustVocabulary("completed",
		domain.StatusMeta{Status: "todo", Label: "To Do", Color: "#8B949E"},
		domain.StatusMeta{Status: "in_progress", Label: "In Progress", Color: "#58A6FF"},
		domain.StatusMeta{Status: "review", Label: "Review", Color: "#D29922"},
		domain.StatusMeta{Status: "completed", Label: "Completed", Color: "#3FB950"},
	),
	Permissions: PermissionTable{
		domain.RoleAdmin:      grant(allActions...),
		domain.RoleManager:    grant(allActions...),
		domain.RoleSupervisor: grant(ActionCreate, ActionEdit, ActionTransition, ActionAssign),
		domain.RoleWorker:     grant(ActionTransition),
	},
	DueSoon: domain.DefaultDueSoon,
	wire: map[domain.Status]string{
		"todo":        "To Do",
		"in_progress": "In Progress",
		"review":      "Review",
		"completed":   "Completed",
	},
	decode: decodeTasks,
	encode: encodeTasks,
}

func decodeTasks(raw []byte, names Names, def *Definition) ([]domain.WorkItem, error) {
	list, err := decodeList[Task](raw)
	if err != nil {
		return nil, err
	}
	items := make([]domain.WorkItem, 0, len(list))
	for _, tk := range list {
		items = append(items, tk.WorkItem(def, names))
	}
	return items, nil
}

// WorkItem maps the task onto the generic board model.
func (tk Task) WorkItem(def *Definition, names Names) domain.WorkItem {
	status, ok := def.ParseStatus(tk.Status)
	if !ok {
		status = domain.Status(tk.Status)
	}
	item := domain.WorkItem{
		ID:             tk.ID,
		Title:          tk.TaskName,
		Status:         status,
		Priority:       domain.ParsePriority(tk.Priority),
		Project:        names.project(tk.Project.ID, tk.Project.Name),
		DueDate:        parseDate(tk.EndDate),
		RoleConstraint: domain.Role(tk.AssignedRole),
	}
	for _, u := range tk.AssignedTo {
		item.Assignees = append(item.Assignees, names.user(u.ID, u.Name))
	}
	return item
}

// TaskFromWorkItem is the inverse of Task.WorkItem.
func TaskFromWorkItem(def *Definition, item domain.WorkItem) Task {
	tk := Task{
		ID:           item.ID,
		TaskName:     item.Title,
		Status:       def.WireStatus(item.Status),
		Priority:     item.Priority.String(),
		Project:      TaskRef{ID: item.Project.ID, Name: item.Project.Name},
		AssignedRole: string(item.RoleConstraint),
	}
	for _, a := range item.Assignees {
		tk.AssignedTo = append(tk.AssignedTo, TaskRef{ID: a.ID, Name: a.Name})
	}
	if item.DueDate != nil {
		tk.EndDate = item.DueDate.UTC().Format(time.RFC3339)
	}
	return tk
}

func encodeTasks(items []domain.WorkItem, def *Definition) any {
	out := make([]Task, len(items))
	for i, it := range items {
		out[i] = TaskFromWorkItem(def, it)
	}
	return out
}
