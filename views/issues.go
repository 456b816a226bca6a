package views

import (
	"time"

	"siteboard/domain"
)

// Issue is a site issue as the backend serialises it.
type Issue struct {
	ID          string   `json:"_id" yaml:"id"`
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Status      string   `json:"status" yaml:"status"`
	Priority    string   `json:"priority" yaml:"priority"`
	ProjectID   string   `json:"projectId" yaml:"projectId"`
	ProjectName string   `json:"projectName,omitempty" yaml:"projectName,omitempty"`
	AssignedTo  []string `json:"assignedTo,omitempty" yaml:"assignedTo,omitempty"`
	DueDate     string   `json:"dueDate,omitempty" yaml:"dueDate,omitempty"`
	AssignTo    string   `json:"assignTo,omitempty" yaml:"assignTo,omitempty"`
}

// Issues is the site issue board.
var Issues = &Definition{
	Name:     "issues",
	Resource: "issues",
	Vocabulary: domain.MustVocabulary("resolved",
		domain.StatusMeta{Status: "open", Label: "Open", Color: "#E5534B"},
		domain.StatusMeta{Status: "in_review", Label: "In Review", Color: "#D29922"},
		domain.StatusMeta{Status: "resolved", Label: "Resolved", Color: "#3FB950"},
	),
	Permissions: PermissionTable{
		domain.RoleAdmin:      grant(allActions...),
		domain.RoleManager:    grant(allActions...),
		domain.RoleSupervisor: grant(ActionCreate, ActionEdit, ActionTransition, ActionAssign),
		domain.RoleWorker:     grant(ActionCreate, ActionTransition),
	},
	DueSoon: domain.DefaultDueSoon,
	wire: map[domain.Status]string{
		"open":      "Open",
		"in_review": "In Review",
		"resolved":  "Resolved",
	},
	decode: decodeIssues,
	encode: encodeIssues,
}

func decodeIssues(raw []byte, names Names, def *Definition) ([]domain.WorkItem, error) {
	list, err := decodeList[Issue](raw)
	if err != nil {
		return nil, err
	}
	items := make([]domain.WorkItem, 0, len(list))
	for _, is := range list {
		items = append(items, is.WorkItem(def, names))
	}
	return items, nil
}

// WorkItem maps the issue onto the generic board model. A status the
// board does not know is kept verbatim so the store can reject it.
func (is Issue) WorkItem(def *Definition, names Names) domain.WorkItem {
	status, ok := def.ParseStatus(is.Status)
	if !ok {
		status = domain.Status(is.Status)
	}
	item := domain.WorkItem{
		ID:             is.ID,
		Title:          is.Title,
		Status:         status,
		Priority:       domain.ParsePriority(is.Priority),
		Project:        names.project(is.ProjectID, is.ProjectName),
		DueDate:        parseDate(is.DueDate),
		RoleConstraint: domain.Role(is.AssignTo),
	}
	for _, uid := range is.AssignedTo {
		item.Assignees = append(item.Assignees, names.user(uid, ""))
	}
	return item
}

// IssueFromWorkItem is the inverse of Issue.WorkItem.
func IssueFromWorkItem(def *Definition, item domain.WorkItem) Issue {
	is := Issue{
		ID:          item.ID,
		Title:       item.Title,
		Status:      def.WireStatus(item.Status),
		Priority:    item.Priority.String(),
		ProjectID:   item.Project.ID,
		ProjectName: item.Project.Name,
		AssignTo:    string(item.RoleConstraint),
	}
	for _, a := range item.Assignees {
		is.AssignedTo = append(is.AssignedTo, a.ID)
	}
	if item.DueDate != nil {
		is.DueDate = item.DueDate.UTC().Format(time.RFC3339)
	}
	return is
}

func encodeIssues(items []domain.WorkItem, def *Definition) any {
	out := make([]Issue, len(items))
	for i, it := range items {
		out[i] = IssueFromWorkItem(def, it)
	}
	return out
}
