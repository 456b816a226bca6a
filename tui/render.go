package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"siteboard/board"
	"siteboard/domain"
	"siteboard/views"
)

// View renders the board. Every row is laid out exactly where the layout
// says it is, so hit-testing and rendering never disagree.
func (model Model) View() string {
	if !model.ready {
		return "Loading..."
	}
	theme := DefaultTheme
	rows := make([]string, 0, model.height)
	rows = append(rows, model.renderTitle(theme))
	rows = append(rows, model.renderFilter(theme))

	body := model.renderColumns(theme)
	rows = append(rows, body...)
	for len(rows) < model.height-footerRows {
		rows = append(rows, strings.Repeat(" ", model.width))
	}
	rows = append(rows, model.renderFooter(theme))
	return strings.Join(rows, "\n")
}

func (model Model) renderTitle(theme Theme) string {
	def := model.view.Definition()
	id := model.view.Identity()
	who := id.Name
	if who == "" {
		who = id.UserID
	}
	left := fmt.Sprintf(" %s · %s · %s (%s)", strings.ToUpper(def.Name[:1])+def.Name[1:], model.site, who, id.Role)
	var right []string
	if n := model.coord.InFlight(); n > 0 {
		right = append(right, fmt.Sprintf("%d saving", n))
	}
	if model.coord.Stale() {
		right = append(right, "STALE · r to refresh")
	} else if !model.loaded {
		right = append(right, "loading")
	}
	style := lipgloss.NewStyle().Bold(true).Foreground(theme.HeaderForeground)
	line := spread(left, strings.Join(right, " · ")+" ", model.width)
	if model.coord.Stale() {
		style = style.Background(theme.StaleBackground)
	}
	return style.Render(line)
}

func (model Model) renderFilter(theme Theme) string {
	if model.filtering {
		return fit(model.filterInput.View(), model.width)
	}
	var parts []string
	f := model.filter
	if f.Text != "" {
		parts = append(parts, fmt.Sprintf("text %q", f.Text))
	}
	if f.Status != "" {
		label := string(f.Status)
		if meta, ok := model.coord.Store().Vocabulary().Meta(f.Status); ok {
			label = meta.Label
		}
		parts = append(parts, "status "+label)
	}
	if f.Project != "" {
		parts = append(parts, "project "+model.projectName(f.Project))
	}
	if f.Role != "" {
		parts = append(parts, "role "+string(f.Role))
	}
	text := " no filter"
	if len(parts) > 0 {
		text = " filter: " + strings.Join(parts, ", ")
	}
	return lipgloss.NewStyle().Foreground(theme.FaintText).Render(fit(text, model.width))
}

func (model Model) renderColumns(theme Theme) []string {
	bodyH := model.height - columnHeaderRow - footerRows
	if bodyH <= 0 || len(model.layout.columns) == 0 {
		return nil
	}
	hover, hovering := model.drag.Over()
	dragged := ""
	if model.drag.State() == board.DragDragging {
		dragged = model.drag.ItemID()
	}

	blocks := make([][]string, len(model.layout.columns))
	for i, col := range model.layout.columns {
		meta, _ := model.coord.Store().Vocabulary().Meta(col.Status)
		header := fmt.Sprintf(" %s (%d)", meta.Label, col.Visible+col.Hidden)
		if col.Hidden > 0 {
			header += fmt.Sprintf(" +%d more", col.Hidden)
		}
		hs := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(meta.Color))
		if hovering && hover == col.Status {
			hs = hs.Background(theme.HoverBackground).Foreground(theme.SelectedForeground)
		}
		lines := []string{hs.Render(fit(header, col.W))}
		blocks[i] = lines
	}
	for _, card := range model.layout.cards {
		item, ok := model.coord.Store().Get(card.ItemID)
		if !ok {
			continue
		}
		first, second := model.renderCard(theme, item, card, dragged == card.ItemID)
		pad := lipgloss.NewStyle().Render(" ")
		blocks[card.Column] = append(blocks[card.Column], pad+first+pad, pad+second+pad)
		if card.Row < model.layout.columns[card.Column].Visible-1 {
			blocks[card.Column] = append(blocks[card.Column], strings.Repeat(" ", model.layout.columns[card.Column].W))
		}
	}

	rows := make([]string, bodyH)
	for r := 0; r < bodyH; r++ {
		var sb strings.Builder
		for i, col := range model.layout.columns {
			if r < len(blocks[i]) {
				sb.WriteString(blocks[i][r])
			} else {
				sb.WriteString(strings.Repeat(" ", col.W))
			}
		}
		rows[r] = sb.String()
	}
	return rows
}

// renderCard returns the two lines of a card, each exactly card.W wide.
func (model Model) renderCard(theme Theme, item domain.WorkItem, card cardBox, dragged bool) (string, string) {
	marker := "  "
	switch {
	case dragged:
		marker = "✥ "
	case model.coord.Pending(item.ID):
		marker = "⇄ "
	case item.ID == model.selected:
		marker = "▸ "
	}
	title := lipgloss.NewStyle().Foreground(theme.NormalText)
	meta := lipgloss.NewStyle()
	if item.ID == model.selected {
		title = title.Background(theme.SelectedBackground).Foreground(theme.SelectedForeground).Bold(true)
		meta = meta.Background(theme.SelectedBackground)
	}
	if dragged || model.coord.Pending(item.ID) {
		title = title.Faint(true)
	}

	urgency := model.view.Urgency(item)
	details := []string{item.Priority.String()}
	if urgency != domain.UrgencyNormal {
		details = append(details, string(urgency))
	}
	if item.Project.Name != "" {
		details = append(details, item.Project.Name)
	}
	if len(item.Assignees) > 0 {
		names := make([]string, len(item.Assignees))
		for i, a := range item.Assignees {
			names[i] = a.Name
		}
		details = append(details, strings.Join(names, ", "))
	}
	meta = meta.Foreground(theme.UrgencyColor(urgency))
	if urgency == domain.UrgencyNormal {
		meta = meta.Foreground(theme.PriorityColor(item.Priority))
	}
	return title.Render(fit(marker+item.Title, card.W)), meta.Render(fit("  "+strings.Join(details, " · "), card.W))
}

func (model Model) renderFooter(theme Theme) string {
	if model.notice != "" {
		style := lipgloss.NewStyle().Foreground(theme.NormalText)
		if model.noticeError {
			style = style.Foreground(theme.ErrorText)
		}
		return style.Render(fit(" "+model.notice, model.width))
	}
	if model.drag.State() == board.DragDragging {
		item, _ := model.coord.Store().Get(model.drag.ItemID())
		target := "no target"
		if s, ok := model.drag.Over(); ok {
			if meta, ok := model.coord.Store().Vocabulary().Meta(s); ok {
				target = meta.Label
			}
		}
		return lipgloss.NewStyle().Foreground(theme.HeaderForeground).Render(fit(fmt.Sprintf(" Moving %q → %s", item.Title, target), model.width))
	}
	help := []string{"q quit", "/ filter", "s status", "p project", "m my role", "[ ] move", "r refresh"}
	if model.view.Can(views.ActionDelete) {
		help = append(help, "d delete")
	}
	return lipgloss.NewStyle().Foreground(theme.HelpText).Render(fit(" "+strings.Join(help, "  "), model.width))
}

func (model Model) projectName(id string) string {
	for _, it := range model.coord.Store().Snapshot() {
		if it.Project.ID == id && it.Project.Name != "" {
			return it.Project.Name
		}
	}
	return id
}

// fit truncates or pads plain text to exactly w cells.
func fit(s string, w int) string {
	if w <= 0 {
		return ""
	}
	if lipgloss.Width(s) > w {
		r := []rune(s)
		for len(r) > 0 && lipgloss.Width(string(r))+1 > w {
			r = r[:len(r)-1]
		}
		s = string(r) + "…"
	}
	if pad := w - lipgloss.Width(s); pad > 0 {
		s += strings.Repeat(" ", pad)
	}
	return s
}

// spread places left and right on one line of width w.
func spread(left, right string, w int) string {
	gap := w - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		return fit(left, w)
	}
	return left + strings.Repeat(" ", gap) + right
}
