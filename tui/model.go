package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"

	"siteboard/board"
	"siteboard/domain"
	"siteboard/notify"
	"siteboard/storage"
	"siteboard/views"
)

const noticeFadeDelay = 4 * time.Second

// transitionResultMsg carries the backend's answer to one transition.
type transitionResultMsg struct {
	t   *board.Transition
	err error
}

// resyncResultMsg carries the result of one resync generation.
type resyncResultMsg struct {
	gen   uint64
	items []domain.WorkItem
	err   error
}

type deleteResultMsg struct {
	itemID string
	title  string
	err    error
}

// refreshMsg is an upstream change announced on the refresh channel.
type refreshMsg struct {
	event notify.Event
	ok    bool
}

type noticeFadeMsg struct{ seq int }

// Options configures a Model.
type Options struct {
	Site               string
	Keys               KeyMap
	ActivationDistance float64
	Events             <-chan notify.Event
	Logger             *log.Logger
	Context            context.Context
}

// Model is the bubbletea model of one board. The engine behind it is only
// touched from Update; network calls run inside commands and come back as
// messages.
type Model struct {
	view   *views.View
	coord  *board.Coordinator
	drag   *board.DragSession
	keys   KeyMap
	site   string
	events <-chan notify.Event
	logger *log.Logger
	ctx    context.Context

	width  int
	height int
	ready  bool
	loaded bool
	layout layout

	filter      board.Filter
	filterInput textinput.Model
	filtering   bool

	selected string

	notice      string
	noticeError bool
	noticeSeq   int
}

// NewModel creates the board model for view.
func NewModel(view *views.View, opts Options) Model {
	if opts.Keys.Quit.Keys() == nil {
		opts.Keys = DefaultKeyMap
	}
	if opts.Logger == nil {
		opts.Logger = log.StandardLogger()
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	ti := textinput.New()
	ti.Placeholder = "title, project or assignee"
	ti.Prompt = "/ "
	ti.CharLimit = 80
	return Model{
		view:        view,
		coord:       view.Coordinator(),
		drag:        board.NewDragSession(opts.ActivationDistance),
		keys:        opts.Keys,
		site:        opts.Site,
		events:      opts.Events,
		logger:      opts.Logger,
		ctx:         opts.Context,
		filterInput: ti,
	}
}

func (model Model) Init() tea.Cmd {
	return tea.Batch(model.resync(), model.waitForRefresh())
}

// Update handles one message.
func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.WindowSizeMsg:
		model.width = message.Width
		model.height = message.Height
		model.ready = true
		model.relayout()

	case tea.KeyMsg:
		return model.handleKey(message)

	case tea.MouseMsg:
		cmd := model.handleMouse(message)
		return model, cmd

	case transitionResultMsg:
		cmd := model.settle(message)
		return model, cmd

	case resyncResultMsg:
		cmd := model.reload(message)
		return model, cmd

	case deleteResultMsg:
		model.view.FinishDelete(message.itemID, message.err)
		model.relayout()
		var cmd tea.Cmd
		if message.err != nil {
			cmd = model.setNotice(fmt.Sprintf("Could not delete %q: %v", message.title, message.err), true)
		} else {
			cmd = model.setNotice(fmt.Sprintf("Deleted %q", message.title), false)
		}
		return model, cmd

	case refreshMsg:
		if !message.ok {
			return model, nil
		}
		cmds := []tea.Cmd{model.waitForRefresh()}
		if message.event.Matches(model.site, model.view.Definition().Resource) {
			cmds = append(cmds, model.resync())
		}
		cmd := tea.Batch(cmds...)
		return model, cmd

	case noticeFadeMsg:
		if message.seq == model.noticeSeq {
			model.notice = ""
		}
	}
	return model, nil
}

func (model *Model) handleKey(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	if model.filtering {
		switch {
		case key.Matches(message, model.keys.FilterClear):
			model.filtering = false
			model.filterInput.Blur()
			model.filterInput.SetValue("")
			model.filter.Text = ""
			model.relayout()
			return *model, nil
		case key.Matches(message, model.keys.FilterAccept):
			model.filtering = false
			model.filterInput.Blur()
			return *model, nil
		}
		var cmd tea.Cmd
		model.filterInput, cmd = model.filterInput.Update(message)
		model.filter.Text = model.filterInput.Value()
		model.relayout()
		return *model, cmd
	}

	switch {
	case key.Matches(message, model.keys.Quit):
		model.drag.Cancel()
		model.coord.Close()
		return *model, tea.Quit

	case key.Matches(message, model.keys.FilterActivate):
		model.filtering = true
		model.filterInput.Focus()
		return *model, textinput.Blink

	case key.Matches(message, model.keys.FilterClear):
		model.filter = board.Filter{}
		model.filterInput.SetValue("")
		model.relayout()

	case key.Matches(message, model.keys.CycleStatus):
		model.filter.Status = model.nextStatus(model.filter.Status)
		model.relayout()

	case key.Matches(message, model.keys.CycleProject):
		model.filter.Project = model.nextProject(model.filter.Project)
		model.relayout()

	case key.Matches(message, model.keys.ToggleMine):
		if model.filter.Role == "" {
			model.filter.Role = model.view.Identity().Role
		} else {
			model.filter.Role = ""
		}
		model.relayout()

	case key.Matches(message, model.keys.Up):
		model.moveSelection(0, -1)
	case key.Matches(message, model.keys.Down):
		model.moveSelection(0, 1)
	case key.Matches(message, model.keys.Left):
		model.moveSelection(-1, 0)
	case key.Matches(message, model.keys.Right):
		model.moveSelection(1, 0)

	case key.Matches(message, model.keys.MoveLeft):
		cmd := model.shiftSelected(-1)
		return *model, cmd
	case key.Matches(message, model.keys.MoveRight):
		cmd := model.shiftSelected(1)
		return *model, cmd

	case key.Matches(message, model.keys.Refresh):
		cmd := model.manualRefresh()
		return *model, cmd

	case key.Matches(message, model.keys.Delete):
		cmd := model.deleteSelected()
		return *model, cmd
	}
	return *model, nil
}

// handleMouse drives the drag session. Presses on a card start a
// potential drag, motion with the button held moves it, and release
// drops it.
func (model *Model) handleMouse(message tea.MouseMsg) tea.Cmd {
	p := cellPoint(message.X, message.Y)
	switch message.Action {
	case tea.MouseActionPress:
		if message.Button != tea.MouseButtonLeft {
			return nil
		}
		card, ok := model.layout.cardAt(message.X, message.Y)
		if !ok {
			return nil
		}
		model.selected = card.ItemID
		if model.view.CanDrag(card.ItemID) {
			model.drag.Press(card.ItemID, card.Status, p)
		}
		return nil

	case tea.MouseActionMotion:
		if model.drag.State() == board.DragIdle {
			return nil
		}
		if message.Button == tea.MouseButtonNone {
			// the button went up outside the window
			model.drag.Cancel()
			return nil
		}
		model.drag.Move(p)
		return nil

	case tea.MouseActionRelease:
		res := model.drag.Release(p)
		switch res.Outcome {
		case board.DropMoved:
			return model.begin(res.ItemID, res.Target)
		case board.DropClick:
			model.selected = res.ItemID
		}
	}
	return nil
}

// begin applies a move optimistically and returns the command that
// persists it.
func (model *Model) begin(itemID string, to domain.Status) tea.Cmd {
	t, ok := model.view.Begin(model.ctx, itemID, to)
	if !ok {
		return nil
	}
	model.selected = itemID
	model.relayout()
	coord, ctx := model.coord, model.ctx
	return func() tea.Msg {
		return transitionResultMsg{t: t, err: coord.Persist(ctx, t)}
	}
}

func (model *Model) settle(message transitionResultMsg) tea.Cmd {
	if !model.coord.Settle(message.t, message.err) {
		model.relayout()
		return nil
	}
	title := message.t.ItemID
	if it, ok := model.coord.Store().Get(message.t.ItemID); ok {
		title = it.Title
	}
	return tea.Batch(
		model.setNotice(fmt.Sprintf("Could not move %q: %s", title, describe(message.err)), true),
		model.resync(),
	)
}

// resync reserves a generation on the update loop and fetches off it.
func (model *Model) resync() tea.Cmd {
	gen := model.coord.StartResync()
	coord, ctx := model.coord, model.ctx
	return func() tea.Msg {
		items, err := coord.Fetch(ctx)
		return resyncResultMsg{gen: gen, items: items, err: err}
	}
}

// manualRefresh is a resync that also forgets cached project and user
// names.
func (model *Model) manualRefresh() tea.Cmd {
	gen := model.coord.StartResync()
	view, coord, ctx := model.view, model.coord, model.ctx
	return func() tea.Msg {
		view.ForgetNames(ctx)
		items, err := coord.Fetch(ctx)
		return resyncResultMsg{gen: gen, items: items, err: err}
	}
}

func (model *Model) reload(message resyncResultMsg) tea.Cmd {
	err := model.coord.Reload(message.gen, message.items, message.err)
	if err == nil && message.err == nil {
		model.loaded = true
	}
	model.relayout()
	if err != nil {
		return model.setNotice("Board could not be refreshed: "+describe(message.err), true)
	}
	return nil
}

func (model *Model) deleteSelected() tea.Cmd {
	item, ok := model.coord.Store().Get(model.selected)
	if !ok {
		return nil
	}
	remove, err := model.view.PrepareDelete(item.ID)
	if err != nil {
		return model.setNotice(fmt.Sprintf("Cannot delete %q: %v", item.Title, err), true)
	}
	if remove == nil {
		return nil
	}
	ctx := model.ctx
	return func() tea.Msg {
		return deleteResultMsg{itemID: item.ID, title: item.Title, err: remove(ctx)}
	}
}

// shiftSelected moves the selected card to the neighbouring column.
func (model *Model) shiftSelected(delta int) tea.Cmd {
	item, ok := model.coord.Store().Get(model.selected)
	if !ok {
		return nil
	}
	vocab := model.coord.Store().Vocabulary()
	to, ok := vocab.At(vocab.Index(item.Status) + delta)
	if !ok {
		return nil
	}
	return model.begin(item.ID, to)
}

// moveSelection moves the cursor between cards of the current layout.
func (model *Model) moveSelection(dx, dy int) {
	if len(model.layout.cards) == 0 {
		model.selected = ""
		return
	}
	cur, ok := model.layout.card(model.selected)
	if !ok {
		model.selected = model.layout.cards[0].ItemID
		return
	}
	col, row := cur.Column+dx, cur.Row+dy
	if dx != 0 {
		for col >= 0 && col < len(model.layout.columns) && model.layout.columns[col].Visible == 0 {
			col += dx
		}
		if col < 0 || col >= len(model.layout.columns) {
			return
		}
		row = min(row, model.layout.columns[col].Visible-1)
	}
	for _, c := range model.layout.cards {
		if c.Column == col && c.Row == row {
			model.selected = c.ItemID
			return
		}
	}
}

func (model *Model) nextStatus(cur domain.Status) domain.Status {
	statuses := model.coord.Store().Vocabulary().Statuses()
	if cur == "" {
		return statuses[0]
	}
	for i, s := range statuses {
		if s == cur && i+1 < len(statuses) {
			return statuses[i+1]
		}
	}
	return ""
}

func (model *Model) nextProject(cur string) string {
	var ids []string
	seen := map[string]bool{}
	for _, it := range model.coord.Store().Snapshot() {
		if it.Project.ID != "" && !seen[it.Project.ID] {
			seen[it.Project.ID] = true
			ids = append(ids, it.Project.ID)
		}
	}
	if len(ids) == 0 {
		return ""
	}
	if cur == "" {
		return ids[0]
	}
	for i, id := range ids {
		if id == cur && i+1 < len(ids) {
			return ids[i+1]
		}
	}
	return ""
}

// relayout recomputes the layout after the store, the filter or the size
// changed, and hands the new targets to the drag session.
func (model *Model) relayout() {
	if !model.ready {
		return
	}
	model.layout = computeLayout(model.width, model.height, model.view.Columns(model.filter))
	model.drag.SetTargets(model.layout.targets())
	if model.drag.State() != board.DragIdle {
		if _, ok := model.coord.Store().Get(model.drag.ItemID()); !ok {
			model.drag.Cancel()
		}
	}
	if _, ok := model.layout.card(model.selected); !ok {
		model.selected = ""
		if len(model.layout.cards) > 0 {
			model.selected = model.layout.cards[0].ItemID
		}
	}
}

func (model *Model) setNotice(text string, isError bool) tea.Cmd {
	model.noticeSeq++
	model.notice = text
	model.noticeError = isError
	if isError {
		model.logger.WithField("board", model.view.Definition().Name).Warn(text)
	}
	seq := model.noticeSeq
	return tea.Tick(noticeFadeDelay, func(time.Time) tea.Msg {
		return noticeFadeMsg{seq: seq}
	})
}

func (model Model) waitForRefresh() tea.Cmd {
	if model.events == nil {
		return nil
	}
	ch := model.events
	return func() tea.Msg {
		ev, ok := <-ch
		return refreshMsg{event: ev, ok: ok}
	}
}

// describe shortens backend errors for the status line.
func describe(err error) string {
	if err == nil {
		return "unknown error"
	}
	if storage.IsUnauthorized(err) {
		return "not allowed, or the session expired"
	}
	if errors.Is(err, board.ErrStaleSnapshot) {
		return "showing last known state"
	}
	return err.Error()
}
