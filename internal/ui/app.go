package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/daybook/internal/feed"
	"github.com/abelbrown/daybook/internal/group"
	"github.com/abelbrown/daybook/internal/model"
	"github.com/abelbrown/daybook/internal/readstate"
)

// Commands bundles the async operations the App can trigger. The App
// does not hold the coordinator or the stores; it receives results via
// messages.
type Commands struct {
	FreshQuery func() tea.Cmd
	LoadPage   func(page int) tea.Cmd
	Refetch    func(pages int) tea.Cmd
	SaveRead   func(read model.ReadItems) tea.Cmd
}

// App is the root Bubble Tea model.
type App struct {
	cmds     Commands
	keys     keyMap
	sortOpts group.SortOptions
	scheme   string

	machine feed.Machine
	items   map[string]model.Item
	read    model.ReadItems

	rows       []row
	cursor     int
	spin       spinner.Model
	refreshing bool

	width  int
	height int
	ready  bool
}

// NewApp creates the root model. The machine starts in the querying
// state; Init fires the first fetch.
func NewApp(cmds Commands, pageSize int, sortOpts group.SortOptions) App {
	s := spinner.New()
	s.Spinner = spinner.Dot
	m := feed.Machine{PageSize: pageSize}
	return App{
		cmds:     cmds,
		keys:     defaultKeyMap(),
		sortOpts: sortOpts,
		scheme:   sortOpts.TopStoryScheme,
		machine:  m.StartQuery(),
		items:    make(map[string]model.Item),
		read:     model.ReadItems{},
		spin:     s,
	}
}

func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{a.spin.Tick}
	if a.cmds.FreshQuery != nil {
		cmds = append(cmds, a.cmds.FreshQuery())
	}
	return tea.Batch(cmds...)
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKey(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		return a, nil

	case spinner.TickMsg:
		if !a.busy() && !a.refreshing {
			return a, nil
		}
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(msg)
		return a, cmd

	case QueryDone:
		if msg.Err != nil {
			a.machine = a.machine.Fail(msg.Err)
		} else {
			a.absorb(msg.Result.Items)
			a.machine = a.machine.ApplyQueryResult(msg.Result.Groups, msg.Result.Total)
			a.cursor = 0
		}
		a.rebuild()
		return a, nil

	case PageDone:
		if msg.Err != nil {
			a.machine = a.machine.Fail(msg.Err)
		} else {
			a.absorb(msg.Result.Items)
			a.machine = a.machine.ApplyPageResult(msg.Result.Groups, msg.Result.Total)
		}
		a.rebuild()
		return a, nil

	case RefetchDone:
		a.refreshing = false
		if msg.Err == nil {
			a.absorb(msg.Result.Items)
			a.machine = a.machine.ApplyRefetch(msg.Result.Groups, msg.Result.Total, msg.Result.Page)
		}
		a.rebuild()
		return a, nil

	case ReadStateLoaded:
		if msg.Err == nil && msg.Read != nil {
			a.read = msg.Read
		}
		return a, nil

	case ReadStateSaved:
		return a, nil

	case PushReceived:
		// Server-side change: silently re-pull every loaded page so the
		// list reflects it without disturbing the reader.
		if a.machine.State == feed.StateIdle && a.machine.Page > 0 && a.cmds.Refetch != nil && !a.refreshing {
			a.refreshing = true
			return a, tea.Batch(a.spin.Tick, a.cmds.Refetch(a.machine.Page))
		}
		return a, nil
	}

	return a, nil
}

func (a App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.Quit):
		return a, tea.Quit

	case key.Matches(msg, a.keys.Down):
		a.cursor = nextSelectable(a.rows, a.cursor, +1)
		return a, nil

	case key.Matches(msg, a.keys.Up):
		a.cursor = nextSelectable(a.rows, a.cursor, -1)
		return a, nil

	case key.Matches(msg, a.keys.Top):
		a.cursor = firstSelectable(a.rows)
		return a, nil

	case key.Matches(msg, a.keys.Bottom):
		a.cursor = lastSelectable(a.rows)
		return a, nil

	case key.Matches(msg, a.keys.Open):
		return a.openCurrent()

	case key.Matches(msg, a.keys.Toggle):
		if r, ok := a.current(); ok && r.date != "" {
			a.machine = a.machine.ToggleHiddenGroup(r.date)
			a.rebuild()
		}
		return a, nil

	case key.Matches(msg, a.keys.Refresh):
		if a.busy() || a.cmds.FreshQuery == nil {
			return a, nil
		}
		a.machine = a.machine.StartQuery()
		a.cursor = 0
		a.rebuild()
		return a, tea.Batch(a.spin.Tick, a.cmds.FreshQuery())

	case key.Matches(msg, a.keys.LoadMore):
		return a.loadMore()
	}

	return a, nil
}

// openCurrent acts on the row under the cursor: items are marked read,
// toggle rows expand, the load-more row fetches the next page.
func (a App) openCurrent() (tea.Model, tea.Cmd) {
	r, ok := a.current()
	if !ok {
		return a, nil
	}
	switch r.kind {
	case rowItem:
		it, ok := a.items[r.id]
		if !ok {
			return a, nil
		}
		a.read = readstate.MarkRead(it, a.read)
		a.rebuild()
		if a.cmds.SaveRead != nil {
			return a, a.cmds.SaveRead(a.read)
		}
		return a, nil
	case rowToggle:
		a.machine = a.machine.ToggleHiddenGroup(r.date)
		a.rebuild()
		return a, nil
	case rowLoadMore:
		return a.loadMore()
	}
	return a, nil
}

func (a App) loadMore() (tea.Model, tea.Cmd) {
	next := a.machine.StartLoadPage()
	if next.State != feed.StateLoadingPage || a.cmds.LoadPage == nil {
		return a, nil
	}
	a.machine = next
	a.rebuild()
	return a, tea.Batch(a.spin.Tick, a.cmds.LoadPage(a.machine.Page+1))
}

func (a App) View() string {
	if !a.ready {
		return "Loading..."
	}

	contentHeight := a.height - 1
	if a.machine.Err != nil {
		contentHeight--
	}

	agenda := renderAgenda(a.rows, a.machine, a.items, a.read, a.scheme, a.cursor, a.width, contentHeight)

	errorBar := ""
	if a.machine.Err != nil {
		errorBar = ErrorStyle.Width(a.width).Render("Error: " + a.machine.Err.Error()) + "\n"
	}

	return agenda + errorBar + a.statusBar()
}

func (a App) statusBar() string {
	state := a.machine.State.String()
	if a.refreshing {
		state = "refreshing"
	}
	left := StatusBarText.Render(fmt.Sprintf("%d/%d items · %s", loadedCount(a.machine), a.machine.Total, state))
	if a.busy() || a.refreshing {
		left = a.spin.View() + " " + left
	}
	hints := StatusBarKey.Render("j/k") + StatusBarText.Render(" move  ") +
		StatusBarKey.Render("enter") + StatusBarText.Render(" open  ") +
		StatusBarKey.Render("tab") + StatusBarText.Render(" expand  ") +
		StatusBarKey.Render("r") + StatusBarText.Render(" refresh  ") +
		StatusBarKey.Render("q") + StatusBarText.Render(" quit")
	return StatusBar.Width(a.width).Render(left + "  " + hints)
}

func (a App) busy() bool {
	return a.machine.State == feed.StateQuerying || a.machine.State == feed.StateLoadingPage
}

func (a *App) absorb(items []model.Item) {
	for _, it := range items {
		a.items[it.ID] = it
	}
}

func (a *App) rebuild() {
	a.rows = buildRows(a.machine, a.items, a.sortOpts)
	if len(a.rows) == 0 {
		a.cursor = 0
		return
	}
	if a.cursor >= len(a.rows) {
		a.cursor = len(a.rows) - 1
	}
	if !a.rows[a.cursor].selectable() {
		a.cursor = nextSelectable(a.rows, a.cursor, +1)
	}
}

func (a App) current() (row, bool) {
	if a.cursor < 0 || a.cursor >= len(a.rows) {
		return row{}, false
	}
	return a.rows[a.cursor], true
}

// nextSelectable walks from cur in the given direction to the nearest
// selectable row, staying put when there is none.
func nextSelectable(rows []row, cur, dir int) int {
	for i := cur + dir; i >= 0 && i < len(rows); i += dir {
		if rows[i].selectable() {
			return i
		}
	}
	return cur
}

func firstSelectable(rows []row) int {
	for i := range rows {
		if rows[i].selectable() {
			return i
		}
	}
	return 0
}

func lastSelectable(rows []row) int {
	for i := len(rows) - 1; i >= 0; i-- {
		if rows[i].selectable() {
			return i
		}
	}
	return 0
}

// Cursor returns the current cursor position (for testing).
func (a App) Cursor() int {
	return a.cursor
}

// Machine returns the current list state (for testing).
func (a App) Machine() feed.Machine {
	return a.machine
}

// Read returns the current read map (for testing).
func (a App) Read() model.ReadItems {
	return a.read
}
