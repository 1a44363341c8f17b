// Package tui is the interactive terminal surface. It is a pure
// consumer of the engine: keystrokes call engine operations, and the
// table is rebuilt from engine accessors whenever an event arrives on
// the engine's channel. The model never mutates engine tables directly.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/svcdeck/svcdeck/internal/config"
	"github.com/svcdeck/svcdeck/internal/engine"
	"github.com/svcdeck/svcdeck/internal/svc"
)

type eventMsg engine.Event

type eventsClosedMsg struct{}

type reloadDoneMsg struct{ err error }

// confirmPrompt is a pending destructive request awaiting y/n.
type confirmPrompt struct {
	prompt string
	action engine.Action
	name   string
	batch  bool
}

// Model is the bubbletea model for the service table.
type Model struct {
	eng   *engine.Engine
	theme config.Theme

	table   table.Model
	filter  textinput.Model
	typing  bool
	confirm *confirmPrompt
	notice  string

	width  int
	height int
}

// New builds the model over an engine whose table has already been
// loaded once.
func New(eng *engine.Engine, theme config.Theme) Model {
	ti := textinput.New()
	ti.Placeholder = "type to filter"
	ti.Prompt = "/"
	ti.CharLimit = 64

	t := table.New(
		table.WithColumns(columns(80)),
		table.WithFocused(true),
		table.WithHeight(20),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.Bold(true).BorderStyle(lipgloss.NormalBorder()).BorderBottom(true)
	styles.Selected = styles.Selected.
		Background(lipgloss.Color(theme.Selected)).
		Foreground(lipgloss.Color("15")).
		Bold(true)
	t.SetStyles(styles)

	m := Model{eng: eng, theme: theme, table: t, filter: ti}
	m.syncRows()
	return m
}

// Run drives the model on the terminal until the user quits.
func Run(eng *engine.Engine, theme config.Theme) error {
	p := tea.NewProgram(New(eng, theme), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.awaitEvent(), textinput.Blink)
}

// awaitEvent re-arms after every delivery; the single-consumer contract
// of the engine channel holds because only the bubbletea loop runs it.
func (m Model) awaitEvent() tea.Cmd {
	ch := m.eng.Events()
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg(ev)
	}
}

func (m Model) reloadCmd() tea.Cmd {
	eng := m.eng
	return func() tea.Msg {
		return reloadDoneMsg{err: eng.Reload(context.Background())}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetColumns(columns(msg.Width))
		h := msg.Height - 7
		if h < 3 {
			h = 3
		}
		m.table.SetHeight(h)
		return m, nil

	case eventMsg:
		ev := engine.Event(msg)
		if ev.Kind == engine.EventNotice {
			m.notice = ev.Notice
		}
		m.syncRows()
		return m, m.awaitEvent()

	case eventsClosedMsg:
		return m, tea.Quit

	case reloadDoneMsg:
		if msg.err != nil {
			m.notice = "reload failed: " + msg.err.Error()
		} else {
			m.notice = "table reloaded"
		}
		m.syncRows()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirm != nil {
		return m.handleConfirmKey(msg)
	}
	if m.typing {
		return m.handleFilterKey(msg)
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "/":
		m.typing = true
		m.filter.Focus()
		return m, textinput.Blink
	case "esc":
		if m.eng.Query() != "" {
			m.filter.SetValue("")
			m.eng.SetQuery("")
			m.syncRows()
			return m, nil
		}
		m.notice = ""
		return m, nil
	case "R":
		m.notice = "reloading..."
		return m, m.reloadCmd()
	case "s":
		return m.driveSelected(engine.ActionStart)
	case "x":
		return m.driveSelected(engine.ActionStop)
	case "r":
		return m.driveSelected(engine.ActionRestart)
	case "u":
		rec, ok := m.eng.SelectedRecord()
		if !ok {
			return m, nil
		}
		m.confirm = &confirmPrompt{
			prompt: fmt.Sprintf("Uninstall %s?", rec.Display),
			action: engine.ActionUninstall,
			name:   rec.Name,
		}
		return m, nil
	case "S":
		return m.confirmBatch(engine.ActionStart)
	case "X":
		return m.confirmBatch(engine.ActionStop)
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	m.eng.Select(m.table.Cursor())
	return m, cmd
}

func (m Model) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.typing = false
		m.filter.Blur()
		m.filter.SetValue("")
		m.eng.SetQuery("")
		m.syncRows()
		return m, nil
	case "enter":
		m.typing = false
		m.filter.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.eng.SetQuery(m.filter.Value())
	m.syncRows()
	return m, cmd
}

func (m Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	c := *m.confirm
	switch msg.String() {
	case "y", "Y", "enter":
		m.confirm = nil
		if c.batch {
			n := m.eng.BatchDrive(c.action)
			m.notice = fmt.Sprintf("%s issued for %d services", c.action, n)
			return m, nil
		}
		eng := m.eng
		go eng.Drive(c.name, c.action)
		m.notice = fmt.Sprintf("%s issued for %s", c.action, c.name)
		return m, nil
	case "n", "N", "esc":
		m.confirm = nil
		m.notice = "cancelled"
		return m, nil
	}
	return m, nil
}

// driveSelected launches a drive for the selected row when its current
// state permits the action.
func (m Model) driveSelected(action engine.Action) (tea.Model, tea.Cmd) {
	rec, ok := m.eng.SelectedRecord()
	if !ok {
		return m, nil
	}
	if !m.eng.SelectedActions().Has(action) {
		m.notice = fmt.Sprintf("%s not available for %s (%s)", action, rec.Display, rec.State)
		return m, nil
	}
	eng := m.eng
	go eng.Drive(rec.Name, action)
	m.notice = fmt.Sprintf("%s issued for %s", action, rec.Display)
	return m, nil
}

// confirmBatch arms a batch confirmation. Batch drives are refused on a
// blank filter so a stray keystroke cannot hit the whole fleet.
func (m Model) confirmBatch(action engine.Action) (tea.Model, tea.Cmd) {
	if !m.eng.BatchEligible() {
		m.notice = "batch requires an active filter"
		return m, nil
	}
	m.confirm = &confirmPrompt{
		prompt: fmt.Sprintf("%s all %d filtered services?", action, len(m.eng.Rows())),
		action: action,
		batch:  true,
	}
	return m, nil
}

// syncRows rebuilds the table from the engine's filtered view and moves
// the table cursor to the engine's selection.
func (m *Model) syncRows() {
	recs := m.eng.Rows()
	rows := make([]table.Row, len(recs))
	for i, r := range recs {
		rows[i] = table.Row{r.Display, r.Name, stateCell(r)}
	}
	m.table.SetRows(rows)
	if sel := m.eng.Selected(); sel >= 0 {
		m.table.SetCursor(sel)
	}
}

// stateCell renders a record's state column. Tentative states carry a
// trailing marker so in-flight transitions read differently from
// settled ones.
func stateCell(r engine.Record) string {
	if r.Tentative {
		return r.State.String() + " ~"
	}
	return r.State.String()
}

// stateStyle maps a state to its themed color.
func stateStyle(theme config.Theme, st svc.State) lipgloss.Style {
	var color string
	switch {
	case st == svc.StateRunning:
		color = theme.Running
	case st == svc.StateStopped || st == svc.StateNotFound:
		color = theme.Stopped
	case st.Pending():
		color = theme.Pending
	default:
		color = theme.Unknown
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color))
}

func columns(width int) []table.Column {
	if width <= 0 {
		width = 80
	}
	stateW := 18
	nameW := (width - stateW - 6) / 2
	if nameW < 12 {
		nameW = 12
	}
	return []table.Column{
		{Title: "Service", Width: nameW},
		{Title: "Identity", Width: nameW},
		{Title: "State", Width: stateW},
	}
}

func (m Model) View() string {
	var b strings.Builder
	title := lipgloss.NewStyle().Bold(true).Render("svcdeck")
	b.WriteString(title)
	b.WriteString("\n\n")

	if m.typing || m.eng.Query() != "" {
		b.WriteString(m.filter.View())
		b.WriteString("\n")
	}

	b.WriteString(m.table.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")

	if m.confirm != nil {
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Pending)).Bold(true).
			Render(m.confirm.prompt + " [y/N]"))
		b.WriteString("\n")
	} else if m.notice != "" {
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Unknown)).Render(m.notice))
		b.WriteString("\n")
	}

	help := "j/k move  / filter  s start  x stop  r restart  u uninstall  S/X batch  R reload  q quit"
	b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Unknown)).Italic(true).Render(help))
	b.WriteString("\n")
	return b.String()
}

// statusLine shows the selected record with its themed state color and
// the actions its state permits.
func (m Model) statusLine() string {
	rec, ok := m.eng.SelectedRecord()
	if !ok {
		if m.eng.Query() != "" {
			return "(no services match the filter)"
		}
		return "(no services)"
	}
	st := stateStyle(m.theme, rec.State).Render(stateCell(rec))
	acts := m.eng.SelectedActions().List()
	names := make([]string, len(acts))
	for i, a := range acts {
		names[i] = a.String()
	}
	return fmt.Sprintf("%s  %s  [%s]", rec.Display, st, strings.Join(names, " "))
}
