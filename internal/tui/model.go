// Package tui is a terminal grid editor driven by the event bridge.
package tui

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/leapstack-labs/gridcell/pkg/bridge"
	"github.com/leapstack-labs/gridcell/pkg/core"
	"github.com/leapstack-labs/gridcell/pkg/field"
	"github.com/leapstack-labs/gridcell/pkg/view"
)

// charsPerCell converts descriptor pixel widths to terminal cells.
const charsPerCell = 8

// Config holds what the editor shows and edits.
type Config struct {
	Table string
	// Columns are the table's descriptors in view order; hidden ones are skipped.
	Columns []core.ColumnDescriptor
	Rows    []core.Row
	// KeyColumn holds each row's identity. Defaults to id.
	KeyColumn string
	Bridge    *bridge.Bridge
	Height    int
	Logger    *slog.Logger
}

// Model is the bubbletea model of the grid editor.
type Model struct {
	tableName string
	columns   []core.ColumnDescriptor
	rows      []core.Row
	keyColumn string
	bridge    *bridge.Bridge
	logger    *slog.Logger

	grid    table.Model
	input   textinput.Model
	col     int
	editing bool

	status  string
	warning string
	commits int
}

// New creates the editor model.
func New(cfg Config) Model {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	key := cfg.KeyColumn
	if key == "" {
		key = core.IDColumn
	}

	var cols []core.ColumnDescriptor
	for _, c := range cfg.Columns {
		if !c.Hidden {
			cols = append(cols, c)
		}
	}

	height := cfg.Height
	if height <= 0 {
		height = 15
	}

	in := textinput.New()
	in.Prompt = "> "

	m := Model{
		tableName: cfg.Table,
		columns:   cols,
		rows:      cfg.Rows,
		keyColumn: key,
		bridge:    cfg.Bridge,
		logger:    logger,
		input:     in,
		grid: table.New(
			table.WithFocused(true),
			table.WithHeight(height),
			table.WithStyles(tableStyles()),
		),
	}
	m.refresh()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd { return nil }

// Rows returns the rows with every commit applied.
func (m Model) Rows() []core.Row { return m.rows }

// Commits returns how many commits the editor produced.
func (m Model) Commits() int { return m.commits }

// Editing reports whether an edit session is open.
func (m Model) Editing() bool { return m.editing }

// Cursor returns the selected row and column indexes.
func (m Model) Cursor() (row, col int) { return m.grid.Cursor(), m.col }

// Status returns the status line text.
func (m Model) Status() string { return m.status }

// Warning returns the current validation warning.
func (m Model) Warning() string { return m.warning }

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	if m.editing {
		return m.updateEditing(key)
	}
	return m.updateBrowsing(key)
}

func (m Model) updateBrowsing(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "left", "h", "shift+tab":
		if m.col > 0 {
			m.col--
		}
		m.refresh()
		return m, nil
	case "right", "l", "tab":
		if m.col < len(m.columns)-1 {
			m.col++
		}
		m.refresh()
		return m, nil
	case "enter":
		return m.trigger(bridge.TriggerEnter, func(*bridge.Trigger) {})
	case " ":
		if m.current().Type == core.FieldBoolean {
			return m.trigger(bridge.TriggerToggle, func(*bridge.Trigger) {})
		}
	case "+", "=":
		if m.current().Type.IsRanged() {
			return m.trigger(bridge.TriggerIncrement, func(*bridge.Trigger) {})
		}
	case "-":
		if m.current().Type.IsRanged() {
			return m.trigger(bridge.TriggerDecrement, func(*bridge.Trigger) {})
		}
	}

	var cmd tea.Cmd
	m.grid, cmd = m.grid.Update(key)
	return m, cmd
}

func (m Model) updateEditing(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		return m.trigger(bridge.TriggerEscape, func(*bridge.Trigger) {})
	case "enter", "tab":
		text := m.input.Value()
		next, _ := m.trigger(bridge.TriggerInput, func(tr *bridge.Trigger) { tr.Text = text })
		m = next.(Model)
		if m.warning != "" {
			return m, nil
		}
		if key.String() == "tab" {
			return m.trigger(bridge.TriggerBlur, func(*bridge.Trigger) {})
		}
		return m.trigger(bridge.TriggerEnter, func(*bridge.Trigger) {})
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(key)
	return m, cmd
}

// current returns the selected column.
func (m Model) current() core.ColumnDescriptor {
	if m.col < 0 || m.col >= len(m.columns) {
		return core.ColumnDescriptor{}
	}
	return m.columns[m.col]
}

// target returns the selected cell and its stored value.
func (m Model) target() (core.EditTarget, core.Value) {
	row := m.grid.Cursor()
	col := m.current()
	t := core.EditTarget{Table: m.tableName, Column: col.Name, RowIndex: row}
	if row < 0 || row >= len(m.rows) {
		return t, core.Null()
	}
	t.RowID = m.rows[row][m.keyColumn].Text()
	return t, m.rows[row][col.Name]
}

// trigger sends one trigger to the bridge and folds the result into the model.
func (m Model) trigger(kind bridge.TriggerKind, fill func(*bridge.Trigger)) (tea.Model, tea.Cmd) {
	if len(m.columns) == 0 || len(m.rows) == 0 {
		return m, nil
	}
	target, value := m.target()
	tr := bridge.Trigger{Kind: kind, Target: target, Value: value}
	fill(&tr)

	res, err := m.bridge.Handle(tr)
	m.warning = ""
	if err != nil {
		var ve *core.ValidationError
		if errors.As(err, &ve) {
			m.warning = ve.Reason
		} else {
			m.warning = err.Error()
		}
		m.logger.Debug("trigger failed", "trigger", kind, "target", target.Key(), "error", err)
	}

	if res.Event != nil {
		m.apply(*res.Event)
	}
	if res.Focus != nil && res.Focus.RowIndex < len(m.rows) {
		m.grid.SetCursor(res.Focus.RowIndex)
	}

	wasEditing := m.editing
	m.editing = res.Session != nil
	switch {
	case m.editing && !wasEditing:
		m.input.SetValue(field.Display(res.Session.Column, res.Session.Buffer))
		m.input.CursorEnd()
		m.input.Focus()
		m.grid.Blur()
		m.status = fmt.Sprintf("editing %s", target.Key())
	case !m.editing && wasEditing:
		m.input.Blur()
		m.grid.Focus()
		if res.Event == nil && m.warning == "" {
			m.status = "no change"
		}
	case res.Ignored:
		m.status = fmt.Sprintf("%s is read-only", m.current().DisplayName)
	}
	m.refresh()
	return m, nil
}

// apply writes a commit into the local rows.
func (m *Model) apply(ev core.CommitEvent) {
	m.commits++
	if ev.RowIndex >= 0 && ev.RowIndex < len(m.rows) {
		m.rows[ev.RowIndex][ev.Column] = ev.New
	}
	m.status = fmt.Sprintf("saved %s.%s row %d: %s", ev.Table, ev.Column, ev.RowIndex, ev.New.Text())
}

// refresh rebuilds the grid's columns and rows.
func (m *Model) refresh() {
	cols := make([]table.Column, len(m.columns))
	for i, c := range m.columns {
		title := c.DisplayName
		if i == m.col {
			title = activeHeader.Render(title)
		}
		cols[i] = table.Column{Title: title, Width: max(c.Width/charsPerCell, 6)}
	}
	rows := make([]table.Row, len(m.rows))
	for i, r := range m.rows {
		cells := make(table.Row, len(m.columns))
		for j, c := range m.columns {
			cells[j] = cellText(c, r[c.Name])
		}
		rows[i] = cells
	}
	cursor := m.grid.Cursor()
	m.grid.SetRows(nil)
	m.grid.SetColumns(cols)
	m.grid.SetRows(rows)
	if cursor >= 0 && cursor < len(rows) {
		m.grid.SetCursor(cursor)
	}
}

func cellText(c core.ColumnDescriptor, v core.Value) string {
	if v.IsNull() {
		return ""
	}
	if c.Type == core.FieldRelationship {
		return field.DisplayRelation(v, "")
	}
	return strings.ReplaceAll(field.Display(c, v), "\n", " ")
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(view.DisplayName(m.tableName)))
	b.WriteString("\n")
	b.WriteString(m.grid.View())
	b.WriteString("\n")

	if m.editing {
		b.WriteString(editorStyle.Render(m.current().DisplayName + " " + m.input.View()))
		b.WriteString("\n")
	}
	switch {
	case m.warning != "":
		b.WriteString(warnStyle.Render(m.warning))
	case strings.HasPrefix(m.status, "saved"):
		b.WriteString(commitStyle.Render(m.status))
	default:
		b.WriteString(statusStyle.Render(m.status))
	}
	b.WriteString("\n")
	if m.editing {
		b.WriteString(helpStyle.Render("enter save • tab save and leave • esc cancel"))
	} else {
		b.WriteString(helpStyle.Render("arrows move • enter edit • space toggle • +/- step • q quit"))
	}
	b.WriteString("\n")
	return b.String()
}
