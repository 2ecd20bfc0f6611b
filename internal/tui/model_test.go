package tui

import (
	"os"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/gridcell/internal/testutil"
	"github.com/leapstack-labs/gridcell/pkg/bridge"
	"github.com/leapstack-labs/gridcell/pkg/core"
	"github.com/leapstack-labs/gridcell/pkg/session"
	"github.com/leapstack-labs/gridcell/pkg/view"
)

func TestMain(m *testing.M) {
	// Plain output keeps View assertions free of escape codes.
	lipgloss.SetColorProfile(termenv.Ascii)
	os.Exit(m.Run())
}

func newModel(t *testing.T) (Model, *session.Store) {
	t.Helper()
	tpl := &core.Template{Tables: map[string]*core.TableSchema{
		"items": {
			Fields: map[string]core.FieldSchema{
				"description": {Type: core.FieldText},
				"price":       {Type: core.FieldFloat},
				"done":        {Type: core.FieldBoolean},
				"qty":         {Type: core.FieldCounter},
			},
			FieldOrder: []string{"description", "price", "done", "qty"},
		},
	}}
	store := session.New(session.WithColumns(view.Resolver{Template: tpl}))
	rows := []core.Row{
		{"id": core.StringValue("r1"), "description": core.StringValue("old"), "price": core.Null(), "done": core.BoolValue(false), "qty": core.NumberValue(3)},
		{"id": core.StringValue("r2"), "description": core.StringValue("second"), "price": core.StringValue("4"), "done": core.BoolValue(true), "qty": core.NumberValue(0)},
	}
	m := New(Config{
		Table:   "items",
		Columns: view.Describe(tpl, "items", core.ViewConfig{}, rows, view.TableOptions{}),
		Rows:    rows,
		Bridge:  bridge.New(store),
		Logger:  testutil.NewTestLogger(t),
	})
	return m, store
}

func press(t *testing.T, m Model, keys ...tea.KeyMsg) Model {
	t.Helper()
	for _, k := range keys {
		next, _ := m.Update(k)
		m = next.(Model)
	}
	return m
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

var (
	right = tea.KeyMsg{Type: tea.KeyRight}
	left  = tea.KeyMsg{Type: tea.KeyLeft}
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	esc   = tea.KeyMsg{Type: tea.KeyEsc}
	space = tea.KeyMsg{Type: tea.KeySpace}
)

func TestNavigation(t *testing.T) {
	m, _ := newModel(t)
	_, col := m.Cursor()
	assert.Equal(t, 0, col)

	m = press(t, m, right, right, right, right, right, right)
	_, col = m.Cursor()
	assert.Equal(t, 4, col, "stops at the last column")

	m = press(t, m, left)
	_, col = m.Cursor()
	assert.Equal(t, 3, col)
}

func TestEditAndCommit(t *testing.T) {
	m, store := newModel(t)
	m = press(t, m, right, enter)
	require.True(t, m.Editing())
	_, active := store.Current()
	assert.True(t, active)

	m = press(t, m, runes("er"), enter)
	assert.False(t, m.Editing())
	assert.Equal(t, 1, m.Commits())
	assert.Equal(t, core.StringValue("older"), m.Rows()[0]["description"])
	assert.Contains(t, m.Status(), "saved items.description row 0")

	row, _ := m.Cursor()
	assert.Equal(t, 1, row, "enter after commit moves focus down")
}

func TestValidationKeepsSessionOpen(t *testing.T) {
	m, store := newModel(t)
	m = press(t, m, right, right, enter, runes("1.2.3"), enter)

	assert.True(t, m.Editing())
	assert.Equal(t, "more than one decimal point", m.Warning())
	cur, ok := store.Current()
	require.True(t, ok)
	assert.True(t, cur.Invalid)
	assert.Zero(t, m.Commits())

	m = press(t, m, esc)
	assert.False(t, m.Editing())
	assert.Empty(t, m.Warning())
	_, ok = store.Current()
	assert.False(t, ok)
	assert.True(t, m.Rows()[0]["price"].IsNull())
}

func TestToggleAndStep(t *testing.T) {
	m, _ := newModel(t)
	m = press(t, m, right, right, right, space)
	assert.Equal(t, core.BoolValue(true), m.Rows()[0]["done"])

	m = press(t, m, right, runes("+"), runes("+"), runes("-"))
	assert.Equal(t, core.NumberValue(4), m.Rows()[0]["qty"])
	assert.Equal(t, 4, m.Commits())
}

func TestReadonlyColumn(t *testing.T) {
	m, _ := newModel(t)
	m = press(t, m, enter)
	assert.False(t, m.Editing())
	assert.Contains(t, m.Status(), "read-only")
}

func TestQuit(t *testing.T) {
	m, _ := newModel(t)
	_, cmd := m.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestView(t *testing.T) {
	m, _ := newModel(t)
	out := m.View()
	assert.Contains(t, out, "Items")
	assert.Contains(t, out, "second")
	assert.NotContains(t, out, "\x1b[")

	m = press(t, m, right, enter)
	assert.Contains(t, m.View(), "esc cancel")
}
