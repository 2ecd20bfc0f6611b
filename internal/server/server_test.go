package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/gridcell/internal/schema"
	"github.com/leapstack-labs/gridcell/internal/state"
	"github.com/leapstack-labs/gridcell/internal/testutil"
	"github.com/leapstack-labs/gridcell/pkg/core"
)

// recordingWriter collects applied commit events.
type recordingWriter struct {
	mu     sync.Mutex
	events []core.CommitEvent
}

func (w *recordingWriter) Apply(_ context.Context, ev core.CommitEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.events = append(w.events, ev)
	return nil
}

func (w *recordingWriter) Events() []core.CommitEvent {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]core.CommitEvent(nil), w.events...)
}

type fixture struct {
	server *Server
	http   *httptest.Server
	store  *state.SQLiteStore
	rows   *recordingWriter
}

func itemsTemplate() *core.Template {
	return &core.Template{
		Tables: map[string]*core.TableSchema{
			"items": {
				Fields: map[string]core.FieldSchema{
					"description": {Type: core.FieldText},
					"price":       {Type: core.FieldFloat},
					"quantity":    {Type: core.FieldCounter},
					"status":      {Type: core.FieldSingleSelect},
					"stock":       {Type: core.FieldCounter, Min: ptr(-5), Max: ptr(10), Step: ptr(5)},
					"sku":         {Type: core.FieldText, Readonly: true},
				},
				FieldOrder:   []string{"description", "price", "quantity", "status", "stock", "sku"},
				DisplayField: "description",
			},
		},
	}
}

func ptr(f float64) *float64 { return &f }

func setupFixture(t *testing.T) *fixture {
	t.Helper()
	logger := testutil.NewTestLogger(t)

	store := state.NewSQLiteStore(logger)
	require.NoError(t, store.Open(context.Background(), ":memory:"))
	t.Cleanup(func() { _ = store.Close() })

	rows := &recordingWriter{}
	s := NewServer(Config{
		Source:        schema.Static(itemsTemplate()),
		State:         store,
		Rows:          rows,
		SessionSecret: "test-secret-test-secret-test-sec",
		Logger:        logger,
	})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return &fixture{server: s, http: ts, store: store, rows: rows}
}

// client returns an HTTP client with its own cookie jar, i.e. its own browser session.
func (f *fixture) client(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar, Timeout: 5 * time.Second}
}

func (f *fixture) do(t *testing.T, c *http.Client, method, path, body string) (int, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, f.http.URL+path, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(bytes.TrimSpace(raw)) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), "body: %s", raw)
	}
	return resp.StatusCode, out
}

const priceTarget = `{"tableName":"items","columnName":"price","rowIndex":0,"rowIdentity":"r1"}`

func TestEditFlow(t *testing.T) {
	f := setupFixture(t)
	c := f.client(t)

	code, body := f.do(t, c, http.MethodPost, "/api/edit/begin", `{"target":`+priceTarget+`,"value":"1.00"}`)
	require.Equal(t, http.StatusOK, code, body)

	code, body = f.do(t, c, http.MethodPost, "/api/edit/commit", `{"value":"1.2.3"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "more than one decimal point", body["problem"])

	code, body = f.do(t, c, http.MethodGet, "/api/edit/state", "")
	require.Equal(t, http.StatusOK, code)
	sess, ok := body["session"].(map[string]any)
	require.True(t, ok, "session stays open after a rejected commit")
	assert.Equal(t, true, sess["invalid"])
	assert.Equal(t, true, body["warning"])

	code, body = f.do(t, c, http.MethodPost, "/api/edit/commit", `{"value":"$2.50"}`)
	require.Equal(t, http.StatusOK, code, body)
	ev := body["event"].(map[string]any)
	assert.Equal(t, "2.50", ev["newValue"])
	assert.Equal(t, "1.00", ev["previousValue"])
	assert.Equal(t, "single", ev["scope"])

	_, body = f.do(t, c, http.MethodGet, "/api/edit/state", "")
	assert.Nil(t, body["session"])

	require.Len(t, f.rows.Events(), 1)
	assert.Equal(t, "r1", f.rows.Events()[0].RowID)

	code, body = f.do(t, c, http.MethodGet, "/api/commits?table=items", "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["commits"], 1)
}

func TestEditErrors(t *testing.T) {
	f := setupFixture(t)
	c := f.client(t)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"commit without session", "/api/edit/commit", `{"value":"x"}`, http.StatusConflict},
		{"stage without session", "/api/edit/stage", `{"value":"x"}`, http.StatusConflict},
		{"malformed body", "/api/edit/begin", `{`, http.StatusBadRequest},
		{"read-only id column", "/api/edit/begin", `{"target":{"tableName":"items","columnName":"id","rowIndex":0}}`, http.StatusForbidden},
		{"negative row", "/api/edit/begin", `{"target":{"tableName":"items","columnName":"price","rowIndex":-1}}`, http.StatusBadRequest},
		{"no triggers", "/api/edit/trigger", `{"triggers":[]}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _ := f.do(t, c, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, code)
		})
	}
}

func TestSchemaBoundsAndReadonly(t *testing.T) {
	f := setupFixture(t)
	c := f.client(t)

	_, body := f.do(t, c, http.MethodGet, "/api/tables/items/columns", "")
	byName := map[string]map[string]any{}
	for _, col := range body["columns"].([]any) {
		m := col.(map[string]any)
		byName[m["name"].(string)] = m
	}
	require.Contains(t, byName, "stock")
	assert.Equal(t, map[string]any{"min": float64(-5), "max": float64(10), "step": float64(5)}, byName["stock"]["range"])
	assert.Equal(t, true, byName["sku"]["readonly"])

	stock := `{"tableName":"items","columnName":"stock","rowIndex":0,"rowIdentity":"r1"}`
	tests := []struct {
		input string
		want  float64
	}{
		{"12", 10},
		{"-30", -5},
		{"4", 5},
	}
	for _, tt := range tests {
		code, body := f.do(t, c, http.MethodPost, "/api/edit/begin", `{"target":`+stock+`,"value":0}`)
		require.Equal(t, http.StatusOK, code, body)
		code, body = f.do(t, c, http.MethodPost, "/api/edit/commit", `{"value":"`+tt.input+`"}`)
		require.Equal(t, http.StatusOK, code, body)
		ev := body["event"].(map[string]any)
		assert.Equal(t, tt.want, ev["newValue"], "input %s", tt.input)
	}

	code, _ := f.do(t, c, http.MethodPost, "/api/edit/begin", `{"target":{"tableName":"items","columnName":"sku","rowIndex":0}}`)
	assert.Equal(t, http.StatusForbidden, code)
}

// fakeClock is a settable time source safe for use from handlers.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestEvictIdleEditors(t *testing.T) {
	f := setupFixture(t)
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	f.server.now = clock.Now

	idle, active, streaming := f.client(t), f.client(t), f.client(t)
	code, _ := f.do(t, idle, http.MethodPost, "/api/edit/begin", `{"target":`+priceTarget+`}`)
	require.Equal(t, http.StatusOK, code)
	f.do(t, streaming, http.MethodGet, "/api/edit/state", "")
	require.Equal(t, 2, f.server.editorCount())

	// Hold a listener open on the streaming client's editor.
	f.server.mu.Lock()
	var listener *editor
	for _, ed := range f.server.editors {
		if _, editing := ed.store.Current(); !editing {
			listener = ed
		}
	}
	f.server.mu.Unlock()
	require.NotNil(t, listener)
	ch := listener.changes.Subscribe()
	defer listener.changes.Unsubscribe(ch)

	clock.Advance(DefaultEditorIdle + time.Minute)
	f.do(t, active, http.MethodGet, "/api/edit/state", "")
	require.Equal(t, 3, f.server.editorCount())

	assert.Equal(t, 1, f.server.evictIdle())
	assert.Equal(t, 2, f.server.editorCount())
	assert.Equal(t, 0, f.server.evictIdle(), "recently used and streaming editors stay")

	_, body := f.do(t, idle, http.MethodGet, "/api/edit/state", "")
	assert.Nil(t, body["session"], "an evicted client starts over")
	assert.Empty(t, f.rows.Events(), "abandoned sessions are not committed")
}

func TestUnchangedCommitEmitsNothing(t *testing.T) {
	f := setupFixture(t)
	c := f.client(t)

	f.do(t, c, http.MethodPost, "/api/edit/begin", `{"target":`+priceTarget+`,"value":"3"}`)
	code, body := f.do(t, c, http.MethodPost, "/api/edit/commit", `{"value":"3"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Nil(t, body["event"])
	assert.Empty(t, f.rows.Events())
}

func TestClientsHaveSeparateSessions(t *testing.T) {
	f := setupFixture(t)
	a, b := f.client(t), f.client(t)

	code, _ := f.do(t, a, http.MethodPost, "/api/edit/begin", `{"target":`+priceTarget+`}`)
	require.Equal(t, http.StatusOK, code)

	_, body := f.do(t, b, http.MethodGet, "/api/edit/state", "")
	assert.Nil(t, body["session"])

	_, body = f.do(t, a, http.MethodGet, "/api/edit/state", "")
	assert.NotNil(t, body["session"])
}

func TestTriggers(t *testing.T) {
	f := setupFixture(t)
	c := f.client(t)

	target := `{"tableName":"items","columnName":"description","rowIndex":2,"rowIdentity":"r3"}`
	body := `{"triggers":[
		{"kind":"double_click","target":` + target + `,"value":"old"},
		{"kind":"input","target":` + target + `,"text":"new text"},
		{"kind":"enter","target":` + target + `}
	]}`
	code, resp := f.do(t, c, http.MethodPost, "/api/edit/trigger", body)
	require.Equal(t, http.StatusOK, code, resp)

	results := resp["results"].([]any)
	require.Len(t, results, 3)
	last := results[2].(map[string]any)
	assert.Equal(t, "new text", last["event"].(map[string]any)["newValue"])
	assert.EqualValues(t, 3, last["focus"].(map[string]any)["rowIndex"])

	require.Len(t, f.rows.Events(), 1)
	assert.Equal(t, "description", f.rows.Events()[0].Column)
}

func TestRange(t *testing.T) {
	f := setupFixture(t)
	c := f.client(t)

	body := `{"value":"9","cells":[
		{"target":{"tableName":"items","columnName":"price","rowIndex":0,"rowIdentity":"r1"},"previous":"1"},
		{"target":{"tableName":"items","columnName":"price","rowIndex":1,"rowIdentity":"r2"},"previous":"9"},
		{"target":{"tableName":"items","columnName":"id","rowIndex":1},"previous":"r2"}
	]}`
	code, resp := f.do(t, c, http.MethodPost, "/api/edit/range", body)
	require.Equal(t, http.StatusOK, code, resp)
	assert.Len(t, resp["events"], 1, "unchanged and read-only cells produce no event")
	assert.Empty(t, resp["errors"])

	events := f.rows.Events()
	require.Len(t, events, 1)
	assert.Equal(t, core.ScopeBulk, events[0].Scope)
}

func TestColumns(t *testing.T) {
	f := setupFixture(t)
	c := f.client(t)

	code, body := f.do(t, c, http.MethodGet, "/api/tables/items/columns", "")
	require.Equal(t, http.StatusOK, code)
	cols := body["columns"].([]any)
	require.NotEmpty(t, cols)
	assert.Equal(t, "id", cols[0].(map[string]any)["name"])

	code, _ = f.do(t, c, http.MethodGet, "/api/tables/ghosts/columns", "")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = f.do(t, c, http.MethodGet, "/api/tables/items/columns?view=missing", "")
	assert.Equal(t, http.StatusNotFound, code)

	_, body = f.do(t, c, http.MethodGet, "/api/tables", "")
	assert.Equal(t, []any{"items"}, body["tables"])
}

func TestViews(t *testing.T) {
	f := setupFixture(t)
	c := f.client(t)

	ops := `{"tableName":"items","ops":[
		{"op":"reconcile","columns":["id","description","price"]},
		{"op":"pin","column":"price","pin":"end"},
		{"op":"visible","column":"description","enabled":false}
	]}`
	code, body := f.do(t, c, http.MethodPost, "/api/views/v1/ops", ops)
	require.Equal(t, http.StatusOK, code, body)
	cfg := body["config"].(map[string]any)
	assert.Equal(t, []any{"id", "description", "price"}, cfg["columnOrder"])

	saved, err := f.store.LoadView(context.Background(), "v1")
	require.NoError(t, err)
	assert.Equal(t, "items", saved.Table)
	assert.Equal(t, []string{"price"}, saved.Config.Pinned.End)

	code, body = f.do(t, c, http.MethodGet, "/api/tables/items/columns?view=v1", "")
	require.Equal(t, http.StatusOK, code)
	cols := body["columns"].([]any)
	require.Len(t, cols, 3)
	assert.Equal(t, true, cols[1].(map[string]any)["hidden"])
	assert.Equal(t, "end", cols[2].(map[string]any)["pin"])

	code, _ = f.do(t, c, http.MethodPost, "/api/views/v1/ops", `{"ops":[{"op":"explode","column":"x"}]}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = f.do(t, c, http.MethodDelete, "/api/views/v1/", "")
	assert.Equal(t, http.StatusNoContent, code)
	code, _ = f.do(t, c, http.MethodGet, "/api/views/v1/", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestViewsHydrateFromState(t *testing.T) {
	f := setupFixture(t)
	c := f.client(t)

	require.NoError(t, f.store.SaveView(context.Background(), state.SavedView{
		ID: "saved", Table: "items",
		Config: core.ViewConfig{ColumnOrder: []string{"price", "id"}},
	}))

	code, body := f.do(t, c, http.MethodGet, "/api/views/saved/", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []any{"price", "id"}, body["config"].(map[string]any)["columnOrder"])
}

func TestGroupAndAggregate(t *testing.T) {
	f := setupFixture(t)
	c := f.client(t)

	rows := `[{"id":"1","status":["open"],"price":"2"},{"id":"2","status":[],"price":"3"},{"id":"3","status":["open"],"price":""}]`

	code, body := f.do(t, c, http.MethodPost, "/api/tables/items/group", `{"column":"status","rows":`+rows+`}`)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, []any{"__group__status"}, body["columns"])
	groups := body["groups"].([]any)
	require.Len(t, groups, 2)
	assert.Equal(t, "open", groups[0].(map[string]any)["key"])
	assert.Equal(t, []any{float64(0), float64(2)}, groups[0].(map[string]any)["rows"])
	assert.Equal(t, "(empty)", groups[1].(map[string]any)["key"])

	code, body = f.do(t, c, http.MethodPost, "/api/tables/items/group", `{"columns":["status","price"],"rows":`+rows+`}`)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, []any{"__group__status", "__group__price"}, body["columns"])
	openGroup := body["groups"].([]any)[0].(map[string]any)
	nested := openGroup["groups"].([]any)
	require.Len(t, nested, 2)
	assert.Equal(t, "2", nested[0].(map[string]any)["key"])
	assert.Equal(t, "", nested[1].(map[string]any)["key"])

	code, _ = f.do(t, c, http.MethodPost, "/api/tables/items/group", `{"rows":[]}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = f.do(t, c, http.MethodPost, "/api/tables/items/aggregate", `{"rows":`+rows+`,"config":{"price":"sum","status":"empty"}}`)
	require.Equal(t, http.StatusOK, code, body)
	summaries := body["summaries"].([]any)
	require.Len(t, summaries, 2)
	assert.Equal(t, "price", summaries[0].(map[string]any)["column"])
	assert.Equal(t, "5", summaries[0].(map[string]any)["text"])
}

func TestCommitsQuery(t *testing.T) {
	f := setupFixture(t)
	c := f.client(t)

	code, _ := f.do(t, c, http.MethodGet, "/api/commits?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = f.do(t, c, http.MethodGet, "/api/commits?since=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, body := f.do(t, c, http.MethodGet, "/api/commits?limit=5", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []any{}, body["commits"])
}

func TestEventsStream(t *testing.T) {
	f := setupFixture(t)
	c := f.client(t)

	// Issue the session cookie before streaming.
	f.do(t, c, http.MethodGet, "/api/edit/state", "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.http.URL+"/api/edit/events", nil)
	require.NoError(t, err)
	stream := &http.Client{Jar: c.Jar}
	resp, err := stream.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := make(chan string, 64)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	waitFor := func(substr string) {
		t.Helper()
		deadline := time.After(3 * time.Second)
		for {
			select {
			case line, ok := <-lines:
				require.True(t, ok, "stream closed before %q", substr)
				if strings.Contains(line, substr) {
					return
				}
			case <-deadline:
				t.Fatalf("timed out waiting for %q", substr)
			}
		}
	}

	waitFor("datastar-patch-signals")
	waitFor(`"session":null`)

	f.do(t, c, http.MethodPost, "/api/edit/begin", `{"target":`+priceTarget+`}`)
	waitFor(`"kind":"began"`)
}
