package commands

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/gridcell/pkg/aggregate"
	"github.com/leapstack-labs/gridcell/pkg/core"
)

func TestCommandFlags(t *testing.T) {
	edit := NewEditCommand()
	assert.Equal(t, "edit <table>", edit.Use)
	for _, name := range []string{"data", "limit", "view", "save"} {
		assert.NotNil(t, edit.Flags().Lookup(name), "flag %q should exist", name)
	}

	agg := NewAggregateCommand()
	assert.NotEmpty(t, agg.Example)
	assert.NotNil(t, agg.Flags().Lookup("agg"))

	log := NewLogCommand()
	for _, name := range []string{"table", "column", "scope", "since", "limit"} {
		assert.NotNil(t, log.Flags().Lookup(name), "flag %q should exist", name)
	}
	assert.NotNil(t, NewReplayCommand().Flags().Lookup("dry-run"))

	serve := NewServeCommand()
	assert.NotNil(t, serve.Flags().Lookup("port"))
	assert.NotNil(t, serve.Flags().Lookup("watch"))

	names := map[string]bool{}
	for _, sub := range NewFieldCommand().Commands() {
		names[sub.Name()] = true
	}
	assert.Equal(t, map[string]bool{"check": true, "format": true, "types": true}, names)
}

func TestParseAggregates(t *testing.T) {
	got, err := parseAggregates([]string{"price=sum", " qty = median "})
	require.NoError(t, err)
	assert.Equal(t, map[string]aggregate.Kind{"price": aggregate.Sum, "qty": aggregate.Median}, got)

	for _, bad := range []string{"price", "=sum", "price=mode"} {
		_, err := parseAggregates([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestLogFilter(t *testing.T) {
	now := time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		flags   logFlags
		want    time.Time
		scope   core.Scope
		wantErr string
	}{
		{name: "no filters"},
		{name: "age", flags: logFlags{since: "24h"}, want: now.Add(-24 * time.Hour)},
		{name: "timestamp", flags: logFlags{since: "2024-05-01T08:00:00Z"}, want: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)},
		{name: "scope", flags: logFlags{scope: "bulk"}, scope: core.ScopeBulk},
		{name: "bad scope", flags: logFlags{scope: "all"}, wantErr: "invalid --scope"},
		{name: "bad since", flags: logFlags{since: "last week"}, wantErr: "invalid --since"},
		{name: "bad limit", flags: logFlags{limit: -1}, wantErr: "invalid --limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := tt.flags.filter(now)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(f.Since), "since = %v", f.Since)
			assert.Equal(t, tt.scope, f.Scope)
		})
	}
}

func TestRowsFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.json")
	rows := []core.Row{{"id": core.NumberValue(1), "tags": core.ListValue("a")}}
	require.NoError(t, writeRowsFile(path, rows))

	got, err := readRowsFile(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0]["tags"].Equal(core.ListValue("a")))
}
