package rowstore

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/gridcell/internal/testutil"
	"github.com/leapstack-labs/gridcell/pkg/core"
)

func mockApplier(t *testing.T, provider string) (*Applier, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	d, err := Lookup(provider)
	require.NoError(t, err)
	return NewApplier(db, d, testutil.NewTestLogger(t)), mock
}

func commit(column string, v core.Value) core.CommitEvent {
	return core.CommitEvent{Table: "items", Column: column, RowIndex: 2, RowID: "42", New: v}
}

func TestStatement_Dialects(t *testing.T) {
	tests := []struct {
		provider string
		want     string
	}{
		{"postgres", `UPDATE "items" SET "quantity" = $1 WHERE "id" = $2`},
		{"postgresql", `UPDATE "items" SET "quantity" = $1 WHERE "id" = $2`},
		{"mysql", "UPDATE `items` SET `quantity` = ? WHERE `id` = ?"},
		{"sqlite3", `UPDATE "items" SET "quantity" = ? WHERE "id" = ?`},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			a, _ := mockApplier(t, tt.provider)
			query, args, err := a.Statement(commit("quantity", core.NumberValue(5)))
			require.NoError(t, err)
			assert.Equal(t, tt.want, query)
			assert.Equal(t, []any{5.0, "42"}, args)
		})
	}
}

func TestStatement_Errors(t *testing.T) {
	a, _ := mockApplier(t, "sqlite")

	ev := commit("quantity", core.NumberValue(1))
	ev.RowID = ""
	_, _, err := a.Statement(ev)
	assert.ErrorIs(t, err, ErrNoRowIdentity)

	_, _, err = a.Statement(commit("qty; DROP TABLE items", core.NumberValue(1)))
	assert.ErrorContains(t, err, "invalid identifier")

	_, _, err = a.Statement(commit("customer_", core.RecordValue(core.RecordOf("id", 1))))
	assert.ErrorContains(t, err, "not writable")
}

func TestArg(t *testing.T) {
	tests := []struct {
		name string
		in   core.Value
		want any
	}{
		{"null", core.Null(), nil},
		{"string", core.StringValue("https://acme.com"), "https://acme.com"},
		{"number", core.NumberValue(2.5), 2.5},
		{"bool", core.BoolValue(true), true},
		{"list", core.ListValue("a", "b"), `["a","b"]`},
		{"empty list", core.ListValue(), `[]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Arg(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApply(t *testing.T) {
	a, mock := mockApplier(t, "postgres")
	ctx := context.Background()

	mock.ExpectExec(`UPDATE "items" SET "tags" = $1 WHERE "id" = $2`).
		WithArgs(`["x"]`, "42").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, a.Apply(ctx, commit("tags", core.ListValue("x"))))

	mock.ExpectExec(`UPDATE "items" SET "tags" = $1 WHERE "id" = $2`).
		WithArgs(nil, "42").
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := a.Apply(ctx, commit("tags", core.Null()))
	assert.ErrorIs(t, err, ErrRowNotFound)

	boom := errors.New("boom")
	mock.ExpectExec(`UPDATE "items" SET "tags" = $1 WHERE "id" = $2`).WillReturnError(boom)
	assert.ErrorIs(t, a.Apply(ctx, commit("tags", core.ListValue())), boom)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyAll(t *testing.T) {
	ctx := context.Background()
	update := "UPDATE `items` SET `price` = ? WHERE `id` = ?"

	t.Run("commits", func(t *testing.T) {
		a, mock := mockApplier(t, "mysql")
		mock.ExpectBegin()
		mock.ExpectExec(update).WithArgs("1", "42").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(update).WithArgs("2", "42").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, a.ApplyAll(ctx, []core.CommitEvent{
			commit("price", core.StringValue("1")),
			commit("price", core.StringValue("2")),
		}))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back", func(t *testing.T) {
		a, mock := mockApplier(t, "mysql")
		mock.ExpectBegin()
		mock.ExpectExec(update).WithArgs("1", "42").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectRollback()

		bad := commit("price", core.StringValue("2"))
		bad.RowID = ""
		err := a.ApplyAll(ctx, []core.CommitEvent{commit("price", core.StringValue("1")), bad})
		assert.ErrorIs(t, err, ErrNoRowIdentity)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty", func(t *testing.T) {
		a, mock := mockApplier(t, "mysql")
		require.NoError(t, a.ApplyAll(ctx, nil))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLookup(t *testing.T) {
	assert.Equal(t, []string{"mysql", "postgres", "sqlite"}, Providers())

	_, err := Lookup("oracle")
	var unknown *UnknownProviderError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "oracle", unknown.Provider)

	_, err = Open(context.Background(), Config{Provider: "sqlite"}, nil)
	assert.ErrorContains(t, err, "dsn is required")
}

func TestOpen_SQLite(t *testing.T) {
	ctx := context.Background()
	a, err := Open(ctx, Config{Provider: "sqlite", DSN: ":memory:"}, nil)
	require.NoError(t, err)
	defer func() { _ = a.Close() }()

	_, err = a.db.ExecContext(ctx, `CREATE TABLE items (id TEXT PRIMARY KEY, quantity REAL, tags TEXT)`)
	require.NoError(t, err)
	_, err = a.db.ExecContext(ctx, `INSERT INTO items (id, quantity, tags) VALUES ('42', 1, '[]')`)
	require.NoError(t, err)

	require.NoError(t, a.ApplyAll(ctx, []core.CommitEvent{
		commit("quantity", core.NumberValue(7)),
		commit("tags", core.ListValue("red")),
	}))

	var qty float64
	var tags string
	require.NoError(t, a.db.QueryRowContext(ctx, `SELECT quantity, tags FROM items WHERE id = '42'`).Scan(&qty, &tags))
	assert.InDelta(t, 7, qty, 1e-9)
	assert.Equal(t, `["red"]`, tags)

	missing := commit("quantity", core.NumberValue(1))
	missing.RowID = "nope"
	assert.ErrorIs(t, a.Apply(ctx, missing), ErrRowNotFound)
}
