package rowstore

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/gridcell/pkg/core"
)

func readerTemplate() *core.Template {
	return &core.Template{Tables: map[string]*core.TableSchema{
		"items": {Fields: map[string]core.FieldSchema{
			"price": {Type: core.FieldFloat},
			"tags":  {Type: core.FieldMultiSelect},
			"state": {Type: core.FieldSingleSelect},
			"done":  {Type: core.FieldBoolean},
			"qty":   {Type: core.FieldCounter},
		}},
	}}
}

func TestRows_SQLite(t *testing.T) {
	ctx := context.Background()
	a, err := Open(ctx, Config{Provider: "sqlite", DSN: ":memory:"}, nil)
	require.NoError(t, err)
	defer func() { _ = a.Close() }()

	_, err = a.db.ExecContext(ctx, `CREATE TABLE items (id TEXT PRIMARY KEY, price REAL, tags TEXT, state TEXT, done INTEGER, qty INTEGER, note TEXT)`)
	require.NoError(t, err)
	_, err = a.db.ExecContext(ctx, `INSERT INTO items VALUES
		('b', 2.5, '["red","blue"]', 'open', 1, 3, NULL),
		('a', 10, '[]', '', 0, 0, 'hi')`)
	require.NoError(t, err)

	rows, err := a.Rows(ctx, readerTemplate(), "items", 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	first := rows[0]
	assert.Equal(t, core.StringValue("a"), first["id"], "ordered by key column")
	assert.Equal(t, core.StringValue("10"), first["price"])
	assert.Equal(t, core.ListValue(), first["tags"])
	assert.Equal(t, core.ListValue(), first["state"])
	assert.Equal(t, core.BoolValue(false), first["done"])
	assert.Equal(t, core.StringValue("hi"), first["note"])

	second := rows[1]
	assert.Equal(t, core.StringValue("2.5"), second["price"])
	assert.Equal(t, core.ListValue("red", "blue"), second["tags"])
	assert.Equal(t, core.ListValue("open"), second["state"])
	assert.Equal(t, core.BoolValue(true), second["done"])
	assert.Equal(t, core.NumberValue(3), second["qty"])
	assert.True(t, second["note"].IsNull())

	limited, err := a.Rows(ctx, readerTemplate(), "items", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestRows_Statement(t *testing.T) {
	a, mock := mockApplier(t, "postgres")
	mock.ExpectQuery(`SELECT * FROM "items" ORDER BY "id" LIMIT 5`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "price"}).AddRow("1", "4.20"))

	rows, err := a.Rows(context.Background(), readerTemplate(), "items", 5)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, core.StringValue("4.20"), rows[0]["price"])
	assert.NoError(t, mock.ExpectationsWereMet())

	_, err = a.Rows(context.Background(), readerTemplate(), "items; drop", 0)
	assert.Error(t, err)
}
