package rowstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

func init() {
	Register(Dialect{
		Name:        "duckdb",
		Placeholder: squirrel.Dollar,
		Quote:       doubleQuote,
		Connect:     connectDuckDB,
	})
}

// connectDuckDB opens a DuckDB file, or an in-memory database for ":memory:".
func connectDuckDB(_ context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("duckdb", strings.TrimPrefix(dsn, "duckdb://"))
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb connection: %w", err)
	}
	// Each connection to ":memory:" would see its own database.
	db.SetMaxOpenConns(1)
	return db, nil
}
