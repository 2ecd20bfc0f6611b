package rowstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite" // pure Go driver registered as "sqlite"
)

func init() {
	Register(Dialect{
		Name:        "sqlite",
		Placeholder: squirrel.Question,
		Quote:       doubleQuote,
		Connect:     connectSQLite,
	})
}

func connectSQLite(_ context.Context, dsn string) (*sql.DB, error) {
	path := strings.TrimPrefix(dsn, "sqlite://")
	if path != ":memory:" && !strings.Contains(path, "?") {
		path += "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}
