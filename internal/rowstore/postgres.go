package rowstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

func init() {
	Register(Dialect{
		Name:        "postgres",
		Placeholder: squirrel.Dollar,
		Quote:       doubleQuote,
		Connect:     connectPostgres,
	})
}

// connectPostgres accepts a URL or key=value connection string.
func connectPostgres(_ context.Context, dsn string) (*sql.DB, error) {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	cfg.DefaultQueryExecMode = pgx.QueryExecModeExec
	return stdlib.OpenDB(*cfg), nil
}
