// Package rowstore writes committed cell edits back to the database that
// owns the rows. Providers register a Dialect in init().
package rowstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/Masterminds/squirrel"
)

// Dialect describes how one provider connects and writes.
type Dialect struct {
	Name        string
	Placeholder squirrel.PlaceholderFormat
	// Quote wraps an identifier that already passed validation.
	Quote func(ident string) string
	// Connect opens a pool for dsn.
	Connect func(ctx context.Context, dsn string) (*sql.DB, error)
}

// Config selects a provider and connection string.
type Config struct {
	Provider string `koanf:"provider"`
	DSN      string `koanf:"dsn"`
	// KeyColumn identifies rows. Defaults to "id".
	KeyColumn string `koanf:"key_column"`
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Dialect)
	aliases    = map[string]string{
		"postgresql": "postgres",
		"pgx":        "postgres",
		"sqlite3":    "sqlite",
		"mariadb":    "mysql",
	}
)

// Register adds a provider dialect. Called from provider init() functions.
func Register(d Dialect) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[d.Name] = d
}

// Lookup returns the dialect of a provider name or alias.
func Lookup(provider string) (Dialect, error) {
	name := strings.ToLower(strings.TrimSpace(provider))
	if canonical, ok := aliases[name]; ok {
		name = canonical
	}
	registryMu.RLock()
	d, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return Dialect{}, &UnknownProviderError{Provider: provider, Available: Providers()}
	}
	return d, nil
}

// Providers lists registered provider names, sorted.
func Providers() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// UnknownProviderError is returned for an unregistered provider.
type UnknownProviderError struct {
	Provider  string
	Available []string
}

func (e *UnknownProviderError) Error() string {
	return fmt.Sprintf("unknown rowstore provider %q\nAvailable providers: %v\nHint: Check rowstore.provider in gridcell.yaml", e.Provider, e.Available)
}

// Open connects to the configured database and returns an Applier for it.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Applier, error) {
	d, err := Lookup(cfg.Provider)
	if err != nil {
		return nil, err
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("rowstore %s: dsn is required", d.Name)
	}
	db, err := d.Connect(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("rowstore %s: %w", d.Name, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("rowstore %s: ping: %w", d.Name, err)
	}
	a := NewApplier(db, d, logger)
	if cfg.KeyColumn != "" {
		a.keyColumn = cfg.KeyColumn
	}
	return a, nil
}

func doubleQuote(ident string) string { return `"` + ident + `"` }
