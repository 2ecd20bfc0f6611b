package config

import (
	"fmt"
	"os"

	"github.com/leapstack-labs/gridcell/internal/rowstore"
)

// Validate checks option values. Paths are checked by RequireSchema.
func (c *Config) Validate() error {
	switch c.OutputFormat {
	case OutputAuto, OutputText, OutputJSON:
	default:
		return fmt.Errorf("invalid output format %q (want auto, text or json)", c.OutputFormat)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Server.EditorIdle < 0 {
		return fmt.Errorf("server.editor_idle must not be negative")
	}
	if c.Session.WarnDuration < 0 {
		return fmt.Errorf("session.warn_duration must not be negative")
	}
	if c.RowStore.Provider != "" {
		if _, err := rowstore.Lookup(c.RowStore.Provider); err != nil {
			return fmt.Errorf("invalid rowstore configuration: %w", err)
		}
	}
	return nil
}

// RequireSchema checks that the schema template exists.
func (c *Config) RequireSchema() error {
	if _, err := os.Stat(c.SchemaPath); err != nil {
		return fmt.Errorf("schema template not found: %s\nHint: Create it or use --schema to point at one", c.SchemaPath)
	}
	return nil
}
