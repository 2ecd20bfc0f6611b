// Package config loads gridcell CLI configuration from defaults, a YAML
// file, a .env file, GRIDCELL_ environment variables and command flags.
package config

import (
	"time"

	"github.com/leapstack-labs/gridcell/internal/rowstore"
	"github.com/leapstack-labs/gridcell/pkg/view"
)

// Config holds all CLI configuration options.
type Config struct {
	SchemaPath   string                       `koanf:"schema_path"`
	StatePath    string                       `koanf:"state_path"`
	Verbose      bool                         `koanf:"verbose"`
	OutputFormat string                       `koanf:"output"`
	Server       ServerConfig                 `koanf:"server"`
	Session      SessionConfig                `koanf:"session"`
	RowStore     rowstore.Config              `koanf:"rowstore"`
	Tables       map[string]view.TableOptions `koanf:"tables"`

	// ConfigDir is the directory of the config file used, or the working directory.
	ConfigDir string `koanf:"-"`
}

// ServerConfig holds options for the HTTP server.
type ServerConfig struct {
	Port          int    `koanf:"port"`
	SessionSecret string `koanf:"session_secret"`
	Watch         bool   `koanf:"watch"`
	// EditorIdle is how long a browser's edit store is kept without requests.
	EditorIdle time.Duration `koanf:"editor_idle"`
}

// SessionConfig tunes edit sessions.
type SessionConfig struct {
	// WarnDuration is how long a validation warning stays visible.
	WarnDuration time.Duration `koanf:"warn_duration"`
	// EmitUnchanged emits commit events even when the value did not change.
	EmitUnchanged bool `koanf:"emit_unchanged"`
}

// Default configuration values.
const (
	ConfigFileName    = "gridcell.yaml"
	ConfigFileNameAlt = "gridcell.yml"
	DefaultSchemaFile = "template.yaml"
	DefaultStateFile  = ".gridcell/state.db"
	DefaultOutput     = "auto" // TTY=text, otherwise json
	DefaultPort       = 8766
	DefaultWarnFor    = time.Second
	DefaultEditorIdle = 30 * time.Minute
	EnvPrefix         = "GRIDCELL_"
)

// Output formats.
const (
	OutputAuto = "auto"
	OutputText = "text"
	OutputJSON = "json"
)
