package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/gridcell/internal/cli/config"
	"github.com/leapstack-labs/gridcell/internal/server"
)

// devSessionSecret signs cookies when no secret is configured.
const devSessionSecret = "gridcell-dev-secret-change-in-production" //nolint:gosec

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the edit session HTTP server",
		Long: `Start a local HTTP server exposing edit sessions, view layouts, grouping
and footer aggregates as a JSON API. Session changes stream over SSE.

Commits are written to the commit log and, when rowstore.provider is set,
applied to the database that owns the rows.`,
		Example: `  # Start on the configured port
  gridcell serve

  # Start on a custom port without watching the schema
  gridcell serve --port 3000 --watch=false`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd)
		},
	}

	cmd.Flags().Int("port", 0, fmt.Sprintf("Port to serve on (default: %d)", config.DefaultPort))
	cmd.Flags().Bool("watch", true, "Reload the schema template when it changes")

	return cmd
}

func runServe(cmd *cobra.Command) error {
	c := NewCommandContext(cmd)
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	src, err := c.Source()
	if err != nil {
		return err
	}

	store, err := c.OpenState(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	srvCfg := server.Config{
		Source:        src,
		State:         store,
		Port:          c.Cfg.Server.Port,
		Watch:         c.Cfg.Server.Watch,
		SessionSecret: c.Cfg.Server.SessionSecret,
		Tables:        c.Cfg.Tables,
		WarnDuration:  c.Cfg.Session.WarnDuration,
		EmitUnchanged: c.Cfg.Session.EmitUnchanged,
		EditorIdle:    c.Cfg.Server.EditorIdle,
		Logger:        c.Logger,
	}
	if srvCfg.SessionSecret == "" {
		c.Renderer.Warning("server.session_secret is not set; using a development secret")
		srvCfg.SessionSecret = devSessionSecret
	}

	rows, err := c.OpenRows(ctx)
	if err != nil {
		return err
	}
	if rows != nil {
		defer func() { _ = rows.Close() }()
		srvCfg.Rows = rows
		c.Renderer.Muted("applying commits to %s", rows.Dialect().Name)
	}

	c.Renderer.Success("serving %s on http://localhost:%d", c.Cfg.SchemaPath, c.Cfg.Server.Port)
	c.Renderer.Muted("Press Ctrl+C to stop")

	return server.NewServer(srvCfg).Serve(ctx)
}
