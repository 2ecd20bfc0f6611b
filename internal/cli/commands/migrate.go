package commands

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/gridcell/internal/cli/output"
)

// NewMigrateCommand creates the migrate command group for the state database.
func NewMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the state database schema",
		Long: `Manage migrations of the state database that holds the commit log and
saved views. Pending migrations also run whenever the database is opened.`,
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the applied migration version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate(cmd, func(c *CommandContext, v int64) error {
				if c.Renderer.EffectiveMode() == output.ModeJSON {
					return c.Renderer.JSON(map[string]any{"path": c.Cfg.StatePath, "version": v})
				}
				c.Renderer.Printf("%s at version %d\n", c.Cfg.StatePath, v)
				return nil
			})
		},
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate(cmd, func(c *CommandContext, v int64) error {
				c.Renderer.Success("state database at version %d", v)
				return nil
			})
		},
	}

	down := &cobra.Command{
		Use:     "down <version>",
		Short:   "Roll migrations back to a version",
		Example: `  gridcell migrate down 0`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return err
			}
			c := NewCommandContext(cmd)
			store, err := c.OpenState(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.MigrateDownTo(cmd.Context(), target); err != nil {
				return err
			}
			c.Renderer.Success("rolled back to version %d", target)
			return nil
		},
	}

	cmd.AddCommand(status, up, down)
	return cmd
}

// runMigrate opens the state database, which applies pending migrations,
// and reports the resulting version.
func runMigrate(cmd *cobra.Command, report func(*CommandContext, int64) error) error {
	c := NewCommandContext(cmd)
	store, err := c.OpenState(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	v, err := store.MigrationVersion(cmd.Context())
	if err != nil {
		return err
	}
	return report(c, v)
}
