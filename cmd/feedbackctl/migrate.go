package main

import (
	"fmt"

	"github.com/NomadCrew/feedback-hub-backend/db"
	"github.com/spf13/cobra"
)

func newMigrateCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the PostgreSQL schema",
		Long: `Runs the embedded migrations against the database configured by the
DB_* environment variables, whichever provider is selected.`,
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := db.RunMigrations(c.cfg.Database.URL()); err != nil {
				return err
			}
			fmt.Fprintln(c.out, "migrations applied")
			return nil
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back applied migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := db.RollbackMigrations(c.cfg.Database.URL(), steps); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "rolled back %d migration(s)\n", steps)
			return nil
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	cmd.AddCommand(up, down)
	return cmd
}
