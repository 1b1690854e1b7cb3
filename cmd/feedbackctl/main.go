// Command feedbackctl submits and reads feedback against the configured
// provider without going through the HTTP server, and manages the
// PostgreSQL schema.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/NomadCrew/feedback-hub-backend/config"
	"github.com/NomadCrew/feedback-hub-backend/logger"
	"github.com/spf13/cobra"
)

// cli carries state shared by every subcommand.
type cli struct {
	cfg *config.Config
	out io.Writer
}

func newRootCmd(out io.Writer) *cobra.Command {
	c := &cli{out: out}

	root := &cobra.Command{
		Use:   "feedbackctl",
		Short: "Submit, read and watch feedback from the command line",
		Long: `feedbackctl talks to the feedback provider selected by FEEDBACK_PROVIDER
using the same environment configuration as the server.

Available subcommands:
  submit  - Validate and store one feedback entry
  latest  - Print the most recent feedback entry
  watch   - Stream latest-feedback states until interrupted
  migrate - Apply or roll back the PostgreSQL schema
  config  - Generate a YAML config file`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			c.cfg = cfg
			return nil
		},
	}
	root.SetOut(out)

	root.AddCommand(
		newSubmitCmd(c),
		newLatestCmd(c),
		newWatchCmd(c),
		newMigrateCmd(c),
		newConfigCmd(c),
	)
	return root
}

func (c *cli) printJSON(v interface{}) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func run() int {
	logger.InitLogger()
	defer func() { _ = logger.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(run())
}
