package main

import (
	"github.com/NomadCrew/feedback-hub-backend/config"
	"github.com/spf13/cobra"
)

func newConfigCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or generate configuration",
		// Generating a template must work without a valid environment.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	}

	var env string
	template := &cobra.Command{
		Use:     "template",
		Short:   "Print a YAML config file for CONFIG_FILE",
		Example: "  feedbackctl config template --env production > config.prod.yaml",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.WriteConfigTemplate(c.out, config.Environment(env))
		},
	}
	template.Flags().StringVar(&env, "env", string(config.EnvDevelopment), "development or production")

	cmd.AddCommand(template)
	return cmd
}
