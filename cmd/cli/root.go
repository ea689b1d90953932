package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docuflow-cli",
		Short: "CLI for interacting with the docuflow API",
		Long:  "A command-line tool for tenant, campaign, and document operations via the docuflow API.",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadCLIConfig(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().String("config", "", "Config file path")
	cmd.PersistentFlags().String("api-url", "http://localhost:8081", "docuflow API base URL (versioned paths are appended if missing)")

	if err := bindCLIFlags(cmd); err != nil {
		cmd.PrintErrln(fmt.Sprintf("failed to bind flags: %v", err))
	}

	cmd.AddCommand(newCreateCommand())
	cmd.AddCommand(newListCommand())
	cmd.AddCommand(newGetCommand())
	cmd.AddCommand(newSetCommand())
	cmd.AddCommand(newDeleteCommand())
	cmd.AddCommand(newIngestCommand())
	cmd.AddCommand(newStatusCommand())

	return cmd
}
