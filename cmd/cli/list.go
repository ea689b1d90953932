package main

import (
	"context"

	cliapi "github.com/jaxxstorm/docuflow/internal/cli"
	"github.com/spf13/cobra"
)

func newListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tenants",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client := cliapi.NewClient(cfg.APIURL)
			list, err := client.ListTenants(context.Background())
			if err != nil {
				return err
			}

			cmd.Println(renderTenantList(list.Tenants))
			return nil
		},
	}

	return cmd
}
