package main

import (
	"context"
	"fmt"

	cliapi "github.com/jaxxstorm/docuflow/internal/cli"
	"github.com/spf13/cobra"
)

func newGetCommand() *cobra.Command {
	var tenant string

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Get a tenant",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if tenant == "" {
				return fmt.Errorf("tenant is required")
			}

			client := cliapi.NewClient(cfg.APIURL)
			t, err := client.GetTenant(context.Background(), tenant)
			if err != nil {
				return err
			}

			cmd.Println(headerStyle.Render("Tenant details"))
			cmd.Println(renderTenantDetails(*t))
			return nil
		},
	}

	cmd.Flags().StringVar(&tenant, "tenant", "", "Tenant ID or slug")

	return cmd
}
