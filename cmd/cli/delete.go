package main

import (
	"context"
	"fmt"

	cliapi "github.com/jaxxstorm/docuflow/internal/cli"
	"github.com/spf13/cobra"
)

func newDeleteCommand() *cobra.Command {
	var tenant string

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a tenant",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if tenant == "" {
				return fmt.Errorf("tenant is required")
			}

			client := cliapi.NewClient(cfg.APIURL)
			if err := client.DeleteTenant(context.Background(), tenant); err != nil {
				return err
			}

			cmd.Println(successStyle.Render("Tenant deleted"))
			return nil
		},
	}

	cmd.Flags().StringVar(&tenant, "tenant", "", "Tenant ID or slug")

	return cmd
}
