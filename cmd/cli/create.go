package main

import (
	"context"
	"fmt"

	"github.com/jaxxstorm/docuflow/internal/api/models"
	cliapi "github.com/jaxxstorm/docuflow/internal/cli"
	"github.com/spf13/cobra"
)

func newCreateCommand() *cobra.Command {
	var slug string
	var settings string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a tenant",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if slug == "" {
				return fmt.Errorf("slug is required")
			}

			req := models.CreateTenantRequest{Slug: slug}
			if settings != "" {
				parsed, err := parseConfigInput(settings)
				if err != nil {
					return err
				}
				req.Settings = parsed
			}

			client := cliapi.NewClient(cfg.APIURL)
			tenant, err := client.CreateTenant(context.Background(), req)
			if err != nil {
				return err
			}

			cmd.Println(successStyle.Render("Tenant created"))
			cmd.Println(renderTenantDetails(*tenant))
			return nil
		},
	}

	cmd.Flags().StringVar(&slug, "slug", "", "Tenant slug")
	cmd.Flags().StringVar(&settings, "settings", "", "Settings JSON/YAML or path to a file")

	return cmd
}
