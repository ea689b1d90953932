package main

import (
	"context"
	"fmt"

	cliapi "github.com/jaxxstorm/docuflow/internal/cli"
	"github.com/spf13/cobra"
)

func newStatusCommand() *cobra.Command {
	var tenantSlug string
	var documentID string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Get a document's processing status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if tenantSlug == "" {
				return fmt.Errorf("tenant is required")
			}
			if documentID == "" {
				return fmt.Errorf("document is required")
			}

			client := cliapi.NewClient(cfg.APIURL)
			doc, err := client.GetDocumentStatus(context.Background(), tenantSlug, documentID)
			if err != nil {
				return err
			}

			cmd.Println(headerStyle.Render("Document status"))
			cmd.Println(renderDocumentDetails(*doc))
			return nil
		},
	}

	cmd.Flags().StringVar(&tenantSlug, "tenant", "", "Tenant slug")
	cmd.Flags().StringVar(&documentID, "document", "", "Document public UUID")

	return cmd
}
