package main

import (
	"context"
	"fmt"

	cliapi "github.com/jaxxstorm/docuflow/internal/cli"
	"github.com/spf13/cobra"
)

func newIngestCommand() *cobra.Command {
	var tenantSlug string
	var campaignSlug string
	var file string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Upload a document to a campaign's pipeline",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if tenantSlug == "" {
				return fmt.Errorf("tenant is required")
			}
			if campaignSlug == "" {
				return fmt.Errorf("campaign is required")
			}
			if file == "" {
				return fmt.Errorf("file is required")
			}

			client := cliapi.NewClient(cfg.APIURL)
			doc, err := client.IngestDocument(context.Background(), tenantSlug, campaignSlug, file)
			if err != nil {
				return err
			}

			cmd.Println(successStyle.Render("Document accepted"))
			cmd.Println(renderDocumentDetails(*doc))
			return nil
		},
	}

	cmd.Flags().StringVar(&tenantSlug, "tenant", "", "Tenant slug")
	cmd.Flags().StringVar(&campaignSlug, "campaign", "", "Campaign slug")
	cmd.Flags().StringVar(&file, "file", "", "Path to the document to upload")

	return cmd
}
