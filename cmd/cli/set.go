package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/jaxxstorm/docuflow/internal/api/models"
	cliapi "github.com/jaxxstorm/docuflow/internal/cli"
	"github.com/jaxxstorm/docuflow/internal/tenant"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newSetCommand() *cobra.Command {
	var tenantTarget string
	var status string
	var settings string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update a tenant's status or settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if tenantTarget == "" {
				return fmt.Errorf("tenant is required")
			}
			if status == "" && settings == "" {
				return fmt.Errorf("at least one of --status or --settings is required")
			}

			req := models.UpdateTenantRequest{}
			if status != "" {
				s := tenant.Status(status)
				req.Status = &s
			}
			if settings != "" {
				parsed, err := parseConfigInput(settings)
				if err != nil {
					return err
				}
				req.Settings = parsed
			}

			client := cliapi.NewClient(cfg.APIURL)
			t, err := client.UpdateTenant(context.Background(), tenantTarget, req)
			if err != nil {
				return err
			}

			cmd.Println(successStyle.Render("Tenant updated"))
			cmd.Println(renderTenantDetails(*t))
			return nil
		},
	}

	cmd.Flags().StringVar(&tenantTarget, "tenant", "", "Tenant ID or slug")
	cmd.Flags().StringVar(&status, "status", "", "New tenant status (active, suspended)")
	cmd.Flags().StringVar(&settings, "settings", "", "Settings JSON/YAML or path to a file")

	return cmd
}

func parseConfigInput(value string) (map[string]interface{}, error) {
	if value == "" {
		return nil, nil
	}

	raw := []byte(value)
	sourcePath := ""

	if strings.HasPrefix(value, "file://") {
		path, err := parseFileURI(value)
		if err != nil {
			return nil, err
		}
		sourcePath = path
	} else if info, err := os.Stat(value); err == nil && !info.IsDir() {
		sourcePath = value
	}

	if sourcePath != "" {
		data, err := os.ReadFile(sourcePath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		raw = data
	}

	ext := strings.ToLower(filepath.Ext(sourcePath))
	switch ext {
	case ".json":
		return parseConfigJSON(raw)
	case ".yaml", ".yml":
		return parseConfigYAML(raw)
	}

	if parsed, err := parseConfigJSON(raw); err == nil {
		return parsed, nil
	} else if parsed, yamlErr := parseConfigYAML(raw); yamlErr == nil {
		return parsed, nil
	} else {
		return nil, fmt.Errorf("parse config input: %v; %v", err, yamlErr)
	}
}

func parseConfigJSON(raw []byte) (map[string]interface{}, error) {
	var parsed map[string]interface{}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse config JSON: %w", err)
	}
	return parsed, nil
}

func parseConfigYAML(raw []byte) (map[string]interface{}, error) {
	var parsed map[string]interface{}
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse config YAML: %w", err)
	}
	return parsed, nil
}

func parseFileURI(value string) (string, error) {
	parsed, err := url.Parse(value)
	if err != nil {
		return "", fmt.Errorf("parse config file URI: %w", err)
	}
	if parsed.Scheme != "file" {
		return "", fmt.Errorf("unsupported config URI scheme: %s", parsed.Scheme)
	}
	path := parsed.Path
	if parsed.Host != "" && parsed.Host != "localhost" {
		// For file:// URLs with relative paths like file://docs/path,
		// the URL parser treats "docs" as the host. Reconstruct the relative path.
		path = parsed.Host + path
	}
	if path == "" {
		path = parsed.Opaque
	}
	if path == "" {
		return "", fmt.Errorf("config file URI missing path")
	}
	unescaped, err := url.PathUnescape(path)
	if err != nil {
		return "", fmt.Errorf("decode config file URI: %w", err)
	}
	if strings.HasPrefix(unescaped, "~") {
		return "", fmt.Errorf("config file URI must use an absolute or relative path, got %s", unescaped)
	}
	return unescaped, nil
}
