package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/jaxxstorm/docuflow/internal/api/models"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#04B575"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF5F5F"))
	labelStyle   = lipgloss.NewStyle().Bold(true)
)

func renderTenantList(tenants []models.TenantResponse) string {
	headers := []string{"ID", "Slug", "Status", "Version"}
	rows := make([][]string, 0, len(tenants))

	for _, t := range tenants {
		rows = append(rows, []string{t.ID, t.Slug, formatStatus(t.Status), fmt.Sprintf("%d", t.Version)})
	}

	widths := columnWidths(headers, rows)
	var lines []string
	lines = append(lines, headerStyle.Render(formatRow(headers, widths)))
	for _, row := range rows {
		lines = append(lines, formatRow(row, widths))
	}

	return strings.Join(lines, "\n")
}

func renderTenantDetails(tenant models.TenantResponse) string {
	lines := []string{
		fmt.Sprintf("%s %s", labelStyle.Render("ID:"), tenant.ID),
		fmt.Sprintf("%s %s", labelStyle.Render("Slug:"), tenant.Slug),
		fmt.Sprintf("%s %s", labelStyle.Render("Status:"), formatStatus(tenant.Status)),
	}

	if len(tenant.Settings) > 0 {
		lines = append(lines, fmt.Sprintf("%s %s", labelStyle.Render("Settings:"), formatMap(tenant.Settings)))
	}

	if !tenant.CreatedAt.IsZero() {
		lines = append(lines, fmt.Sprintf("%s %s", labelStyle.Render("Created At:"), tenant.CreatedAt.Format(time.RFC3339)))
	}

	if !tenant.UpdatedAt.IsZero() {
		lines = append(lines, fmt.Sprintf("%s %s", labelStyle.Render("Updated At:"), tenant.UpdatedAt.Format(time.RFC3339)))
	}

	if tenant.Version != 0 {
		lines = append(lines, fmt.Sprintf("%s %d", labelStyle.Render("Version:"), tenant.Version))
	}

	return strings.Join(lines, "\n")
}

func renderDocumentDetails(doc models.DocumentResponse) string {
	lines := []string{
		fmt.Sprintf("%s %s", labelStyle.Render("ID:"), doc.ID),
		fmt.Sprintf("%s %s", labelStyle.Render("Campaign ID:"), doc.CampaignID),
		fmt.Sprintf("%s %s", labelStyle.Render("Filename:"), doc.Filename),
		fmt.Sprintf("%s %s", labelStyle.Render("Status:"), formatStatus(doc.Status)),
	}

	if doc.Mime != "" {
		lines = append(lines, fmt.Sprintf("%s %s", labelStyle.Render("Mime:"), doc.Mime))
	}

	if doc.Size != 0 {
		lines = append(lines, fmt.Sprintf("%s %d", labelStyle.Render("Size:"), doc.Size))
	}

	if doc.RetryCount != 0 {
		lines = append(lines, fmt.Sprintf("%s %d", labelStyle.Render("Retry Count:"), doc.RetryCount))
	}

	if len(doc.Metadata) > 0 {
		lines = append(lines, fmt.Sprintf("%s %s", labelStyle.Render("Metadata:"), formatMap(doc.Metadata)))
	}

	if doc.ProcessedAt != nil {
		lines = append(lines, fmt.Sprintf("%s %s", labelStyle.Render("Processed At:"), doc.ProcessedAt.Format(time.RFC3339)))
	}

	if doc.FailedAt != nil {
		lines = append(lines, fmt.Sprintf("%s %s", labelStyle.Render("Failed At:"), doc.FailedAt.Format(time.RFC3339)))
	}

	if !doc.CreatedAt.IsZero() {
		lines = append(lines, fmt.Sprintf("%s %s", labelStyle.Render("Created At:"), doc.CreatedAt.Format(time.RFC3339)))
	}

	return strings.Join(lines, "\n")
}

func formatStatus(status string) string {
	switch status {
	case "active", "completed":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Render(status)
	case "failed":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F")).Render(status)
	case "suspended", "processing":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#F5A623")).Render(status)
	default:
		return status
	}
}

func formatMap(value any) string {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprintf("%v", value)
	}
	return string(data)
}

func columnWidths(headers []string, rows [][]string) []int {
	widths := make([]int, len(headers))
	for i, header := range headers {
		widths[i] = len(header)
	}
	for _, row := range rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}
	return widths
}

func formatRow(cells []string, widths []int) string {
	parts := make([]string, 0, len(cells))
	for i, cell := range cells {
		parts = append(parts, padRight(cell, widths[i]+2))
	}
	return strings.TrimRight(strings.Join(parts, ""), " ")
}

func padRight(value string, width int) string {
	if len(value) >= width {
		return value
	}
	return fmt.Sprintf("%-*s", width, value)
}
