package main

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/alfresco/alfresco-orchestrator/internal/domain"
	"github.com/alfresco/alfresco-orchestrator/internal/state"
)

func renderStatus(w io.Writer, snap state.Snapshot, rows []domain.Row, errs []string) {
	fmt.Fprintf(w, "Alfresco %s (%s)\n", snap.State, snap.Configuration)
	if len(snap.MissingImages) > 0 {
		fmt.Fprintf(w, "Missing images: %d\n", len(snap.MissingImages))
	}
	for _, e := range snap.Errors {
		fmt.Fprintf(w, "  error: %s\n", e)
	}

	if len(rows) == 0 {
		fmt.Fprintln(w, "No containers")
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Name", "State", "Status", "Image", "Version"})
	styleTable(table)
	for _, r := range rows {
		table.Append([]string{r.Name, r.State, r.Status, r.ImageName, r.Version})
	}
	table.Render()

	for _, e := range errs {
		fmt.Fprintf(w, "  %s\n", e)
	}
}

func styleTable(table *tablewriter.Table) {
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("─")
	table.SetColumnSeparator("│")
	table.SetRowSeparator("─")
	table.SetHeaderLine(true)
	table.SetBorder(true)
}
