package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-isatty"
	"github.com/opensdd/youtrack-core/core"
	"github.com/opensdd/youtrack-core/core/entity"
	"github.com/spf13/cobra"
)

var outputFormats = []string{"table", "yaml", "json"}

func addOutputFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", "table", "output format: "+strings.Join(outputFormats, ", "))
}

func outputFormat(cmd *cobra.Command) (string, error) {
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return "", fmt.Errorf("getting output flag failed: %w", err)
	}
	if !slices.Contains(outputFormats, output) {
		return "", fmt.Errorf("unknown output format: %q", output)
	}
	return output, nil
}

func writeIssues(w io.Writer, output string, issues []*entity.Issue) error {
	var data []byte
	var err error
	switch output {
	case "yaml":
		data, err = core.MarshalIssues(issues)
	case "json":
		data, err = encodeIssuesAsJSON(issues)
	case "table":
		data = encodeIssuesAsTable(issues, isTerminal(w))
	default:
		err = fmt.Errorf("unknown output format: %q", output)
	}
	if err != nil {
		return fmt.Errorf("encoding issues as %q failed: %w", output, err)
	}
	_, err = w.Write(data)
	return err
}

func encodeIssuesAsJSON(issues []*entity.Issue) ([]byte, error) {
	docs := make([]core.Document, 0, len(issues))
	for _, issue := range issues {
		if issue != nil {
			docs = append(docs, core.NewDocument(issue))
		}
	}
	b, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

var (
	doneStatus = color.New(color.FgGreen).SprintFunc()
	openStatus = color.New(color.FgYellow).SprintFunc()
)

func statusCell(status string, colored bool) string {
	if !colored {
		return status
	}
	switch strings.ToLower(status) {
	case "fixed", "done", "closed", "verified", "resolved":
		return doneStatus(status)
	case "open", "submitted", "reopened", "in progress":
		return openStatus(status)
	}
	return status
}

func encodeIssuesAsTable(issues []*entity.Issue, colored bool) []byte {
	var buf bytes.Buffer
	t := table.NewWriter()
	t.SetOutputMirror(&buf)
	t.AppendHeader(table.Row{"ID", "Project", "Status", "Summary", "Parent", "Children", "Logged"})
	for _, issue := range issues {
		if issue == nil {
			continue
		}
		d := core.NewDocument(issue)
		t.AppendRow(table.Row{d.ID, d.Project, statusCell(d.Status, colored), d.Summary, d.Parent, strings.Join(d.Children, ", "), loggedMinutes(issue)})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, AutoMerge: true},
		{Number: 4, WidthMax: 60},
	})
	style := table.StyleLight
	style.Options.DrawBorder = false
	t.SetStyle(style)
	t.Render()
	return buf.Bytes()
}

func loggedMinutes(issue *entity.Issue) string {
	if len(issue.WorkItems) == 0 {
		return ""
	}
	total := 0
	for _, w := range issue.WorkItems {
		total += w.Duration
	}
	return fmt.Sprintf("%dm", total)
}
