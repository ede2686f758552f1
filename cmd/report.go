package cmd

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/campusfix/campusfix/internal/llm"
	"github.com/campusfix/campusfix/internal/stats"
	"github.com/campusfix/campusfix/internal/store"
)

var (
	reportNarrate bool
	reportFormat  string
	exportType    string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate reports",
	Long:  "Generate summary reports of issue activity.",
}

var reportWeeklyCmd = &cobra.Command{
	Use:   "weekly",
	Short: "Generate the weekly operations summary",
	Long: `Aggregate issue counts by category, urgency, location, and status,
plus SLA breaches, hotspot locations, and issues resolved in the trailing
7 days. With --narrate, a narrative summary is generated from the numbers;
the numeric summary is always printed regardless.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return reportWeeklyRun()
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export data as JSON, CSV, or Markdown",
	Long:  "Export issues or weekly stats in various formats.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return exportRun()
	},
}

func init() {
	reportWeeklyCmd.Flags().BoolVar(&reportNarrate, "narrate", false, "Generate a narrative summary of the numbers")
	reportCmd.AddCommand(reportWeeklyCmd)
	rootCmd.AddCommand(reportCmd)

	exportCmd.Flags().StringVar(&reportFormat, "format", "json", "Output format: json, csv, markdown")
	exportCmd.Flags().StringVar(&exportType, "type", "issues", "Data type: issues, stats")
	rootCmd.AddCommand(exportCmd)
}

func reportWeeklyRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	issues, err := s.ListIssues(ctx, store.IssueFilter{})
	if err != nil {
		return err
	}

	weekly := stats.Compute(issues, time.Now().UTC())

	fmt.Fprintln(ui.Out, "# Weekly Report")
	fmt.Fprintln(ui.Out)
	fmt.Fprintf(ui.Out, "- Total issues: %d\n", weekly.Total)
	fmt.Fprintf(ui.Out, "- SLA breaches: %d\n", weekly.SLABreaches)
	fmt.Fprintf(ui.Out, "- Resolved in last 7 days: %d\n", weekly.Resolved7d)
	fmt.Fprintln(ui.Out)

	printCounts("By category", weekly.ByCategory)
	printCounts("By urgency", weekly.ByUrgency)
	printCounts("By status", weekly.ByStatus)

	if len(weekly.Hotspots) > 0 {
		fmt.Fprintln(ui.Out, "## Hotspots")
		for _, h := range weekly.Hotspots {
			fmt.Fprintf(ui.Out, "- %s: %d\n", h.Location, h.Count)
		}
		fmt.Fprintln(ui.Out)
	}

	if !reportNarrate {
		return nil
	}

	narrative, err := narrateWeekly(ctx, weekly)
	if err != nil {
		// The numbers above are already printed; narration failure only
		// costs the prose.
		ui.Warning("Narration unavailable: %v", err)
		return nil
	}

	fmt.Fprintln(ui.Out, "## Narrative")
	fmt.Fprintln(ui.Out)
	fmt.Fprintln(ui.Out, narrative)
	return nil
}

func printCounts(heading string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	fmt.Fprintf(ui.Out, "## %s\n", heading)
	for key, n := range counts {
		fmt.Fprintf(ui.Out, "- %s: %d\n", key, n)
	}
	fmt.Fprintln(ui.Out)
}

func narrateWeekly(ctx context.Context, weekly *stats.Weekly) (string, error) {
	client := newLLMClient()
	text, err := client.Narrate(ctx, currentUserID(), weekly)
	if err != nil {
		switch {
		case errors.Is(err, llm.ErrUnauthenticated):
			return "", fmt.Errorf("login required: set user.id in the config file or CAMPUSFIX_USER_ID")
		case errors.Is(err, llm.ErrNoCredential):
			return "", fmt.Errorf("no API key configured: set anthropic.api_key or ANTHROPIC_API_KEY")
		}
		return "", err
	}
	return text, nil
}

func exportRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	switch exportType {
	case "issues":
		return exportIssues(ctx, s)
	case "stats":
		return exportStats(ctx, s)
	default:
		return fmt.Errorf("unknown export type: %s (use: issues, stats)", exportType)
	}
}

func exportIssues(ctx context.Context, s store.Store) error {
	issues, err := s.ListIssues(ctx, store.IssueFilter{})
	if err != nil {
		return err
	}

	switch reportFormat {
	case "json":
		enc := json.NewEncoder(ui.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(issues)
	case "csv":
		w := csv.NewWriter(ui.Out)
		w.Write([]string{"ID", "Title", "Category", "Urgency", "Location", "Status", "Assignee", "Created"})
		for _, i := range issues {
			w.Write([]string{i.ID, i.Title, string(i.Category), string(i.Urgency),
				i.Location, string(i.Status), string(i.AssignedTo), i.CreatedAt.Format("2006-01-02")})
		}
		w.Flush()
		return w.Error()
	case "markdown":
		fmt.Fprintln(ui.Out, "# Issues")
		fmt.Fprintln(ui.Out)
		fmt.Fprintln(ui.Out, "| Title | Category | Urgency | Status | Location |")
		fmt.Fprintln(ui.Out, "|-------|----------|---------|--------|----------|")
		for _, i := range issues {
			fmt.Fprintf(ui.Out, "| %s | %s | %s | %s | %s |\n", i.Title, i.Category, i.Urgency, i.Status, i.Location)
		}
		return nil
	default:
		return fmt.Errorf("unknown format: %s", reportFormat)
	}
}

func exportStats(ctx context.Context, s store.Store) error {
	issues, err := s.ListIssues(ctx, store.IssueFilter{})
	if err != nil {
		return err
	}
	weekly := stats.Compute(issues, time.Now().UTC())

	switch reportFormat {
	case "json":
		enc := json.NewEncoder(ui.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(weekly)
	case "csv":
		w := csv.NewWriter(ui.Out)
		w.Write([]string{"Metric", "Value"})
		w.Write([]string{"total", fmt.Sprintf("%d", weekly.Total)})
		w.Write([]string{"sla_breaches", fmt.Sprintf("%d", weekly.SLABreaches)})
		w.Write([]string{"resolved_last_7_days", fmt.Sprintf("%d", weekly.Resolved7d)})
		for cat, n := range weekly.ByCategory {
			w.Write([]string{"category." + cat, fmt.Sprintf("%d", n)})
		}
		w.Flush()
		return w.Error()
	case "markdown":
		fmt.Fprintln(ui.Out, "# Weekly Stats")
		fmt.Fprintln(ui.Out)
		fmt.Fprintln(ui.Out, "| Metric | Value |")
		fmt.Fprintln(ui.Out, "|--------|-------|")
		fmt.Fprintf(ui.Out, "| Total | %d |\n", weekly.Total)
		fmt.Fprintf(ui.Out, "| SLA breaches | %d |\n", weekly.SLABreaches)
		fmt.Fprintf(ui.Out, "| Resolved (7d) | %d |\n", weekly.Resolved7d)
		return nil
	default:
		return fmt.Errorf("unknown format: %s", reportFormat)
	}
}
