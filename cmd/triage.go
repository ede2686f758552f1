package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/campusfix/campusfix/internal/models"
	"github.com/campusfix/campusfix/internal/output"
	"github.com/campusfix/campusfix/internal/sla"
	"github.com/campusfix/campusfix/internal/store"
	"github.com/campusfix/campusfix/internal/triage"
)

var (
	triageStatus     string
	triageCategory   string
	triageUrgency    string
	triageAssignee   string
	triageUnassigned bool
	triageDeleted    bool
)

var triageCmd = &cobra.Command{
	Use:   "triage",
	Short: "Show the admin triage queue",
	Long: `Show the triage queue: issues ordered most-overdue and most-urgent
first (SLA flag, then urgency, then recency). All filter dimensions are
combined; an issue must match every one to appear.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return triageRun()
	},
}

func init() {
	triageCmd.Flags().StringVar(&triageStatus, "status", triage.All, "Filter by status or 'all'")
	triageCmd.Flags().StringVar(&triageCategory, "category", triage.All, "Filter by category or 'all'")
	triageCmd.Flags().StringVar(&triageUrgency, "urgency", triage.All, "Filter by urgency or 'all'")
	triageCmd.Flags().StringVar(&triageAssignee, "assignee", triage.All, "Filter by staff role, 'unassigned', or 'all'")
	triageCmd.Flags().BoolVar(&triageUnassigned, "unassigned", false, "Show only unassigned issues")
	triageCmd.Flags().BoolVar(&triageDeleted, "deleted", false, "Include soft-deleted issues")
	rootCmd.AddCommand(triageCmd)
}

func triageRun() error {
	if _, err := requireAdmin(); err != nil {
		return err
	}

	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	issues, err := s.ListIssues(ctx, store.IssueFilter{IncludeDeleted: true})
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	queue := triage.Apply(issues, triage.Filter{
		Status:         triageStatus,
		Category:       triageCategory,
		Urgency:        triageUrgency,
		Assignee:       triageAssignee,
		OnlyUnassigned: triageUnassigned,
		ShowDeleted:    triageDeleted,
	}, now)

	if len(queue) == 0 {
		ui.Info("Triage queue is empty.")
		return nil
	}

	renderQueue(queue, now)
	return nil
}

func renderQueue(queue []*models.Issue, now time.Time) {
	table := ui.Table([]string{"ID", "Title", "Category", "Urgency", "Status", "Assignee", "Flag", "Deadline"})
	for _, issue := range queue {
		_ = table.Append([]string{
			shortID(issue.ID),
			issue.Title,
			string(issue.Category),
			output.UrgencyColor(string(issue.Urgency)),
			output.StatusColor(string(issue.Status)),
			string(issue.AssignedTo),
			output.FlagColor(sla.Evaluate(issue, now)),
			output.SLAColor(sla.DisplayFor(issue, now)),
		})
	}
	_ = table.Render()
}
