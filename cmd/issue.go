package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/campusfix/campusfix/internal/classify"
	"github.com/campusfix/campusfix/internal/dedup"
	"github.com/campusfix/campusfix/internal/lifecycle"
	"github.com/campusfix/campusfix/internal/models"
	"github.com/campusfix/campusfix/internal/output"
	"github.com/campusfix/campusfix/internal/sla"
	"github.com/campusfix/campusfix/internal/store"
)

var (
	issueTitle     string
	issueDesc      string
	issueLocation  string
	issueAnonymous bool
	issueStatus    string
	issueCategory  string
	issueUrgency   string
	issueMine      bool
	issueDeleted   bool
	issueAssignee  string
	issueYes       bool
)

var issueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Submit and manage facilities issues",
	Long:  "Submit facilities complaints and track them through assignment to resolution.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueListRun()
	},
}

var issueSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a new issue",
	Long: `Submit a new facilities issue. The category and urgency are assigned
automatically from the title and description; likely duplicates reported in
the last 12 hours are flagged but never block the submission.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueSubmitRun()
	},
}

var issueListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List issues",
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueListRun()
	},
}

var issueShowCmd = &cobra.Command{
	Use:   "show <issue-id>",
	Short: "Show issue details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueShowRun(args[0])
	},
}

var issueHistoryCmd = &cobra.Command{
	Use:   "history <issue-id>",
	Short: "Show the status history of an issue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueHistoryRun(args[0])
	},
}

var issueAssignCmd = &cobra.Command{
	Use:   "assign <issue-id>",
	Short: "Assign an open issue to a staff role (admin)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueAssignRun(args[0])
	},
}

var issueStartCmd = &cobra.Command{
	Use:   "start <issue-id>",
	Short: "Mark an assigned issue as in progress (admin)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueAdvanceRun(args[0], models.IssueStatusInProgress)
	},
}

var issueResolveCmd = &cobra.Command{
	Use:   "resolve <issue-id>",
	Short: "Mark an issue as resolved (admin)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueAdvanceRun(args[0], models.IssueStatusResolved)
	},
}

var issueDeleteCmd = &cobra.Command{
	Use:   "delete <issue-id>",
	Short: "Soft-delete a resolved issue (admin)",
	Long: `Soft-delete a resolved issue. The record is hidden from default views
but never physically removed; the deletion is recorded in the status history.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueDeleteRun(args[0])
	},
}

func init() {
	issueSubmitCmd.Flags().StringVar(&issueTitle, "title", "", "Issue title (required)")
	issueSubmitCmd.Flags().StringVar(&issueDesc, "desc", "", "Issue description")
	issueSubmitCmd.Flags().StringVar(&issueLocation, "location", "", "Campus zone, e.g. 'Hostel A'")
	issueSubmitCmd.Flags().BoolVar(&issueAnonymous, "anonymous", false, "Hide your identity from other students")
	_ = issueSubmitCmd.MarkFlagRequired("title")

	issueListCmd.Flags().StringVar(&issueStatus, "status", "", "Filter by status: open, assigned, in_progress, resolved")
	issueListCmd.Flags().StringVar(&issueCategory, "category", "", "Filter by category")
	issueListCmd.Flags().StringVar(&issueUrgency, "urgency", "", "Filter by urgency")
	issueListCmd.Flags().StringVar(&issueLocation, "location", "", "Filter by exact location")
	issueListCmd.Flags().BoolVar(&issueMine, "mine", false, "Show only my issues")
	issueListCmd.Flags().BoolVar(&issueDeleted, "deleted", false, "Include soft-deleted issues")

	issueAssignCmd.Flags().StringVar(&issueAssignee, "to", "", "Staff role: plumber, electrician, wifi_team, mess_supervisor, maintenance")
	_ = issueAssignCmd.MarkFlagRequired("to")

	issueDeleteCmd.Flags().BoolVar(&issueYes, "yes", false, "Confirm deletion without prompting")

	issueCmd.AddCommand(issueSubmitCmd)
	issueCmd.AddCommand(issueListCmd)
	issueCmd.AddCommand(issueShowCmd)
	issueCmd.AddCommand(issueHistoryCmd)
	issueCmd.AddCommand(issueAssignCmd)
	issueCmd.AddCommand(issueStartCmd)
	issueCmd.AddCommand(issueResolveCmd)
	issueCmd.AddCommand(issueDeleteCmd)
	rootCmd.AddCommand(issueCmd)
}

func issueSubmitRun() error {
	userID, err := requireLogin()
	if err != nil {
		return err
	}

	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	if strings.TrimSpace(issueTitle) == "" {
		return fmt.Errorf("title must not be empty")
	}

	result := classify.Classify(issueTitle, issueDesc)
	now := time.Now().UTC()

	dupID, dupScore := dedup.FindDuplicate(ctx, s, dedup.Candidate{
		Category:    result.Category,
		Location:    issueLocation,
		Title:       issueTitle,
		Description: issueDesc,
	}, now, viper.GetFloat64("dedup.threshold"))

	issue := &models.Issue{
		Title:               issueTitle,
		Description:         issueDesc,
		Category:            result.Category,
		Urgency:             result.Urgency,
		UrgencyScore:        classify.ScoreUrgency(result.Urgency),
		Location:            issueLocation,
		Status:              models.IssueStatusOpen,
		IsAnonymous:         issueAnonymous,
		CreatedBy:           userID,
		AutoReason:          result.Reason,
		PossibleDuplicateOf: dupID,
		DuplicateGroupID:    dedup.GroupFingerprint(result.Category, issueLocation, issueTitle, issueDesc),
	}

	if dryRun {
		ui.DryRunMsg("Would submit issue: %s [%s/%s]", issueTitle, result.Category, result.Urgency)
		return nil
	}

	if err := s.CreateIssue(ctx, issue); err != nil {
		return fmt.Errorf("create issue: %w", err)
	}

	ui.Success("Submitted issue %s: %s", output.Cyan(shortID(issue.ID)), issue.Title)
	ui.Info("Classified as %s / %s", issue.Category, output.UrgencyColor(string(issue.Urgency)))
	ui.VerboseLog("Reason: %s", issue.AutoReason)
	if dupID != "" {
		ui.Warning("Possible duplicate of %s (similarity %.2f)", shortID(dupID), dupScore)
	}
	return nil
}

func issueListRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	filter := store.IssueFilter{
		Status:         models.IssueStatus(issueStatus),
		Category:       models.IssueCategory(issueCategory),
		Urgency:        models.IssueUrgency(issueUrgency),
		Location:       issueLocation,
		IncludeDeleted: issueDeleted,
	}
	if issueMine {
		filter.CreatedBy = currentUserID()
	}

	issues, err := s.ListIssues(ctx, filter)
	if err != nil {
		return err
	}

	if len(issues) == 0 {
		ui.Info("No issues found.")
		return nil
	}

	now := time.Now().UTC()
	table := ui.Table([]string{"ID", "Title", "Category", "Urgency", "Status", "Assignee", "SLA", "Reported"})
	for _, issue := range issues {
		_ = table.Append([]string{
			shortID(issue.ID),
			issue.Title,
			string(issue.Category),
			output.UrgencyColor(string(issue.Urgency)),
			output.StatusColor(string(issue.Status)),
			string(issue.AssignedTo),
			output.FlagColor(sla.Evaluate(issue, now)),
			reportedBy(issue),
		})
	}
	_ = table.Render()
	return nil
}

// reportedBy hides the reporter's identity on anonymous issues, except
// from admins and the reporter themselves.
func reportedBy(issue *models.Issue) string {
	if !issue.IsAnonymous {
		return issue.CreatedBy
	}
	if currentUserRole() == models.UserRoleAdmin || issue.CreatedBy == currentUserID() {
		return issue.CreatedBy + " (anon)"
	}
	return "anonymous"
}

func issueShowRun(id string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	issue, err := findIssue(ctx, s, id)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	fmt.Fprintf(ui.Out, "%s  %s\n", output.Cyan(shortID(issue.ID)), issue.Title)
	fmt.Fprintf(ui.Out, "  Category:   %s\n", issue.Category)
	fmt.Fprintf(ui.Out, "  Urgency:    %s\n", output.UrgencyColor(string(issue.Urgency)))
	fmt.Fprintf(ui.Out, "  Status:     %s\n", output.StatusColor(string(issue.Status)))
	fmt.Fprintf(ui.Out, "  SLA:        %s (%s)\n",
		output.FlagColor(sla.Evaluate(issue, now)),
		output.SLAColor(sla.DisplayFor(issue, now)))
	if issue.Location != "" {
		fmt.Fprintf(ui.Out, "  Location:   %s\n", issue.Location)
	}
	if issue.Description != "" {
		fmt.Fprintf(ui.Out, "  Desc:       %s\n", issue.Description)
	}
	if issue.Assigned() {
		fmt.Fprintf(ui.Out, "  Assignee:   %s\n", issue.AssignedTo)
	}
	if issue.AutoReason != "" {
		fmt.Fprintf(ui.Out, "  Reason:     %s\n", issue.AutoReason)
	}
	if issue.PossibleDuplicateOf != "" {
		fmt.Fprintf(ui.Out, "  Duplicate?: %s\n", output.Yellow(shortID(issue.PossibleDuplicateOf)))
	}
	fmt.Fprintf(ui.Out, "  Reported:   %s by %s\n", issue.CreatedAt.Format(time.RFC3339), reportedBy(issue))
	if issue.IsDeleted && issue.DeletedAt != nil {
		fmt.Fprintf(ui.Out, "  Deleted:    %s\n", issue.DeletedAt.Format(time.RFC3339))
	}
	if actions := lifecycle.AvailableActions(issue); len(actions) > 0 {
		var names []string
		for _, a := range actions {
			names = append(names, string(a))
		}
		fmt.Fprintf(ui.Out, "  Next:       %s\n", strings.Join(names, ", "))
	}
	fmt.Fprintf(ui.Out, "  Full ID:    %s\n", issue.ID)

	return nil
}

func issueHistoryRun(id string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	issue, err := findIssue(ctx, s, id)
	if err != nil {
		return err
	}

	table := ui.Table([]string{"Status", "At", "Note"})
	for _, e := range issue.StatusHistory {
		_ = table.Append([]string{
			output.StatusColor(string(e.Status)),
			e.At.Format(time.RFC3339),
			e.Note,
		})
	}
	_ = table.Render()
	return nil
}

func issueAssignRun(id string) error {
	adminID, err := requireAdmin()
	if err != nil {
		return err
	}

	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	issue, err := findIssue(ctx, s, id)
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would assign issue %s to %s", shortID(issue.ID), issueAssignee)
		return nil
	}

	if err := lifecycle.Assign(ctx, s, issue, models.StaffRole(issueAssignee), adminID, time.Now()); err != nil {
		return fmt.Errorf("assign issue: %w", err)
	}

	ui.Success("Assigned issue %s to %s", output.Cyan(shortID(issue.ID)), issueAssignee)
	return nil
}

func issueAdvanceRun(id string, next models.IssueStatus) error {
	if _, err := requireAdmin(); err != nil {
		return err
	}

	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	issue, err := findIssue(ctx, s, id)
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would advance issue %s to %s", shortID(issue.ID), next)
		return nil
	}

	if err := lifecycle.Advance(ctx, s, issue, next, time.Now()); err != nil {
		return fmt.Errorf("advance issue: %w", err)
	}

	ui.Success("Issue %s is now %s", output.Cyan(shortID(issue.ID)), output.StatusColor(string(next)))
	return nil
}

func issueDeleteRun(id string) error {
	adminID, err := requireAdmin()
	if err != nil {
		return err
	}

	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	issue, err := findIssue(ctx, s, id)
	if err != nil {
		return err
	}

	if !issueYes {
		return fmt.Errorf("deleting %s requires confirmation: re-run with --yes", shortID(issue.ID))
	}

	if dryRun {
		ui.DryRunMsg("Would delete issue %s: %s", shortID(issue.ID), issue.Title)
		return nil
	}

	if err := lifecycle.SoftDelete(ctx, s, issue, adminID, time.Now()); err != nil {
		return fmt.Errorf("delete issue: %w", err)
	}

	ui.Success("Deleted issue %s: %s", output.Cyan(shortID(issue.ID)), issue.Title)
	return nil
}

// findIssue finds an issue by full ID or prefix match.
func findIssue(ctx context.Context, s store.Store, id string) (*models.Issue, error) {
	// Try exact match first
	if issue, err := s.GetIssue(ctx, id); err == nil {
		return issue, nil
	}

	// Try prefix match - list all and filter
	upper := strings.ToUpper(id)
	issues, err := s.ListIssues(ctx, store.IssueFilter{IncludeDeleted: true})
	if err != nil {
		return nil, err
	}

	var matches []*models.Issue
	for _, issue := range issues {
		if strings.HasPrefix(issue.ID, upper) {
			matches = append(matches, issue)
		}
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("issue not found: %s", id)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("ambiguous issue ID %s: matches %d issues", id, len(matches))
	}
}

// shortID returns a truncated ULID for display (first 12 chars).
func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
