// Package mcp exposes the campusfix data layer as MCP tools over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/campusfix/campusfix/internal/classify"
	"github.com/campusfix/campusfix/internal/dedup"
	"github.com/campusfix/campusfix/internal/lifecycle"
	"github.com/campusfix/campusfix/internal/models"
	"github.com/campusfix/campusfix/internal/sla"
	"github.com/campusfix/campusfix/internal/stats"
	"github.com/campusfix/campusfix/internal/store"
	"github.com/campusfix/campusfix/internal/triage"
)

// Server wraps the campusfix data layer and exposes it as MCP tools.
// The actor identity and role come from local configuration; admin-only
// tools reject callers without the admin role.
type Server struct {
	store          store.Store
	actorID        string
	actorRole      models.UserRole
	dedupThreshold float64
}

// NewServer creates the MCP server wrapper.
func NewServer(s store.Store, actorID string, actorRole models.UserRole, dedupThreshold float64) *Server {
	if dedupThreshold <= 0 {
		dedupThreshold = dedup.DefaultThreshold
	}
	return &Server{
		store:          s,
		actorID:        actorID,
		actorRole:      actorRole,
		dedupThreshold: dedupThreshold,
	}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("campusfix", "1.0.0", server.WithToolCapabilities(true))

	srv.AddTool(s.submitIssueTool())
	srv.AddTool(s.listIssuesTool())
	srv.AddTool(s.triageQueueTool())
	srv.AddTool(s.assignIssueTool())
	srv.AddTool(s.advanceIssueTool())
	srv.AddTool(s.deleteIssueTool())
	srv.AddTool(s.weeklyStatsTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

func (s *Server) requireAdmin() *mcp.CallToolResult {
	if s.actorRole != models.UserRoleAdmin {
		return mcp.NewToolResultError("admin role required")
	}
	return nil
}

// findIssue finds an issue by full ID or unique prefix.
func (s *Server) findIssue(ctx context.Context, id string) (*models.Issue, error) {
	if issue, err := s.store.GetIssue(ctx, id); err == nil {
		return issue, nil
	}

	upper := strings.ToUpper(id)
	issues, err := s.store.ListIssues(ctx, store.IssueFilter{IncludeDeleted: true})
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

type issueOut struct {
	ID                  string `json:"id"`
	Title               string `json:"title"`
	Description         string `json:"description,omitempty"`
	Category            string `json:"category"`
	Urgency             string `json:"urgency"`
	UrgencyScore        int    `json:"urgency_score"`
	Location            string `json:"location,omitempty"`
	Status              string `json:"status"`
	AssignedTo          string `json:"assigned_to,omitempty"`
	AutoReason          string `json:"auto_reason,omitempty"`
	PossibleDuplicateOf string `json:"possible_duplicate_of,omitempty"`
	SLAFlag             string `json:"sla_flag"`
	SLADisplay          string `json:"sla_display"`
	CreatedAt           string `json:"created_at"`
	UpdatedAt           string `json:"updated_at"`
}

func toIssueOut(issue *models.Issue, now time.Time) issueOut {
	return issueOut{
		ID:                  issue.ID,
		Title:               issue.Title,
		Description:         issue.Description,
		Category:            string(issue.Category),
		Urgency:             string(issue.Urgency),
		UrgencyScore:        issue.UrgencyScore,
		Location:            issue.Location,
		Status:              string(issue.Status),
		AssignedTo:          string(issue.AssignedTo),
		AutoReason:          issue.AutoReason,
		PossibleDuplicateOf: issue.PossibleDuplicateOf,
		SLAFlag:             sla.Evaluate(issue, now).String(),
		SLADisplay:          sla.DisplayFor(issue, now).Label,
		CreatedAt:           issue.CreatedAt.Format(time.RFC3339),
		UpdatedAt:           issue.UpdatedAt.Format(time.RFC3339),
	}
}

func marshalResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// ---------------------------------------------------------------------------
// Tool definitions and handlers
// ---------------------------------------------------------------------------

// campusfix_submit_issue
func (s *Server) submitIssueTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("campusfix_submit_issue",
		mcp.WithDescription("Submit a new facilities issue. The category and urgency are assigned automatically from the text; likely duplicates within the last 12 hours are flagged but never block submission. Returns the created issue as JSON."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Short issue title")),
		mcp.WithString("description", mcp.Description("Free-text details")),
		mcp.WithString("location", mcp.Description("Campus zone, e.g. 'Hostel A'")),
		mcp.WithBoolean("anonymous", mcp.Description("Hide the reporter's identity from other students")),
	)
	return tool, s.handleSubmitIssue
}

func (s *Server) handleSubmitIssue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := request.RequireString("title")
	if err != nil || strings.TrimSpace(title) == "" {
		return mcp.NewToolResultError("missing required parameter: title"), nil
	}
	description := request.GetString("description", "")
	location := request.GetString("location", "")
	anonymous := request.GetBool("anonymous", false)

	result := classify.Classify(title, description)
	now := time.Now().UTC()

	dupID, _ := dedup.FindDuplicate(ctx, s.store, dedup.Candidate{
		Category:    result.Category,
		Location:    location,
		Title:       title,
		Description: description,
	}, now, s.dedupThreshold)

	issue := &models.Issue{
		Title:               title,
		Description:         description,
		Category:            result.Category,
		Urgency:             result.Urgency,
		UrgencyScore:        classify.ScoreUrgency(result.Urgency),
		Location:            location,
		Status:              models.IssueStatusOpen,
		IsAnonymous:         anonymous,
		CreatedBy:           s.actorID,
		AutoReason:          result.Reason,
		PossibleDuplicateOf: dupID,
		DuplicateGroupID:    dedup.GroupFingerprint(result.Category, location, title, description),
	}

	if err := s.store.CreateIssue(ctx, issue); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to create issue: %v", err)), nil
	}

	return marshalResult(toIssueOut(issue, now))
}

// campusfix_list_issues
func (s *Server) listIssuesTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("campusfix_list_issues",
		mcp.WithDescription("List issues, optionally filtered by status, category, urgency, and/or location. Returns a JSON array of issues with computed SLA flags."),
		mcp.WithString("status", mcp.Description("Status filter: open, assigned, in_progress, resolved")),
		mcp.WithString("category", mcp.Description("Category filter: water, electricity, wifi, mess, maintenance, other")),
		mcp.WithString("urgency", mcp.Description("Urgency filter: low, medium, high")),
		mcp.WithString("location", mcp.Description("Exact location filter")),
	)
	return tool, s.handleListIssues
}

func (s *Server) handleListIssues(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := store.IssueFilter{
		Status:   models.IssueStatus(request.GetString("status", "")),
		Category: models.IssueCategory(request.GetString("category", "")),
		Urgency:  models.IssueUrgency(request.GetString("urgency", "")),
		Location: request.GetString("location", ""),
	}

	issues, err := s.store.ListIssues(ctx, filter)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list issues: %v", err)), nil
	}

	now := time.Now().UTC()
	out := make([]issueOut, len(issues))
	for i, issue := range issues {
		out[i] = toIssueOut(issue, now)
	}
	return marshalResult(out)
}

// campusfix_triage_queue
func (s *Server) triageQueueTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("campusfix_triage_queue",
		mcp.WithDescription("Admin triage queue: issues ordered most-overdue and most-urgent first (SLA flag, then urgency score, then recency). Supports compound filters; all dimensions must match."),
		mcp.WithString("status", mcp.Description("Status filter or 'all'")),
		mcp.WithString("category", mcp.Description("Category filter or 'all'")),
		mcp.WithString("urgency", mcp.Description("Urgency filter or 'all'")),
		mcp.WithString("assignee", mcp.Description("Staff role, 'unassigned', or 'all'")),
		mcp.WithBoolean("only_unassigned", mcp.Description("Restrict to unassigned issues")),
		mcp.WithBoolean("show_deleted", mcp.Description("Include soft-deleted issues")),
	)
	return tool, s.handleTriageQueue
}

func (s *Server) handleTriageQueue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if res := s.requireAdmin(); res != nil {
		return res, nil
	}

	issues, err := s.store.ListIssues(ctx, store.IssueFilter{IncludeDeleted: true})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list issues: %v", err)), nil
	}

	now := time.Now().UTC()
	queue := triage.Apply(issues, triage.Filter{
		Status:         request.GetString("status", triage.All),
		Category:       request.GetString("category", triage.All),
		Urgency:        request.GetString("urgency", triage.All),
		Assignee:       request.GetString("assignee", triage.All),
		OnlyUnassigned: request.GetBool("only_unassigned", false),
		ShowDeleted:    request.GetBool("show_deleted", false),
	}, now)

	out := make([]issueOut, len(queue))
	for i, issue := range queue {
		out[i] = toIssueOut(issue, now)
	}
	return marshalResult(out)
}

// campusfix_assign_issue
func (s *Server) assignIssueTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("campusfix_assign_issue",
		mcp.WithDescription("Assign an open issue to a staff role, advancing it to 'assigned'. Admin only. Valid roles: plumber, electrician, wifi_team, mess_supervisor, maintenance."),
		mcp.WithString("issue_id", mcp.Required(), mcp.Description("Issue ID (full ULID or unique prefix)")),
		mcp.WithString("role", mcp.Required(), mcp.Description("Staff role to assign")),
	)
	return tool, s.handleAssignIssue
}

func (s *Server) handleAssignIssue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if res := s.requireAdmin(); res != nil {
		return res, nil
	}

	issueID, err := request.RequireString("issue_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: issue_id"), nil
	}
	role, err := request.RequireString("role")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: role"), nil
	}

	issue, err := s.findIssue(ctx, issueID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := lifecycle.Assign(ctx, s.store, issue, models.StaffRole(role), s.actorID, time.Now()); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("assign failed: %v", err)), nil
	}
	return marshalResult(toIssueOut(issue, time.Now().UTC()))
}

// campusfix_advance_issue
func (s *Server) advanceIssueTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("campusfix_advance_issue",
		mcp.WithDescription("Advance an issue's status. Admin only. Valid transitions: assigned -> in_progress, assigned -> resolved, in_progress -> resolved."),
		mcp.WithString("issue_id", mcp.Required(), mcp.Description("Issue ID (full ULID or unique prefix)")),
		mcp.WithString("status", mcp.Required(), mcp.Description("Target status: in_progress or resolved")),
	)
	return tool, s.handleAdvanceIssue
}

func (s *Server) handleAdvanceIssue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if res := s.requireAdmin(); res != nil {
		return res, nil
	}

	issueID, err := request.RequireString("issue_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: issue_id"), nil
	}
	status, err := request.RequireString("status")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: status"), nil
	}

	issue, err := s.findIssue(ctx, issueID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := lifecycle.Advance(ctx, s.store, issue, models.IssueStatus(status), time.Now()); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("advance failed: %v", err)), nil
	}
	return marshalResult(toIssueOut(issue, time.Now().UTC()))
}

// campusfix_delete_issue
func (s *Server) deleteIssueTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("campusfix_delete_issue",
		mcp.WithDescription("Soft-delete a resolved issue. Admin only. The record is hidden from default views but never physically removed. Requires confirm=true."),
		mcp.WithString("issue_id", mcp.Required(), mcp.Description("Issue ID (full ULID or unique prefix)")),
		mcp.WithBoolean("confirm", mcp.Required(), mcp.Description("Explicit confirmation; must be true")),
	)
	return tool, s.handleDeleteIssue
}

func (s *Server) handleDeleteIssue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if res := s.requireAdmin(); res != nil {
		return res, nil
	}

	issueID, err := request.RequireString("issue_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: issue_id"), nil
	}
	if !request.GetBool("confirm", false) {
		return mcp.NewToolResultError("deletion requires confirm=true"), nil
	}

	issue, err := s.findIssue(ctx, issueID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := lifecycle.SoftDelete(ctx, s.store, issue, s.actorID, time.Now()); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("delete failed: %v", err)), nil
	}
	return marshalResult(toIssueOut(issue, time.Now().UTC()))
}

// campusfix_weekly_stats
func (s *Server) weeklyStatsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("campusfix_weekly_stats",
		mcp.WithDescription("Aggregate weekly statistics: counts by category/urgency/location/status, SLA breach count, top-3 hotspot locations, and issues resolved in the trailing 7 days."),
	)
	return tool, s.handleWeeklyStats
}

func (s *Server) handleWeeklyStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	issues, err := s.store.ListIssues(ctx, store.IssueFilter{})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list issues: %v", err)), nil
	}
	return marshalResult(stats.Compute(issues, time.Now().UTC()))
}
