package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/campusfix/campusfix/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server for agent integration",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This lets agent tooling query and manage issues natively. Configure with:

  {
    "mcpServers": {
      "campusfix": { "command": "campusfix", "args": ["mcp"] }
    }
  }

Available tools: campusfix_submit_issue, campusfix_list_issues,
campusfix_triage_queue, campusfix_assign_issue, campusfix_advance_issue,
campusfix_delete_issue, campusfix_weekly_stats`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return mcpRun()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func mcpRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := mcp.NewServer(s, currentUserID(), currentUserRole(), viper.GetFloat64("dedup.threshold"))
	return srv.ServeStdio(ctx)
}
