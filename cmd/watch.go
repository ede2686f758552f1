package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/campusfix/campusfix/internal/store"
	"github.com/campusfix/campusfix/internal/triage"
	"github.com/campusfix/campusfix/internal/watch"
)

var watchInterval time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live-updating triage queue (admin)",
	Long: `Continuously re-render the triage queue. SLA flags are recomputed on
every refresh, so an issue crossing its deadline changes color without any
database write. Press Ctrl-C to stop.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return watchRun()
	},
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "Refresh interval (default from config, 5s)")
	rootCmd.AddCommand(watchCmd)
}

func watchRun() error {
	if _, err := requireAdmin(); err != nil {
		return err
	}

	s, err := getStore()
	if err != nil {
		return err
	}

	interval := watchInterval
	if interval <= 0 {
		interval = viper.GetDuration("watch.interval")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	snapshots, cancel := watch.Subscribe(ctx, s, store.IssueFilter{IncludeDeleted: true}, interval)
	defer cancel()

	filter := triage.Filter{
		Status:   triage.All,
		Category: triage.All,
		Urgency:  triage.All,
		Assignee: triage.All,
	}

	for snap := range snapshots {
		if snap.Err != nil {
			ui.Warning("refresh failed: %v", snap.Err)
			continue
		}

		// Clear screen and redraw from the top.
		fmt.Fprint(ui.Out, "\033[2J\033[H")
		ui.Info("Triage queue as of %s (refresh %s, Ctrl-C to stop)",
			snap.At.Format(time.TimeOnly), interval)

		queue := triage.Apply(snap.Issues, filter, snap.At)
		if len(queue) == 0 {
			ui.Info("Triage queue is empty.")
			continue
		}
		renderQueue(queue, snap.At)
	}

	return nil
}
