package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/campusfix/campusfix/internal/dedup"
	"github.com/campusfix/campusfix/internal/models"
	"github.com/campusfix/campusfix/internal/output"
	"github.com/campusfix/campusfix/internal/store"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui        *output.UI
	dataStore store.Store

	verbose bool
	dryRun  bool
)

var rootCmd = &cobra.Command{
	Use:   "campusfix",
	Short: "Campus facilities issue tracker and triage engine",
	Long: `campusfix tracks facilities complaints across a residential campus.
Reports are auto-classified by category and urgency, checked against
recent submissions for likely duplicates, and surfaced to admins in a
triage queue ordered by SLA breach and urgency.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return rootRun(cmd)
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "Show what would happen without making changes")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/campusfix/config.yaml)")
}

func initConfig() {
	// If --config is explicitly set, use that file
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(1)
		}

		configDir := filepath.Join(home, ".config", "campusfix")
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("CAMPUSFIX")
	viper.AutomaticEnv()

	// Defaults via viper.SetDefault()
	home, _ := os.UserHomeDir()
	defaultConfigDir := filepath.Join(home, ".config", "campusfix")

	viper.SetDefault("db_path", filepath.Join(defaultConfigDir, "campusfix.db"))
	viper.SetDefault("user.id", "")
	viper.SetDefault("user.role", "student")
	viper.SetDefault("anthropic.api_key", "")
	viper.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	viper.SetDefault("dedup.threshold", dedup.DefaultThreshold)
	viper.SetDefault("watch.interval", "5s")

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose
	ui.DryRun = dryRun

	// The store is initialized lazily so config/version commands can run
	// without a database.
}

// rootRun handles `campusfix` with no subcommand: admins get the triage
// queue, everyone else gets the issue list.
func rootRun(cmd *cobra.Command) error {
	if _, err := getStore(); err != nil {
		return cmd.Help()
	}
	if currentUserRole() == models.UserRoleAdmin {
		return triageRun()
	}
	return issueListRun()
}

// getStore returns the shared store, initializing it on first call.
func getStore() (store.Store, error) {
	if dataStore != nil {
		return dataStore, nil
	}

	dbPath := viper.GetString("db_path")
	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := s.Migrate(rootCmd.Context()); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	dataStore = s
	return dataStore, nil
}

// currentUserID returns the configured user identity, empty when not set.
func currentUserID() string {
	return viper.GetString("user.id")
}

func currentUserRole() models.UserRole {
	return models.UserRole(viper.GetString("user.role"))
}

// requireLogin returns an error unless a user identity is configured.
func requireLogin() (string, error) {
	id := currentUserID()
	if id == "" {
		return "", fmt.Errorf("login required: set user.id in the config file or CAMPUSFIX_USER_ID")
	}
	return id, nil
}

// requireAdmin returns the user ID or an error when the caller is not an admin.
func requireAdmin() (string, error) {
	id, err := requireLogin()
	if err != nil {
		return "", err
	}
	if currentUserRole() != models.UserRoleAdmin {
		return "", fmt.Errorf("admin role required (user.role is %q)", currentUserRole())
	}
	return id, nil
}
