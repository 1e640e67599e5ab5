package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/robby/ghsync/internal/backup"
	"github.com/robby/ghsync/internal/config"
	"github.com/robby/ghsync/internal/domain"
	"github.com/robby/ghsync/internal/drift"
	"github.com/robby/ghsync/internal/gh"
	"github.com/robby/ghsync/internal/gitstate"
	"github.com/robby/ghsync/internal/prdetect"
	"github.com/robby/ghsync/internal/reconcile"
	"github.com/robby/ghsync/internal/report"
	"github.com/spf13/cobra"
)

var (
	// CLI flags
	repoFlag  string
	limitFlag int
	fixFlag   bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ghsync",
		Short: "Keep issue lifecycle state and project board status consistent",
		Long: `ghsync detects and repairs drift between an issue tracker's OPEN/CLOSED
state and a project board's status field, and checks local workflow hygiene
before a work session starts or ends.

Authentication:
  1. GitHub CLI: Run 'gh auth login' (preferred)
  2. Environment variable: Set GITHUB_TOKEN

The token must have read/write access to issues and projects.`,
	}

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Detect state drift between issues and the project board",
		RunE:  runCheck,
	}
	checkCmd.Flags().StringVar(&repoFlag, "repo", "", "Repository as owner/name. Overrides the configured repository.")
	checkCmd.Flags().IntVar(&limitFlag, "limit", 200, "Maximum number of issues to fetch.")
	checkCmd.Flags().BoolVar(&fixFlag, "fix", false, "Apply corrective actions for error-severity findings.")

	preflightCmd := &cobra.Command{
		Use:   "preflight",
		Short: "Warn about local repository state before starting a session",
		RunE:  runPreflight,
	}

	cleanupCmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete leftover interrupted-session backups",
		RunE:  runCleanup,
	}

	prCmd := &cobra.Command{
		Use:   "pr-for-issue <number>",
		Short: "Find the merged PR that completed an issue",
		Args:  cobra.ExactArgs(1),
		RunE:  runPRForIssue,
	}
	prCmd.Flags().StringVar(&repoFlag, "repo", "", "Repository as owner/name. Overrides the configured repository.")

	rootCmd.AddCommand(checkCmd, preflightCmd, cleanupCmd, prCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if repoFlag != "" {
		cfg.Repository = repoFlag
	}
	return cfg, nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	owner, repo, err := cfg.SplitRepository()
	if err != nil {
		return err
	}

	client, err := gh.New()
	if err != nil {
		return fmt.Errorf("failed to create GitHub client: %w", err)
	}

	ctx := context.Background()
	items, err := client.FetchWorkItems(ctx, owner, repo, []string{"OPEN", "CLOSED"}, limitFlag)
	if err != nil {
		return err
	}

	inconsistencies := drift.Classify(items, cfg.DoneStatuses)

	// Metrics need each board's text field values; fetch per board, and
	// treat a read failure as "no metrics data" rather than a failed run.
	textValues := make(map[string]map[string]string)
	for _, boardID := range uniqueBoards(items) {
		values, err := client.ItemTextFieldValues(ctx, boardID)
		if err != nil {
			continue
		}
		for itemID, fields := range values {
			textValues[itemID] = fields
		}
	}
	inconsistencies = append(inconsistencies,
		drift.ClassifyMetrics(items, textValues, cfg.Metrics(), time.Now())...)

	var fixes []domain.FixResult
	if fixFlag {
		executor := reconcile.NewExecutor(client)
		executor.StatusField = cfg.StatusField
		fixes = executor.ApplyFixes(ctx, items, inconsistencies)
		fixes = append(fixes,
			executor.BackfillTimestamps(ctx, items, textValues, cfg.StatusDateFields)...)
	}

	rep := domain.Report{
		Inconsistencies: inconsistencies,
		Fixes:           fixes,
		Summary:         reconcile.Summarize(len(items), inconsistencies, fixes),
	}
	fmt.Print(report.Render(rep, 0))

	os.Exit(reconcile.ExitCode(rep.Summary, fixFlag))
	return nil
}

func runPreflight(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	snap := gitstate.GetPreflightSnapshot(ctx, &gitstate.CLI{}, cfg.ProtectedBranches, cfg.BaseBranch)
	backups := backup.Manager{Dir: cfg.BackupDir}.Count()

	warnings := gitstate.GeneratePreflightWarnings(snap, backups)
	fmt.Print(report.RenderWarnings(warnings, 0))
	return nil
}

func runCleanup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	removed, err := backup.Manager{Dir: cfg.BackupDir}.Cleanup()
	if err != nil {
		return err
	}
	fmt.Printf("Removed %d session backup(s)\n", removed)
	return nil
}

func runPRForIssue(cmd *cobra.Command, args []string) error {
	number, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid issue number %q", args[0])
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	owner, repo, err := cfg.SplitRepository()
	if err != nil {
		return err
	}

	client, err := gh.New()
	if err != nil {
		return fmt.Errorf("failed to create GitHub client: %w", err)
	}

	detector := &prdetect.Detector{
		Search:            client,
		Git:               &gitstate.CLI{},
		ProtectedBranches: cfg.ProtectedBranches,
	}

	pr, ok := detector.FindMergedPRForIssue(context.Background(), owner, repo, number)
	if !ok {
		fmt.Printf("No merged PR found for issue #%d\n", number)
		return nil
	}
	fmt.Printf("Issue #%d was completed by PR #%d\n", number, pr)
	return nil
}

// uniqueBoards returns the distinct board IDs referenced by the items, in
// first-seen order.
func uniqueBoards(items []domain.WorkItem) []string {
	seen := make(map[string]bool)
	boards := make([]string, 0)
	for _, item := range items {
		if item.BoardID == "" || seen[item.BoardID] {
			continue
		}
		seen[item.BoardID] = true
		boards = append(boards, item.BoardID)
	}
	return boards
}
