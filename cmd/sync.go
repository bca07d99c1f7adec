package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/specdriven/sdd/internal/ghsync"
	"github.com/specdriven/sdd/internal/output"
	"github.com/specdriven/sdd/internal/plan"
)

var (
	syncRepo    string
	syncProject int
	syncPull    bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push the plan to GitHub issues, or pull issue states back",
	Long: `Pushes every feature and task to GitHub as parent and child issues via the
gh CLI, idempotently: already-synced records are skipped, created issue numbers
are persisted immediately so an interrupted sync resumes where it stopped.

With --pull, remote issue states are reconciled back instead: a closed issue
marks its local task done (never the reverse).`,
	GroupID: "sync",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		syncer := ghsync.New(getBaseDir())
		ctx := cmd.Context()

		if syncPull {
			result, err := syncer.Pull(ctx)
			if err != nil {
				return err
			}
			for _, e := range result.Errors {
				output.Error("%s", e)
			}
			output.Info("checked %d issues, %d newly closed", result.Checked, result.Closed)
			return nil
		}

		p, err := plan.Load(getBaseDir())
		if err != nil {
			return err
		}

		result, err := syncer.Push(ctx, p, ghsync.Options{Repo: syncRepo, Project: syncProject})
		if err != nil {
			return err
		}
		if result.AuthWarning != "" {
			output.Warning("%s", result.AuthWarning)
			return nil
		}
		for _, e := range result.Errors {
			output.Error("%s", e)
		}
		output.Info("%s: %d features, %d tasks created, %d skipped",
			result.Repo, result.FeaturesCreated, result.TasksCreated, result.Skipped)
		if len(result.Errors) > 0 {
			return fmt.Errorf("%d items failed to sync", len(result.Errors))
		}
		return nil
	},
}

func init() {
	syncCmd.Flags().StringVar(&syncRepo, "repo", "", "target repository owner/name (default: origin remote)")
	syncCmd.Flags().IntVar(&syncProject, "project", 0, "project board number to add issues to")
	syncCmd.Flags().BoolVar(&syncPull, "pull", false, "pull remote issue states instead of pushing")
	rootCmd.AddCommand(syncCmd)
}
