package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/specdriven/sdd/internal/gates"
	"github.com/specdriven/sdd/internal/models"
	"github.com/specdriven/sdd/internal/output"
	"github.com/specdriven/sdd/internal/plan"
	"github.com/specdriven/sdd/internal/run"
)

var (
	runDryRun          bool
	runComplete        string
	runCompleteFeature string
	runCompleteWave    int
	runFiles           []string
	runScore           int
)

var runCmd = &cobra.Command{
	Use:   "run [task-id]",
	Short: "Start the next pending task (or a named one)",
	Long: `Starts a task through the run state machine. Without arguments the first
unblocked backlog task is started and its execution prompt printed. All three
precondition gates must be passed first.

Completion flags close out work non-interactively:
  --complete F-001-DB           complete one task
  --complete-feature F-001      complete every task of a feature
  --complete-wave 2             complete every task of a wave`,
	GroupID: "workflow",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireGates(); err != nil {
			return err
		}

		machine, p, err := loadSeededMachine()
		if err != nil {
			return err
		}
		machine.Detector = run.HeuristicDetector{}

		// Non-interactive completion paths.
		switch {
		case runComplete != "":
			files, err := parseFileChanges(runFiles)
			if err != nil {
				return err
			}
			if err := machine.Complete(runComplete, files, runScore); err != nil {
				return err
			}
			output.Success("%s done", runComplete)
			return nil

		case runCompleteFeature != "":
			n, err := machine.CompleteFeature(runCompleteFeature)
			if err != nil {
				return err
			}
			output.Success("%s: %d tasks completed", runCompleteFeature, n)
			return nil

		case runCompleteWave != 0:
			n, err := machine.CompleteWave(p, runCompleteWave)
			if err != nil {
				return err
			}
			output.Success("wave %d: %d tasks completed", runCompleteWave, n)
			return nil
		}

		var task *models.TaskExecution
		if len(args) == 1 {
			task = machine.State.Find(args[0])
			if task == nil {
				return fmt.Errorf("unknown task %s", args[0])
			}
		} else {
			task = machine.NextPending()
			if task == nil {
				done, total, _ := machine.State.Progress()
				if done == total {
					output.Success("All %d tasks done", total)
					return nil
				}
				return fmt.Errorf("no startable task (blocked or waiting on input)")
			}
		}

		if runDryRun {
			fmt.Printf("Would start %s\n", output.FormatTaskLine(task))
			return nil
		}

		if err := machine.Start(task.TaskID, p); err != nil {
			return err
		}

		fmt.Println(output.FormatTaskLine(task))
		if task.Status == models.StatusWaitingInput {
			output.Warning("task escalated before starting; run `sdd resolve %s`", task.TaskID)
			fmt.Print(output.FormatTaskLong(task))
			return nil
		}

		fmt.Println(output.RenderMarkdownOrPlain(task.Prompt))
		return nil
	},
}

// requireGates refuses workflow commands until all three gates pass,
// re-evaluating stale state once before giving up.
func requireGates() error {
	dir := getBaseDir()
	state, err := gates.Load(dir)
	if err != nil {
		return err
	}
	if state.AllPassed() {
		return nil
	}

	profile, err := plan.LoadProfile(dir)
	if err != nil {
		return err
	}
	state, err = gates.New(dir, profile).CheckAll()
	if err != nil {
		return err
	}
	if !state.AllPassed() {
		fmt.Print(output.FormatGateState(state))
		return fmt.Errorf("gates not passed; fix the checks above or see `sdd check`")
	}
	return nil
}

// parseFileChanges parses "path" or "path:action" entries
func parseFileChanges(entries []string) ([]models.FileChange, error) {
	actions := map[string]models.FileAction{
		"created":  models.FileCreated,
		"modified": models.FileModified,
		"deleted":  models.FileDeleted,
	}

	var changes []models.FileChange
	for _, entry := range entries {
		path, actionName, hasAction := strings.Cut(entry, ":")
		if path == "" {
			return nil, fmt.Errorf("empty file path in %q", entry)
		}
		action := models.FileModified
		if hasAction {
			var ok bool
			action, ok = actions[actionName]
			if !ok {
				return nil, fmt.Errorf("unknown file action %q (want created, modified or deleted)", actionName)
			}
		}
		changes = append(changes, models.FileChange{Path: path, Action: action})
	}
	return changes, nil
}

func init() {
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "show what would start without starting it")
	runCmd.Flags().StringVar(&runComplete, "complete", "", "complete the given task")
	runCmd.Flags().StringVar(&runCompleteFeature, "complete-feature", "", "complete every task of a feature")
	runCmd.Flags().IntVar(&runCompleteWave, "complete-wave", 0, "complete every task of a wave")
	runCmd.Flags().StringSliceVar(&runFiles, "files", nil, "file changes for --complete, path[:created|modified|deleted]")
	runCmd.Flags().IntVar(&runScore, "score", 0, "review score for --complete")
	rootCmd.AddCommand(runCmd)
}
