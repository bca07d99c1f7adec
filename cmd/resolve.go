package cmd

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/specdriven/sdd/internal/models"
	"github.com/specdriven/sdd/internal/output"
	"github.com/specdriven/sdd/internal/run"
)

var resolveAnswer string

var resolveCmd = &cobra.Command{
	Use:   "resolve <task-id>",
	Short: "Answer a pending escalation and resume the task",
	Long: `Resolves the escalation that suspended a task. Interactive by default:
the escalation's options are offered as a select, with the recommended option
preselected. Use --answer for non-interactive resolution.`,
	GroupID: "workflow",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		taskID := args[0]

		machine, err := run.Open(getBaseDir())
		if err != nil {
			return err
		}
		task := machine.State.Find(taskID)
		if task == nil {
			return fmt.Errorf("unknown task %s", taskID)
		}
		if task.Status != models.StatusWaitingInput || task.Escalation == nil {
			return fmt.Errorf("%s has no pending escalation", taskID)
		}

		answer := resolveAnswer
		if answer == "" {
			answer, err = promptForAnswer(task.Escalation)
			if err != nil {
				return err
			}
		}

		if err := machine.Resolve(taskID, answer); err != nil {
			return err
		}
		output.Success("%s resumed (answer: %s)", taskID, answer)
		return nil
	},
}

// promptForAnswer runs a huh select over the escalation's options, or a free
// text input when the escalation carries none.
func promptForAnswer(esc *models.Escalation) (string, error) {
	var answer string

	if len(esc.Options) == 0 {
		form := huh.NewForm(huh.NewGroup(
			huh.NewInput().
				Title(esc.Question).
				Value(&answer),
		))
		if err := form.Run(); err != nil {
			return "", err
		}
		return answer, nil
	}

	options := make([]huh.Option[string], 0, len(esc.Options))
	for _, opt := range esc.Options {
		label := opt.Description
		if opt.ID == esc.Recommended {
			label += " (recommended)"
		}
		options = append(options, huh.NewOption(label, opt.ID))
	}

	answer = esc.Recommended
	form := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title(fmt.Sprintf("[%s] %s", esc.Trigger, esc.Question)).
			Description(esc.Rationale).
			Options(options...).
			Value(&answer),
	))
	if err := form.Run(); err != nil {
		return "", err
	}
	return answer, nil
}

func init() {
	resolveCmd.Flags().StringVar(&resolveAnswer, "answer", "", "resolve non-interactively with this answer")
	rootCmd.AddCommand(resolveCmd)
}
