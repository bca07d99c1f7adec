package cmd

import (
	"github.com/spf13/cobra"

	"github.com/specdriven/sdd/internal/output"
	"github.com/specdriven/sdd/internal/run"
)

var skipCmd = &cobra.Command{
	Use:     "skip <task-id>",
	Short:   "Return an in-progress task to the backlog",
	GroupID: "workflow",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		machine, err := run.Open(getBaseDir())
		if err != nil {
			return err
		}
		if err := machine.Skip(args[0]); err != nil {
			return err
		}
		output.Info("%s returned to backlog", args[0])
		return nil
	},
}

var failCmd = &cobra.Command{
	Use:     "fail <task-id>",
	Short:   "Mark an in-progress task as failed",
	GroupID: "workflow",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		machine, err := run.Open(getBaseDir())
		if err != nil {
			return err
		}
		if err := machine.Fail(args[0]); err != nil {
			return err
		}
		output.Warning("%s marked failed", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(skipCmd)
	rootCmd.AddCommand(failCmd)
}
