package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	v1alpha1 "github.com/klubi/claw/pkg/apis/v1alpha1"
)

func newGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get tasks [name]",
		Short: "List or get tasks",
		Long:  "Display one or many tasks. Without --project, tasks of every project are listed.",
		Example: `  claw get tasks
  claw get tasks -p webapp
  claw get task fix-login -o yaml`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isTaskResource(args[0]) {
				return fmt.Errorf("unknown resource type %q. Valid types: tasks", args[0])
			}
			project, _ := cmd.Flags().GetString("project")

			if len(args) == 2 {
				task, err := apiClient.GetTask(project, args[1])
				if err != nil {
					return err
				}
				return printTasks(task, []*v1alpha1.Task{task})
			}

			tasks, err := apiClient.ListTasks(project)
			if err != nil {
				return err
			}
			if len(tasks) == 0 && (outputFormat == "table" || outputFormat == "") {
				fmt.Println("No tasks found.")
				return nil
			}
			return printTasks(tasks, tasks)
		},
	}

	cmd.Flags().StringP("project", "p", "", "Project name (all projects when empty)")

	return cmd
}

// isTaskResource accepts the aliases of the task resource type.
func isTaskResource(t string) bool {
	switch strings.ToLower(t) {
	case "task", "tasks", "t":
		return true
	default:
		return false
	}
}
