package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete task <name>",
		Short: "Delete a task",
		Long:  "Delete a finished task and its transcript. Running tasks cannot be deleted.",
		Example: `  claw delete task fix-login
  claw delete task fix-login -p webapp`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isTaskResource(args[0]) {
				return fmt.Errorf("unknown resource type %q. Valid types: tasks", args[0])
			}
			project, _ := cmd.Flags().GetString("project")
			name := args[1]

			if err := apiClient.DeleteTask(project, name); err != nil {
				return err
			}
			fmt.Printf("task/%s deleted\n", name)
			return nil
		},
	}

	cmd.Flags().StringP("project", "p", "", "Project name (default project when empty)")

	return cmd
}
