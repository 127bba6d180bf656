package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	v1alpha1 "github.com/klubi/claw/pkg/apis/v1alpha1"
)

// pollInterval is how often follow modes query the server.
const pollInterval = 2 * time.Second

func newLogsCmd() *cobra.Command {
	var follow bool

	cmd := &cobra.Command{
		Use:   "logs <task>",
		Short: "Show the transcript of a task",
		Long:  "Print the assistant messages, tool calls and tool results recorded for a task.",
		Example: `  claw logs fix-login
  claw logs fix-login -p webapp
  claw logs fix-login --follow`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, _ := cmd.Flags().GetString("project")
			name := args[0]

			if follow {
				fmt.Printf("Following task %s (Ctrl+C to stop)...\n", name)
				_, err := followTask(project, name)
				return err
			}

			events, err := apiClient.TaskEvents(project, name, 0)
			if err != nil {
				return err
			}
			if len(events) == 0 {
				fmt.Printf("No events recorded for task %s.\n", name)
				return nil
			}
			for _, evt := range events {
				printEvent(evt)
			}
			return nil
		},
	}

	cmd.Flags().StringP("project", "p", "", "Project name (default project when empty)")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow the transcript until the task finishes (polls every 2 seconds)")

	return cmd
}

// followTask prints new transcript events until the task reaches a terminal
// phase, then returns the final task.
func followTask(project, name string) (*v1alpha1.Task, error) {
	seen := 0
	for {
		// Read the phase before the events so the last batch is never missed.
		task, err := apiClient.GetTask(project, name)
		if err != nil {
			return nil, err
		}

		events, err := apiClient.TaskEvents(project, name, seen)
		if err != nil {
			return nil, err
		}
		for _, evt := range events {
			printEvent(evt)
			seen = evt.Seq
		}

		if task.Status.Phase.Terminal() {
			return task, nil
		}
		time.Sleep(pollInterval)
	}
}
