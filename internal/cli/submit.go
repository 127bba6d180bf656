package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	v1alpha1 "github.com/klubi/claw/pkg/apis/v1alpha1"
)

func newSubmitCmd() *cobra.Command {
	var (
		root          string
		project       string
		name          string
		model         string
		maxIterations int
		noCommit      bool
		detach        bool
	)

	cmd := &cobra.Command{
		Use:   "submit [flags] -- <task...>",
		Short: "Submit a task to the claw server",
		Long: `Create a task on the server and follow it until it finishes.

Everything after "--" is treated as the task text.`,
		Example: `  claw submit -- "add a login page"
  claw submit -p ./webapp --project web -- "fix the failing test"
  claw submit --detach --name nightly-lint -- "run the linter and fix warnings"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("task required: claw submit -- \"your task here\"")
			}

			// The server resolves relative roots against its own directory.
			if root != "" {
				abs, err := filepath.Abs(root)
				if err != nil {
					return fmt.Errorf("resolving %s: %w", root, err)
				}
				root = abs
			}

			task := &v1alpha1.Task{
				TypeMeta: v1alpha1.TypeMeta{
					APIVersion: v1alpha1.APIVersion,
					Kind:       v1alpha1.KindTask,
				},
				Metadata: v1alpha1.ObjectMeta{
					Name:    name,
					Project: project,
				},
				Spec: v1alpha1.TaskSpec{
					Prompt:        strings.Join(args, " "),
					Root:          root,
					Model:         model,
					MaxIterations: maxIterations,
				},
			}
			if noCommit {
				off := false
				task.Spec.AutoCommit = &off
			}

			created, err := apiClient.CreateTask(task)
			if err != nil {
				return fmt.Errorf("creating task: %w", err)
			}
			ref := created.Metadata.Name
			if created.Metadata.Project != v1alpha1.DefaultProject {
				ref += " -p " + created.Metadata.Project
			}

			if detach {
				fmt.Printf("task/%s created\n", created.Metadata.Name)
				fmt.Printf("Follow it with: claw logs %s --follow\n", ref)
				return nil
			}

			fmt.Printf("Task %s created. Waiting for completion...\n", created.Metadata.Name)

			final, err := followTask(created.Metadata.Project, created.Metadata.Name)
			if err != nil {
				return fmt.Errorf("following task: %w", err)
			}

			fmt.Println()
			switch final.Status.Phase {
			case v1alpha1.TaskSucceeded:
				color.New(color.FgGreen, color.Bold).Println("Task Succeeded")
			case v1alpha1.TaskExhausted:
				color.New(color.FgYellow, color.Bold).Println("Task Exhausted")
			default:
				color.New(color.FgRed, color.Bold).Println("Task Failed")
			}
			fmt.Println(strings.Repeat("-", 60))
			fmt.Println(final.Status.Result)

			if final.Status.Phase != v1alpha1.TaskSucceeded {
				return fmt.Errorf("task %s %s", final.Metadata.Name, strings.ToLower(string(final.Status.Phase)))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&root, "project-dir", "p", "", "Project directory on the server (default: server's project root)")
	cmd.Flags().StringVar(&project, "project", "", "Project the task belongs to (default: default)")
	cmd.Flags().StringVar(&name, "name", "", "Task name (generated when empty)")
	cmd.Flags().StringVar(&model, "model", "", "Model to use (default: server's model)")
	cmd.Flags().IntVar(&maxIterations, "max-iterations", 0, "Iteration budget (default: server's budget)")
	cmd.Flags().BoolVar(&noCommit, "no-commit", false, "Do not commit the work when the task completes")
	cmd.Flags().BoolVarP(&detach, "detach", "d", false, "Return once the task is created")

	return cmd
}
