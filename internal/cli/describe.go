package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	v1alpha1 "github.com/klubi/claw/pkg/apis/v1alpha1"
)

const timeLayout = "2006-01-02 15:04:05"

func newDescribeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "describe task <name>",
		Short: "Show detailed info about a task",
		Long:  "Print the spec, status and result of a task in kubectl-describe style.",
		Example: `  claw describe task fix-login
  claw describe task fix-login -p webapp`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isTaskResource(args[0]) {
				return fmt.Errorf("unknown resource type %q", args[0])
			}
			project, _ := cmd.Flags().GetString("project")

			task, err := apiClient.GetTask(project, args[1])
			if err != nil {
				return err
			}
			describeTask(task)
			return nil
		},
	}

	cmd.Flags().StringP("project", "p", "", "Project name (default project when empty)")

	return cmd
}

func describeTask(task *v1alpha1.Task) {
	bold := color.New(color.Bold)

	bold.Println("Task:")
	printField("  Name", task.Metadata.Name)
	printField("  Project", task.Metadata.Project)
	printField("  UID", task.Metadata.UID)
	printField("  Labels", formatLabels(task.Metadata.Labels))
	printField("  Created", formatTime(task.Metadata.CreatedAt))
	printField("  Updated", formatTime(task.Metadata.UpdatedAt))

	fmt.Println()
	bold.Println("Spec:")
	printField("  Prompt", truncate(task.Spec.Prompt, 200))
	printField("  Root", task.Spec.Root)
	printField("  Model", task.Spec.Model)
	if task.Spec.MaxIterations > 0 {
		printField("  Max Iterations", fmt.Sprintf("%d", task.Spec.MaxIterations))
	}
	if task.Spec.AutoCommit != nil {
		printField("  Auto Commit", fmt.Sprintf("%t", *task.Spec.AutoCommit))
	}

	fmt.Println()
	bold.Println("Status:")
	printField("  Phase", phaseString(task.Status.Phase))
	printField("  Iterations", fmt.Sprintf("%d", task.Status.Iterations))
	printField("  Started At", formatTime(task.Status.StartedAt))
	printField("  Finished At", formatTime(task.Status.FinishedAt))
	if !task.Status.StartedAt.IsZero() && !task.Status.FinishedAt.IsZero() {
		printField("  Duration", task.Status.FinishedAt.Sub(task.Status.StartedAt).Round(time.Second).String())
	}
	if task.Status.Result != "" {
		fmt.Println()
		bold.Println("Result:")
		if task.Status.Phase == v1alpha1.TaskFailed {
			fmt.Println(color.RedString(task.Status.Result))
		} else {
			fmt.Println(task.Status.Result)
		}
	}
}

// --- Helpers ---

func printField(label, value string) {
	if value == "" {
		value = "<none>"
	}
	fmt.Printf("%-24s%s\n", label+":", value)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(timeLayout)
}

// formatLabels renders labels as sorted key=value pairs.
func formatLabels(labels map[string]string) string {
	if len(labels) == 0 {
		return "<none>"
	}
	parts := make([]string, 0, len(labels))
	for k, v := range labels {
		parts = append(parts, fmt.Sprintf("%s=%s", k, v))
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}

// truncate shortens s to maxLen runes, ending with "...".
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
