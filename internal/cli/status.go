package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/klubi/claw/internal/provider"
	v1alpha1 "github.com/klubi/claw/pkg/apis/v1alpha1"
)

func newStatusCmd() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show configuration and server status",
		Long:  "Display the active configuration and whether the claw server is reachable.",
		Example: `  claw status
  claw status --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if watch {
				return statusWatch()
			}
			return statusPrint()
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Continuously refresh (every 5 seconds)")

	return cmd
}

func statusPrint() error {
	bold := color.New(color.FgCyan, color.Bold)
	bold.Println("Claw Status")
	fmt.Println("===========")
	fmt.Println()

	key := color.RedString("not set")
	if cfg.LLM.APIKey != "" {
		key = color.GreenString("set")
	}
	fmt.Printf("Provider:       %s\n", cfg.LLM.Provider)
	fmt.Printf("Model:          %s\n", cfg.LLM.Model)
	fmt.Printf("API Base:       %s\n", provider.BaseURL(cfg.LLM.Provider, cfg.LLM.APIBase))
	fmt.Printf("API Key:        %s\n", key)
	fmt.Printf("Project Root:   %s\n", cfg.Project.Root)
	fmt.Printf("Auto Commit:    %t\n", cfg.Project.AutoCommit)
	fmt.Printf("Max Iterations: %d\n", cfg.Project.MaxIterations)
	fmt.Println()

	if err := apiClient.Healthz(); err != nil {
		fmt.Printf("Server:         %s (%s)\n", color.RedString("UNREACHABLE"), apiClient.BaseURL())
		return nil
	}
	fmt.Printf("Server:         %s (%s)\n", color.GreenString("running"), apiClient.BaseURL())

	tasks, err := apiClient.ListTasks("")
	if err != nil {
		return fmt.Errorf("listing tasks: %w", err)
	}
	fmt.Printf("Tasks:          %s\n", summarizePhases(tasks))

	return nil
}

// summarizePhases renders "N total (a running, b succeeded, ...)".
func summarizePhases(tasks []*v1alpha1.Task) string {
	counts := make(map[v1alpha1.TaskPhase]int)
	for _, t := range tasks {
		counts[t.Status.Phase]++
	}

	summary := fmt.Sprintf("%d total", len(tasks))
	if len(tasks) == 0 {
		return summary
	}

	var parts []string
	if n := counts[v1alpha1.TaskPending]; n > 0 {
		parts = append(parts, fmt.Sprintf("%d pending", n))
	}
	if n := counts[v1alpha1.TaskRunning]; n > 0 {
		parts = append(parts, color.YellowString("%d running", n))
	}
	if n := counts[v1alpha1.TaskSucceeded]; n > 0 {
		parts = append(parts, color.GreenString("%d succeeded", n))
	}
	if n := counts[v1alpha1.TaskExhausted]; n > 0 {
		parts = append(parts, color.YellowString("%d exhausted", n))
	}
	if n := counts[v1alpha1.TaskFailed]; n > 0 {
		parts = append(parts, color.RedString("%d failed", n))
	}
	return summary + " (" + strings.Join(parts, ", ") + ")"
}

func statusWatch() error {
	fmt.Println("Watching status (Ctrl+C to stop)...")
	fmt.Println()

	for {
		// Clear screen with ANSI escape.
		fmt.Print("\033[2J\033[H")

		if err := statusPrint(); err != nil {
			fmt.Printf("\nError: %v\n", err)
		}

		fmt.Printf("\nLast updated: %s\n", time.Now().Format("15:04:05"))
		time.Sleep(5 * time.Second)
	}
}
