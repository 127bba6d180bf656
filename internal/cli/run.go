package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/klubi/claw/internal/agent"
	"github.com/klubi/claw/internal/config"
	"github.com/klubi/claw/pkg/manifest"
)

// markdownWidth is the wrap width for rendered assistant text.
const markdownWidth = 100

func newRunCmd() *cobra.Command {
	var (
		root          string
		model         string
		maxIterations int
		noCommit      bool
		filename      string
	)

	cmd := &cobra.Command{
		Use:   "run [flags] <task...>",
		Short: "Run a task locally",
		Long: `Run the agent in the project directory until the task is done.

The task text is everything after the flags. With -f, each Task document in
the manifest runs in order instead.`,
		Example: `  claw run add a login page
  claw run -p ./webapp --no-commit -- "fix the failing test in auth.go"
  claw run -f tasks.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if filename == "" && len(args) == 0 {
				return fmt.Errorf("task required: claw run \"your task here\"")
			}
			if filename != "" && len(args) > 0 {
				return fmt.Errorf("pass either a task or -f, not both")
			}

			logger, err := interactiveLogger(cfg)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			runtime := agent.NewRuntime(nil, cfg, nil, logger)
			base := agent.Invocation{
				Root:          root,
				Model:         model,
				MaxIterations: maxIterations,
				AutoCommit:    cfg.Project.AutoCommit && !noCommit,
			}

			if filename == "" {
				inv := base
				inv.Prompt = strings.Join(args, " ")
				return runInvocation(ctx, runtime, inv)
			}

			tasks, err := manifest.ParseFile(filename)
			if err != nil {
				return fmt.Errorf("parsing manifest %s: %w", filename, err)
			}
			if len(tasks) == 0 {
				fmt.Println("No tasks found in manifest.")
				return nil
			}

			var failed int
			for _, task := range tasks {
				if err := resolveManifestRoot(filename, task); err != nil {
					return err
				}
				inv := base
				inv.Prompt = task.Spec.Prompt
				if task.Spec.Root != "" && !cmd.Flags().Changed("project-dir") {
					inv.Root = task.Spec.Root
				}
				if task.Spec.Model != "" && !cmd.Flags().Changed("model") {
					inv.Model = task.Spec.Model
				}
				if task.Spec.MaxIterations > 0 && !cmd.Flags().Changed("max-iterations") {
					inv.MaxIterations = task.Spec.MaxIterations
				}
				if task.Spec.AutoCommit != nil && !noCommit {
					inv.AutoCommit = *task.Spec.AutoCommit
				}

				color.New(color.FgCyan, color.Bold).Printf("==> task/%s\n", task.Metadata.Name)
				if err := runInvocation(ctx, runtime, inv); err != nil {
					fmt.Fprintf(os.Stderr, "Error: task/%s: %v\n", task.Metadata.Name, err)
					failed++
				}
				if ctx.Err() != nil {
					return ctx.Err()
				}
				fmt.Println()
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d tasks did not complete", failed, len(tasks))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&root, "project-dir", "p", "", "Project directory (default: configured project root)")
	cmd.Flags().StringVar(&model, "model", "", "Model to use (default: configured model)")
	cmd.Flags().IntVar(&maxIterations, "max-iterations", 0, "Iteration budget (default: configured budget)")
	cmd.Flags().BoolVar(&noCommit, "no-commit", false, "Do not commit the work when the task completes")
	cmd.Flags().StringVarP(&filename, "filename", "f", "", "Run the Task documents of a manifest file")

	return cmd
}

// runInvocation runs one invocation, printing progress as it goes. An
// outcome other than done is reported as an error.
func runInvocation(ctx context.Context, runtime *agent.Runtime, inv agent.Invocation) error {
	start := time.Now()
	res, err := runtime.Invoke(ctx, inv, printProgress)
	if err != nil {
		return err
	}

	fmt.Println()
	switch res.Outcome {
	case agent.OutcomeDone:
		color.New(color.FgGreen, color.Bold).Println("Task Done")
	case agent.OutcomeExhausted:
		color.New(color.FgYellow, color.Bold).Println("Task Incomplete")
	default:
		color.New(color.FgRed, color.Bold).Println("Task Failed")
	}
	fmt.Println(strings.Repeat("-", 60))
	fmt.Println(res.Text)
	fmt.Printf("\n%d iterations in %s\n", res.Iterations, time.Since(start).Round(100*time.Millisecond))

	if res.Outcome != agent.OutcomeDone {
		return fmt.Errorf("task %s", res.Outcome)
	}
	return nil
}

// printProgress renders one driver event on stdout.
func printProgress(kind agent.EventKind, content string) {
	switch kind {
	case agent.EventAssistant:
		fmt.Println(renderMarkdown(content))
	case agent.EventToolCall:
		color.Yellow("> %s", content)
	case agent.EventToolResult:
		color.New(color.Faint).Println(indentLines(truncateOutput(content, 40), "  "))
	case agent.EventError:
		color.Red("%s", content)
	}
}

// renderMarkdown formats assistant text for the terminal, falling back to
// the raw text when rendering fails.
func renderMarkdown(content string) string {
	md, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(markdownWidth),
	)
	if err != nil {
		return content
	}
	out, err := md.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(out, "\n")
}

// truncateOutput keeps the first n lines of s.
func truncateOutput(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) <= n {
		return strings.Join(lines, "\n")
	}
	return strings.Join(lines[:n], "\n") + fmt.Sprintf("\n... (%d more lines)", len(lines)-n)
}

// interactiveLogger returns the logger for commands that own the terminal.
// Logs only go to the configured file; without one they are discarded.
func interactiveLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Log.File == "" {
		return zap.NewNop(), nil
	}
	logger, err := cfg.Log.NewLogger()
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	return logger, nil
}
