package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/klubi/claw/internal/agent"
	"github.com/klubi/claw/internal/tui"
)

func newChatCmd() *cobra.Command {
	var (
		root     string
		model    string
		noCommit bool
	)

	cmd := &cobra.Command{
		Use:     "chat",
		Aliases: []string{"ui"},
		Short:   "Launch the interactive terminal chat",
		Long: `Open a terminal chat against the project directory. Every message runs
as its own task; Esc interrupts the one in progress.`,
		Example: `  claw chat
  claw chat -p ./webapp --no-commit`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := interactiveLogger(cfg)
			if err != nil {
				return err
			}
			defer logger.Sync()

			if root == "" {
				root = cfg.Project.Root
			}
			if model == "" {
				model = cfg.LLM.Model
			}

			runtime := agent.NewRuntime(nil, cfg, nil, logger)
			base := agent.Invocation{
				Root:       root,
				Model:      model,
				AutoCommit: cfg.Project.AutoCommit && !noCommit,
			}

			app := tui.NewApp(runtime, base, fmt.Sprintf("%s/%s", cfg.LLM.Provider, model))
			if err := app.Run(); err != nil {
				return fmt.Errorf("UI error: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&root, "project-dir", "p", "", "Project directory (default: configured project root)")
	cmd.Flags().StringVar(&model, "model", "", "Model to use (default: configured model)")
	cmd.Flags().BoolVar(&noCommit, "no-commit", false, "Do not commit after completed tasks")

	return cmd
}
