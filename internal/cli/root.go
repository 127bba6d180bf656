package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/klubi/claw/internal/config"
	"github.com/klubi/claw/pkg/client"
)

var (
	cfgFile    string
	serverAddr string
	cfg        *config.Config
	apiClient  *client.Client
)

// NewRootCmd creates the top-level claw CLI command with all subcommands.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "claw",
		Short: "AI coding agent for your project directory",
		Long: `Claw drives a language model through a small set of file, search,
shell and git tools until a coding task is done.

Run a task locally with 'claw run', chat with 'claw chat', or start the
HTTP front end with 'claw serve' and submit tasks to it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			cfg = loaded

			// The server flag wins over the configured listen address.
			addr := cfg.ServerURL()
			if cmd.Flags().Changed("server") {
				addr = serverAddr
			}
			apiClient = client.New(addr)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath(), "Config file path")
	cmd.PersistentFlags().StringVar(&serverAddr, "server", "http://127.0.0.1:7117", "Claw server address")
	cmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "Output format: table|json|yaml")

	cmd.AddCommand(
		newInitCmd(),
		newStatusCmd(),
		newRunCmd(),
		newChatCmd(),
		newServeCmd(),
		newSubmitCmd(),
		newApplyCmd(),
		newGetCmd(),
		newDescribeCmd(),
		newLogsCmd(),
		newDeleteCmd(),
	)

	return cmd
}
