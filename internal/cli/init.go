package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/klubi/claw/internal/config"
	"github.com/klubi/claw/internal/provider"
)

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the claw configuration",
		Long: `Interactively choose a provider, API key, model and project defaults,
and write them to the config file (~/.claw/config.yaml unless --config is set).`,
		Example: `  claw init
  claw init --config ./claw.yaml --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cfgFile
			if path == "" {
				path = config.DefaultPath()
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config %s already exists. Use --force to overwrite it", path)
			}

			if err := runSetup(cfg, bufio.NewReader(os.Stdin), os.Stdout); err != nil {
				return err
			}
			if err := config.Save(cfg, path); err != nil {
				return err
			}

			bold := color.New(color.FgCyan, color.Bold)
			fmt.Println()
			bold.Println("Claw configured!")
			fmt.Println()
			fmt.Printf("  Config:   %s\n", path)
			fmt.Printf("  Provider: %s (%s)\n", cfg.LLM.Provider, cfg.LLM.Model)
			fmt.Println()

			color.New(color.Bold).Println("Next steps:")
			fmt.Println("  1. Check the setup:")
			fmt.Println("     claw status")
			fmt.Println()
			fmt.Println("  2. Run a task in the current directory:")
			fmt.Println("     claw run -- \"write a hello world program\"")
			fmt.Println()
			fmt.Println("  3. Or open the chat:")
			fmt.Println("     claw chat")

			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")

	return cmd
}

const maxPromptAttempts = 3

// runSetup asks for each setting, keeping the current value on empty input.
func runSetup(cfg *config.Config, in *bufio.Reader, out io.Writer) error {
	fmt.Fprintf(out, "Providers: %s\n", strings.Join(provider.Names(), ", "))
	for attempt := 0; ; attempt++ {
		p, err := promptLine(in, out, "Provider", cfg.LLM.Provider)
		if err != nil {
			return err
		}
		p = strings.ToLower(p)
		if provider.Known(p) {
			cfg.LLM.Provider = p
			break
		}
		if attempt == maxPromptAttempts-1 {
			return fmt.Errorf("unknown provider %q", p)
		}
		fmt.Fprintf(out, "Unknown provider %q.\n", p)
	}

	key, err := promptLine(in, out, "API key", maskKey(cfg.LLM.APIKey))
	if err != nil {
		return err
	}
	if key != maskKey(cfg.LLM.APIKey) {
		cfg.LLM.APIKey = key
	}

	if cfg.LLM.Model, err = promptLine(in, out, "Model", cfg.LLM.Model); err != nil {
		return err
	}
	if cfg.LLM.APIBase, err = promptLine(in, out, "API base URL (empty for the provider default)", cfg.LLM.APIBase); err != nil {
		return err
	}
	if cfg.Project.Root, err = promptLine(in, out, "Project root", cfg.Project.Root); err != nil {
		return err
	}

	commit, err := promptLine(in, out, "Commit after completed tasks (y/n)", yesNo(cfg.Project.AutoCommit))
	if err != nil {
		return err
	}
	cfg.Project.AutoCommit = strings.HasPrefix(strings.ToLower(commit), "y")

	iters, err := promptLine(in, out, "Max iterations", strconv.Itoa(cfg.Project.MaxIterations))
	if err != nil {
		return err
	}
	n, err := strconv.Atoi(iters)
	if err != nil || n <= 0 {
		return fmt.Errorf("invalid max iterations %q", iters)
	}
	cfg.Project.MaxIterations = n

	return nil
}

// promptLine prints label with its default and reads one line. Empty input
// or end of input keeps the default.
func promptLine(in *bufio.Reader, out io.Writer, label, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(out, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(out, "%s: ", label)
	}
	line, err := in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("reading input: %w", err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return def, nil
	}
	return line, nil
}

// maskKey shows only the last four characters of an API key.
func maskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}

func yesNo(b bool) string {
	if b {
		return "y"
	}
	return "n"
}
