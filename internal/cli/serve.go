package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/klubi/claw/internal/agent"
	"github.com/klubi/claw/internal/apiserver"
	"github.com/klubi/claw/internal/config"
	"github.com/klubi/claw/internal/store"
)

func newServeCmd() *cobra.Command {
	var (
		port    int
		host    string
		dataDir string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the claw HTTP server",
		Long:  "Start the API server that accepts tasks and runs them in the background.",
		Example: `  claw serve
  claw serve --port 8080 --data-dir /var/lib/claw`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// 1. Apply CLI overrides on top of the loaded configuration.
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("data-dir") {
				cfg.Store.DataDir = dataDir
			}

			// 2. Create logger.
			logger, err := cfg.Log.NewLogger()
			if err != nil {
				return fmt.Errorf("creating logger: %w", err)
			}
			defer logger.Sync()

			// 3. Open the task store.
			s, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			// 4. Create the task runtime.
			runtime := agent.NewRuntime(s, cfg, nil, logger)

			// 5. Create and start the API server.
			addr := cfg.ServerAddress()
			apiSrv := apiserver.NewServer(addr, s, runtime, logger,
				apiserver.WithAllowedOrigins(cfg.Server.AllowedOrigins...))

			banner := color.New(color.FgCyan, color.Bold)
			banner.Println("Claw Server")
			fmt.Printf("   API Server: %s\n", cfg.ServerURL())
			fmt.Printf("   Provider:   %s (%s)\n", cfg.LLM.Provider, cfg.LLM.Model)
			fmt.Printf("   Store:      %s\n", cfg.Store.Type)
			if cfg.Store.Type != "memory" {
				fmt.Printf("   DB Path:    %s\n", cfg.DBPath())
			}
			fmt.Println()

			errCh := make(chan error, 1)
			go func() {
				if err := apiSrv.Start(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			// 6. Wait for interrupt signal for graceful shutdown.
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			select {
			case sig := <-sigCh:
				logger.Info("received shutdown signal", zap.String("signal", sig.String()))
			case err := <-errCh:
				logger.Error("API server error", zap.Error(err))
				runtime.Shutdown(context.Background())
				return err
			}

			fmt.Println()
			logger.Info("shutting down gracefully...")

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()

			// Stop accepting tasks before cancelling the ones in flight.
			if err := apiSrv.Shutdown(shutdownCtx); err != nil {
				logger.Error("API server shutdown error", zap.Error(err))
			}
			if err := runtime.Shutdown(shutdownCtx); err != nil {
				logger.Error("runtime shutdown error", zap.Error(err))
			}

			logger.Info("claw server stopped")
			return nil
		},
	}

	cmd.Flags().IntVar(&port, "port", 7117, "API server port")
	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "API server host")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "Data directory (default: ~/.claw/data)")

	return cmd
}

// openStore opens the store selected by the configuration.
func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Type {
	case "memory":
		return store.NewMemoryStore(), nil
	case "bolt", "":
		if err := os.MkdirAll(cfg.Store.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data directory %s: %w", cfg.Store.DataDir, err)
		}
		s, err := store.NewBoltStore(cfg.DBPath())
		if err != nil {
			return nil, fmt.Errorf("opening store at %s: %w", cfg.DBPath(), err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store type %q (expected bolt or memory)", cfg.Store.Type)
	}
}
