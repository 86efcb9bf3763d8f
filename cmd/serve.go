package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/flowgrid-io/flowgrid/internal/frontend"
	"github.com/flowgrid-io/flowgrid/internal/logger"
	"github.com/flowgrid-io/flowgrid/internal/registry"
	"github.com/flowgrid-io/flowgrid/internal/storage"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the workflow API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if host, _ := cmd.Flags().GetString("host"); host != "" {
				cfg.Host = host
			}
			if port, _ := cmd.Flags().GetInt("port"); port != 0 {
				cfg.Port = port
			}
			ctx := logger.WithLogger(cmd.Context(), newLogger(cfg))
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, err := storage.New(cfg.DataDir)
			if err != nil {
				return err
			}

			reg := registry.New()
			if info, err := os.Stat(cfg.ToolsDir); err == nil && info.IsDir() {
				if err := reg.LoadDirectory(cfg.ToolsDir); err != nil {
					return fmt.Errorf("failed to load tool registry: %w", err)
				}
				logger.Info(ctx, "tool registry loaded", "dir", cfg.ToolsDir, "tools", len(reg.List()))
			} else {
				logger.Warn(ctx, "tools directory not found, starting with empty registry", "dir", cfg.ToolsDir)
			}

			server := frontend.NewServer(cfg, store, reg)
			return server.Serve(ctx)
		},
	}

	cmd.Flags().String("host", "", "bind address")
	cmd.Flags().IntP("port", "p", 0, "bind port")
	return cmd
}
