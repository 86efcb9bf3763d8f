package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flowgrid-io/flowgrid/internal/registry"
)

func toolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the registered tool definitions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			reg := registry.New()
			if err := reg.LoadDirectory(cfg.ToolsDir); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, tool := range reg.List() {
				kind := "legacy"
				if tool.Request != nil {
					kind = "structured"
				}
				fmt.Fprintf(out, "%-24s %-6s %s%s (%s)\n", tool.ID, tool.Method, tool.BaseURL, tool.Path, kind)
			}
			return nil
		},
	}
}
