package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/flowgrid-io/flowgrid/internal/graph"
	"github.com/flowgrid-io/flowgrid/internal/registry"
)

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <workflow.json>",
		Short: "Validate a workflow file and print its execution order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			wf, err := loadWorkflowFile(args[0])
			if err != nil {
				return err
			}

			reg := registry.New()
			if info, statErr := os.Stat(cfg.ToolsDir); statErr == nil && info.IsDir() {
				if err := reg.LoadDirectory(cfg.ToolsDir); err != nil {
					return fmt.Errorf("failed to load tool registry: %w", err)
				}
			}

			normalised, err := graph.Validate(wf, reg.ToolMap())
			if err != nil {
				return err
			}
			order, err := graph.TopologicalSort(normalised)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "workflow %s: %d steps, %d edges\n", wf.ID, len(normalised.Steps), len(normalised.Edges))
			for _, edge := range normalised.Edges {
				fmt.Fprintf(out, "  edge %s -> %s\n", edge.FromStepID, edge.ToStepID)
			}
			fmt.Fprintf(out, "execution order:\n")
			for i, stepID := range order {
				fmt.Fprintf(out, "  %d. %s\n", i+1, stepID)
			}
			return nil
		},
	}
}
