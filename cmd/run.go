package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/flowgrid-io/flowgrid/internal/dispatch"
	"github.com/flowgrid-io/flowgrid/internal/executor"
	"github.com/flowgrid-io/flowgrid/internal/logger"
	"github.com/flowgrid-io/flowgrid/internal/model"
	"github.com/flowgrid-io/flowgrid/internal/registry"
)

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <workflow.json>",
		Short: "Execute a workflow file and print the final run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := logger.WithLogger(cmd.Context(), newLogger(cfg))
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

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

			inputs, err := collectInputs(cmd)
			if err != nil {
				return err
			}

			run, err := executor.Execute(ctx, wf, reg.ToolMap(), inputs, cfg.ToolConfigs,
				executor.WithDispatchClient(dispatch.New(dispatch.WithTimeout(cfg.RequestTimeout))),
			)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(run, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))

			if run.Status != model.RunSuccess {
				return fmt.Errorf("run %s finished with status %s", run.ID, run.Status)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayP("input", "i", nil, "user input as key=value (repeatable)")
	cmd.Flags().String("inputs-file", "", "JSON file with user inputs")
	return cmd
}

func loadWorkflowFile(path string) (*model.Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow file: %w", err)
	}
	var wf model.Workflow
	if err := json.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("failed to parse workflow file %s: %w", path, err)
	}
	return &wf, nil
}

// collectInputs merges --inputs-file with repeated --input key=value
// flags; flags win on conflicts.
func collectInputs(cmd *cobra.Command) (map[string]any, error) {
	inputs := map[string]any{}

	if file, _ := cmd.Flags().GetString("inputs-file"); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read inputs file: %w", err)
		}
		if err := json.Unmarshal(data, &inputs); err != nil {
			return nil, fmt.Errorf("failed to parse inputs file %s: %w", file, err)
		}
	}

	pairs, _ := cmd.Flags().GetStringArray("input")
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid --input %q, expected key=value", pair)
		}
		inputs[key] = value
	}
	return inputs, nil
}
