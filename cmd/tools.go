package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"intent-orchestrator/internal/logger"
	"intent-orchestrator/internal/usecase/orchestrator"

	"github.com/spf13/cobra"
)

var toolParams string

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the registered tools",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(context.Background(), true)
		if err != nil {
			return err
		}
		defer logger.Sync()
		defer a.Close()

		for _, t := range a.Orchestrator.ListTools() {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n  %s\n  operations: %s\n", t.Name, t.Description, strings.Join(t.Operations, ", "))
		}
		return nil
	},
}

var toolsCallCmd = &cobra.Command{
	Use:     "call <tool> [operation]",
	Short:   "Call a tool directly, bypassing intent classification",
	Example: `  intent-orchestrator tools call scc_tool find --params '{"name":"Paradise"}'`,
	Args:    cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		params := map[string]any{}
		if toolParams != "" {
			if err := json.Unmarshal([]byte(toolParams), &params); err != nil {
				return fmt.Errorf("--params must be a JSON object: %w", err)
			}
		}

		ctx := context.Background()
		a, err := setup(ctx, true)
		if err != nil {
			return err
		}
		defer logger.Sync()
		defer a.Close()

		req := &orchestrator.CallToolRequest{Tool: args[0], Params: params}
		if len(args) == 2 {
			req.Operation = args[1]
		}
		result, err := a.Orchestrator.CallTool(ctx, req)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), result)
	},
}

func init() {
	toolsCallCmd.Flags().StringVar(&toolParams, "params", "", "operation parameters as a JSON object")
	toolsCmd.AddCommand(toolsCallCmd)
}
