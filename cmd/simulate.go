package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/clearcomply/compliance-cli/internal/engine"
)

var (
	simulatePolicyID string
	simulateControls []string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Project score impact of implementing missing controls",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		projector := engine.NewProjector(st)
		projection, err := projector.Simulate(ctx, simulatePolicyID, simulateControls)
		if err != nil {
			return eris.Wrap(err, "simulate controls")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(projection)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulatePolicyID, "policy", "", "policy ID (required)")
	simulateCmd.Flags().StringSliceVar(&simulateControls, "control", nil, "control ID to simulate implementing (repeatable)")
	_ = simulateCmd.MarkFlagRequired("policy")
	rootCmd.AddCommand(simulateCmd)
}
