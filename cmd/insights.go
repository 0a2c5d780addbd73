package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var insightsPolicyID string

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "List insights generated for a policy",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		insights, err := st.ListInsights(ctx, insightsPolicyID)
		if err != nil {
			return eris.Wrap(err, "list insights")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(insights)
	},
}

func init() {
	insightsCmd.Flags().StringVar(&insightsPolicyID, "policy", "", "policy ID (required)")
	_ = insightsCmd.MarkFlagRequired("policy")
	rootCmd.AddCommand(insightsCmd)
}
