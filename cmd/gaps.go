package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/clearcomply/compliance-cli/internal/model"
	"github.com/clearcomply/compliance-cli/internal/store"
)

var (
	gapsPolicyID  string
	gapsFramework string
	gapsStatus    string
)

var gapsCmd = &cobra.Command{
	Use:   "gaps",
	Short: "List compliance gaps",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		gaps, err := st.ListGaps(ctx, store.GapFilter{
			PolicyID:  gapsPolicyID,
			Framework: gapsFramework,
			Status:    model.GapStatus(gapsStatus),
		})
		if err != nil {
			return eris.Wrap(err, "list gaps")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(gaps)
	},
}

func init() {
	gapsCmd.Flags().StringVar(&gapsPolicyID, "policy", "", "filter by policy ID")
	gapsCmd.Flags().StringVar(&gapsFramework, "framework", "", "filter by framework")
	gapsCmd.Flags().StringVar(&gapsStatus, "status", "", "filter by status (Open, In Progress, Resolved, Deferred)")
	rootCmd.AddCommand(gapsCmd)
}
