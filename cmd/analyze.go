package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/clearcomply/compliance-cli/internal/engine"
	"github.com/clearcomply/compliance-cli/internal/extract"
)

var (
	analyzePolicyID   string
	analyzeFrameworks []string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Score a policy against framework control catalogs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		frameworks := analyzeFrameworks
		if len(frameworks) == 0 {
			frameworks = cfg.Analysis.Frameworks
		}
		if len(frameworks) == 0 {
			frameworks, err = st.ListFrameworks(ctx)
			if err != nil {
				return eris.Wrap(err, "list frameworks")
			}
		}

		analyzer := engine.NewAnalyzer(st, extract.NewFileExtractor(), cfg.Actor)
		summary, err := analyzer.Analyze(ctx, analyzePolicyID, frameworks)
		if err != nil {
			return eris.Wrap(err, "analyze policy")
		}

		zap.L().Info("analysis complete",
			zap.String("policy_id", analyzePolicyID),
			zap.Int("frameworks", len(summary.Results)),
			zap.Int("mappings", summary.MappingsCreated),
			zap.Int("gaps", summary.GapsCreated),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzePolicyID, "policy", "", "policy ID to analyze (required)")
	analyzeCmd.Flags().StringSliceVar(&analyzeFrameworks, "framework", nil, "framework to score (repeatable; default all)")
	_ = analyzeCmd.MarkFlagRequired("policy")
	rootCmd.AddCommand(analyzeCmd)
}
