package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/clearcomply/compliance-cli/internal/blob"
	"github.com/clearcomply/compliance-cli/internal/engine"
	"github.com/clearcomply/compliance-cli/internal/model"
)

var (
	reportPolicyID   string
	reportType       string
	reportFormat     string
	reportFrameworks []string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Compile a compliance report for an analyzed policy",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		storage, err := blob.NewFSStorage(cfg.Reports.OutputDir)
		if err != nil {
			return eris.Wrap(err, "init report storage")
		}

		reporter := engine.NewReporter(st, storage, cfg.Actor)
		rep, err := reporter.Compile(ctx, reportPolicyID, model.ReportType(reportType), reportFormat, reportFrameworks)
		if err != nil {
			return eris.Wrap(err, "compile report")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportPolicyID, "policy", "", "policy ID (required)")
	reportCmd.Flags().StringVar(&reportType, "type", string(model.ReportExecutiveSummary), "report type: Executive Summary, Gap Report, or Detailed Analysis")
	reportCmd.Flags().StringVar(&reportFormat, "format", "PDF", "report format label")
	reportCmd.Flags().StringSliceVar(&reportFrameworks, "framework", nil, "framework to include (repeatable; default all)")
	_ = reportCmd.MarkFlagRequired("policy")
	rootCmd.AddCommand(reportCmd)
}
