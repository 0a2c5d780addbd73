package main

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/clearcomply/compliance-cli/internal/model"
)

// previewLimit caps how much of the document is stored inline on the
// policy row; the full file stays addressable via file_url.
const previewLimit = 50000

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Manage uploaded policy documents",
}

var (
	policyAddFile string
	policyAddText string
)

var policyAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a policy document file",
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

		preview := policyAddText
		if preview == "" {
			data, err := os.ReadFile(policyAddFile)
			if err != nil {
				return eris.Wrapf(err, "read policy file %s", policyAddFile)
			}
			preview = string(data)
		}
		if len(preview) > previewLimit {
			preview = preview[:previewLimit]
		}

		abs, err := filepath.Abs(policyAddFile)
		if err != nil {
			return eris.Wrap(err, "resolve policy path")
		}

		p := &model.Policy{
			FileName:       filepath.Base(policyAddFile),
			FileURL:        "file://" + abs,
			ContentPreview: preview,
			UploadedBy:     cfg.Actor,
		}
		if err := st.CreatePolicy(ctx, p); err != nil {
			return eris.Wrap(err, "create policy")
		}

		zap.L().Info("policy registered",
			zap.String("policy_id", p.ID),
			zap.String("file", p.FileName),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	},
}

var policyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered policies",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		policies, err := st.ListPolicies(ctx)
		if err != nil {
			return eris.Wrap(err, "list policies")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(policies)
	},
}

var policyShowID string

var policyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show one policy with its latest results",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		p, err := st.GetPolicy(ctx, policyShowID)
		if err != nil {
			return eris.Wrap(err, "get policy")
		}
		if p == nil {
			return eris.Errorf("policy not found: %s", policyShowID)
		}

		results, err := st.ListComplianceResults(ctx, policyShowID)
		if err != nil {
			return eris.Wrap(err, "list compliance results")
		}

		out := struct {
			Policy  *model.Policy            `json:"policy"`
			Results []model.ComplianceResult `json:"results,omitempty"`
		}{p, results}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	policyAddCmd.Flags().StringVar(&policyAddFile, "file", "", "path to the policy document (required)")
	policyAddCmd.Flags().StringVar(&policyAddText, "text", "", "inline policy text, skips reading the file contents")
	_ = policyAddCmd.MarkFlagRequired("file")

	policyShowCmd.Flags().StringVar(&policyShowID, "id", "", "policy ID (required)")
	_ = policyShowCmd.MarkFlagRequired("id")

	policyCmd.AddCommand(policyAddCmd, policyListCmd, policyShowCmd)
	rootCmd.AddCommand(policyCmd)
}
