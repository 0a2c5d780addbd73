package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/clearcomply/compliance-cli/internal/catalog"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the framework control catalog",
}

var catalogLoadPath string

var catalogLoadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load framework controls from a YAML seed file",
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

		path := catalogLoadPath
		if path == "" {
			path = cfg.Catalog.SeedPath
		}

		n, err := catalog.Import(ctx, st, path)
		if err != nil {
			return err
		}
		cmd.Printf("loaded %d controls from %s\n", n, path)
		return nil
	},
}

var catalogListFramework string

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List loaded frameworks or one framework's controls",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		if catalogListFramework == "" {
			frameworks, err := st.ListFrameworks(ctx)
			if err != nil {
				return eris.Wrap(err, "list frameworks")
			}
			return enc.Encode(frameworks)
		}

		controls, err := st.ListControls(ctx, catalogListFramework)
		if err != nil {
			return eris.Wrap(err, "list controls")
		}
		return enc.Encode(controls)
	},
}

func init() {
	catalogLoadCmd.Flags().StringVar(&catalogLoadPath, "file", "", "catalog YAML path (default from config)")
	catalogListCmd.Flags().StringVar(&catalogListFramework, "framework", "", "framework name to list controls for")
	catalogCmd.AddCommand(catalogLoadCmd, catalogListCmd)
	rootCmd.AddCommand(catalogCmd)
}
