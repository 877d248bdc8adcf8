package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/interview-assistant/internal/schemas"
)

var checkStoreCmd = &cobra.Command{
	Use:   "check-store",
	Short: "Validate a candidate store file against its schema",
	Long: `Checks a file-backend store document without loading it into the app.
Defaults to the configured store.file_path.`,
	RunE: runCheckStore,
}

var checkStoreFile string

func init() {
	checkStoreCmd.Flags().StringVarP(&checkStoreFile, "file", "f", "", "Store file to check (default: configured store.file_path)")
	rootCmd.AddCommand(checkStoreCmd)
}

func runCheckStore(cmd *cobra.Command, _ []string) error {
	path := checkStoreFile
	if path == "" {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()
		path = cfg.Store.FilePath
	}

	if err := schemas.ValidateFile(schemas.Store, path); err != nil {
		return fmt.Errorf("store file %s is invalid: %w", path, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Store file %s is valid.\n", path)
	return nil
}
