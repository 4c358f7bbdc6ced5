package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"rekrutacje/internal/config"
	"rekrutacje/internal/localstore"
)

var clearConfirmed bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every record from a local store file",
	Long: `Delete the whole record collection from a local store (.json). The store
is taken from --file, or from LOCAL_STORE_PATH when DATA_BACKEND=local.
Seed files, databases and servers are never cleared. Export first if the
data may be needed again.`,
	Args: cobra.NoArgs,
	RunE: runClear,
}

func init() {
	clearCmd.Flags().BoolVar(&clearConfirmed, "yes", false, "Confirm deleting all records")
}

// localStorePath resolves the store clear may touch.
func (f sourceFlags) localStorePath() (string, error) {
	if f.db != "" || f.server != "" {
		return "", errors.New("clear only works on a local store file")
	}
	path := f.file
	if path == "" {
		cfg := config.Load()
		if cfg.DataBackend != config.BackendLocal {
			return "", errors.New("no local store: pass --file or set DATA_BACKEND=local")
		}
		path = cfg.LocalStorePath
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "", fmt.Errorf("%s is a seed file, not a local store", path)
	}
	return path, nil
}

func runClear(cmd *cobra.Command, _ []string) error {
	path, err := flags.localStorePath()
	if err != nil {
		return err
	}
	if !clearConfirmed {
		return fmt.Errorf("refusing to delete all records in %s without --yes", path)
	}

	repo, err := localstore.Open(path)
	if err != nil {
		return err
	}
	n, err := repo.Clear(cmd.Context())
	if err != nil {
		return fmt.Errorf("clear %s: %w", path, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d records from %s\n", n, path)
	return nil
}
