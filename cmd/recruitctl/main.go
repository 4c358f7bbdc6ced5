package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"rekrutacje/internal/backend"
	"rekrutacje/internal/cli"
	"rekrutacje/internal/client"
	"rekrutacje/internal/config"
	"rekrutacje/internal/localstore"
	applog "rekrutacje/internal/log"
	"rekrutacje/internal/records"
	"rekrutacje/internal/records/memory"
	"rekrutacje/internal/storage"
)

// sourceFlags select where records come from. At most one may be set; with
// none the backend from the environment is used.
type sourceFlags struct {
	file    string
	db      string
	server  string
	timeout time.Duration
}

var (
	flags    sourceFlags
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "recruitctl",
	Short: "Inspect and move recruitment records",
	Long: `recruitctl computes dashboard statistics and imports or exports records
without going through the web UI.

Records are read from one of:
  --file    a local store (.json) or a seed file (.yaml)
  --db      a SQLite database
  --server  a running rekrutacje server

Examples:
  recruitctl stats --db data/rekrutacje.db --department IT
  recruitctl stats --server http://localhost:8081 --date-from 2024-01-01
  recruitctl export --file data/local_store.json --out backup.json
  recruitctl import backup.json --db data/rekrutacje.db
  recruitctl clear --file data/local_store.json --yes`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cli.LoadEnvFile()
		var level slog.Level
		if err := level.UnmarshalText([]byte(logLevel)); err != nil {
			return fmt.Errorf("invalid --log-level %q: %w", logLevel, err)
		}
		logger := applog.New(applog.Config{Level: level, Output: os.Stderr, Component: "recruitctl"})
		applog.SetDefault(logger)
		return flags.validate()
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.file, "file", "", "Local store (.json) or seed file (.yaml)")
	pf.StringVar(&flags.db, "db", "", "SQLite database path")
	pf.StringVar(&flags.server, "server", "", "Base URL of a running server")
	pf.DurationVar(&flags.timeout, "timeout", 15*time.Second, "Timeout for --server requests")
	pf.StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(clearCmd)
}

func (f sourceFlags) validate() error {
	set := 0
	for _, v := range []string{f.file, f.db, f.server} {
		if v != "" {
			set++
		}
	}
	if set > 1 {
		return fmt.Errorf("--file, --db and --server are mutually exclusive")
	}
	return nil
}

func (f sourceFlags) remote() *client.Client {
	if f.server == "" {
		return nil
	}
	return client.New(f.server, f.timeout)
}

// openStore opens the selected local store. The returned close function is
// never nil.
func (f sourceFlags) openStore() (records.Store, func() error, error) {
	noop := func() error { return nil }

	switch {
	case f.db != "":
		repo, err := storage.NewSQLiteRepository(f.db)
		if err != nil {
			return nil, noop, err
		}
		return repo, repo.Close, nil
	case f.file != "":
		return openFile(f.file)
	}

	bcfg, err := backend.FromAppConfig(config.Load())
	if err != nil {
		return nil, noop, err
	}
	// Writes from the CLI are not announced on the broker.
	bcfg.AMQPURL = ""
	res, err := backend.NewFactory(slog.Default()).CreateBackend(context.Background(), bcfg)
	if err != nil {
		return nil, noop, err
	}
	return res.Store, res.Close, nil
}

func openFile(path string) (records.Store, func() error, error) {
	noop := func() error { return nil }
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		store, err := memory.NewFromFile(path)
		if err != nil {
			return nil, noop, err
		}
		return store, noop, nil
	default:
		repo, err := localstore.Open(path)
		if err != nil {
			return nil, noop, err
		}
		return repo, noop, nil
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
