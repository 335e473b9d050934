// Package cli implements carpoolctl, the operator tool for inspecting stored
// carpool state and moving it between store backends.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"carpool/internal/app"
	"carpool/internal/config"
	"carpool/internal/repository"
)

var rootCmd = &cobra.Command{
	Use:   "carpoolctl",
	Short: "Inspect and migrate carpool state",
	Long: `carpoolctl reads the snapshot the carpool server persists and prints
accounts and rides, or copies the whole snapshot to another store backend.
It uses the same configuration as the server (CARPOOL_CONFIG and env vars).`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "TOML config file (overrides CARPOOL_CONFIG)")
	rootCmd.PersistentFlags().String("backend", "", "store backend: file, postgres or memory")
	rootCmd.PersistentFlags().String("data-dir", "", "data directory for the file backend")
}

// Execute runs the root command with the process arguments.
func Execute() error {
	return rootCmd.Execute()
}

// Run runs the root command with args, writing to out and errOut.
func Run(args []string, out, errOut io.Writer) error {
	rootCmd.SetArgs(args)
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)
	return rootCmd.Execute()
}

// loadConfig applies the persistent flags on top of the normal config sources.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		if err := os.Setenv(config.ConfigFileEnv, path); err != nil {
			return nil, err
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if backend, _ := cmd.Flags().GetString("backend"); backend != "" {
		cfg.Store.Backend = backend
	}
	if dir, _ := cmd.Flags().GetString("data-dir"); dir != "" {
		cfg.Store.DataDir = dir
	}
	return cfg, cfg.Validate()
}

// loadSnapshot opens the configured store and reads its snapshot.
func loadSnapshot(cmd *cobra.Command) (*repository.Snapshot, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return readSnapshot(cmd, cfg)
}

func readSnapshot(cmd *cobra.Command, cfg *config.Config) (*repository.Snapshot, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	store, closer, err := app.NewSnapshotStore(ctx, cfg, nil, newLogger(cmd.ErrOrStderr()))
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Backend, err)
	}
	defer closer.Close()

	return store.Load(ctx)
}

func newLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelWarn}))
}
