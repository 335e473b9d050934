package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"carpool/internal/app"
	"carpool/internal/config"
)

func init() {
	rootCmd.AddCommand(copyCmd)

	copyCmd.Flags().String("to", "", "target store backend: file or postgres")
	copyCmd.Flags().String("to-data-dir", "", "data directory when the target is the file backend")
	_ = copyCmd.MarkFlagRequired("to")
}

var copyCmd = &cobra.Command{
	Use:   "copy",
	Short: "Copy the stored snapshot to another backend",
	Long: `Read the full snapshot from the configured backend and write it to the
target backend, replacing whatever the target held. Use it to move an
existing users.txt/rides.txt pair into Postgres or back.`,
	RunE: runCopy,
}

func runCopy(cmd *cobra.Command, args []string) error {
	target, _ := cmd.Flags().GetString("to")
	targetDir, _ := cmd.Flags().GetString("to-data-dir")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Store.Backend == config.StoreMemory {
		return fmt.Errorf("the memory backend holds nothing to copy")
	}
	if target == config.StoreMemory {
		return fmt.Errorf("copying to the memory backend has no effect")
	}
	if target == cfg.Store.Backend && (target != config.StoreFile || targetDir == "" || targetDir == cfg.Store.DataDir) {
		return fmt.Errorf("source and target are the same %s store", target)
	}

	snap, err := readSnapshot(cmd, cfg)
	if err != nil {
		return err
	}

	cfg.Store.Backend = target
	if targetDir != "" {
		cfg.Store.DataDir = targetDir
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	store, closer, err := app.NewSnapshotStore(ctx, cfg, nil, newLogger(cmd.ErrOrStderr()))
	if err != nil {
		return fmt.Errorf("open %s store: %w", target, err)
	}
	defer closer.Close()

	if err := store.Save(ctx, snap); err != nil {
		return fmt.Errorf("write %s store: %w", target, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Copied %d accounts and %d rides to the %s store\n",
		len(snap.Accounts), len(snap.Rides), target)
	return nil
}
