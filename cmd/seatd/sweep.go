package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/metinatakli/cinex-booking/internal/app"
	"github.com/metinatakli/cinex-booking/internal/config"
	"github.com/metinatakli/cinex-booking/internal/repository"
	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Expire elapsed seat holds",
	Long: `Sweep flips ACTIVE holds whose expiry has passed to EXPIRED.

By default it keeps sweeping on the configured interval until interrupted,
which is useful when the API runs with sweeper.enabled=false. With --once it
runs a single pass and exits.`,
	RunE: runSweep,
}

var sweepOnce bool

func init() {
	rootCmd.AddCommand(sweepCmd)
	sweepCmd.Flags().BoolVar(&sweepOnce, "once", false, "run a single pass and exit")
}

func runSweep(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if cfg.Store != config.StorePostgres {
		return errors.New("sweep needs the postgres store, the in-memory store only lives inside seatd serve")
	}

	logger := app.NewLogger(*cfg, os.Stdout)

	db, err := app.NewDatabasePool(ctx, cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer db.Close()

	sw := newSweeper(cfg, repository.NewPostgresHoldRepository(db), logger)

	if !sweepOnce {
		return sw.Start(ctx)
	}

	expired, err := sw.Sweep(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "expired %d holds\n", expired)

	return nil
}
