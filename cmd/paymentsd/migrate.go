package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tbourn/creator-payments/internal/config"
	"github.com/tbourn/creator-payments/internal/repo"
	"github.com/tbourn/creator-payments/internal/sysutil"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the ledger schema",
		Long: `Create or update the ledger schema and exit.

Provider credentials are not required, so this can run as an init step
before the first deploy.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			sysutil.ConfigureLogging(cfg.LogLevel, cfg.LogPretty)

			db, err := repo.Open(cfg.DB)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}
			if err := repo.AutoMigrate(db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			log.Info().Str("driver", cfg.DB.Driver).Msg("schema up to date")
			return nil
		},
	}
}
