package main

import (
	"fmt"

	"github.com/rishi-narain/ad-tester/internal/config"
	"github.com/rishi-narain/ad-tester/internal/persona"
	"github.com/rishi-narain/ad-tester/internal/repository"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and seed the persona catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return err
		}

		db, err := repository.NewDB(cfg.Database.Type, cfg.Database.Path, logger)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := repository.MigrateDB(db, cfg.Database.Type, logger); err != nil {
			return err
		}

		defaults, err := persona.LoadFile(cfg.PersonasFile)
		if err != nil {
			return err
		}
		repo, err := repository.NewPersonaRepository(cmd.Context(), db, defaults, logger)
		if err != nil {
			return err
		}
		personas, err := repo.List(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Database %s is up to date (%d personas)\n", cfg.Database.Type, len(personas))
		return nil
	},
}
