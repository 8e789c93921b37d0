package main

import (
	"context"

	"github.com/rishi-narain/ad-tester/internal/config"
	"github.com/rishi-narain/ad-tester/internal/persona"
	"github.com/rishi-narain/ad-tester/internal/repository"

	"go.uber.org/zap"
)

// openCatalog returns the persona catalog the server uses, from the
// configured database. When the database cannot be opened it falls back
// to the file or built-in defaults. The returned func releases the
// database.
func openCatalog(ctx context.Context, cfg *config.Config) (persona.Store, func(), error) {
	defaults, err := persona.LoadFile(cfg.PersonasFile)
	if err != nil {
		return nil, nil, err
	}

	db, err := repository.NewDB(cfg.Database.Type, cfg.Database.Path, logger)
	if err != nil {
		logger.Warn("Database unavailable, using default personas", zap.Error(err))
		return persona.NewMemoryStore(defaults), func() {}, nil
	}
	if err := repository.MigrateDB(db, cfg.Database.Type, logger); err != nil {
		db.Close()
		return nil, nil, err
	}

	repo, err := repository.NewPersonaRepository(ctx, db, defaults, logger)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return repo, func() { db.Close() }, nil
}
