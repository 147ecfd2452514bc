package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/rbac-system/internal/core/ports"
	"github.com/99minutos/rbac-system/internal/infrastructure/config"
	mongodb "github.com/99minutos/rbac-system/internal/infrastructure/db/mongo"
	"github.com/99minutos/rbac-system/internal/infrastructure/db/postgres"
)

// store is one opened storage backend.
type store struct {
	name  string
	repos ports.Repositories
	// migrate creates indexes (mongo) or applies the schema (postgres).
	migrate func(ctx context.Context) error
	ping    func(ctx context.Context) error
	close   func()
}

func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*store, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		log.Info().Str("database", cfg.Mongo.Database).Msg("connected to mongo")
		return &store{
			name:  config.DriverMongo,
			repos: mongodb.NewRepositories(db),
			migrate: func(ctx context.Context) error {
				return mongodb.EnsureIndexes(ctx, db)
			},
			ping: func(ctx context.Context) error {
				return client.Ping(ctx, nil)
			},
			close: func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := client.Disconnect(ctx); err != nil {
					log.Warn().Err(err).Msg("mongo disconnect")
				}
			},
		}, nil

	case config.DriverPostgres:
		pool, err := postgres.New(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, err
		}
		log.Info().Msg("connected to postgres")
		return &store{
			name:  config.DriverPostgres,
			repos: postgres.NewRepositories(pool),
			migrate: func(ctx context.Context) error {
				return postgres.Migrate(ctx, pool)
			},
			ping:  pool.Ping,
			close: pool.Close,
		}, nil
	}

	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}
