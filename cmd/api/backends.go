package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/request-desk/internal/api/http/handlers"
	"github.com/spec-kit/request-desk/internal/config"
	"github.com/spec-kit/request-desk/internal/persistence"
	"github.com/spec-kit/request-desk/internal/repository"
)

// backends holds the repositories selected by configuration and the
// connections behind them.
type backends struct {
	Tickets  repository.TicketRepository
	Users    repository.UserRepository
	Sessions repository.SessionRepository
	Checkers []handlers.Checker

	closers []func()
}

func (b *backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func openBackends(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*backends, error) {
	b := &backends{
		Users:    repository.NewMemoryUserRepository(),
		Sessions: repository.NewMemorySessionRepository(),
	}
	codec, err := repository.NewSnapshotCodec(cfg.Store.SnapshotCodec)
	if err != nil {
		return nil, err
	}

	switch cfg.Store.Backend {
	case config.StoreMemory:
		b.Tickets = repository.NewMemoryTicketRepository()
	case config.StoreSQLite:
		db, err := persistence.OpenSQLite(ctx, cfg.SQLite, logger)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func() { _ = db.Close() })
		b.Checkers = append(b.Checkers, handlers.CheckFunc{Label: "sqlite", Fn: db.PingContext})
		if b.Tickets, err = repository.NewSQLiteTicketRepository(ctx, db, codec); err != nil {
			b.Close()
			return nil, err
		}
	case config.StorePostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, pg.Close)
		b.Checkers = append(b.Checkers, handlers.CheckFunc{Label: "postgres", Fn: pg.PoolHandle().Ping})
		b.Tickets = repository.NewPostgresTicketRepository(pg.PoolHandle())
		b.Users = repository.NewUserRepository(pg.PoolHandle())
	case config.StoreS3:
		client, err := persistence.NewS3Client(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		if b.Tickets, err = repository.NewS3TicketRepository(client, cfg.S3.Bucket, cfg.S3.Key, codec); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	if cfg.Store.SessionBackend == config.SessionRedis {
		rdb, err := persistence.NewRedis(ctx, cfg.Redis, logger)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.closers = append(b.closers, rdb.Close)
		b.Checkers = append(b.Checkers, handlers.CheckFunc{Label: "redis", Fn: rdb.Ping})
		b.Sessions = repository.NewRedisSessionRepository(rdb.Client)
	}
	return b, nil
}
