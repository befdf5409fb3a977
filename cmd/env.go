package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/adialm/health-resilience-sim/internal/projection"
	"github.com/adialm/health-resilience-sim/internal/refdata"
	"github.com/adialm/health-resilience-sim/internal/store"
)

// initEngine loads the configured dataset and builds a projection engine.
func initEngine(ctx context.Context) (*projection.Engine, error) {
	ds, err := refdata.Load(ctx, cfg.Data.Source())
	if err != nil {
		return nil, eris.Wrap(err, "load dataset")
	}
	return projection.New(ds)
}

// initStore opens the configured scenario store and applies migrations.
func initStore(ctx context.Context) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.SQLitePath
		if dsn == "" {
			dsn = "hrsim.db"
		}
		st, err = store.NewSQLite(dsn)
	case "postgres":
		if cfg.Store.DatabaseURL == "" {
			return nil, eris.New("postgres store requires store.database_url (HRSIM_STORE_DATABASE_URL)")
		}
		pool := cfg.Store.Pool
		st, err = store.ConnectPostgres(ctx, cfg.Store.DatabaseURL, &pool)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}
