package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/CdubVentures/specdesk/internal/cascade"
	"github.com/CdubVentures/specdesk/internal/layout"
	"github.com/CdubVentures/specdesk/internal/ledger"
	"github.com/CdubVentures/specdesk/internal/resolver"
	"github.com/CdubVentures/specdesk/internal/review"
	"github.com/CdubVentures/specdesk/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		path := cfg.Store.Path
		if path == "" {
			path = "specdesk.db"
		}
		return store.NewSQLite(path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: int32(cfg.Store.MaxConns),
			MinConns: int32(cfg.Store.MinConns),
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// env bundles the wired services every command needs.
type env struct {
	store    store.Store
	resolver *resolver.Resolver
	ledger   *ledger.Ledger
	review   *review.Service
	layout   *layout.Cache
	cascade  *cascade.Engine
}

func initEnv(ctx context.Context) (*env, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}

	res := resolver.New(st)
	lc := layout.New(st, cfg.Cascade.LayoutTTL())
	return &env{
		store:    st,
		resolver: res,
		ledger:   ledger.New(st),
		review:   review.NewService(st, res),
		layout:   lc,
		cascade:  cascade.NewEngine(st, lc, cfg.Cascade.Tolerance),
	}, nil
}

func (e *env) Close() {
	e.store.Close() //nolint:errcheck
}
