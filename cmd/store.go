package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/wistonmejia-maker/kpi-cas-report/internal/retry"
	"github.com/wistonmejia-maker/kpi-cas-report/internal/store"
	sfpkg "github.com/wistonmejia-maker/kpi-cas-report/pkg/salesforce"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "kpi-report.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initSalesforce() (sfpkg.Client, error) {
	if cfg.Salesforce.ClientID == "" {
		return nil, eris.New("salesforce client ID is required (KPI_SALESFORCE_CLIENT_ID)")
	}

	return sfpkg.NewJWTClient(sfpkg.Config{
		LoginURL: cfg.Salesforce.LoginURL,
		ClientID: cfg.Salesforce.ClientID,
		Username: cfg.Salesforce.Username,
		KeyPath:  cfg.Salesforce.KeyPath,
	},
		sfpkg.WithRateLimit(cfg.Salesforce.RateRPS),
		sfpkg.WithRetry(retry.Policy{MaxAttempts: cfg.Salesforce.MaxRetries}),
	)
}
