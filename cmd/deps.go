package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/bizsim/internal/profile"
	"github.com/sells-group/bizsim/internal/store"
	"github.com/sells-group/bizsim/pkg/acs"
	"github.com/sells-group/bizsim/pkg/censusgeo"
	"github.com/sells-group/bizsim/pkg/trends"
)

// initStore opens the configured store backend and runs migrations.
func initStore(ctx context.Context) (store.Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	case "sqlite":
		st, err = store.NewSQLite(cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

// newAnalyzer assembles the area-analysis pipeline. The detailed enrichment
// source only exists for the live strategy; the cached strategy reads the
// preloaded tract reference table instead.
func newAnalyzer(st store.Store) *profile.Analyzer {
	resolver := censusgeo.NewClient(
		censusgeo.WithBaseURL(cfg.Census.GeocoderBaseURL),
		censusgeo.WithRateLimit(cfg.Census.GeocoderRPS),
	)

	var standard, detailed profile.Source
	if cfg.Profile.Source == "cached" {
		standard = profile.NewCachedSource(st)
	} else {
		acsClient := acs.NewClient(cfg.Census.APIKey,
			acs.WithBaseURL(cfg.Census.ACSBaseURL),
			acs.WithRateLimit(cfg.Census.ACSRPS),
		)
		standard = profile.NewLiveSource(acsClient, cfg.Profile.MarketYear)
		detailed = profile.NewDetailedSource(acsClient, cfg.Profile.DetailedYear)
	}

	return profile.NewAnalyzer(resolver, standard, detailed, st)
}

// newTrendsClient builds the search-trend provider client.
func newTrendsClient() trends.Client {
	return trends.NewClient(
		trends.WithBaseURL(cfg.Trends.BaseURL),
		trends.WithRequestInterval(time.Duration(cfg.Trends.RequestIntervalSecs)*time.Second),
	)
}
