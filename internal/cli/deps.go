package cli

import (
	"context"
	"fmt"

	"github.com/rshade/carbonfocus/internal/advisor"
	"github.com/rshade/carbonfocus/internal/cache"
	"github.com/rshade/carbonfocus/internal/climate"
	"github.com/rshade/carbonfocus/internal/config"
	"github.com/rshade/carbonfocus/internal/emissions"
	"github.com/rshade/carbonfocus/internal/engine"
	"github.com/rshade/carbonfocus/internal/history"
	"github.com/rshade/carbonfocus/internal/logging"
)

// engineNeeds selects the optional collaborators a command needs.
type engineNeeds struct {
	store bool
	// storeOptional runs without history when the store cannot be opened.
	storeOptional bool
	advisor       bool
}

// buildEngine assembles an engine from the global configuration. The
// returned cleanup closes the history store and must always be called.
func buildEngine(ctx context.Context, needs engineNeeds) (*engine.Engine, func(), error) {
	log := logging.FromContext(ctx)
	cfg := config.GetGlobalConfig()
	noop := func() {}

	if err := cfg.Validate(); err != nil {
		return nil, noop, err
	}

	table, err := emissions.LoadFile(cfg.Data.FactorsFile)
	if err != nil {
		return nil, noop, err
	}

	if err = config.EnsureDataDirs(); err != nil {
		log.Warn().Ctx(ctx).Err(err).Msg("could not create data directories")
	}

	climateCache, err := cache.NewFileStore(cfg.CacheSettings())
	if err != nil {
		log.Warn().Ctx(ctx).Err(err).Msg("climate cache disabled")
		climateCache = nil
	}

	opts := []engine.Option{
		engine.WithClimate(climate.NewLiveProvider(climate.Options{
			Endpoints: cfg.Climate.Endpoints,
			Timeout:   cfg.Climate.Timeout,
			Cache:     climateCache,
			Offline:   cfg.Climate.Offline,
		})),
	}

	cleanup := noop
	if needs.store {
		store, openErr := history.Open(cfg.Data.HistoryBackend, cfg.Data.HistoryPath)
		switch {
		case openErr != nil && needs.storeOptional:
			log.Warn().Ctx(ctx).Err(openErr).Msg("history unavailable, continuing without it")
		case openErr != nil:
			return nil, noop, openErr
		default:
			opts = append(opts, engine.WithStore(store))
			cleanup = func() {
				if closeErr := store.Close(); closeErr != nil {
					log.Warn().Ctx(ctx).Err(closeErr).Msg("closing history store")
				}
			}
		}
	}

	if needs.advisor {
		gen, genErr := advisor.New(ctx, cfg.AdvisorSettings())
		if genErr != nil {
			cleanup()
			return nil, noop, fmt.Errorf("%w: %w", advisor.ErrAdvisoryUnavailable, genErr)
		}
		opts = append(opts, engine.WithAdvisor(gen))
	}

	log.Debug().Ctx(ctx).
		Str("operation", "build_engine").
		Str("factors_source", table.Source()).
		Bool("store", needs.store).
		Bool("advisor", needs.advisor).
		Bool("offline", cfg.Climate.Offline).
		Msg("engine ready")

	return engine.New(table, opts...), cleanup, nil
}
