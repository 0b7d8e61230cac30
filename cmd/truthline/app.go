package main

import (
	"context"
	"fmt"
	"io"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"truthline/internal/cache"
	"truthline/internal/config"
	"truthline/internal/edgar"
	"truthline/internal/logging"
	"truthline/internal/metrics"
	"truthline/internal/provider"
	"truthline/internal/truth"
	"truthline/pkg/model"
)

// app holds the components shared by the commands
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	logOut  io.Closer
	metrics *metrics.Recorder
	redis   *redis.Client
}

func newApp(ctx context.Context, cfgPath string, verbose bool) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, closer, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log, logOut: closer, metrics: metrics.New()}

	if cfg.Cache.Backend == config.BackendRedis {
		client, err := cache.Connect(ctx, cfg.Cache.Redis)
		if err != nil {
			closer.Close()
			return nil, err
		}
		a.redis = client
	}
	return a, nil
}

func (a *app) Close() {
	if a.redis != nil {
		a.redis.Close()
	}
	a.logOut.Close()
}

// newStore returns the configured cache backend for one namespace
func newStore[V any](a *app, namespace string) cache.Store[V] {
	var store cache.Store[V]
	if a.redis != nil {
		store = cache.NewRedisStore[V](a.redis, a.cfg.Cache.Redis.Prefix, namespace)
	} else {
		store = cache.NewMemoryStore[V]()
	}
	return cache.WithObserver(store, namespace, a.metrics)
}

// priceProvider is Twelve Data when keyed, Yahoo as fallback, behind the price cache
func (a *app) priceProvider() provider.PriceProvider {
	var sources []provider.PriceProvider
	if a.cfg.Prices.TwelveDataKey != "" {
		sources = append(sources, provider.NewTwelveDataProvider(a.cfg.Prices.TwelveDataKey,
			provider.WithTwelveDataSpacing(a.cfg.Prices.Spacing),
			provider.WithTwelveDataObserver(a.metrics),
		))
	}
	if a.cfg.Prices.Yahoo {
		sources = append(sources, provider.NewYahooProvider(provider.WithYahooObserver(a.metrics)))
	}

	plog := logging.Component(a.log, "prices")
	fallback := provider.NewFallbackProvider(plog, sources...)
	return provider.NewCachingProvider(fallback, newStore[[]model.PriceRow](a, "prices"), a.cfg.Cache.PriceTTL, plog)
}

func (a *app) truthService() *truth.Service {
	client := edgar.NewClient(a.cfg.SEC,
		edgar.WithTickerStore(newStore[map[string]string](a, "tickers")),
		edgar.WithObserver(a.metrics),
		edgar.WithLogger(logging.Component(a.log, "edgar")),
	)
	return truth.NewService(client, newStore[model.FinancialTruth](a, "truth"), a.cfg.Cache.TruthTTL, logging.Component(a.log, "truth"))
}
