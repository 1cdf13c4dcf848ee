package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/TejasMate/Quantra-sub003/pkg/config"
	"github.com/TejasMate/Quantra-sub003/pkg/logging"
	"github.com/TejasMate/Quantra-sub003/pkg/metrics"
	"github.com/TejasMate/Quantra-sub003/pkg/server/aggregator"
	"github.com/TejasMate/Quantra-sub003/pkg/server/api"
	"github.com/TejasMate/Quantra-sub003/pkg/server/cache"
	"github.com/TejasMate/Quantra-sub003/pkg/server/engine"
	"github.com/TejasMate/Quantra-sub003/pkg/server/security"
	"github.com/TejasMate/Quantra-sub003/pkg/server/sources"
	"github.com/TejasMate/Quantra-sub003/pkg/version"

	// Import sources to register them
	_ "github.com/TejasMate/Quantra-sub003/pkg/server/sources/cex"
	_ "github.com/TejasMate/Quantra-sub003/pkg/server/sources/chainlink"
	_ "github.com/TejasMate/Quantra-sub003/pkg/server/sources/static"
)

var (
	configFile = flag.String("config", "config/config.yaml", "Path to configuration file")
	envFile    = flag.String("env", ".env", "Path to dotenv file (ignored if missing)")
	showVer    = flag.Bool("version", false, "Show version and exit")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Printf("price-guard version %s\n", version.Version)
		os.Exit(0)
	}

	if err := config.LoadEnv(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load env file: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobal(logger)

	logger.Info("Starting price-guard", "version", version.Version, "assets", len(cfg.Assets))

	if cfg.Metrics.Enabled {
		metrics.Init()
		go func() {
			logger.Info("Starting metrics server", "addr", cfg.Metrics.Addr)
			if err := metrics.ServeHTTP(cfg.Metrics.Addr, cfg.Metrics.Path); err != nil {
				logger.Error("Metrics server failed", "error", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("price-guard failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *logging.Logger) error {
	var closers []sources.Closer
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()

	opts := engine.Options{
		Owner:         cfg.Owner,
		Params:        cfg.Engine.Security.Params(),
		Cooldown:      cfg.Engine.CircuitBreaker.Cooldown.ToDuration(),
		PriceDecimals: uint8(cfg.Engine.PriceDecimals), // #nosec G115 -- validated 0-36
		Logger:        logger,
	}

	agg, err := aggregator.NewAggregator(cfg.Engine.AggregateMode, logger)
	if err != nil {
		return err
	}
	opts.Aggregator = agg

	if rl := cfg.Engine.RateLimit; rl.Enabled {
		opts.RateLimiter = security.NewRateLimiter(rl.PerSecond, rl.Burst)
		logger.Info("Rate limiting enabled", "per_second", rl.PerSecond, "burst", rl.Burst)
	}

	if rc := cfg.Cache.Redis; rc.Enabled {
		redisCache, err := cache.NewRedisCache(ctx, cache.Options{
			Addr:      rc.Addr,
			Password:  rc.Password,
			DB:        rc.DB,
			KeyPrefix: rc.KeyPrefix,
			TTL:       rc.TTL.ToDuration(),
		})
		if err != nil {
			return err
		}
		defer redisCache.Close()
		opts.Cache = redisCache
		logger.Info("Redis price cache enabled", "addr", rc.Addr)
	}

	var hub *api.EventHub
	if cfg.Server.WebSocket.Enabled {
		hub = api.NewEventHub(cfg.Server.WebSocket.Addr, logger)
		opts.Sinks = append(opts.Sinks, hub)
	}

	eng, err := engine.New(opts)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}

	ownerCtx := engine.WithCaller(ctx, cfg.Owner)
	for _, asset := range cfg.Assets {
		for _, feed := range asset.Feeds {
			src, err := createSource(feed.SourceConfig, logger, &closers)
			if err != nil {
				return err
			}
			index, err := eng.AddFeed(ownerCtx, asset.Asset, engine.FeedSpec{
				Source:          src,
				Name:            feed.Name,
				Weight:          feed.Weight,
				MaxDeviationBps: feed.MaxDeviationBps,
				Heartbeat:       feed.Heartbeat.ToDuration(),
			})
			if err != nil {
				return fmt.Errorf("failed to register feed %s: %w", feed.Name, err)
			}
			logger.Info("Registered feed", "asset", asset.Asset, "feed", feed.Name, "type", feed.Type, "index", index)
		}
	}

	if em := cfg.Engine.Emergency; em.Enabled {
		src, err := createSource(em.Source, logger, &closers)
		if err != nil {
			return err
		}
		if err := eng.SetEmergencyOracle(ownerCtx, src, true); err != nil {
			return fmt.Errorf("failed to enable emergency oracle: %w", err)
		}
		logger.Warn("Emergency oracle enabled at startup", "source", em.Source.Name)
	}

	server := api.NewServer(cfg.Server.HTTP.Addr, eng, cfg.Server.APIKeys, logger)
	if tls := cfg.Server.HTTP.TLS; tls.Enabled {
		server.SetTLS(tls.Cert, tls.Key)
	}

	errChan := make(chan error, 2)
	go func() {
		errChan <- server.Start()
	}()
	if hub != nil {
		go func() {
			errChan <- hub.Start(context.Background())
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case runErr = <-errChan:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("Shutting down gracefully...")
	if hub != nil {
		hub.Stop()
	}
	if err := server.Stop(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown failed", "error", err)
	}
	return runErr
}

// createSource builds an adapter through the registry, handing it the logger.
func createSource(sc config.SourceConfig, logger *logging.Logger, closers *[]sources.Closer) (sources.Adapter, error) {
	conf := make(map[string]interface{}, len(sc.Config)+1)
	for k, v := range sc.Config {
		conf[k] = v
	}
	conf["logger"] = logger

	src, err := sources.Create(sc.Type, sc.Name, conf)
	if err != nil {
		return nil, fmt.Errorf("failed to create source %s (%s): %w", sc.Name, sc.Type, err)
	}
	if c, ok := src.(sources.Closer); ok {
		*closers = append(*closers, c)
	}
	logger.Info("Initialized source", "type", sc.Type, "name", sc.Name, "description", src.Description())
	return src, nil
}
