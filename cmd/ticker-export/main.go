// Command ticker-export fetches the complete stock ticker reference listing
// and writes it to a timestamped CSV file.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/akshay033333/stocks-API-extractor/pkg/cache"
	"github.com/akshay033333/stocks-API-extractor/pkg/client"
	"github.com/akshay033333/stocks-API-extractor/pkg/config"
	"github.com/akshay033333/stocks-API-extractor/pkg/csvsink"
	"github.com/akshay033333/stocks-API-extractor/pkg/logging"
	"github.com/akshay033333/stocks-API-extractor/pkg/paginate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	conf, err := config.Load()
	if err != nil {
		logging.Setup(logging.DefaultConfig())
		logger := logging.NewLogger("main")
		logger.Fatal().Err(err).Msg("Configuration error")
	}

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(conf.LogLevel),
		Pretty: conf.LogPretty,
		Output: os.Stderr,
	})
	logger := logging.NewLogger("main")
	logger.Info().Str("api_key", conf.MaskedKey()).Msg("API key loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, conf, logger); err != nil {
		logger.Fatal().Err(err).Msg("Export failed")
	}
}

func run(ctx context.Context, conf *config.Config, logger zerolog.Logger) error {
	if conf.MetricsAddr != "" {
		go serveMetrics(conf.MetricsAddr, logger)
	}

	clientCfg := client.DefaultConfig(conf.APIKey)
	clientCfg.BaseURL = conf.BaseURL
	clientCfg.CacheTTL = conf.CacheTTL
	if pageCache := openCache(ctx, conf, logger); pageCache != nil {
		clientCfg.Cache = pageCache
	}

	c, err := client.New(clientCfg)
	if err != nil {
		return err
	}

	driver := paginate.NewDriver(c, nil)

	logger.Info().Msg("Fetching stock ticker reference data")
	result, err := driver.FetchAll(ctx, conf.ListURL())

	switch result.Outcome {
	case paginate.OutcomeCancelled:
		logger.Warn().
			Int("pages", result.Pages).
			Int("records_salvaged", len(result.Records)).
			Msg("Cancelled; partial result discarded")
		return err

	case paginate.OutcomeFailed:
		logger.Error().
			Err(err).
			Int("pages", result.Pages).
			Int("records_salvaged", len(result.Records)).
			Msg("Fetch failed; partial result discarded")
		return err
	}

	path := filepath.Join(conf.OutputDir, csvsink.Filename(conf.OutputPrefix, time.Now()))
	if err := csvsink.Write(result.Records, path); err != nil {
		if errors.Is(err, csvsink.ErrNoRecords) {
			logger.Warn().Msg("Listing is empty, nothing to write")
			return nil
		}
		return err
	}

	logger.Info().
		Int("pages", result.Pages).
		Int("records", len(result.Records)).
		Str("file", path).
		Msg("Export complete")
	return nil
}

// openCache connects the optional Redis page cache. Cache trouble is never
// fatal; the exporter falls back to plain fetching.
func openCache(ctx context.Context, conf *config.Config, logger zerolog.Logger) *cache.Manager {
	if conf.RedisURL == "" {
		return nil
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: conf.RedisURL,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Str("redis", conf.RedisURL).Msg("Redis unavailable, caching disabled")
		return nil
	}

	logger.Info().Str("redis", conf.RedisURL).Dur("ttl", conf.CacheTTL).Msg("Page cache enabled")
	return cache.NewManager(redisClient)
}

func serveMetrics(addr string, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logger.Info().Str("addr", addr).Msg("Serving metrics")
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Warn().Err(err).Msg("Metrics server stopped")
	}
}
