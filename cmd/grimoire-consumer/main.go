// Command grimoire-consumer runs a supervised Consumer Pool: N workers
// reading the event stream's consumer group and draining batches into a
// configured Sink, until a shutdown signal arrives or, in burst mode, until
// every worker's single recovery-then-main pass has finished.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	grimoire "github.com/grimoirelab-go/core"
	"github.com/grimoirelab-go/core/internal/config"
	"github.com/grimoirelab-go/core/pkg/logging"
	"github.com/grimoirelab-go/core/pkg/redisconn"
	"github.com/grimoirelab-go/core/pkg/sink"
	"github.com/grimoirelab-go/core/pkg/stream"
)

func main() {
	cfg, err := config.LoadConsumerProcess()
	if err != nil {
		slog.Error("grimoire-consumer: failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := logging.NewWithSentry(logging.SentryConfig{
		DSN:         cfg.Sentry.DSN,
		Environment: cfg.Sentry.Environment,
		MinLevel:    slog.LevelWarn,
	})

	ctx := context.Background()

	client := redisconn.MustOpen(ctx, cfg.Redis.URL,
		redisconn.WithPoolSize(cfg.Redis.PoolSize),
		redisconn.WithMinIdleConns(cfg.Redis.MinIdleConns),
		redisconn.WithMaxIdleTime(cfg.Redis.MaxIdleTime),
		redisconn.WithMaxActiveTime(cfg.Redis.MaxActiveTime),
		redisconn.WithRetry(cfg.Redis.RetryAttempts, cfg.Redis.RetryInterval),
		redisconn.WithReadTimeout(cfg.Redis.ReadTimeout),
		redisconn.WithWriteTimeout(cfg.Redis.WriteTimeout),
		redisconn.WithDialTimeout(cfg.Redis.DialTimeout),
	)
	backend := stream.NewRedisStream(client, cfg.Stream.Name)

	destination, err := buildSink(cfg.Sink)
	if err != nil {
		logger.Error("grimoire-consumer: failed to construct sink", slog.Any("error", err))
		os.Exit(1)
	}
	if err := destination.EnsureDestination(ctx, cfg.Sink.OpenSearchIndex); err != nil {
		logger.Error("grimoire-consumer: failed to ensure sink destination", slog.Any("error", err))
		os.Exit(1)
	}

	appOpts := []grimoire.ConsumerOption{
		grimoire.WithConsumerLogger(logger),
		grimoire.WithConsumerShutdownTimeout(cfg.ShutdownTimeout),
		grimoire.WithPoolOptions(
			stream.WithCleanupInterval(cfg.Pool.CleanupInterval),
			stream.WithForceStopGrace(cfg.Pool.ForceStopGrace),
		),
		grimoire.WithConsumerOptions(
			stream.WithBatchSize(cfg.Pool.BatchSize),
			stream.WithBlockTimeout(cfg.Pool.BlockTimeout),
			stream.WithRecoverIdle(cfg.Pool.RecoverIdle),
			stream.WithBackoff(cfg.Pool.BackoffBase, cfg.Pool.BackoffCap),
		),
	}
	if cfg.Pool.Burst {
		appOpts = append(appOpts, grimoire.WithBurstMode())
	}

	app := grimoire.NewConsumerApp(backend, destination, cfg.Stream.Group, cfg.Pool.Size, appOpts...)
	app.WithShutdownHook(redisconn.Shutdown(client))

	logger.Info("grimoire-consumer: starting", slog.Int("pool_size", cfg.Pool.Size), slog.Bool("burst", cfg.Pool.Burst))
	if err := app.Run(ctx); err != nil {
		logger.Error("grimoire-consumer: exited with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func buildSink(cfg config.Sink) (stream.Sink, error) {
	switch cfg.Kind {
	case "opensearch":
		return sink.NewOpenSearchSink(sink.OpenSearchConfig{
			BaseURL:  cfg.OpenSearchBaseURL,
			Username: cfg.OpenSearchUsername,
			Password: cfg.OpenSearchPassword,
			Index:    cfg.OpenSearchIndex,
		}, http.DefaultClient)
	case "s3":
		return sink.NewS3Sink(sink.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			PathStyle: cfg.S3PathStyle,
			Prefix:    cfg.S3Prefix,
		})
	default:
		return sink.NewMemorySink(), nil
	}
}
