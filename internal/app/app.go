// internal/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/eventhub-tools/ehreader/internal/checkpoint"
	"github.com/eventhub-tools/ehreader/internal/config"
	"github.com/eventhub-tools/ehreader/internal/consumer"
	"github.com/eventhub-tools/ehreader/internal/export"
	"github.com/eventhub-tools/ehreader/internal/metrics"
	"github.com/eventhub-tools/ehreader/internal/progress"
	"github.com/eventhub-tools/ehreader/internal/storage"
	"github.com/eventhub-tools/ehreader/internal/storage/pebblestore"
	"github.com/eventhub-tools/ehreader/pkg/eventsource"
	"github.com/eventhub-tools/ehreader/pkg/eventsource/kafka"
	"github.com/eventhub-tools/ehreader/pkg/httpserver"
	"github.com/eventhub-tools/ehreader/pkg/logger"
	"github.com/eventhub-tools/ehreader/pkg/telemetry"
)

const (
	storeHealthTimeout    = 10 * time.Second
	listPartitionsTimeout = 15 * time.Second
	propertiesTimeout     = 10 * time.Second
	gracefulTimeout       = 15 * time.Second
)

// ErrNoPartitions is returned when the entity exists but has no partitions.
var ErrNoPartitions = errors.New("no partitions available")

// errReaderDone signals a clean reader exit through the errgroup.
var errReaderDone = errors.New("reader finished")

// Run wires the store, the event source and the reader together and blocks
// until ctx is cancelled or the reader finishes.
func Run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	metrics.Register(nil)

	// Tracing stays off unless an endpoint is configured.
	if cfg.Telemetry.Endpoint != "" {
		cfg.Telemetry.ServiceName = cfg.ServiceName
		cfg.Telemetry.ServiceVersion = cfg.ServiceVersion
		shutdownTracer, err := telemetry.InitTracer(ctx, cfg.Telemetry, log)
		if err != nil {
			return fmt.Errorf("init tracer: %w", err)
		}
		defer shutdownSafe(ctx, "telemetry", shutdownTracer, log)
	}

	// ---------- Store ----------
	storePath, err := storage.EntityStorePath(
		cfg.Inbound.BaseDataFolder, cfg.Inbound.DatabasePath, cfg.Kafka.Brokers[0])
	if err != nil {
		return fmt.Errorf("resolve store path: %w", err)
	}
	store, err := pebblestore.Open(pebblestore.Options{Path: storePath})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer shutdownSafe(ctx, "store", func(context.Context) error { return store.Close() }, log)
	log.Info("store opened", zap.String("path", storePath))

	healthCtx, cancelHealth := context.WithTimeout(ctx, storeHealthTimeout)
	err = store.HealthCheck(healthCtx)
	cancelHealth()
	if err != nil {
		return fmt.Errorf("store health check: %w", err)
	}

	// ---------- Event source ----------
	source, err := kafka.New(ctx, kafka.Config{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.Topic,
		Version: cfg.Kafka.Version,
		Backoff: cfg.Kafka.Backoff,
	}, log)
	if err != nil {
		return fmt.Errorf("event source init: %w", err)
	}
	defer shutdownSafe(ctx, "event-source", func(context.Context) error { return source.Close() }, log)

	if err := probeConnectivity(ctx, source, log); err != nil {
		return fmt.Errorf("connectivity probe: %w", err)
	}

	// ---------- Exporter ----------
	var exporter consumer.Exporter
	if cfg.Inbound.ReadToFile {
		exp := export.New(cfg.Inbound.BaseDataFolder, cfg.Inbound.ReceivedMsgPath,
			cfg.Inbound.DumpContentOnly, log)
		if err := exp.Prepare(); err != nil {
			return fmt.Errorf("prepare export target: %w", err)
		}
		exporter = exp
	}

	// ---------- Reader ----------
	tracker := progress.New(cfg.Inbound.FeedbackInterval, log)
	reader := consumer.New(
		consumer.Options{
			EntityPath:       cfg.Kafka.Topic,
			PartitionID:      cfg.Inbound.PartitionID,
			IgnoreCheckpoint: cfg.Inbound.IgnoreCheckpoint,
			DumpFilter:       cfg.Inbound.DumpFilter,
			Verbose:          cfg.Inbound.Verbose,
		},
		store,
		source,
		checkpoint.New(store, cfg.Kafka.Topic),
		exporter,
		tracker,
		log,
	)

	readiness := func() error {
		checkCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		return store.HealthCheck(checkCtx)
	}
	httpSrv, err := httpserver.New(cfg.HTTP, readiness, log)
	if err != nil {
		return fmt.Errorf("httpserver init: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return httpSrv.Start(gctx) })

	g.Go(func() error {
		// Flip the shutdown flag as soon as the context goes away so the
		// read loops stop on their next tick even if they are mid-receive.
		<-gctx.Done()
		reader.Shutdown()
		return nil
	})

	g.Go(func() error {
		if err := reader.Run(gctx); err != nil {
			return err
		}
		// A clean reader exit still has to unwind the group.
		return errReaderDone
	})

	err = g.Wait()
	if errors.Is(err, errReaderDone) {
		err = nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), gracefulTimeout)
	reader.GracefulShutdown(shutdownCtx)
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// probeConnectivity verifies the entity is reachable and logs its layout.
func probeConnectivity(ctx context.Context, source eventsource.Source, log *logger.Logger) error {
	listCtx, cancel := context.WithTimeout(ctx, listPartitionsTimeout)
	partitions, err := source.PartitionIDs(listCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("list partitions: %w", err)
	}
	if len(partitions) == 0 {
		return ErrNoPartitions
	}

	propsCtx, cancel := context.WithTimeout(ctx, propertiesTimeout)
	defer cancel()
	for _, pid := range partitions {
		props, err := source.PartitionProperties(propsCtx, pid)
		if err != nil {
			return fmt.Errorf("partition %s properties: %w", pid, err)
		}
		log.Info("partition reachable",
			zap.String("partition", props.PartitionID),
			zap.Int64("begin_seq", props.BeginningSequenceNumber),
			zap.Int64("last_seq", props.LastEnqueuedSequenceNumber),
			zap.Bool("empty", props.IsEmpty),
		)
	}
	return nil
}

// shutdownSafe runs a shutdown func and logs instead of failing.
func shutdownSafe(ctx context.Context, name string, fn func(context.Context) error, log *logger.Logger) {
	if err := fn(ctx); err != nil {
		log.Error("shutdown failed", zap.String("component", name), zap.Error(err))
	}
}
