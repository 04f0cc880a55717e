// pkg/eventsource/kafka/source.go
package kafka

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/eventhub-tools/ehreader/pkg/backoff"
	"github.com/eventhub-tools/ehreader/pkg/eventsource"
	"github.com/eventhub-tools/ehreader/pkg/logger"
)

var tracer = otel.Tracer("kafka-source")

// Config holds connection parameters for the Kafka-backed event source.
//
// Brokers — broker addresses.
// Topic   — the entity (topic) to consume.
// Version — Kafka protocol version string (e.g. "2.8.0").
// Backoff — retry strategy for the initial connection.
type Config struct {
	Brokers []string
	Topic   string
	Version string
	Backoff backoff.Config
}

func (c *Config) ApplyDefaults() {
	if c.Version == "" {
		c.Version = "2.8.0"
	}
}

func (c Config) Validate() error {
	if len(c.Brokers) == 0 {
		return fmt.Errorf("kafka source: brokers required")
	}
	if c.Topic == "" {
		return fmt.Errorf("kafka source: Topic required")
	}
	if c.Version == "" {
		return fmt.Errorf("kafka source: Version required")
	}
	return nil
}

// Source reads a topic through the low-level partition-consumer API.
// Consumer-group offsets are deliberately not used: resume positions come
// from the caller, not from the broker.
type Source struct {
	client   sarama.Client
	consumer sarama.Consumer
	topic    string
	log      *logger.Logger
}

// New connects to the cluster with retries and returns a Source.
func New(ctx context.Context, cfg Config, log *logger.Logger) (*Source, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log = log.Named("kafka-source")

	version, err := sarama.ParseKafkaVersion(cfg.Version)
	if err != nil {
		return nil, fmt.Errorf("kafka source: invalid Version %q: %w", cfg.Version, err)
	}
	sarCfg := sarama.NewConfig()
	sarCfg.Version = version
	sarCfg.Consumer.Return.Errors = true

	var client sarama.Client
	connectOp := func(ctx context.Context) error {
		c, err := sarama.NewClient(cfg.Brokers, sarCfg)
		if err != nil {
			return err
		}
		client = c
		return nil
	}

	ctxConn, span := tracer.Start(ctx, "Connect",
		trace.WithAttributes(attribute.StringSlice("brokers", cfg.Brokers), attribute.String("topic", cfg.Topic)))
	if err := backoff.Execute(ctxConn, cfg.Backoff, log, connectOp); err != nil {
		span.RecordError(err)
		span.End()
		return nil, fmt.Errorf("kafka source: connect failed: %w", err)
	}
	span.End()

	consumer, err := sarama.NewConsumerFromClient(client)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("kafka source: consumer init: %w", err)
	}

	log.Info("kafka source connected",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic", cfg.Topic),
	)
	return &Source{client: client, consumer: consumer, topic: cfg.Topic, log: log}, nil
}

// PartitionIDs lists the topic's partitions as strings.
func (s *Source) PartitionIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	partitions, err := s.client.Partitions(s.topic)
	if err != nil {
		return nil, fmt.Errorf("kafka source: list partitions: %w", err)
	}
	ids := make([]string, 0, len(partitions))
	for _, p := range partitions {
		ids = append(ids, strconv.FormatInt(int64(p), 10))
	}
	return ids, nil
}

// PartitionProperties fetches oldest/newest offsets for one partition.
func (s *Source) PartitionProperties(ctx context.Context, partitionID string) (eventsource.PartitionProperties, error) {
	if err := ctx.Err(); err != nil {
		return eventsource.PartitionProperties{}, err
	}
	partition, err := parsePartitionID(partitionID)
	if err != nil {
		return eventsource.PartitionProperties{}, err
	}

	oldest, err := s.client.GetOffset(s.topic, partition, sarama.OffsetOldest)
	if err != nil {
		return eventsource.PartitionProperties{}, fmt.Errorf("kafka source: oldest offset: %w", err)
	}
	newest, err := s.client.GetOffset(s.topic, partition, sarama.OffsetNewest)
	if err != nil {
		return eventsource.PartitionProperties{}, fmt.Errorf("kafka source: newest offset: %w", err)
	}

	return eventsource.PartitionProperties{
		PartitionID:                partitionID,
		BeginningSequenceNumber:    oldest,
		LastEnqueuedSequenceNumber: newest - 1,
		IsEmpty:                    oldest == newest,
	}, nil
}

// OpenPartition starts a stream over one partition.
func (s *Source) OpenPartition(ctx context.Context, partitionID string, pos eventsource.StartPosition) (eventsource.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	partition, err := parsePartitionID(partitionID)
	if err != nil {
		return nil, err
	}

	offset := sarama.OffsetOldest
	if pos.FromOffset {
		offset = pos.Offset
	}

	pc, err := s.consumer.ConsumePartition(s.topic, partition, offset)
	if err != nil {
		return nil, fmt.Errorf("kafka source: consume partition %s: %w", partitionID, err)
	}

	st := &stream{
		pc:     pc,
		events: make(chan *eventsource.Event),
		errs:   make(chan error),
	}
	go st.pumpEvents()
	go st.pumpErrors()
	return st, nil
}

// Close shuts down the consumer and the client.
func (s *Source) Close() error {
	if err := s.consumer.Close(); err != nil {
		_ = s.client.Close()
		return fmt.Errorf("kafka source: close consumer: %w", err)
	}
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("kafka source: close client: %w", err)
	}
	return nil
}

func parsePartitionID(partitionID string) (int32, error) {
	p, err := strconv.ParseInt(partitionID, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("kafka source: invalid partition id %q: %w", partitionID, err)
	}
	return int32(p), nil
}

// -----------------------------------------------------------------------------
// Stream
// -----------------------------------------------------------------------------

type stream struct {
	pc        sarama.PartitionConsumer
	events    chan *eventsource.Event
	errs      chan error
	closeOnce sync.Once
	closeErr  error
}

// pumpEvents translates ConsumerMessages into Events until the partition
// consumer's channel closes.
func (st *stream) pumpEvents() {
	defer close(st.events)
	for msg := range st.pc.Messages() {
		st.events <- &eventsource.Event{
			SequenceNumber: msg.Offset,
			Offset:         strconv.FormatInt(msg.Offset, 10),
			PartitionKey:   string(msg.Key),
			EnqueuedTime:   msg.Timestamp,
			Body:           msg.Value,
		}
	}
}

func (st *stream) pumpErrors() {
	defer close(st.errs)
	for cerr := range st.pc.Errors() {
		st.errs <- cerr.Err
	}
}

func (st *stream) Events() <-chan *eventsource.Event { return st.events }

func (st *stream) Errors() <-chan error { return st.errs }

func (st *stream) Close() error {
	st.closeOnce.Do(func() {
		st.closeErr = st.pc.Close()
	})
	return st.closeErr
}
