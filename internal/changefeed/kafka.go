package changefeed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaConfig locates the change topic.
type KafkaConfig struct {
	Brokers           []string
	Topic             string
	Partitions        int32
	ReplicationFactor int16
}

// KafkaNotifier publishes signals to a Kafka topic and tails it from the end.
// Every instance reads every record; there is no consumer group.
type KafkaNotifier struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewKafkaNotifier connects to the brokers and makes sure the topic exists.
func NewKafkaNotifier(ctx context.Context, cfg KafkaConfig, logger *slog.Logger) (*KafkaNotifier, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka notifier: no brokers configured")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka notifier: topic is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.ConsumeTopics(cfg.Topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtEnd()),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}
	if err := EnsureTopic(ctx, kadm.NewClient(client), cfg); err != nil {
		client.Close()
		return nil, err
	}
	return &KafkaNotifier{client: client, topic: cfg.Topic, logger: logger}, nil
}

// EnsureTopic creates the change topic when it does not exist yet.
func EnsureTopic(ctx context.Context, adm *kadm.Client, cfg KafkaConfig) error {
	partitions := cfg.Partitions
	if partitions <= 0 {
		partitions = 1
	}
	replication := cfg.ReplicationFactor
	if replication <= 0 {
		replication = 1
	}
	resp, err := adm.CreateTopics(ctx, partitions, replication, nil, cfg.Topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", cfg.Topic, err)
	}
	for _, t := range resp {
		if t.Err != nil && !errors.Is(t.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", t.Topic, t.Err)
		}
	}
	return nil
}

func (n *KafkaNotifier) Notify(ctx context.Context, sig Signal) error {
	payload, err := encodeSignal(sig)
	if err != nil {
		return err
	}
	record := &kgo.Record{Topic: n.topic, Key: []byte(sig.Origin), Value: payload}
	if err := n.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce signal: %w", err)
	}
	return nil
}

func (n *KafkaNotifier) Listen(ctx context.Context, fn func(Signal)) error {
	for {
		fetches := n.client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			return nil
		}
		for _, fe := range fetches.Errors() {
			n.logger.WarnContext(ctx, "kafka fetch error",
				"topic", fe.Topic,
				"partition", fe.Partition,
				"error", fe.Err,
			)
		}
		fetches.EachRecord(func(rec *kgo.Record) {
			sig, err := decodeSignal(rec.Value)
			if err != nil {
				n.logger.WarnContext(ctx, "dropping malformed change signal",
					"topic", rec.Topic,
					"offset", rec.Offset,
					"error", err,
				)
				return
			}
			fn(sig)
		})
	}
}

func (n *KafkaNotifier) Close() error {
	n.client.Close()
	return nil
}
