package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	jwtAuth "github.com/MrEthical07/jwtAuth"
	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const schemaVersion = "1.0"

// KafkaConfig configures KafkaNotifier.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	Links   Links    `mapstructure:"links"`
}

// KafkaNotifier publishes one message per notification to a single topic,
// keyed by account id so every message for an account lands on the same
// partition in order.
//
// Delivery is synchronous: the engine reports ErrNotificationFailed when the
// broker did not acknowledge.
type KafkaNotifier struct {
	producer sarama.SyncProducer
	topic    string
	links    Links
	logger   *zap.Logger
	now      func() time.Time
}

type envelope struct {
	EventID   string    `json:"event_id"`
	Kind      string    `json:"kind"`
	AccountID string    `json:"account_id"`
	Recipient string    `json:"recipient"`
	Link      string    `json:"link,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// NewSaramaProducer builds a SyncProducer tuned for low-volume, must-ack
// notification traffic.
func NewSaramaProducer(brokers []string) (sarama.SyncProducer, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	cfg.Metadata.Retry.Max = 3
	cfg.Metadata.Retry.Backoff = 250 * time.Millisecond

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return producer, nil
}

// NewKafkaNotifier wraps producer. A nil logger is replaced with zap.NewNop.
func NewKafkaNotifier(producer sarama.SyncProducer, cfg KafkaConfig, logger *zap.Logger) *KafkaNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaNotifier{
		producer: producer,
		topic:    cfg.Topic,
		links:    cfg.Links,
		logger:   logger.Named("notify.kafka"),
		now:      time.Now,
	}
}

func (k *KafkaNotifier) NotifyConfirmationInstructions(ctx context.Context, n jwtAuth.Notification) error {
	return k.publish(ctx, n)
}

func (k *KafkaNotifier) NotifyRecoveryInstructions(ctx context.Context, n jwtAuth.Notification) error {
	return k.publish(ctx, n)
}

func (k *KafkaNotifier) NotifyCredentialChanged(ctx context.Context, n jwtAuth.Notification) error {
	return k.publish(ctx, n)
}

func (k *KafkaNotifier) NotifyEmailChanged(ctx context.Context, n jwtAuth.Notification) error {
	return k.publish(ctx, n)
}

func (k *KafkaNotifier) publish(ctx context.Context, n jwtAuth.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	link, err := k.links.For(n)
	if err != nil {
		return err
	}

	accountID := ""
	if n.Account != nil {
		accountID = n.Account.ID
	}

	body, err := json.Marshal(envelope{
		EventID:   uuid.NewString(),
		Kind:      string(n.Kind),
		AccountID: accountID,
		Recipient: n.Recipient,
		Link:      link,
		Timestamp: k.now().UTC(),
		Version:   schemaVersion,
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	partition, offset, err := k.producer.SendMessage(&sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(accountID),
		Value: sarama.ByteEncoder(body),
	})
	if err != nil {
		k.logger.Error("notification publish failed",
			zap.String("kind", string(n.Kind)),
			zap.String("account_id", accountID),
			zap.Error(err),
		)
		return fmt.Errorf("publish %s: %w", n.Kind, err)
	}

	k.logger.Debug("notification published",
		zap.String("kind", string(n.Kind)),
		zap.String("account_id", accountID),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
	)
	return nil
}

// Close closes the underlying producer.
func (k *KafkaNotifier) Close() error {
	return k.producer.Close()
}
