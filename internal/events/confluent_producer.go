package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/ClarkHamofares/chat-app/internal/domain"
	"github.com/ClarkHamofares/chat-app/pkg/log"
)

// ConfluentProducer implements Publisher on top of a Kafka topic.
type ConfluentProducer struct {
	producer *kafka.Producer
	topic    string
	doneCh   chan struct{}
}

type presenceRecord struct {
	Type       string    `json:"type"`
	IdentityID string    `json:"identity_id"`
	Online     bool      `json:"online"`
	At         time.Time `json:"at"`
}

type messageRecord struct {
	Type    string          `json:"type"`
	Message *domain.Message `json:"message"`
}

// NewConfluentProducer creates the producer and ensures the topic exists.
func NewConfluentProducer(brokers, topic string) (*ConfluentProducer, error) {
	if err := ensureTopic(brokers, topic); err != nil {
		l := log.L()
		l.Warn().Err(err).Str("topic", topic).Msg("failed to ensure topic, may already exist")
	}

	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
		"acks":              "1",
		"linger.ms":         5,
		"compression.type":  "snappy",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	cp := &ConfluentProducer{
		producer: p,
		topic:    topic,
		doneCh:   make(chan struct{}),
	}

	go cp.deliveryReportHandler()

	return cp, nil
}

func ensureTopic(brokers, topic string) error {
	admin, err := kafka.NewAdminClient(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
	})
	if err != nil {
		return fmt.Errorf("failed to create admin client: %w", err)
	}
	defer admin.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	results, err := admin.CreateTopics(ctx, []kafka.TopicSpecification{
		{
			Topic:             topic,
			NumPartitions:     3,
			ReplicationFactor: 1,
		},
	})
	if err != nil {
		return err
	}

	for _, result := range results {
		if result.Error.Code() != kafka.ErrNoError && result.Error.Code() != kafka.ErrTopicAlreadyExists {
			return fmt.Errorf("failed to create topic %s: %v", result.Topic, result.Error)
		}
	}

	return nil
}

func (cp *ConfluentProducer) deliveryReportHandler() {
	for e := range cp.producer.Events() {
		switch ev := e.(type) {
		case *kafka.Message:
			if ev.TopicPartition.Error != nil {
				l := log.L()
				l.Error().Err(ev.TopicPartition.Error).Msg("kafka delivery failed")
			}
		}
	}
	close(cp.doneCh)
}

// PublishMessage emits a persisted message, keyed by sender for consistent
// partition assignment.
func (cp *ConfluentProducer) PublishMessage(ctx context.Context, msg *domain.Message) error {
	value, err := json.Marshal(messageRecord{Type: "message", Message: msg})
	if err != nil {
		return fmt.Errorf("failed to marshal message record: %w", err)
	}
	return cp.produce([]byte(msg.From), value)
}

// PublishPresence emits a presence transition for one identity.
func (cp *ConfluentProducer) PublishPresence(ctx context.Context, identityID string, online bool) error {
	value, err := json.Marshal(presenceRecord{
		Type:       "presence",
		IdentityID: identityID,
		Online:     online,
		At:         time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal presence record: %w", err)
	}
	return cp.produce([]byte(identityID), value)
}

func (cp *ConfluentProducer) produce(key, value []byte) error {
	err := cp.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &cp.topic,
			Partition: kafka.PartitionAny,
		},
		Key:   key,
		Value: value,
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to produce event: %w", err)
	}
	return nil
}

func (cp *ConfluentProducer) Close() error {
	cp.producer.Flush(5000)
	cp.producer.Close()
	<-cp.doneCh
	return nil
}
