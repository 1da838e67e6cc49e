package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

// Topics published by the catalog
const (
	TopicQuestionCreated = "question.created"
	TopicUsageRecorded   = "usage.recorded"
)

// QuestionCreatedEvent is emitted after a question passes duplicate
// resolution and is committed.
type QuestionCreatedEvent struct {
	QuestionID  uint      `json:"question_id"`
	Fingerprint string    `json:"question_hash"`
	College     string    `json:"college"`
	UsageCount  int       `json:"usage_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// UsageRecordedEvent is emitted after a usage event lands in the ledger
type UsageRecordedEvent struct {
	QuestionID  uint      `json:"question_id"`
	Fingerprint string    `json:"question_hash"`
	College     string    `json:"college"`
	ExamName    string    `json:"exam_name"`
	UsedAt      time.Time `json:"used_at"`
}

// Publisher emits domain events. Implementations must not block request
// handling on broker availability; failures are logged by callers.
type Publisher interface {
	PublishQuestionCreated(ctx context.Context, event QuestionCreatedEvent) error
	PublishUsageRecorded(ctx context.Context, event UsageRecordedEvent) error
	Close() error
}

// KafkaPublisher publishes domain events to Kafka via watermill
type KafkaPublisher struct {
	publisher message.Publisher
	logger    *slog.Logger
}

func NewKafkaPublisher(brokers []string, logger *slog.Logger) (*KafkaPublisher, error) {
	publisher, err := kafka.NewPublisher(
		kafka.PublisherConfig{
			Brokers:   brokers,
			Marshaler: kafka.DefaultMarshaler{},
		},
		watermill.NewSlogLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}

	return &KafkaPublisher{
		publisher: publisher,
		logger:    logger,
	}, nil
}

func (p *KafkaPublisher) PublishQuestionCreated(ctx context.Context, event QuestionCreatedEvent) error {
	return p.publish(ctx, TopicQuestionCreated, event)
}

func (p *KafkaPublisher) PublishUsageRecorded(ctx context.Context, event UsageRecordedEvent) error {
	return p.publish(ctx, TopicUsageRecorded, event)
}

func (p *KafkaPublisher) publish(ctx context.Context, topic string, event interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.New().String(), payload)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.publisher.Close()
}

// MockPublisher records events in memory for tests and broker-less profiles
type MockPublisher struct {
	mu              sync.Mutex
	QuestionCreated []QuestionCreatedEvent
	UsageRecorded   []UsageRecordedEvent
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (p *MockPublisher) PublishQuestionCreated(_ context.Context, event QuestionCreatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.QuestionCreated = append(p.QuestionCreated, event)
	return nil
}

func (p *MockPublisher) PublishUsageRecorded(_ context.Context, event UsageRecordedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.UsageRecorded = append(p.UsageRecorded, event)
	return nil
}

func (p *MockPublisher) Close() error { return nil }
