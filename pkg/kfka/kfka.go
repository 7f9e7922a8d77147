package kfka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// Event is anything published on a topic. Key selects the message key.
type Event interface {
	Key() string
}

type Publisher struct {
	writer *kafka.Writer
}

func NewPublisher(brokers []string) *Publisher {
	return &Publisher{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}}
}

func (p *Publisher) Publish(ctx context.Context, topic string, e Event) error {
	msg, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", topic, err)
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(e.Key()),
		Value: msg,
	}); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// Handler processes one decoded event.
type Handler[T any] func(ctx context.Context, event T) error

type reader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consume reads topic as part of groupID until ctx is cancelled. Malformed
// messages and handler failures are logged and skipped.
func Consume[T any](ctx context.Context, logger *slog.Logger, brokers []string, groupID, topic string, handle Handler[T]) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: groupID,
	})
	consume(ctx, logger.With("topic", topic), r, handle)
}

func consume[T any](ctx context.Context, logger *slog.Logger, r reader, handle Handler[T]) {
	defer r.Close()
	for {
		m, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			logger.Error("read kafka message", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		var event T
		if err := json.Unmarshal(m.Value, &event); err != nil {
			logger.Warn("skip malformed message", "offset", m.Offset, "error", err)
			continue
		}
		if err := handle(ctx, event); err != nil {
			logger.Error("handle message", "offset", m.Offset, "error", err)
		}
	}
}
