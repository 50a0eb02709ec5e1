package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/segmentio/kafka-go"
)

var ErrPublisherClosed = errors.New("publisher closed")

const (
	headerEventType    = "x-event-type"
	headerEventVersion = "x-event-version"
)

// KafkaPublisher queues envelopes and writes them from a single goroutine,
// keyed by order ID so one order's events stay in partition order.
type KafkaPublisher struct {
	writer *kafka.Writer
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
	inbox  chan kafka.Message
	done   chan struct{}
}

func NewKafkaPublisher(brokers []string, topic string, buffer int, logger *slog.Logger) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}
	if buffer <= 0 {
		buffer = 256
	}
	if logger == nil {
		logger = slog.Default()
	}

	p := &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
		logger: logger,
		inbox:  make(chan kafka.Message, buffer),
		done:   make(chan struct{}),
	}
	go p.run()
	return p, nil
}

func (p *KafkaPublisher) run() {
	defer close(p.done)
	for msg := range p.inbox {
		if err := p.writer.WriteMessages(context.Background(), msg); err != nil {
			p.logger.Error("failed to write event", "key", string(msg.Key), "error", err)
		}
	}
	if err := p.writer.Close(); err != nil {
		p.logger.Warn("failed to close kafka writer", "error", err)
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, env Envelope) error {
	msg, err := encodeMessage(env)
	if err != nil {
		return err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}

	select {
	case p.inbox <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close flushes queued events and waits for the writer to stop.
func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.inbox)
	}
	p.mu.Unlock()
	<-p.done
	return nil
}

func encodeMessage(env Envelope) (kafka.Message, error) {
	value, err := json.Marshal(env)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode envelope: %w", err)
	}
	return kafka.Message{
		Key:   []byte(env.CorrelationID),
		Value: value,
		Time:  env.OccurredAt,
		Headers: []kafka.Header{
			{Key: headerEventType, Value: []byte(env.EventType)},
			{Key: headerEventVersion, Value: []byte(strconv.Itoa(env.EventVersion))},
		},
	}, nil
}

func decodeMessage(msg kafka.Message) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope at offset %d: %w", msg.Offset, err)
	}
	return env, nil
}
