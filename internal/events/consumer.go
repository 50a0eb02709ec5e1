package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/segmentio/kafka-go"
)

type ConsumerConfig struct {
	Brokers []string
	Topic   string
	GroupID string
	Workers int
	// DeadLetterTopic receives events whose handler failed. Empty means Topic + ".dead-letter".
	DeadLetterTopic string
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads one topic as part of a consumer group. Workers commit
// offsets independently, so a later commit can pass an earlier message.
// A message whose handler fails is therefore copied to the dead-letter
// topic before its offset is committed; if that copy fails the offset is
// left alone and the event is only logged.
type Consumer struct {
	reader     messageReader
	deadLetter messageWriter
	workers    int
	logger     *slog.Logger
}

func NewConsumer(cfg ConsumerConfig, logger *slog.Logger) (*Consumer, error) {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" || cfg.GroupID == "" {
		return nil, fmt.Errorf("kafka brokers, topic and group id are required")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.DeadLetterTopic == "" {
		cfg.DeadLetterTopic = cfg.Topic + ".dead-letter"
	}
	if cfg.DeadLetterTopic == cfg.Topic {
		return nil, fmt.Errorf("dead-letter topic must differ from %s", cfg.Topic)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        cfg.Brokers,
			GroupID:        cfg.GroupID,
			Topic:          cfg.Topic,
			MinBytes:       1,
			MaxBytes:       10e6,
			CommitInterval: 0,
		}),
		deadLetter: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Topic:                  cfg.DeadLetterTopic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
		workers: cfg.Workers,
		logger:  logger,
	}, nil
}

// Run blocks until ctx is cancelled or the reader fails.
func (c *Consumer) Run(ctx context.Context, h Handler) error {
	defer func() {
		if err := c.reader.Close(); err != nil {
			c.logger.Warn("failed to close kafka reader", "error", err)
		}
		if err := c.deadLetter.Close(); err != nil {
			c.logger.Warn("failed to close dead-letter writer", "error", err)
		}
	}()

	jobs := make(chan kafka.Message)
	var wg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for msg := range jobs {
				c.process(ctx, worker, msg, h)
			}
		}(i)
	}
	defer wg.Wait()
	defer close(jobs)

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("fetch message: %w", err)
		}
		select {
		case jobs <- msg:
		case <-ctx.Done():
			return nil
		}
	}
}

func (c *Consumer) process(ctx context.Context, worker int, msg kafka.Message, h Handler) {
	logger := c.logger.With("worker", worker, "partition", msg.Partition, "offset", msg.Offset)

	env, err := decodeMessage(msg)
	if err != nil {
		// Poison messages are committed so the partition can make progress.
		logger.Error("dropping undecodable event", "error", err)
		c.commit(ctx, logger, msg)
		return
	}

	if err := h(ctx, env); err != nil {
		logger.Error("event handler failed", "event_type", env.EventType, "event_id", env.EventID, "error", err)
		if dlqErr := c.deadLetter.WriteMessages(ctx, deadLetterMessage(msg, err)); dlqErr != nil {
			logger.Error("failed to dead-letter event", "event_id", env.EventID, "error", dlqErr)
			return
		}
	}
	c.commit(ctx, logger, msg)
}

// deadLetterMessage copies msg with headers naming where it came from and why it failed.
func deadLetterMessage(msg kafka.Message, cause error) kafka.Message {
	headers := append([]kafka.Header(nil), msg.Headers...)
	headers = append(headers,
		kafka.Header{Key: "x-original-topic", Value: []byte(msg.Topic)},
		kafka.Header{Key: "x-original-partition", Value: []byte(strconv.Itoa(msg.Partition))},
		kafka.Header{Key: "x-original-offset", Value: []byte(strconv.FormatInt(msg.Offset, 10))},
		kafka.Header{Key: "x-error", Value: []byte(cause.Error())},
	)
	return kafka.Message{Key: msg.Key, Value: msg.Value, Headers: headers}
}

func (c *Consumer) commit(ctx context.Context, logger *slog.Logger, msg kafka.Message) {
	if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
		logger.Warn("failed to commit offset", "error", err)
	}
}
