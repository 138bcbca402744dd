package queue

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Handler processes one raw message body. Returning an error wrapping
// ErrMalformed drops the message; any other error is logged and the
// message is dropped as well, to avoid tight redelivery loops.
type Handler func(ctx context.Context, body []byte) error

// AuditSink appends one line per auth event to a log file.
type AuditSink struct {
	mu   sync.Mutex
	path string
}

// NewAuditSink ensures the parent directory of path exists.
func NewAuditSink(path string) (*AuditSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}
	return &AuditSink{path: path}, nil
}

// Handle decodes body and appends its audit line.
func (s *AuditSink) Handle(_ context.Context, body []byte) error {
	ev, err := DecodeAuthEvent(body)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(ev.AuditLine()); err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

// Consumer pulls events from a broker until ctx is cancelled.
type Consumer interface {
	Run(ctx context.Context, h Handler) error
	Close() error
}

// RabbitConsumer consumes a durable queue with manual acks and reconnects
// with exponential backoff whenever the broker goes away.
type RabbitConsumer struct {
	url   string
	queue string
	log   *zap.Logger
}

func NewRabbitConsumer(url, queue string, log *zap.Logger) *RabbitConsumer {
	if log == nil {
		log = zap.NewNop()
	}
	return &RabbitConsumer{url: url, queue: queue, log: log.With(zap.String("component", "rabbitmq.consumer"), zap.String("queue", queue))}
}

const maxBackoff = 30 * time.Second

// Run blocks until ctx is cancelled and returns ctx.Err().
func (c *RabbitConsumer) Run(ctx context.Context, h Handler) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warn("dial failed; retrying", zap.Error(err), zap.Duration("backoff", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			backoff = nextBackoff(backoff)
			continue
		}
		backoff = time.Second // reset after successful connect

		err = c.consume(ctx, conn, h)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn("consume loop ended; reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *RabbitConsumer) consume(ctx context.Context, conn *amqp.Connection, h Handler) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.Warn("set QoS failed", zap.Error(err))
	}
	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	c.log.Info("consumer started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := h(ctx, d.Body); err != nil {
				c.log.Error("handle message failed", zap.Error(err), zap.Bool("malformed", errors.Is(err, ErrMalformed)))
				_ = d.Nack(false, false) // reject, do not requeue
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *RabbitConsumer) Close() error { return nil }

// KafkaConsumer reads the events topic as part of a consumer group and
// commits each message after it was handled.
type KafkaConsumer struct {
	reader *kafka.Reader
	log    *zap.Logger
}

func NewKafkaConsumer(brokers []string, topic, groupID string, log *zap.Logger) *KafkaConsumer {
	if log == nil {
		log = zap.NewNop()
	}
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        groupID,
		Topic:          topic,
		StartOffset:    kafka.FirstOffset,
		MinBytes:       1,
		MaxBytes:       10e6,
		SessionTimeout: 10 * time.Second,
	})
	return &KafkaConsumer{
		reader: r,
		log:    log.With(zap.String("component", "kafka.consumer"), zap.String("topic", topic), zap.String("group", groupID)),
	}
}

func (c *KafkaConsumer) Run(ctx context.Context, h Handler) error {
	c.log.Info("consumer started")
	backoff := 200 * time.Millisecond
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if !errors.Is(err, io.EOF) {
				c.log.Warn("fetch failed; retry", zap.Error(err), zap.Duration("backoff", backoff))
			}
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			backoff = min(backoff*2, 5*time.Second)
			continue
		}
		backoff = 200 * time.Millisecond

		if err := h(ctx, msg.Value); err != nil {
			c.log.Error("handle message failed", zap.Int("partition", msg.Partition), zap.Int64("offset", msg.Offset), zap.Error(err))
			if !errors.Is(err, ErrMalformed) {
				continue
			}
			// malformed payloads are committed past so they are not refetched
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Warn("commit failed", zap.Error(err))
		}
	}
}

func (c *KafkaConsumer) Close() error { return c.reader.Close() }

func nextBackoff(d time.Duration) time.Duration {
	return min(d*2, maxBackoff)
}

// sleep waits for d or until ctx is done, reporting whether the full
// duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
