package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/iliyamo/nexura/internal/config"
)

// Publisher delivers auth events to a broker. Callers treat delivery as
// best effort: a failed publish is logged and never fails the request.
type Publisher interface {
	Publish(ctx context.Context, ev AuthEvent) error
	Close() error
}

// NewPublisher picks the implementation named by cfg.Driver.
func NewPublisher(cfg config.EventsConfig, log *zap.Logger) (Publisher, error) {
	switch cfg.Driver {
	case "", config.EventsDriverNone:
		return NopPublisher{}, nil
	case config.EventsDriverRabbitMQ:
		return NewRabbitPublisher(cfg.RabbitMQURL, cfg.Queue, log), nil
	case config.EventsDriverKafka:
		return NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, log), nil
	default:
		return nil, fmt.Errorf("unknown EVENTS_DRIVER %q", cfg.Driver)
	}
}

// NopPublisher discards every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, AuthEvent) error { return nil }
func (NopPublisher) Close() error                             { return nil }

const (
	rabbitDialTimeout = 2 * time.Second
	// rabbitRedialAfter is how long a failed dial short-circuits later
	// publishes.
	rabbitRedialAfter = 5 * time.Second
)

// ErrBrokerUnavailable is returned while a publisher waits out the pause
// after a failed connection attempt.
var ErrBrokerUnavailable = errors.New("broker unavailable")

// RabbitPublisher publishes persistent JSON messages to a durable queue on
// the default exchange. The connection is opened lazily and re-dialed
// after any failure, at most once per rabbitRedialAfter.
type RabbitPublisher struct {
	url   string
	queue string
	log   *zap.Logger
	now   func() time.Time

	// sem is a one-slot lock that callers can abandon when their
	// context ends.
	sem     chan struct{}
	conn    *amqp.Connection
	ch      *amqp.Channel
	retryAt time.Time
}

func NewRabbitPublisher(url, queue string, log *zap.Logger) *RabbitPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &RabbitPublisher{
		url:   url,
		queue: queue,
		log:   log.With(zap.String("component", "rabbitmq.publisher")),
		now:   time.Now,
		sem:   make(chan struct{}, 1),
	}
}

func (p *RabbitPublisher) lock(ctx context.Context) error {
	select {
	case p.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *RabbitPublisher) unlock() { <-p.sem }

// channel returns an open channel, dialing and declaring the queue when
// needed. The dial never outlives ctx. Callers hold the lock.
func (p *RabbitPublisher) channel(ctx context.Context) (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()
	if p.now().Before(p.retryAt) {
		return nil, ErrBrokerUnavailable
	}
	timeout := rabbitDialTimeout
	if dl, ok := ctx.Deadline(); ok {
		timeout = min(timeout, time.Until(dl))
	}
	if timeout <= 0 {
		return nil, context.DeadlineExceeded
	}
	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(timeout),
	})
	if err != nil {
		p.retryAt = p.now().Add(rabbitRedialAfter)
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		p.retryAt = p.now().Add(rabbitRedialAfter)
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		p.retryAt = p.now().Add(rabbitRedialAfter)
		return nil, fmt.Errorf("rabbitmq queue declare: %w", err)
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *RabbitPublisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.ch = nil, nil
}

func (p *RabbitPublisher) Publish(ctx context.Context, ev AuthEvent) error {
	body, err := ev.Encode()
	if err != nil {
		return err
	}
	if err := p.lock(ctx); err != nil {
		p.log.Warn("publish skipped", zap.String("type", ev.Type), zap.Error(err))
		return err
	}
	defer p.unlock()

	ch, err := p.channel(ctx)
	if err != nil {
		p.log.Warn("publish skipped", zap.String("type", ev.Type), zap.Error(err))
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    p.now().UTC(),
		Type:         ev.Type,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		p.log.Warn("publish failed", zap.String("type", ev.Type), zap.Error(err))
		p.reset()
		return err
	}
	return nil
}

func (p *RabbitPublisher) Close() error {
	_ = p.lock(context.Background())
	defer p.unlock()
	p.reset()
	return nil
}

// KafkaPublisher writes events keyed by user id so one user's events stay
// ordered within a partition.
type KafkaPublisher struct {
	w   *kafka.Writer
	log *zap.Logger
}

func NewKafkaPublisher(brokers []string, topic string, log *zap.Logger) *KafkaPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &KafkaPublisher{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		},
		log: log.With(zap.String("component", "kafka.publisher"), zap.String("topic", topic)),
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev AuthEvent) error {
	body, err := ev.Encode()
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:     []byte(ev.UserID),
		Value:   body,
		Headers: []kafka.Header{{Key: "type", Value: []byte(ev.Type)}},
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		p.log.Warn("publish failed", zap.String("type", ev.Type), zap.Error(err))
		return err
	}
	return nil
}

func (p *KafkaPublisher) Close() error { return p.w.Close() }
