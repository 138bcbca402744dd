// Command audit-consumer reads auth events from the configured broker and
// appends one line per event to the audit log.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/iliyamo/nexura/internal/config"
	"github.com/iliyamo/nexura/internal/logging"
	"github.com/iliyamo/nexura/internal/queue"
)

// The consumer needs no database or token secrets, so it reads only the
// broker and logging settings instead of the full API config.
func main() {
	_ = godotenv.Load()
	logger, err := logging.New(logging.Options{
		Level: os.Getenv("LOG_LEVEL"), Service: "nexura-audit", Env: os.Getenv("APP_ENV"), Version: os.Getenv("APP_VERSION"),
	})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(config.LoadEventsConfig(), logger); err != nil {
		logger.Fatal("consumer stopped", zap.Error(err))
	}
}

func run(ev config.EventsConfig, logger *zap.Logger) error {
	sink, err := queue.NewAuditSink(ev.AuditLogPath)
	if err != nil {
		return err
	}

	var c queue.Consumer
	switch ev.Driver {
	case config.EventsDriverRabbitMQ:
		c = queue.NewRabbitConsumer(ev.RabbitMQURL, ev.Queue, logger)
	case config.EventsDriverKafka:
		c = queue.NewKafkaConsumer(ev.KafkaBrokers, ev.KafkaTopic, ev.KafkaGroupID, logger)
	default:
		return errors.New("EVENTS_DRIVER must be rabbitmq or kafka")
	}
	defer c.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("consuming auth events", zap.String("driver", ev.Driver), zap.String("audit_log", ev.AuditLogPath))
	if err := c.Run(ctx, sink.Handle); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("consumer stopped")
	return nil
}
