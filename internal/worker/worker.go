package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"shopfeeds/internal/config"
	"shopfeeds/internal/logger"
	"shopfeeds/internal/storage"
	"shopfeeds/internal/worker/processors"

	"github.com/segmentio/kafka-go"
)

// Handler runs one decoded build event.
type Handler interface {
	Process(ctx context.Context, event processors.Event) error
}

type Worker struct {
	config  *config.Config
	logger  *logger.Logger
	reader  *kafka.Reader
	handler Handler
	locker  storage.Locker
}

// New returns a worker consuming the configured topic. locker may be nil;
// when set, the build lock of an event rejected before processing is
// released so the store is not blocked until the lock expires.
func New(cfg *config.Config, logger *logger.Logger, handler Handler, locker storage.Locker) *Worker {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        Brokers(cfg.KafkaBrokers),
		GroupID:        cfg.KafkaGroupID,
		Topic:          cfg.KafkaTopic,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		CommitInterval: time.Second,
	})

	return &Worker{
		config:  cfg,
		logger:  logger.Named("worker"),
		reader:  reader,
		handler: handler,
		locker:  locker,
	}
}

// Start consumes build requests until ctx is cancelled. Builds run one at a
// time; a failed build is recorded by the handler and does not stop the
// loop.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("Worker started, listening on topic %s...", w.config.KafkaTopic)

	for {
		message, err := w.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				w.logger.Info("Worker stopped")
				return
			}
			w.logger.Error("Failed to read message: %v", err)
			continue
		}

		w.logger.Debug("Received message: %s", string(message.Value))
		if err := w.handle(ctx, message.Value); err != nil {
			w.logger.Error("Failed to process event: %v", err)
			continue
		}
		w.logger.Debug("Event processed successfully")
	}
}

func (w *Worker) handle(ctx context.Context, value []byte) error {
	var event processors.Event
	if err := json.Unmarshal(value, &event); err != nil {
		return fmt.Errorf("failed to parse event: %w", err)
	}
	if event.BuildID == "" || event.StoreURL == "" {
		w.releaseLock(ctx, event)
		return fmt.Errorf("event %q is missing build_id or store_url", event.Type)
	}
	return w.handler.Process(ctx, event)
}

func (w *Worker) releaseLock(ctx context.Context, event processors.Event) {
	if w.locker == nil || event.StoreURL == "" || event.FeedType == "" {
		return
	}
	if err := w.locker.Release(context.WithoutCancel(ctx), storage.BuildKey(event.StoreURL, event.FeedType)); err != nil {
		w.logger.Warn("Failed to release build lock: %v", err)
	}
}

func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	if err := w.reader.Close(); err != nil {
		w.logger.Error("Failed to close reader: %v", err)
	}
}

// Publisher sends build requests to the queue.
type Publisher struct {
	writer *kafka.Writer
}

func NewPublisher(cfg *config.Config) *Publisher {
	return &Publisher{writer: &kafka.Writer{
		Addr:                   kafka.TCP(Brokers(cfg.KafkaBrokers)...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}}
}

// Publish enqueues event. Events of the same store and feed type share a
// partition so they are consumed in order.
func (p *Publisher) Publish(ctx context.Context, event processors.Event) error {
	if event.Type == "" {
		event.Type = processors.EventBuildRequested
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.FeedType + ":" + event.StoreURL),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// Brokers splits a comma separated broker list.
func Brokers(list string) []string {
	var out []string
	for _, b := range strings.Split(list, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
