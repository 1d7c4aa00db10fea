package repository

import (
	"context"

	"PredWatch/internal/domain/models"
	"PredWatch/internal/domain/repository"
	pkgkafka "PredWatch/pkg/kafka"
	applogger "PredWatch/pkg/logger"
)

// KafkaNotifier publishes decided alerts to the alerts topic, keyed by
// alert name so one metric's alerts land on one partition in order.
type KafkaNotifier struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaNotifier(producer *pkgkafka.Producer, topic string) repository.Notifier {
	return &KafkaNotifier{producer: producer, topic: topic}
}

func (n *KafkaNotifier) Notify(ctx context.Context, alerts []models.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(alerts))
	for i, a := range alerts {
		msgs[i] = pkgkafka.Message{
			Key:   []byte(a.Name),
			Value: a,
		}
	}
	return n.producer.PublishBatch(ctx, n.topic, msgs)
}

// Close is a no-op; the producer is shared and closed by its owner.
func (n *KafkaNotifier) Close() error {
	return nil
}

// LogNotifier is the no-broker fallback. Alerts go to the structured log
// so a single-node deployment without Kafka still surfaces them.
type LogNotifier struct {
	logger *applogger.Logger
}

func NewLogNotifier(logger *applogger.Logger) repository.Notifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, alerts []models.Alert) error {
	for _, a := range alerts {
		n.logger.Warn("alert",
			applogger.String("name", a.Name),
			applogger.String("severity", string(a.Severity)),
			applogger.String("message", a.Message),
		)
	}
	return nil
}

func (n *LogNotifier) Close() error { return nil }
