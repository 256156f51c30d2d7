package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/fraudguard/fraud-service/internal/config"
	"github.com/fraudguard/fraud-service/internal/domain"
	"github.com/fraudguard/fraud-service/internal/pkg/logger"
)

// Publisher streams fraud alerts to Kafka for downstream consumers.
// Publishing is best effort: a failed publish is logged and never
// blocks the pipeline.
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
	log      *logger.Logger
}

// alertEvent is the wire format of a published alert.
type alertEvent struct {
	ID            string          `json:"id"`
	TransactionID string          `json:"transaction_id"`
	Severity      domain.Severity `json:"severity"`
	Title         string          `json:"title"`
	RiskScore     int             `json:"risk_score"`
	Amount        float64         `json:"amount"`
	UserID        string          `json:"user_id"`
	CreatedAt     time.Time       `json:"created_at"`
}

// NewPublisher connects a Kafka producer for the alerts topic.
func NewPublisher(cfg config.KafkaConfig, log *logger.Logger) (*Publisher, error) {
	sc := sarama.NewConfig()
	sc.Producer.RequiredAcks = sarama.WaitForLocal
	sc.Producer.Retry.Max = 3
	sc.Producer.Return.Successes = true
	sc.Producer.Compression = sarama.CompressionSnappy

	producer, err := sarama.NewSyncProducer(cfg.Brokers, sc)
	if err != nil {
		return nil, fmt.Errorf("events: create producer: %w", err)
	}

	return &Publisher{
		producer: producer,
		topic:    cfg.AlertsTopic,
		log:      log.Named("events"),
	}, nil
}

// PublishAlert sends one alert to the alerts topic, keyed by the
// transaction id so alerts for the same transaction stay ordered.
func (p *Publisher) PublishAlert(alert *domain.FraudAlert) error {
	event := alertEvent{
		ID:            alert.ID,
		TransactionID: alert.TransactionID,
		Severity:      alert.Severity,
		Title:         alert.Title,
		RiskScore:     alert.RiskScore,
		CreatedAt:     alert.CreatedAt,
	}
	if alert.Transaction != nil {
		event.Amount = alert.Transaction.Amount
		event.UserID = alert.Transaction.UserID
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("events: marshal alert %s: %w", alert.ID, err)
	}

	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(alert.TransactionID),
		Value: sarama.ByteEncoder(value),
	})
	if err != nil {
		return fmt.Errorf("events: publish alert %s: %w", alert.ID, err)
	}

	p.log.Debug("alert published",
		logger.StringField("alert_id", alert.ID),
		logger.IntField("partition", int(partition)),
		logger.IntField("offset", int(offset)),
	)
	return nil
}

// Close shuts the producer down.
func (p *Publisher) Close() error {
	return p.producer.Close()
}
