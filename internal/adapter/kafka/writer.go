package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/calfire-rainfall-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Table names carried in the "table" message header.
const (
	TableWildfire = "wildfire_monthly"
	TableRainfall = "rainfall_monthly"
	TableAnalysis = "wildfire_rainfall_analysis"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher produces one message per summary row to a Kafka topic.
type Publisher struct {
	writer messageWriter
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the summary topic.
func NewPublisher(brokers []string, topic string, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Publisher{writer: w, logger: logger}
}

// Publish serializes every row of the three tables and sends them in a single
// WriteMessages call. Rows of the same county and month share a key, so they
// land on the same partition.
func (p *Publisher) Publish(ctx context.Context, run domain.Run, tables domain.Tables) error {
	msgs, err := buildMessages(run, tables)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish summaries: %w", err)
	}
	p.logger.Info("summaries published to kafka", "messages", len(msgs))
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

func buildMessages(run domain.Run, tables domain.Tables) ([]kafkago.Message, error) {
	msgs := make([]kafkago.Message, 0, len(tables.Wildfire)+len(tables.Rainfall)+len(tables.Analysis))
	for _, r := range tables.Wildfire {
		msg, err := serializeToMessage(run, TableWildfire, r.County, r.Month, r)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	for _, r := range tables.Rainfall {
		msg, err := serializeToMessage(run, TableRainfall, r.County, r.Month, r)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	for _, r := range tables.Analysis {
		msg, err := serializeToMessage(run, TableAnalysis, r.County, r.Month, r)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// MessageKey is the partition key of a summary row.
func MessageKey(county string, month domain.YearMonth) string {
	return county + "|" + month.String()
}

// serializeToMessage marshals a summary row into a Kafka message.
func serializeToMessage(run domain.Run, table, county string, month domain.YearMonth, row any) (kafkago.Message, error) {
	data, err := json.Marshal(row)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize %s row %s: %w", table, MessageKey(county, month), err)
	}
	return kafkago.Message{
		Key:   []byte(MessageKey(county, month)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "table", Value: []byte(table)},
			{Key: "run_id", Value: []byte(run.ID)},
			{Key: "run_started_at", Value: []byte(run.StartedAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}
