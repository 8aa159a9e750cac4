package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RunEventQueue receives one message per finalized run.
const RunEventQueue = "run.events"

// RunCompletedEvent is published once when a run first transitions to
// completed. Idempotent finalize replays never publish.
type RunCompletedEvent struct {
	RunID             string    `json:"run_id"`
	UserID            int64     `json:"user_id"`
	TotalMoney        int64     `json:"total_money"`
	CompensationDelta int64     `json:"compensation_delta"`
	NewMarketValue    int64     `json:"new_market_value"`
	NewTitle          string    `json:"new_title"`
	CompletedAt       time.Time `json:"completed_at"`
}

type Publisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// Connect dials RabbitMQ using RABBITMQ_* env vars.
func Connect() (*Publisher, error) {
	url := fmt.Sprintf("amqp://%s:%s@%s:%s/",
		getEnv("RABBITMQ_USER", "guest"),
		getEnv("RABBITMQ_PASSWORD", "guest"),
		getEnv("RABBITMQ_HOST", "localhost"),
		getEnv("RABBITMQ_PORT", "5672"),
	)

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if _, err := channel.QueueDeclare(
		RunEventQueue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	return &Publisher{conn: conn, channel: channel}, nil
}

func (p *Publisher) Close() error {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

func (p *Publisher) PublishRunCompleted(ctx context.Context, event RunCompletedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	return p.channel.PublishWithContext(
		ctx,
		"",            // exchange
		RunEventQueue, // routing key
		false,         // mandatory
		false,         // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
			Timestamp:   time.Now(),
		},
	)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
