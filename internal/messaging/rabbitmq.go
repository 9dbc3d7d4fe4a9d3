package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

const (
	ExchangeName = "care-portal.events"
	ExchangeType = "topic"
)

// Publisher handles publishing events to RabbitMQ. A nil *Publisher is valid
// and drops events, so the portal keeps serving when the broker is down.
type Publisher struct {
	url      string
	exchange string
	metrics  MetricsRecorder

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewPublisher dials RabbitMQ and declares the topic exchange.
func NewPublisher(rabbitmqURL string, metrics MetricsRecorder) (*Publisher, error) {
	p := &Publisher{url: rabbitmqURL, exchange: ExchangeName, metrics: metrics}
	if err := p.connect(); err != nil {
		return nil, err
	}
	log.Info().Str("exchange", ExchangeName).Msg("✓ connected to RabbitMQ")
	return p, nil
}

// connect dials the broker and declares the exchange. Callers hold p.mu or
// own p exclusively.
func (p *Publisher) connect() error {
	log.Info().Str("url", maskPassword(p.url)).Msg("connecting to RabbitMQ")

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}
	err = channel.ExchangeDeclare(
		p.exchange, // name
		ExchangeType,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("failed to declare exchange: %w", err)
	}
	p.conn, p.channel = conn, channel
	return nil
}

// activeChannel returns an open channel, redialing once when the broker
// dropped the connection.
func (p *Publisher) activeChannel() (*amqp.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil && !p.conn.IsClosed() && p.channel != nil && !p.channel.IsClosed() {
		return p.channel, nil
	}
	if p.conn != nil {
		p.conn.Close()
	}
	if err := p.connect(); err != nil {
		return nil, err
	}
	log.Info().Msg("✓ reconnected to RabbitMQ")
	return p.channel, nil
}

// Publish sends eventData as JSON on the exchange under routingKey. The
// routing key doubles as the message type.
func (p *Publisher) Publish(ctx context.Context, routingKey string, eventData interface{}) error {
	if p == nil {
		log.Ctx(ctx).Warn().Str("routing_key", routingKey).Msg("publisher not initialized, dropping event")
		return nil
	}

	body, err := json.Marshal(eventData)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	channel, err := p.activeChannel()
	if err == nil {
		err = channel.PublishWithContext(
			ctx,
			p.exchange,
			routingKey,
			false, // mandatory
			false, // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				Type:         routingKey,
				AppId:        "care-portal",
				Body:         body,
				DeliveryMode: amqp.Persistent,
				Timestamp:    time.Now().UTC(),
				MessageId:    uuid.NewString(),
			},
		)
	}
	if p.metrics != nil {
		p.metrics.RecordEventPublished(ctx, routingKey, err == nil)
	}
	if err != nil {
		return fmt.Errorf("failed to publish event to %s: %w", routingKey, err)
	}

	log.Ctx(ctx).Debug().Str("routing_key", routingKey).Msg("published event")
	return nil
}

// Close closes the channel and connection.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			log.Warn().Err(err).Msg("closing RabbitMQ channel")
		}
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// maskPassword hides credentials in the broker URL for logging.
func maskPassword(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}
