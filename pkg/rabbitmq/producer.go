/**
 * @description
 * This package provides a producer for publishing distribution events to
 * RabbitMQ. The pipeline publishes to a durable topic exchange and stays
 * agnostic of how many consumers are bound to it (dashboard live updates,
 * analytics, anything else).
 *
 * @dependencies
 * - context, encoding/json, time: Standard Go libraries.
 * - github.com/rabbitmq/amqp091-go: The RabbitMQ client library.
 */
package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/poapflow/distribution-service/internal/domain"
	"github.com/rabbitmq/amqp091-go"
)

// DistributionExchange is the topic exchange all distribution events go to.
const DistributionExchange = "poap.distribution"

// Routing keys per event kind.
const (
	RoutingKeyAssetConsumed   = "asset.consumed"
	RoutingKeyDeliveryClaimed = "delivery.claimed"
)

// EventProducer holds the RabbitMQ connection and channel for publishing
// messages.
type EventProducer struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
}

// Publisher is the interface implemented by types that can publish events.
type Publisher interface {
	PublishAssetConsumed(ctx context.Context, event domain.Delivery) error
	PublishDeliveryClaimed(ctx context.Context, event domain.Delivery) error
	Close()
}

// EventProducerFallback is a minimal no-op publisher used when RabbitMQ is
// unavailable at startup.
type EventProducerFallback struct{}

func (p *EventProducerFallback) PublishAssetConsumed(ctx context.Context, event domain.Delivery) error {
	log.Printf("level=warn component=rabbitmq_producer mode=fallback msg=\"asset consumed publish skipped\" delivery_id=%s", event.ID)
	return nil
}

func (p *EventProducerFallback) PublishDeliveryClaimed(ctx context.Context, event domain.Delivery) error {
	log.Printf("level=warn component=rabbitmq_producer mode=fallback msg=\"delivery claimed publish skipped\" delivery_id=%s", event.ID)
	return nil
}

func (p *EventProducerFallback) Close() {}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.Trim(clean, "\"'")
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}

// NewEventProducer creates and returns a new EventProducer.
func NewEventProducer(amqpURL string) (*EventProducer, error) {
	cleanURL, err := sanitizeAMQPURL(amqpURL)
	if err != nil {
		return nil, err
	}

	// Bounded dial timeout so startup does not hang indefinitely.
	conn, err := amqp091.DialConfig(cleanURL, amqp091.Config{Dial: amqp091.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &EventProducer{conn: conn, channel: ch}, nil
}

// publish sends a message to the distribution exchange with a routing key,
// reopening the channel once on failure.
func (p *EventProducer) publish(ctx context.Context, routingKey string, body interface{}) error {
	if err := p.channel.ExchangeDeclare(
		DistributionExchange, // name
		"topic",              // type
		true,                 // durable
		false,                // autoDelete
		false,                // internal
		false,                // noWait
		nil,                  // args
	); err != nil {
		log.Printf("level=warn component=rabbitmq_producer msg=\"exchange declare failed; reopening channel\" err=%v", err)
		ch, chErr := p.conn.Channel()
		if chErr != nil {
			return chErr
		}
		p.channel = ch
		if err := p.channel.ExchangeDeclare(DistributionExchange, "topic", true, false, false, false, nil); err != nil {
			return err
		}
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return err
	}

	err = p.channel.PublishWithContext(ctx,
		DistributionExchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType: "application/json",
			Timestamp:   time.Now(),
			Body:        jsonBody,
		},
	)
	if err != nil {
		log.Printf("level=warn component=rabbitmq_producer msg=\"publish failed; reopening channel\" routing_key=%s err=%v", routingKey, err)
		ch, chErr := p.conn.Channel()
		if chErr != nil {
			return err
		}
		p.channel = ch
		if exErr := p.channel.ExchangeDeclare(DistributionExchange, "topic", true, false, false, false, nil); exErr != nil {
			return err
		}
		return p.channel.PublishWithContext(ctx, DistributionExchange, routingKey, false, false, amqp091.Publishing{
			ContentType: "application/json",
			Timestamp:   time.Now(),
			Body:        jsonBody,
		})
	}
	return nil
}

// PublishAssetConsumed announces that an asset was consumed by a delivery.
func (p *EventProducer) PublishAssetConsumed(ctx context.Context, event domain.Delivery) error {
	return p.publish(ctx, RoutingKeyAssetConsumed, event)
}

// PublishDeliveryClaimed announces that a delivered mint link was redeemed.
func (p *EventProducer) PublishDeliveryClaimed(ctx context.Context, event domain.Delivery) error {
	return p.publish(ctx, RoutingKeyDeliveryClaimed, event)
}

// Close gracefully closes the channel and connection to RabbitMQ.
func (p *EventProducer) Close() {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}
