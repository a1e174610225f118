// Package service publishes domain events to the configured broker.
// Errors are logged and returned so callers can ignore failures without
// interrupting the request flow.
package service

import (
    "context"
    "encoding/json"
    "log"
    "strings"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/segmentio/kafka-go"

    "github.com/iliyamo/spot-saver/internal/config"
    "github.com/iliyamo/spot-saver/internal/queue"
)

// Publisher sends booking events.
type Publisher interface {
    PublishBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error
    Close() error
}

// NewPublisher returns the publisher selected by cfg.Kind.  Unknown kinds
// and "none" disable publishing.
func NewPublisher(cfg config.BrokerConfig) Publisher {
    switch strings.ToLower(cfg.Kind) {
    case "rabbitmq", "amqp":
        return &RabbitPublisher{URL: cfg.RabbitURL, Queue: cfg.Queue}
    case "kafka":
        return NewKafkaPublisher(cfg.KafkaBrokers, cfg.Queue)
    default:
        return NopPublisher{}
    }
}

// RabbitPublisher publishes to a durable queue on the default exchange.
// It dials per message; booking confirmations are rare.
type RabbitPublisher struct {
    URL   string
    Queue string
}

func (p *RabbitPublisher) PublishBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error {
    conn, err := amqp.Dial(p.URL)
    if err != nil {
        log.Printf("rabbitmq: dial failed: %v", err)
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        log.Printf("rabbitmq: channel open failed: %v", err)
        return err
    }
    defer func() { _ = ch.Close() }()

    if _, err := ch.QueueDeclare(p.Queue, true, false, false, false, nil); err != nil {
        log.Printf("rabbitmq: queue declare failed: %v", err)
        return err
    }

    body, err := json.Marshal(ev)
    if err != nil {
        log.Printf("rabbitmq: marshal event failed: %v", err)
        return err
    }
    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        Timestamp:    time.Now().UTC(),
        MessageId:    ev.BookingID,
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx, "", p.Queue, false, false, pub); err != nil {
        log.Printf("rabbitmq: publish failed: %v", err)
        return err
    }
    return nil
}

func (p *RabbitPublisher) Close() error { return nil }

// KafkaPublisher writes events to a topic keyed by booking id.
type KafkaPublisher struct {
    w *kafka.Writer
}

// NewKafkaPublisher returns a publisher writing to topic on brokers.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
    return &KafkaPublisher{w: &kafka.Writer{
        Addr:                   kafka.TCP(brokers...),
        Topic:                  topic,
        Balancer:               &kafka.LeastBytes{},
        AllowAutoTopicCreation: true,
    }}
}

func (p *KafkaPublisher) PublishBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error {
    body, err := json.Marshal(ev)
    if err != nil {
        log.Printf("kafka: marshal event failed: %v", err)
        return err
    }
    if err := p.w.WriteMessages(ctx, kafka.Message{Key: []byte(ev.BookingID), Value: body}); err != nil {
        log.Printf("kafka: publish failed: %v", err)
        return err
    }
    return nil
}

func (p *KafkaPublisher) Close() error { return p.w.Close() }

// NopPublisher drops events.
type NopPublisher struct{}

func (NopPublisher) PublishBookingConfirmed(context.Context, queue.BookingConfirmedEvent) error {
    return nil
}

func (NopPublisher) Close() error { return nil }
