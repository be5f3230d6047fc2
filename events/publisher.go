package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/dodoricogino/INMO-enlaces-PDF/utils"
)

// Event types published by the application. The type is the routing key.
const (
	TypePropertySaved = "property.saved"
	TypeExtraction    = "listing.extracted"
)

// Event is the envelope of every published message.
type Event struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurredAt"`
	Data       interface{} `json:"data"`
}

// New creates an event with a fresh id.
func New(eventType string, data interface{}) Event {
	return Event{ID: uuid.NewString(), Type: eventType, OccurredAt: time.Now().UTC(), Data: data}
}

// PropertySaved is the payload of TypePropertySaved.
type PropertySaved struct {
	PropertyID string    `json:"propertyId"`
	SourceURL  string    `json:"sourceUrl"`
	Slug       string    `json:"slug"`
	ExpiresAt  time.Time `json:"expiresAt"`
	Geohash    string    `json:"geohash,omitempty"`
}

// ListingExtracted is the payload of TypeExtraction.
type ListingExtracted struct {
	URL       string `json:"url"`
	Host      string `json:"host"`
	ErrorKind string `json:"errorKind,omitempty"`
	TookMs    int64  `json:"tookMs"`
}

// Publisher sends events to a broker.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// RabbitConfig configures a RabbitPublisher.
type RabbitConfig struct {
	URL      string
	Exchange string
	Logger   *utils.Logger
}

// RabbitPublisher publishes JSON events to a durable topic exchange.
type RabbitPublisher struct {
	exchange string
	logger   *utils.Logger

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewRabbitPublisher dials the broker and declares the exchange.
func NewRabbitPublisher(cfg RabbitConfig) (*RabbitPublisher, error) {
	if cfg.Exchange == "" {
		return nil, fmt.Errorf("events: exchange name is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = utils.NewNopLogger()
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("events: failed to dial RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("events: failed to open a channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		cfg.Exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("events: failed to declare exchange '%s': %w", cfg.Exchange, err)
	}

	logger.Debug("rabbitmq publisher ready", "exchange", cfg.Exchange)
	return &RabbitPublisher{
		exchange: cfg.Exchange,
		logger:   logger.With("component", "events"),
		conn:     conn,
		channel:  ch,
	}, nil
}

// Publish sends ev with its type as routing key.
func (p *RabbitPublisher) Publish(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("events: encode %s: %w", ev.Type, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel == nil || p.conn == nil || p.conn.IsClosed() {
		return fmt.Errorf("events: not connected")
	}

	err = p.channel.PublishWithContext(ctx,
		p.exchange,
		ev.Type,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    ev.ID,
			Timestamp:    ev.OccurredAt,
			Type:         ev.Type,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("events: failed to publish %s: %w", ev.Type, err)
	}
	p.logger.Debug("event published", "type", ev.Type, "id", ev.ID)
	return nil
}

// Close closes the channel and the connection.
func (p *RabbitPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			firstErr = err
		}
		p.channel = nil
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		p.conn = nil
	}
	return firstErr
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
