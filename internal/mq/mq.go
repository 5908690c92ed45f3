package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/rakbuku/apiserver/config"
	"github.com/rakbuku/apiserver/types"
)

// Backend defines the broker-agnostic publish operations used by the app.
// The service only produces events; consumers live in downstream systems.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Close() error
}

// Events publishes domain events to the configured broker. A nil *Events is
// valid and publishes nothing, so callers don't have to special-case
// deployments without a broker.
type Events struct {
	backend     Backend
	reviewTopic string
}

// New constructs an Events publisher for the provided backend.
func New(backend Backend, reviewTopic string) *Events {
	return &Events{backend: backend, reviewTopic: reviewTopic}
}

// NewFromConfig constructs the configured broker backend, or returns nil
// when no backend is configured.
func NewFromConfig(ctx context.Context, cfg config.BrokerConfig) (*Events, error) {
	switch cfg.Backend {
	case "":
		return nil, nil
	case "rabbitmq":
		backend, err := NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			return nil, err
		}
		return New(backend, cfg.ReviewTopic), nil
	case "pubsub":
		backend, err := NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, err
		}
		return New(backend, cfg.ReviewTopic), nil
	default:
		return nil, fmt.Errorf("unknown broker backend %q", cfg.Backend)
	}
}

// PublishReviewCreated emits a review.created event with the full review as
// the JSON payload and the book/user ids as attributes.
func (e *Events) PublishReviewCreated(ctx context.Context, review types.Review) error {
	if e == nil {
		return nil
	}
	data, err := json.Marshal(review)
	if err != nil {
		return err
	}
	attrs := map[string]string{
		"event":   "review.created",
		"book_id": strconv.Itoa(review.BookID),
		"user_id": strconv.Itoa(review.UserID),
	}
	_, err = e.backend.Publish(ctx, e.reviewTopic, data, attrs)
	return err
}

// Close closes the underlying backend.
func (e *Events) Close() error {
	if e == nil {
		return nil
	}
	return e.backend.Close()
}

var errChannelRequired = errors.New("channel name is required")
