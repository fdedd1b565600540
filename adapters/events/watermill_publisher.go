package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/layer-3/xerial/ports"
)

const (
	// SessionTopic is the topic session lifecycle events are published on
	SessionTopic = "xerial.session"

	EventLogin  = "login"
	EventLogout = "logout"
)

// SessionEvent is the payload of every session lifecycle message
type SessionEvent struct {
	Type       string    `json:"type"`
	Identifier string    `json:"identifier"`
	Address    string    `json:"address,omitempty"`
	At         time.Time `json:"at"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
	topic     string
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{
		publisher: publisher,
		topic:     SessionTopic,
	}
}

// PublishLogin publishes a login event
func (p *WatermillPublisher) PublishLogin(ctx context.Context, identifier, address string) error {
	return p.publish(ctx, SessionEvent{
		Type:       EventLogin,
		Identifier: identifier,
		Address:    address,
		At:         time.Now().UTC(),
	})
}

// PublishLogout publishes a logout event
func (p *WatermillPublisher) PublishLogout(ctx context.Context, identifier string) error {
	return p.publish(ctx, SessionEvent{
		Type:       EventLogout,
		Identifier: identifier,
		At:         time.Now().UTC(),
	})
}

func (p *WatermillPublisher) publish(ctx context.Context, event SessionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
