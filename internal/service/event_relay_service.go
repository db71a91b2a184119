package service

import (
	"context"
	"encoding/json"
	"log"

	"ai-orchestrator-be/pkg/events"
	natspkg "ai-orchestrator-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IEventRelayService interface {
	Relay(ctx context.Context) error
}

// eventRelayService drains the in-process event topic and forwards each
// envelope to the NATS stream. With no NATS publisher configured it still
// drains the topic so publishers never block, logging events instead.
type eventRelayService struct {
	pubSub        *gochannel.GoChannel
	topicName     string
	natsPublisher *natspkg.Publisher
}

func NewEventRelayService(pubSub *gochannel.GoChannel, topicName string, natsPublisher *natspkg.Publisher) IEventRelayService {
	return &eventRelayService{
		pubSub:        pubSub,
		topicName:     topicName,
		natsPublisher: natsPublisher,
	}
}

func (s *eventRelayService) Relay(ctx context.Context) error {
	messages, err := s.pubSub.Subscribe(ctx, s.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			s.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (s *eventRelayService) processMessage(ctx context.Context, msg *message.Message) {
	var envelope eventEnvelope
	if err := json.Unmarshal(msg.Payload, &envelope); err != nil {
		log.Printf("[ERROR] Failed to unmarshal event envelope: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	if s.natsPublisher == nil {
		log.Printf("[INFO] Pipeline event %s: %v", envelope.Type, envelope.Payload)
		msg.Ack()
		return
	}

	event := events.BaseEvent{
		Type:       envelope.Type,
		Data:       envelope.Payload,
		OccurredAt: envelope.OccurredAt,
	}
	if err := s.natsPublisher.Publish(ctx, event); err != nil {
		log.Printf("[ERROR] Failed to relay event %s to NATS: %v", envelope.Type, err)
		// Events are observability only; dropping one is better than a
		// redelivery loop against a down broker.
	}
	msg.Ack()
}
