package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ai-orchestrator-be/pkg/events"
	"ai-orchestrator-be/pkg/pipeline"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// TopicPipelineEvents is the in-process topic every pipeline transition is
// published to. The relay service drains it toward NATS.
const TopicPipelineEvents = "pipeline.events"

type IEventPublisherService interface {
	Publish(ctx context.Context, event events.Event) error
}

// The orchestrator consumes this service through pipeline.EventPublisher.
var _ pipeline.EventPublisher = (*eventPublisherService)(nil)

type eventPublisherService struct {
	pubSub    *gochannel.GoChannel
	topicName string
}

func NewEventPublisherService(pubSub *gochannel.GoChannel, topicName string) IEventPublisherService {
	return &eventPublisherService{
		pubSub:    pubSub,
		topicName: topicName,
	}
}

// eventEnvelope is the wire shape between publisher and relay.
type eventEnvelope struct {
	Type       string                 `json:"type"`
	Payload    map[string]interface{} `json:"payload"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// Publish is fire-and-forget from the pipeline's perspective: a failed
// publish must never fail a request, so callers ignore the error after
// logging it.
func (s *eventPublisherService) Publish(ctx context.Context, event events.Event) error {
	envelope := eventEnvelope{
		Type:       event.EventType(),
		Payload:    event.Payload(),
		OccurredAt: event.Timestamp(),
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event envelope: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	return s.pubSub.Publish(s.topicName, msg)
}
