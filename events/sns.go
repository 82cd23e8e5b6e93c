package events

import (
	"context"
	"encoding/json"
	"fmt"

	awspkg "github.com/Baruah123/Pinnacle-Paints-Client-sub000/pkg/aws"
)

// SNSPublisher publishes import events to an SNS topic with an event_type
// message attribute for subscription filtering.
type SNSPublisher struct {
	client   awspkg.SNSPublisher
	topicARN string
}

func NewSNSPublisher(client awspkg.SNSPublisher, topicARN string) (*SNSPublisher, error) {
	if topicARN == "" {
		return nil, fmt.Errorf("SNS_TOPIC_ARN not set")
	}
	return &SNSPublisher{client: client, topicARN: topicARN}, nil
}

func (p *SNSPublisher) Publish(ctx context.Context, evt ImportEvent) error {
	msg, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}
	return p.client.Publish(ctx, p.topicARN, msg, map[string]string{"event_type": evt.Type})
}

func (p *SNSPublisher) Close() error { return nil }
