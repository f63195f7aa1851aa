// Package pubsub hands composed threads to a downstream poster through
// Google Cloud Pub/Sub. The Pub/Sub message id stands in for the root id.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"cloud.google.com/go/pubsub"

	"github.com/JakeFAU/dropscout/internal/drops"
)

// ThreadMessage is the JSON payload published for each thread.
type ThreadMessage struct {
	Segments  []string    `json:"segments"`
	SelfReply string      `json:"self_reply,omitempty"`
	Card      *drops.Card `json:"card,omitempty"`
}

// Publisher wraps a Pub/Sub topic.
type Publisher struct {
	topic *pubsub.Topic
}

var _ drops.Publisher = (*Publisher)(nil)

// New creates a Publisher for the provided topic.
func New(topic *pubsub.Topic) *Publisher {
	return &Publisher{topic: topic}
}

// PublishThread marshals the thread and waits for the server ack.
func (p *Publisher) PublishThread(ctx context.Context, thread drops.Thread) (string, error) {
	if p.topic == nil {
		return "", fmt.Errorf("%w: pubsub topic is not configured", drops.ErrPublish)
	}
	if len(thread.Segments) == 0 {
		return "", fmt.Errorf("%w: empty thread", drops.ErrPublish)
	}
	data, err := json.Marshal(ThreadMessage{
		Segments:  thread.Segments,
		SelfReply: thread.SelfReply,
		Card:      thread.Card,
	})
	if err != nil {
		return "", fmt.Errorf("marshal thread: %w", err)
	}

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{"segments": strconv.Itoa(len(thread.Segments))},
	})
	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: publish message: %w", drops.ErrPublish, err)
	}
	return id, nil
}

// Stop flushes pending messages.
func (p *Publisher) Stop() {
	if p.topic != nil {
		p.topic.Stop()
	}
}
