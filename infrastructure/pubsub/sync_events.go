package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"

	"github.com/halilenesdaghan/tiktok-api-integration/domain/model"
	"github.com/halilenesdaghan/tiktok-api-integration/infrastructure/logger"
)

// DefaultSyncTopic receives sync completion events when no topic is configured.
const DefaultSyncTopic = "tiktok-sync-completed"

// SyncEventPubSub publishes sync run completions to a Pub/Sub topic. The
// client is optional; a nil client makes every publish a no-op so the sync
// engine keeps working when the broker is absent.
type SyncEventPubSub struct {
	client *pubsub.Client
	topic  string
}

func NewSyncEventPubSub(client *pubsub.Client, topic string) *SyncEventPubSub {
	if topic == "" {
		topic = DefaultSyncTopic
	}
	return &SyncEventPubSub{client: client, topic: topic}
}

func (p *SyncEventPubSub) SyncCompleted(ctx context.Context, run *model.SyncRun) error {
	if p == nil || p.client == nil {
		return nil
	}
	payload, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("encode sync event: %w", err)
	}

	topic := p.client.Topic(p.topic)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return fmt.Errorf("check topic %s: %w", p.topic, err)
	}
	if !exists {
		logger.GetLogger().WithField("topic", p.topic).Info("Topic doesn't exist - creating it")
		if _, err := p.client.CreateTopic(ctx, p.topic); err != nil {
			return fmt.Errorf("create topic %s: %w", p.topic, err)
		}
		topic = p.client.Topic(p.topic)
	}

	serverID, err := topic.Publish(ctx, &pubsub.Message{Data: payload}).Get(ctx)
	if err != nil {
		return fmt.Errorf("publish sync event: %w", err)
	}
	logger.GetLogger().WithFields(map[string]interface{}{
		"server_id": serverID,
		"run_id":    run.ID,
	}).Info("Sync event published")
	return nil
}
