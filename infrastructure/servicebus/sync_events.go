package servicebus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"

	"github.com/halilenesdaghan/tiktok-api-integration/domain/model"
	"github.com/halilenesdaghan/tiktok-api-integration/infrastructure/logger"
)

// DefaultSyncQueue receives sync completion events when no queue is configured.
const DefaultSyncQueue = "tiktok-sync-completed"

// SyncEventServiceBus mirrors sync completions onto an Azure Service Bus
// queue. Like the Pub/Sub publisher it is nil-safe and optional.
type SyncEventServiceBus struct {
	client *azservicebus.Client
	queue  string
}

func NewSyncEventServiceBus(client *azservicebus.Client, queue string) *SyncEventServiceBus {
	if queue == "" {
		queue = DefaultSyncQueue
	}
	return &SyncEventServiceBus{client: client, queue: queue}
}

func (s *SyncEventServiceBus) SyncCompleted(ctx context.Context, run *model.SyncRun) error {
	if s == nil || s.client == nil {
		return nil
	}
	payload, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("encode sync event: %w", err)
	}

	sender, err := s.client.NewSender(s.queue, nil)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while making new sender service bus.")
		return err
	}
	defer func(sender *azservicebus.Sender, ctx context.Context) {
		if err := sender.Close(ctx); err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while closing sender.")
		}
	}(sender, ctx)

	if err := sender.SendMessage(ctx, &azservicebus.Message{Body: payload}, nil); err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while sending message.")
		return err
	}
	return nil
}
