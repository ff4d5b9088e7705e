package repository

import (
	"context"

	"github.com/halilenesdaghan/tiktok-api-integration/domain/model"
)

// ISyncAudit records completed sync runs for auditing. Optional collaborator;
// a nil-safe no-op implementation is acceptable when auditing is disabled.
type ISyncAudit interface {
	Record(ctx context.Context, run *model.SyncRun) error
}

// ISyncNotifier broadcasts sync completion events to external systems
// (message broker, service bus). Also optional.
type ISyncNotifier interface {
	SyncCompleted(ctx context.Context, run *model.SyncRun) error
}
