package persistence

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/halilenesdaghan/tiktok-api-integration/domain/model"
	"github.com/halilenesdaghan/tiktok-api-integration/infrastructure/logger"
)

// SyncAuditRepository records completed sync runs in MongoDB. The Mongo
// client is optional; a nil client turns every call into a no-op so the
// sync engine never depends on the audit trail being reachable.
type SyncAuditRepository struct {
	client     *mongo.Client
	database   string
	collection string
}

func NewSyncAuditRepository(client *mongo.Client, database string) *SyncAuditRepository {
	if database == "" {
		database = "tiktok_integration"
	}
	return &SyncAuditRepository{client: client, database: database, collection: "sync_runs"}
}

func (r *SyncAuditRepository) Record(ctx context.Context, run *model.SyncRun) error {
	if r == nil || r.client == nil {
		return nil
	}
	collection := r.client.Database(r.database).Collection(r.collection)
	if _, err := collection.InsertOne(ctx, run); err != nil {
		logger.GetLogger().WithFields(map[string]interface{}{
			"error":   err,
			"run_id":  run.ID,
			"user_id": run.UserID,
		}).Error("record sync run failed")
		return err
	}
	return nil
}

// RecentRuns returns the latest audited runs for a user, newest first.
func (r *SyncAuditRepository) RecentRuns(ctx context.Context, userID string, limit int64) ([]model.SyncRun, error) {
	if r == nil || r.client == nil {
		return nil, nil
	}
	collection := r.client.Database(r.database).Collection(r.collection)
	opts := options.Find().SetSort(bson.D{{Key: "startedat", Value: -1}}).SetLimit(limit)
	cursor, err := collection.Find(ctx, bson.D{{Key: "userid", Value: userID}}, opts)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("fetch sync runs failed")
		return nil, err
	}
	defer func(ctx context.Context) {
		if err := cursor.Close(ctx); err != nil {
			logger.GetLogger().WithField("error", err).Error("close sync run cursor failed")
		}
	}(ctx)

	var runs []model.SyncRun
	for cursor.Next(ctx) {
		var run model.SyncRun
		if err := cursor.Decode(&run); err != nil {
			logger.GetLogger().WithField("error", err).Error("decode sync run failed")
			continue
		}
		runs = append(runs, run)
	}
	return runs, cursor.Err()
}
