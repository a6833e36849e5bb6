package database

import (
	"context"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// commandLogTTL bounds how long the command audit trail is kept
const commandLogTTL = 7 * 24 * time.Hour

// CreateIndexes creates all necessary indexes for the collections
func CreateIndexes(ctx context.Context, db *MongoDB) error {
	slog.Info("Creating MongoDB indexes")

	if err := createIndexes(ctx, db, CollectionDeviceNames, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "device_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_device_id_unique"),
		},
	}); err != nil {
		return err
	}

	if err := createIndexes(ctx, db, CollectionCommandLogs, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "device_id", Value: 1},
				{Key: "executed_at", Value: -1},
			},
			Options: options.Index().SetName("idx_device_id_executed_at"),
		},
		{
			Keys: bson.D{{Key: "executed_at", Value: 1}},
			Options: options.Index().
				SetExpireAfterSeconds(int32(commandLogTTL.Seconds())).
				SetName("idx_executed_at_ttl"),
		},
	}); err != nil {
		return err
	}

	if err := createIndexes(ctx, db, CollectionDeliveryLogs, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "job_id", Value: 1}},
			Options: options.Index().SetName("idx_job_id"),
		},
		{
			Keys: bson.D{
				{Key: "final_status", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_final_status_created_at"),
		},
	}); err != nil {
		return err
	}

	slog.Info("Successfully created all MongoDB indexes")
	return nil
}

func createIndexes(ctx context.Context, db *MongoDB, name string, indexes []mongo.IndexModel) error {
	collection := db.GetCollection(name)

	ctxTimeout, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err := collection.Indexes().CreateMany(ctxTimeout, indexes); err != nil {
		return err
	}

	slog.Info("Created indexes", "collection", name)
	return nil
}
