package database

import (
	"context"
	"fmt"
	"time"

	"github.com/dandantas/adbfleet/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DeliveryRepository handles webhook delivery log operations
type DeliveryRepository struct {
	collection *mongo.Collection
}

// NewDeliveryRepository creates a new delivery repository
func NewDeliveryRepository(db *MongoDB) *DeliveryRepository {
	return &DeliveryRepository{
		collection: db.GetCollection(CollectionDeliveryLogs),
	}
}

// Create inserts a new delivery log
func (r *DeliveryRepository) Create(ctx context.Context, log *model.DeliveryLog) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if log.ID.IsZero() {
		log.ID = primitive.NewObjectID()
	}

	if _, err := r.collection.InsertOne(ctxTimeout, log); err != nil {
		return fmt.Errorf("failed to create delivery log: %w", err)
	}

	return nil
}

// ListByJob returns the delivery logs of a job, newest first
func (r *DeliveryRepository) ListByJob(ctx context.Context, jobID string) ([]model.DeliveryLog, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.collection.Find(ctxTimeout, bson.M{"job_id": jobID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list delivery logs: %w", err)
	}
	defer cursor.Close(ctxTimeout)

	logs := make([]model.DeliveryLog, 0)
	if err := cursor.All(ctxTimeout, &logs); err != nil {
		return nil, fmt.Errorf("failed to decode delivery logs: %w", err)
	}

	return logs, nil
}
