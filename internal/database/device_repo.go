package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dandantas/adbfleet/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DeviceNameRepository stores custom device names in MongoDB
type DeviceNameRepository struct {
	collection *mongo.Collection
}

// NewDeviceNameRepository creates a new device name repository
func NewDeviceNameRepository(db *MongoDB) *DeviceNameRepository {
	return &DeviceNameRepository{
		collection: db.GetCollection(CollectionDeviceNames),
	}
}

// Get returns the custom name of a device
func (r *DeviceNameRepository) Get(ctx context.Context, deviceID string) (string, bool, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var name model.DeviceName
	err := r.collection.FindOne(ctxTimeout, bson.M{"device_id": deviceID}).Decode(&name)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get device name: %w", err)
	}

	return name.Name, true, nil
}

// Set upserts the custom name of a device
func (r *DeviceNameRepository) Set(ctx context.Context, deviceID, name string) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	update := bson.M{
		"$set": bson.M{
			"device_id":  deviceID,
			"name":       name,
			"updated_at": time.Now().UTC(),
		},
	}

	opts := options.Update().SetUpsert(true)
	if _, err := r.collection.UpdateOne(ctxTimeout, bson.M{"device_id": deviceID}, update, opts); err != nil {
		return fmt.Errorf("failed to set device name: %w", err)
	}

	return nil
}

// All returns every custom name keyed by device id
func (r *DeviceNameRepository) All(ctx context.Context) (map[string]string, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cursor, err := r.collection.Find(ctxTimeout, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list device names: %w", err)
	}
	defer cursor.Close(ctxTimeout)

	var names []model.DeviceName
	if err := cursor.All(ctxTimeout, &names); err != nil {
		return nil, fmt.Errorf("failed to decode device names: %w", err)
	}

	result := make(map[string]string, len(names))
	for _, n := range names {
		result[n.DeviceID] = n.Name
	}
	return result, nil
}

// CommandLogRepository writes the device command audit trail
type CommandLogRepository struct {
	collection *mongo.Collection
}

// NewCommandLogRepository creates a new command log repository
func NewCommandLogRepository(db *MongoDB) *CommandLogRepository {
	return &CommandLogRepository{
		collection: db.GetCollection(CollectionCommandLogs),
	}
}

// Insert stores one command log
func (r *CommandLogRepository) Insert(ctx context.Context, log *model.CommandLog) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := r.collection.InsertOne(ctxTimeout, log); err != nil {
		return fmt.Errorf("failed to insert command log: %w", err)
	}
	return nil
}

// ListByDevice returns the most recent command logs of a device
func (r *CommandLogRepository) ListByDevice(ctx context.Context, deviceID string, limit int) ([]model.CommandLog, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "executed_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctxTimeout, bson.M{"device_id": deviceID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list command logs: %w", err)
	}
	defer cursor.Close(ctxTimeout)

	logs := make([]model.CommandLog, 0)
	if err := cursor.All(ctxTimeout, &logs); err != nil {
		return nil, fmt.Errorf("failed to decode command logs: %w", err)
	}
	return logs, nil
}
