package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Collection names
const (
	CollectionDeviceNames  = "device_names"
	CollectionCommandLogs  = "command_logs"
	CollectionDeliveryLogs = "delivery_logs"
)

// Options configures the MongoDB client
type Options struct {
	URI      string
	Database string
	// Timeout bounds connecting and every server selection
	Timeout     time.Duration
	MaxPoolSize uint64
	MinPoolSize uint64
}

func (o Options) clientOptions() *options.ClientOptions {
	if o.MaxPoolSize == 0 {
		o.MaxPoolSize = 20
	}
	if o.MinPoolSize > o.MaxPoolSize {
		o.MinPoolSize = o.MaxPoolSize
	}
	return options.Client().
		ApplyURI(o.URI).
		SetAppName("adbfleet").
		SetMaxPoolSize(o.MaxPoolSize).
		SetMinPoolSize(o.MinPoolSize).
		SetMaxConnIdleTime(time.Minute).
		SetConnectTimeout(o.Timeout).
		SetServerSelectionTimeout(o.Timeout).
		SetRetryWrites(true).
		SetRetryReads(true)
}

// MongoDB holds the client and the application database
type MongoDB struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// Connect dials MongoDB and waits for the primary to answer
func Connect(ctx context.Context, opts Options) (*MongoDB, error) {
	logger := slog.With("database", opts.Database)
	logger.Info("Connecting to MongoDB")

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, opts.clientOptions())
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	logger.Info("Connected to MongoDB")
	return &MongoDB{Client: client, Database: client.Database(opts.Database)}, nil
}

// Ping is used by the readiness probe
func (m *MongoDB) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return m.Client.Ping(ctx, readpref.Primary())
}

// Disconnect closes every pooled connection
func (m *MongoDB) Disconnect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := m.Client.Disconnect(ctx); err != nil {
		return fmt.Errorf("mongo disconnect: %w", err)
	}
	slog.Info("Disconnected from MongoDB")
	return nil
}

// GetCollection returns a collection of the application database
func (m *MongoDB) GetCollection(name string) *mongo.Collection {
	return m.Database.Collection(name)
}
