package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"telewatch/internal/apperr"
	"telewatch/internal/config"
)

const (
	collectionOrganizations = "organizations"
	collectionUsers         = "users"
	collectionGroups        = "groups"
	collectionWatchUsers    = "watch_users"
	collectionDestinations  = "destinations"
	collectionAccounts      = "accounts"
	collectionMessages      = "message_log"
	collectionForwarded     = "forwarded_messages"
	collectionBotCommands   = "bot_commands"
)

// MongoDB wraps a single pooled *mongo.Client shared by every repository;
// unlike a connect-per-call client, the pool is established once at
// startup and borrowed for the lifetime of each logical task.
type MongoDB struct {
	client   *mongo.Client
	database string
}

func NewMongoClient(ctx context.Context, conf *config.Config) (*MongoDB, error) {
	clientOptions := options.Client().ApplyURI(conf.Mongo.URI)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}
	return &MongoDB{client: client, database: conf.Mongo.Database}, nil
}

func (m *MongoDB) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func (m *MongoDB) collection(name string) *mongo.Collection {
	return m.client.Database(m.database).Collection(name)
}

// EnsureIndexes creates the unique/scoping indexes the tenant data model
// depends on. Called once at startup, after the client is established.
func (m *MongoDB) EnsureIndexes(ctx context.Context) error {
	indexes := []struct {
		collection string
		model      mongo.IndexModel
	}{
		{collectionUsers, mongo.IndexModel{Keys: bson.D{{Key: "telegram_id", Value: 1}}, Options: options.Index().SetUnique(true)}},
		{collectionGroups, mongo.IndexModel{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "group_id", Value: 1}}, Options: options.Index().SetUnique(true)}},
		{collectionWatchUsers, mongo.IndexModel{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)}},
		{collectionDestinations, mongo.IndexModel{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "destination_id", Value: 1}}, Options: options.Index().SetUnique(true)}},
		{collectionMessages, mongo.IndexModel{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "group_id", Value: 1}, {Key: "message_id", Value: 1}}, Options: options.Index().SetUnique(true)}},
	}
	for _, idx := range indexes {
		if _, err := m.collection(idx.collection).Indexes().CreateOne(ctx, idx.model); err != nil {
			return fmt.Errorf("mongodb ensure index on %s: %w", idx.collection, err)
		}
	}
	return nil
}

func notFound() error {
	return apperr.New(apperr.NotFound, "not found")
}

func wrapFind(err error) error {
	if err == nil {
		return nil
	}
	if err == mongo.ErrNoDocuments {
		return apperr.New(apperr.NotFound, "not found")
	}
	return apperr.Wrap(apperr.StoreUnavailable, "store read failed", err)
}

func wrapWrite(err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return apperr.Wrap(apperr.Conflict, "duplicate key", err)
	}
	return apperr.Wrap(apperr.StoreUnavailable, "store write failed", err)
}
