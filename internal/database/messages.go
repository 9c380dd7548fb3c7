package database

import (
	"context"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"telewatch/entity"
	"telewatch/internal/apperr"
)

// AppendMessage inserts an archive row. Idempotent on
// (tenant_id, group_id, message_id): a duplicate insert surfaces as
// apperr.Conflict, which callers treat as "already archived, don't forward".
func (m *MongoDB) AppendMessage(ctx context.Context, msg *entity.MessageLog) (*entity.MessageLog, error) {
	id := primitive.NewObjectID()
	doc := bson.M{
		"_id":              id,
		"tenant_id":        msg.TenantID,
		"group_id":         msg.GroupID,
		"group_name":       msg.GroupName,
		"user_id":          msg.UserID,
		"username":         msg.Username,
		"message_id":       msg.MessageID,
		"message_text":     msg.MessageText,
		"message_type":     msg.MessageType,
		"media_info":       msg.MediaInfo,
		"matched_keywords": msg.MatchedKeywords,
		"timestamp":        msg.Timestamp,
		"ingested_via":     msg.IngestedVia,
	}
	if _, err := m.collection(collectionMessages).InsertOne(ctx, doc); err != nil {
		return nil, wrapWrite(err)
	}
	msg.ID = id.Hex()
	return msg, nil
}

// AlreadyArchived reports whether (tenant_id, group_id, message_id) has a
// row already, letting the pipeline skip the forward step on a duplicate
// receive without treating it as an error.
func (m *MongoDB) AlreadyArchived(ctx context.Context, tenantID, groupID, messageID string) (bool, error) {
	n, err := m.collection(collectionMessages).CountDocuments(ctx, bson.M{
		"tenant_id":  tenantID,
		"group_id":   groupID,
		"message_id": messageID,
	})
	if err != nil {
		return false, wrapFind(err)
	}
	return n > 0, nil
}

type MessageFilter struct {
	GroupID     string
	MessageType entity.MessageType
	Limit       int64
	Skip        int64
}

func (m *MongoDB) ListMessages(ctx context.Context, tenantID string, f MessageFilter) ([]*entity.MessageLog, error) {
	filter := bson.M{"tenant_id": tenantID}
	if f.GroupID != "" {
		filter["group_id"] = f.GroupID
	}
	if f.MessageType != "" {
		filter["message_type"] = f.MessageType
	}
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	if f.Limit > 0 {
		opts.SetLimit(f.Limit)
	}
	if f.Skip > 0 {
		opts.SetSkip(f.Skip)
	}
	cursor, err := m.collection(collectionMessages).Find(ctx, filter, opts)
	if err != nil {
		return nil, wrapFind(err)
	}
	defer cursor.Close(ctx)
	var messages []*entity.MessageLog
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, wrapFind(err)
	}
	return messages, nil
}

// SearchMessages performs a case-insensitive substring scan over
// message_text, username and group_name; a regex scan stands in for full
// text indexing, which is explicitly out of scope.
func (m *MongoDB) SearchMessages(ctx context.Context, tenantID, q string) ([]*entity.MessageLog, error) {
	if q == "" {
		return nil, apperr.New(apperr.Validation, "q is required")
	}
	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(q), Options: "i"}
	filter := bson.M{
		"tenant_id": tenantID,
		"$or": []bson.M{
			{"message_text": pattern},
			{"username": pattern},
			{"group_name": pattern},
		},
	}
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}).SetLimit(200)
	cursor, err := m.collection(collectionMessages).Find(ctx, filter, opts)
	if err != nil {
		return nil, wrapFind(err)
	}
	defer cursor.Close(ctx)
	var messages []*entity.MessageLog
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, wrapFind(err)
	}
	return messages, nil
}

func (m *MongoDB) CountMessages(ctx context.Context, tenantID string) (int64, error) {
	n, err := m.collection(collectionMessages).CountDocuments(ctx, bson.M{"tenant_id": tenantID})
	if err != nil {
		return 0, wrapFind(err)
	}
	return n, nil
}

// CountMessagesSince counts archive rows timestamped at or after since,
// for the analytics aggregator's messages_today rollup.
func (m *MongoDB) CountMessagesSince(ctx context.Context, tenantID string, since time.Time) (int64, error) {
	n, err := m.collection(collectionMessages).CountDocuments(ctx, bson.M{
		"tenant_id": tenantID,
		"timestamp": bson.M{"$gte": since},
	})
	if err != nil {
		return 0, wrapFind(err)
	}
	return n, nil
}

// MessageTypeDistribution aggregates counts per message_type for the
// analytics aggregator.
func (m *MongoDB) MessageTypeDistribution(ctx context.Context, tenantID string) (map[entity.MessageType]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"tenant_id": tenantID}}},
		{{Key: "$group", Value: bson.M{"_id": "$message_type", "count": bson.M{"$sum": 1}}}},
	}
	cursor, err := m.collection(collectionMessages).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, wrapFind(err)
	}
	defer cursor.Close(ctx)
	var rows []struct {
		ID    entity.MessageType `bson:"_id"`
		Count int64               `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, wrapFind(err)
	}
	dist := make(map[entity.MessageType]int64, len(rows))
	for _, r := range rows {
		dist[r.ID] = r.Count
	}
	return dist, nil
}
