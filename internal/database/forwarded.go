package database

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"telewatch/entity"
)

// AppendForwarded inserts one terminal ledger row per delivery attempt.
func (m *MongoDB) AppendForwarded(ctx context.Context, row *entity.ForwardedMessage) (*entity.ForwardedMessage, error) {
	row.ForwardedAt = time.Now().UTC()
	id := primitive.NewObjectID()
	doc := bson.M{
		"_id":                id,
		"tenant_id":          row.TenantID,
		"source_message_ref": row.SourceMessageRef,
		"username":           row.Username,
		"group_name":         row.GroupName,
		"destination_id":     row.DestinationID,
		"routing_id":         row.RoutingID,
		"forwarded_at":       row.ForwardedAt,
		"outcome":            row.Outcome,
		"failure_reason":     row.FailureReason,
	}
	if _, err := m.collection(collectionForwarded).InsertOne(ctx, doc); err != nil {
		return nil, wrapWrite(err)
	}
	row.ID = id.Hex()
	return row, nil
}

type ForwardedFilter struct {
	Username      string
	DestinationID string
	Limit         int64
	Skip          int64
}

func (m *MongoDB) ListForwarded(ctx context.Context, tenantID string, f ForwardedFilter) ([]*entity.ForwardedMessage, error) {
	filter := bson.M{"tenant_id": tenantID}
	if f.Username != "" {
		filter["username"] = f.Username
	}
	if f.DestinationID != "" {
		filter["destination_id"] = f.DestinationID
	}
	opts := options.Find().SetSort(bson.D{{Key: "forwarded_at", Value: -1}})
	if f.Limit > 0 {
		opts.SetLimit(f.Limit)
	}
	if f.Skip > 0 {
		opts.SetSkip(f.Skip)
	}
	cursor, err := m.collection(collectionForwarded).Find(ctx, filter, opts)
	if err != nil {
		return nil, wrapFind(err)
	}
	defer cursor.Close(ctx)
	var rows []*entity.ForwardedMessage
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, wrapFind(err)
	}
	return rows, nil
}

func (m *MongoDB) CountForwarded(ctx context.Context, tenantID string, outcome entity.ForwardOutcome) (int64, error) {
	filter := bson.M{"tenant_id": tenantID}
	if outcome != "" {
		filter["outcome"] = outcome
	}
	n, err := m.collection(collectionForwarded).CountDocuments(ctx, filter)
	if err != nil {
		return 0, wrapFind(err)
	}
	return n, nil
}

// CountForwardedSince counts delivered ledger rows forwarded at or after
// since, for the analytics aggregator's forwarded_today rollup.
func (m *MongoDB) CountForwardedSince(ctx context.Context, tenantID string, since time.Time) (int64, error) {
	n, err := m.collection(collectionForwarded).CountDocuments(ctx, bson.M{
		"tenant_id":    tenantID,
		"outcome":      entity.ForwardDelivered,
		"forwarded_at": bson.M{"$gte": since},
	})
	if err != nil {
		return 0, wrapFind(err)
	}
	return n, nil
}

// TopDestinations returns the N destination ids with the most delivered
// rows, for the analytics aggregator's top_destinations rollup.
func (m *MongoDB) TopDestinations(ctx context.Context, tenantID string, limit int) ([]struct {
	DestinationID string
	Count         int64
}, error) {
	pipeline := []bson.M{
		{"$match": bson.M{"tenant_id": tenantID, "outcome": entity.ForwardDelivered}},
		{"$group": bson.M{"_id": "$destination_id", "count": bson.M{"$sum": 1}}},
		{"$sort": bson.M{"count": -1}},
		{"$limit": limit},
	}
	cursor, err := m.collection(collectionForwarded).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, wrapFind(err)
	}
	defer cursor.Close(ctx)
	var rows []struct {
		ID    string `bson:"_id"`
		Count int64  `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, wrapFind(err)
	}
	out := make([]struct {
		DestinationID string
		Count         int64
	}, len(rows))
	for i, r := range rows {
		out[i].DestinationID = r.ID
		out[i].Count = r.Count
	}
	return out, nil
}

// TopUsers returns the N usernames with the most matched-archive rows,
// for the analytics aggregator's top_users rollup.
func (m *MongoDB) TopUsers(ctx context.Context, tenantID string, limit int) ([]struct {
	Username string
	Count    int64
}, error) {
	pipeline := []bson.M{
		{"$match": bson.M{"tenant_id": tenantID}},
		{"$group": bson.M{"_id": "$username", "count": bson.M{"$sum": 1}}},
		{"$sort": bson.M{"count": -1}},
		{"$limit": limit},
	}
	cursor, err := m.collection(collectionMessages).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, wrapFind(err)
	}
	defer cursor.Close(ctx)
	var rows []struct {
		ID    string `bson:"_id"`
		Count int64  `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, wrapFind(err)
	}
	out := make([]struct {
		Username string
		Count    int64
	}, len(rows))
	for i, r := range rows {
		out[i].Username = r.ID
		out[i].Count = r.Count
	}
	return out, nil
}
