package database

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"telewatch/entity"
)

func (m *MongoDB) CreateDestination(ctx context.Context, tenantID string, in *entity.DestinationInput) (*entity.Destination, error) {
	d := &entity.Destination{
		TenantID:        tenantID,
		DestinationID:   in.DestinationID,
		DestinationName: in.DestinationName,
		DestinationType: in.DestinationType,
		Description:     in.Description,
		IsActive:        true,
		CreatedAt:       time.Now().UTC(),
	}
	id := primitive.NewObjectID()
	doc := bson.M{
		"_id":              id,
		"tenant_id":        d.TenantID,
		"destination_id":   d.DestinationID,
		"destination_name": d.DestinationName,
		"destination_type": d.DestinationType,
		"description":      d.Description,
		"message_count":    0,
		"is_active":        d.IsActive,
		"created_at":       d.CreatedAt,
	}
	if _, err := m.collection(collectionDestinations).InsertOne(ctx, doc); err != nil {
		return nil, wrapWrite(err)
	}
	d.ID = id.Hex()
	return d, nil
}

func (m *MongoDB) GetDestination(ctx context.Context, tenantID, id string) (*entity.Destination, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, notFound()
	}
	var d entity.Destination
	err = m.collection(collectionDestinations).FindOne(ctx, bson.M{"_id": oid, "tenant_id": tenantID}).Decode(&d)
	if err != nil {
		return nil, wrapFind(err)
	}
	return &d, nil
}

// GetDestinationByExternalID resolves a destination by its tenant-scoped
// external chat id, used by the forwarder when emitting a forward request
// referencing WatchUser.ForwardingDestinations.
func (m *MongoDB) GetDestinationByExternalID(ctx context.Context, tenantID, destinationID string) (*entity.Destination, error) {
	var d entity.Destination
	err := m.collection(collectionDestinations).FindOne(ctx, bson.M{
		"tenant_id":      tenantID,
		"destination_id": destinationID,
	}).Decode(&d)
	if err != nil {
		return nil, wrapFind(err)
	}
	return &d, nil
}

func (m *MongoDB) ListDestinations(ctx context.Context, tenantID string, includeInactive bool) ([]*entity.Destination, error) {
	filter := bson.M{"tenant_id": tenantID}
	if !includeInactive {
		filter["is_active"] = true
	}
	cursor, err := m.collection(collectionDestinations).Find(ctx, filter)
	if err != nil {
		return nil, wrapFind(err)
	}
	defer cursor.Close(ctx)
	var destinations []*entity.Destination
	if err := cursor.All(ctx, &destinations); err != nil {
		return nil, wrapFind(err)
	}
	return destinations, nil
}

func (m *MongoDB) UpdateDestination(ctx context.Context, tenantID, id string, in *entity.DestinationInput) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return notFound()
	}
	update := bson.M{"$set": bson.M{
		"destination_name": in.DestinationName,
		"destination_type": in.DestinationType,
		"description":      in.Description,
	}}
	res, err := m.collection(collectionDestinations).UpdateOne(ctx, bson.M{"_id": oid, "tenant_id": tenantID}, update)
	if err != nil {
		return wrapWrite(err)
	}
	if res.MatchedCount == 0 {
		return notFound()
	}
	return nil
}

func (m *MongoDB) DeleteDestination(ctx context.Context, tenantID, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return notFound()
	}
	res, err := m.collection(collectionDestinations).UpdateOne(ctx,
		bson.M{"_id": oid, "tenant_id": tenantID},
		bson.M{"$set": bson.M{"is_active": false}},
	)
	if err != nil {
		return wrapWrite(err)
	}
	if res.MatchedCount == 0 {
		return notFound()
	}
	return nil
}

// RecordDelivery bumps message_count and last_forwarded for a destination
// after a delivered ForwardedMessage row is appended.
func (m *MongoDB) RecordDelivery(ctx context.Context, tenantID, destinationObjID string, at time.Time) error {
	oid, err := primitive.ObjectIDFromHex(destinationObjID)
	if err != nil {
		return notFound()
	}
	_, err = m.collection(collectionDestinations).UpdateOne(ctx,
		bson.M{"_id": oid, "tenant_id": tenantID},
		bson.M{"$inc": bson.M{"message_count": 1}, "$set": bson.M{"last_forwarded": at}},
	)
	return wrapWrite(err)
}

// RecomputeMessageCount recounts delivered ledger rows for a destination,
// so message_count can always be rebuilt rather than trusted blindly.
func (m *MongoDB) RecomputeMessageCount(ctx context.Context, tenantID, destinationID string) (int64, error) {
	n, err := m.collection(collectionForwarded).CountDocuments(ctx, bson.M{
		"tenant_id":      tenantID,
		"destination_id": destinationID,
		"outcome":        entity.ForwardDelivered,
	})
	if err != nil {
		return 0, wrapFind(err)
	}
	return n, nil
}

func (m *MongoDB) CountActiveDestinations(ctx context.Context, tenantID string) (int64, error) {
	n, err := m.collection(collectionDestinations).CountDocuments(ctx, bson.M{"tenant_id": tenantID, "is_active": true})
	if err != nil {
		return 0, wrapFind(err)
	}
	return n, nil
}
