package database

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"telewatch/entity"
)

func (m *MongoDB) CreateWatchUser(ctx context.Context, tenantID string, in *entity.WatchUserInput) (*entity.WatchUser, error) {
	w := &entity.WatchUser{
		TenantID:               tenantID,
		Username:               in.Username,
		UserID:                 in.UserID,
		FullName:               in.FullName,
		GroupIDs:               in.GroupIDs,
		Keywords:               in.Keywords,
		ForwardingDestinations: in.ForwardingDestinations,
		IsActive:               true,
		CreatedAt:              time.Now().UTC(),
	}
	id := primitive.NewObjectID()
	doc := bson.M{
		"_id":                       id,
		"tenant_id":                 w.TenantID,
		"username":                  w.Username,
		"user_id":                   w.UserID,
		"full_name":                 w.FullName,
		"group_ids":                 w.GroupIDs,
		"keywords":                  w.Keywords,
		"forwarding_destination_ids": w.ForwardingDestinations,
		"is_active":                 w.IsActive,
		"created_at":                w.CreatedAt,
	}
	if _, err := m.collection(collectionWatchUsers).InsertOne(ctx, doc); err != nil {
		return nil, wrapWrite(err)
	}
	w.ID = id.Hex()
	return w, nil
}

func (m *MongoDB) GetWatchUser(ctx context.Context, tenantID, id string) (*entity.WatchUser, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, notFound()
	}
	var w entity.WatchUser
	err = m.collection(collectionWatchUsers).FindOne(ctx, bson.M{"_id": oid, "tenant_id": tenantID}).Decode(&w)
	if err != nil {
		return nil, wrapFind(err)
	}
	return &w, nil
}

func (m *MongoDB) ListWatchUsers(ctx context.Context, tenantID string, includeInactive bool) ([]*entity.WatchUser, error) {
	filter := bson.M{"tenant_id": tenantID}
	if !includeInactive {
		filter["is_active"] = true
	}
	cursor, err := m.collection(collectionWatchUsers).Find(ctx, filter)
	if err != nil {
		return nil, wrapFind(err)
	}
	defer cursor.Close(ctx)
	var users []*entity.WatchUser
	if err := cursor.All(ctx, &users); err != nil {
		return nil, wrapFind(err)
	}
	return users, nil
}

// WatchUsersByUsername is the filter pipeline's entry point: the active
// watch users whose normalized username matches an incoming message's
// sender.
func (m *MongoDB) WatchUsersByUsername(ctx context.Context, tenantID, username string) ([]*entity.WatchUser, error) {
	cursor, err := m.collection(collectionWatchUsers).Find(ctx, bson.M{
		"tenant_id": tenantID,
		"username":  username,
		"is_active": true,
	})
	if err != nil {
		return nil, wrapFind(err)
	}
	defer cursor.Close(ctx)
	var users []*entity.WatchUser
	if err := cursor.All(ctx, &users); err != nil {
		return nil, wrapFind(err)
	}
	return users, nil
}

func (m *MongoDB) UpdateWatchUser(ctx context.Context, tenantID, id string, in *entity.WatchUserInput) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return notFound()
	}
	update := bson.M{"$set": bson.M{
		"full_name":                  in.FullName,
		"group_ids":                  in.GroupIDs,
		"keywords":                   in.Keywords,
		"forwarding_destination_ids": in.ForwardingDestinations,
	}}
	res, err := m.collection(collectionWatchUsers).UpdateOne(ctx, bson.M{"_id": oid, "tenant_id": tenantID}, update)
	if err != nil {
		return wrapWrite(err)
	}
	if res.MatchedCount == 0 {
		return notFound()
	}
	return nil
}

func (m *MongoDB) DeleteWatchUser(ctx context.Context, tenantID, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return notFound()
	}
	res, err := m.collection(collectionWatchUsers).UpdateOne(ctx,
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

func (m *MongoDB) CountActiveWatchUsers(ctx context.Context, tenantID string) (int64, error) {
	n, err := m.collection(collectionWatchUsers).CountDocuments(ctx, bson.M{"tenant_id": tenantID, "is_active": true})
	if err != nil {
		return 0, wrapFind(err)
	}
	return n, nil
}
