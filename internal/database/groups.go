package database

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"telewatch/entity"
)

func (m *MongoDB) CreateGroup(ctx context.Context, tenantID string, in *entity.GroupInput) (*entity.Group, error) {
	g := &entity.Group{
		TenantID:    tenantID,
		GroupID:     in.GroupID,
		GroupName:   in.GroupName,
		GroupType:   in.GroupType,
		InviteLink:  in.InviteLink,
		Description: in.Description,
		IsActive:    true,
		CreatedAt:   time.Now().UTC(),
	}
	id := primitive.NewObjectID()
	doc := bson.M{
		"_id":          id,
		"tenant_id":    g.TenantID,
		"group_id":     g.GroupID,
		"group_name":   g.GroupName,
		"group_type":   g.GroupType,
		"invite_link":  g.InviteLink,
		"description":  g.Description,
		"is_active":    g.IsActive,
		"created_at":   g.CreatedAt,
	}
	if _, err := m.collection(collectionGroups).InsertOne(ctx, doc); err != nil {
		return nil, wrapWrite(err)
	}
	g.ID = id.Hex()
	return g, nil
}

func (m *MongoDB) GetGroup(ctx context.Context, tenantID, id string) (*entity.Group, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, notFound()
	}
	var g entity.Group
	err = m.collection(collectionGroups).FindOne(ctx, bson.M{"_id": oid, "tenant_id": tenantID}).Decode(&g)
	if err != nil {
		return nil, wrapFind(err)
	}
	return &g, nil
}

func (m *MongoDB) ListGroups(ctx context.Context, tenantID string, includeInactive bool) ([]*entity.Group, error) {
	filter := bson.M{"tenant_id": tenantID}
	if !includeInactive {
		filter["is_active"] = true
	}
	cursor, err := m.collection(collectionGroups).Find(ctx, filter)
	if err != nil {
		return nil, wrapFind(err)
	}
	defer cursor.Close(ctx)
	var groups []*entity.Group
	if err := cursor.All(ctx, &groups); err != nil {
		return nil, wrapFind(err)
	}
	return groups, nil
}

// ActiveGroupIDs returns the external group_id values of every active
// group in the tenant, as a set.
func (m *MongoDB) ActiveGroupIDs(ctx context.Context, tenantID string) (map[string]bool, error) {
	groups, err := m.ListGroups(ctx, tenantID, false)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(groups))
	for _, g := range groups {
		set[g.GroupID] = true
	}
	return set, nil
}

func (m *MongoDB) UpdateGroup(ctx context.Context, tenantID, id string, in *entity.GroupInput) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return notFound()
	}
	update := bson.M{"$set": bson.M{
		"group_name":  in.GroupName,
		"group_type":  in.GroupType,
		"invite_link": in.InviteLink,
		"description": in.Description,
	}}
	res, err := m.collection(collectionGroups).UpdateOne(ctx, bson.M{"_id": oid, "tenant_id": tenantID}, update)
	if err != nil {
		return wrapWrite(err)
	}
	if res.MatchedCount == 0 {
		return notFound()
	}
	return nil
}

func (m *MongoDB) DeleteGroup(ctx context.Context, tenantID, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return notFound()
	}
	res, err := m.collection(collectionGroups).UpdateOne(ctx,
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

func (m *MongoDB) CountActiveGroups(ctx context.Context, tenantID string) (int64, error) {
	n, err := m.collection(collectionGroups).CountDocuments(ctx, bson.M{"tenant_id": tenantID, "is_active": true})
	if err != nil {
		return 0, wrapFind(err)
	}
	return n, nil
}
