package database

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"telewatch/entity"
)

func (m *MongoDB) CreateOrganization(ctx context.Context, org *entity.Organization) (*entity.Organization, error) {
	org.CreatedAt = time.Now().UTC()
	id := primitive.NewObjectID()
	doc := bson.M{
		"_id":         id,
		"name":        org.Name,
		"description": org.Description,
		"plan":        org.Plan,
		"usage_stats": org.UsageStats,
		"created_at":  org.CreatedAt,
	}
	if _, err := m.collection(collectionOrganizations).InsertOne(ctx, doc); err != nil {
		return nil, wrapWrite(err)
	}
	org.ID = id.Hex()
	return org, nil
}

func (m *MongoDB) GetOrganization(ctx context.Context, id string) (*entity.Organization, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, notFound()
	}
	var org entity.Organization
	err = m.collection(collectionOrganizations).FindOne(ctx, bson.M{"_id": oid}).Decode(&org)
	if err != nil {
		return nil, wrapFind(err)
	}
	org.ID = id
	return &org, nil
}

func (m *MongoDB) UpdateOrganization(ctx context.Context, id string, upd *entity.OrganizationUpdate) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return notFound()
	}
	update := bson.M{"$set": bson.M{
		"name":        upd.Name,
		"description": upd.Description,
		"plan":        upd.Plan,
	}}
	res, err := m.collection(collectionOrganizations).UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return wrapWrite(err)
	}
	if res.MatchedCount == 0 {
		return notFound()
	}
	return nil
}

// RefreshUsageStats overwrites an organization's usage_stats with the
// counters the caller computed.
func (m *MongoDB) RefreshUsageStats(ctx context.Context, tenantID string, stats entity.UsageStats) error {
	oid, err := primitive.ObjectIDFromHex(tenantID)
	if err != nil {
		return notFound()
	}
	_, err = m.collection(collectionOrganizations).UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"usage_stats": stats}},
	)
	return wrapWrite(err)
}
