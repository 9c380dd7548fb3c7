package database

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"telewatch/entity"
)

func (m *MongoDB) CreateAccount(ctx context.Context, a *entity.Account) (*entity.Account, error) {
	a.Status = entity.AccountPending
	a.CreatedAt = time.Now().UTC()
	id := primitive.NewObjectID()
	doc := bson.M{
		"_id":                     id,
		"tenant_id":               a.TenantID,
		"name":                    a.Name,
		"session_artifact_path":   a.SessionArtifactPath,
		"metadata_artifact_path":  a.MetadataArtifactPath,
		"phone_number":            a.PhoneNumber,
		"username":                a.Username,
		"first_name":              a.FirstName,
		"last_name":               a.LastName,
		"status":                  a.Status,
		"assigned_group_ids":      []string{},
		"created_at":              a.CreatedAt,
	}
	if _, err := m.collection(collectionAccounts).InsertOne(ctx, doc); err != nil {
		return nil, wrapWrite(err)
	}
	a.ID = id.Hex()
	return a, nil
}

func (m *MongoDB) GetAccount(ctx context.Context, tenantID, id string) (*entity.Account, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, notFound()
	}
	var a entity.Account
	err = m.collection(collectionAccounts).FindOne(ctx, bson.M{"_id": oid, "tenant_id": tenantID}).Decode(&a)
	if err != nil {
		return nil, wrapFind(err)
	}
	return &a, nil
}

func (m *MongoDB) ListAccounts(ctx context.Context, tenantID string) ([]*entity.Account, error) {
	cursor, err := m.collection(collectionAccounts).Find(ctx, bson.M{"tenant_id": tenantID})
	if err != nil {
		return nil, wrapFind(err)
	}
	defer cursor.Close(ctx)
	var accounts []*entity.Account
	if err := cursor.All(ctx, &accounts); err != nil {
		return nil, wrapFind(err)
	}
	return accounts, nil
}

// ListActiveAccounts is the load balancer's input set: the tenant's
// accounts whose stored status is active.
func (m *MongoDB) ListActiveAccounts(ctx context.Context, tenantID string) ([]*entity.Account, error) {
	cursor, err := m.collection(collectionAccounts).Find(ctx, bson.M{"tenant_id": tenantID, "status": entity.AccountActive})
	if err != nil {
		return nil, wrapFind(err)
	}
	defer cursor.Close(ctx)
	var accounts []*entity.Account
	if err := cursor.All(ctx, &accounts); err != nil {
		return nil, wrapFind(err)
	}
	return accounts, nil
}

// ListAllActiveAccounts spans every tenant; used once at process startup
// to reconnect whatever accounts were active when the previous process
// stopped, since a receiver's connection never survives a restart on its
// own.
func (m *MongoDB) ListAllActiveAccounts(ctx context.Context) ([]*entity.Account, error) {
	cursor, err := m.collection(collectionAccounts).Find(ctx, bson.M{"status": entity.AccountActive})
	if err != nil {
		return nil, wrapFind(err)
	}
	defer cursor.Close(ctx)
	var accounts []*entity.Account
	if err := cursor.All(ctx, &accounts); err != nil {
		return nil, wrapFind(err)
	}
	return accounts, nil
}

func (m *MongoDB) SetAccountStatus(ctx context.Context, tenantID, id string, status entity.AccountStatus, lastError string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return notFound()
	}
	set := bson.M{"status": status, "last_activity": time.Now().UTC()}
	if status == entity.AccountError {
		set["last_error"] = lastError
	} else {
		set["last_error"] = ""
	}
	res, err := m.collection(collectionAccounts).UpdateOne(ctx,
		bson.M{"_id": oid, "tenant_id": tenantID},
		bson.M{"$set": set},
	)
	if err != nil {
		return wrapWrite(err)
	}
	if res.MatchedCount == 0 {
		return notFound()
	}
	return nil
}

// SetAssignedGroups is the load balancer's write path: it replaces the
// cached assignment after every rebalance.
func (m *MongoDB) SetAssignedGroups(ctx context.Context, tenantID, id string, groupIDs []string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return notFound()
	}
	_, err = m.collection(collectionAccounts).UpdateOne(ctx,
		bson.M{"_id": oid, "tenant_id": tenantID},
		bson.M{"$set": bson.M{"assigned_group_ids": groupIDs}},
	)
	return wrapWrite(err)
}

func (m *MongoDB) DeleteAccount(ctx context.Context, tenantID, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return notFound()
	}
	res, err := m.collection(collectionAccounts).DeleteOne(ctx, bson.M{"_id": oid, "tenant_id": tenantID})
	if err != nil {
		return wrapWrite(err)
	}
	if res.DeletedCount == 0 {
		return notFound()
	}
	return nil
}

func (m *MongoDB) CountActiveAccounts(ctx context.Context, tenantID string) (int64, error) {
	n, err := m.collection(collectionAccounts).CountDocuments(ctx, bson.M{"tenant_id": tenantID, "status": entity.AccountActive})
	if err != nil {
		return 0, wrapFind(err)
	}
	return n, nil
}
