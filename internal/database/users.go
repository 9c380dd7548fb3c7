package database

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"telewatch/entity"
	"telewatch/internal/apperr"
)

func (m *MongoDB) CreateUser(ctx context.Context, u *entity.User) (*entity.User, error) {
	u.CreatedAt = time.Now().UTC()
	u.IsActive = true
	id := primitive.NewObjectID()
	doc := bson.M{
		"_id":         id,
		"tenant_id":   u.TenantID,
		"telegram_id": u.TelegramID,
		"username":    u.Username,
		"first_name":  u.FirstName,
		"last_name":   u.LastName,
		"photo_url":   u.PhotoURL,
		"role":        u.Role,
		"is_active":   u.IsActive,
		"created_at":  u.CreatedAt,
	}
	if _, err := m.collection(collectionUsers).InsertOne(ctx, doc); err != nil {
		return nil, wrapWrite(err)
	}
	u.ID = id.Hex()
	return u, nil
}

// CreateInvitedUser creates a user an admin has invited by Telegram id
// before that user has ever logged in; their first /auth/telegram call
// then resolves against this row instead of creating a new one.
func (m *MongoDB) CreateInvitedUser(ctx context.Context, tenantID string, in *entity.InviteInput) (*entity.User, error) {
	if existing, err := m.GetUserByTelegramID(ctx, in.TelegramID); err == nil && existing != nil {
		return nil, apperr.New(apperr.Conflict, "telegram_id already invited")
	} else if err != nil && !apperr.Is(err, apperr.NotFound) {
		return nil, err
	}
	return m.CreateUser(ctx, &entity.User{
		TenantID:  tenantID,
		TelegramID: in.TelegramID,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Role:      in.Role,
	})
}

func (m *MongoDB) GetUserByTelegramID(ctx context.Context, telegramID int64) (*entity.User, error) {
	var u entity.User
	err := m.collection(collectionUsers).FindOne(ctx, bson.M{"telegram_id": telegramID}).Decode(&u)
	if err != nil {
		return nil, wrapFind(err)
	}
	return &u, nil
}

func (m *MongoDB) GetUser(ctx context.Context, tenantID, id string) (*entity.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, notFound()
	}
	var u entity.User
	err = m.collection(collectionUsers).FindOne(ctx, bson.M{"_id": oid, "tenant_id": tenantID}).Decode(&u)
	if err != nil {
		return nil, wrapFind(err)
	}
	return &u, nil
}

func (m *MongoDB) ListUsers(ctx context.Context, tenantID string) ([]*entity.User, error) {
	cursor, err := m.collection(collectionUsers).Find(ctx, bson.M{"tenant_id": tenantID})
	if err != nil {
		return nil, wrapFind(err)
	}
	defer cursor.Close(ctx)
	var users []*entity.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, wrapFind(err)
	}
	return users, nil
}

func (m *MongoDB) UpdateUserLogin(ctx context.Context, id, photoURL string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return notFound()
	}
	_, err = m.collection(collectionUsers).UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"photo_url": photoURL, "last_login": time.Now().UTC()}},
	)
	return wrapWrite(err)
}

func (m *MongoDB) UpdateUserRole(ctx context.Context, tenantID, id string, role entity.Role) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return notFound()
	}
	res, err := m.collection(collectionUsers).UpdateOne(ctx,
		bson.M{"_id": oid, "tenant_id": tenantID},
		bson.M{"$set": bson.M{"role": role}},
	)
	if err != nil {
		return wrapWrite(err)
	}
	if res.MatchedCount == 0 {
		return notFound()
	}
	return nil
}

func (m *MongoDB) DeactivateUser(ctx context.Context, tenantID, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return notFound()
	}
	res, err := m.collection(collectionUsers).UpdateOne(ctx,
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

// CountUsers counts the tenant's active users.
func (m *MongoDB) CountUsers(ctx context.Context, tenantID string) (int64, error) {
	n, err := m.collection(collectionUsers).CountDocuments(ctx, bson.M{"tenant_id": tenantID, "is_active": true})
	if err != nil {
		return 0, wrapFind(err)
	}
	return n, nil
}
