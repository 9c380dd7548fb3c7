package database

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"telewatch/entity"
)

func (m *MongoDB) RecordBotCommand(ctx context.Context, cmd *entity.BotCommand) error {
	cmd.Timestamp = time.Now().UTC()
	id := primitive.NewObjectID()
	doc := bson.M{
		"_id":              id,
		"tenant_id":        cmd.TenantID,
		"telegram_user_id": cmd.TelegramUserID,
		"command":          cmd.Command,
		"args":             cmd.Args,
		"timestamp":        cmd.Timestamp,
	}
	_, err := m.collection(collectionBotCommands).InsertOne(ctx, doc)
	return wrapWrite(err)
}
