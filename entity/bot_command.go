package entity

import "time"

// BotCommand is an audit row for every command or callback the Telegram
// bot surface handled, tenant-scoped where the sender could be resolved.
type BotCommand struct {
	ID            string    `json:"id" bson:"_id,omitempty"`
	TenantID      string    `json:"tenant_id,omitempty" bson:"tenant_id,omitempty"`
	TelegramUserID int64    `json:"telegram_user_id" bson:"telegram_user_id"`
	Command       string    `json:"command" bson:"command"`
	Args          string    `json:"args,omitempty" bson:"args,omitempty"`
	Timestamp     time.Time `json:"timestamp" bson:"timestamp"`
}
