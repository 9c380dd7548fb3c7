package entity

import "time"

type MessageType string

const (
	MessageText     MessageType = "text"
	MessagePhoto    MessageType = "photo"
	MessageVideo    MessageType = "video"
	MessageDocument MessageType = "document"
	MessageAudio    MessageType = "audio"
	MessageVoice    MessageType = "voice"
	MessageSticker  MessageType = "sticker"
	MessageOther    MessageType = "other"
)

type IngestSource string

const (
	IngestSession IngestSource = "session"
	IngestWebhook IngestSource = "webhook"
)

// MessageLog is an append-only archive row. Uniqueness on
// (TenantID, GroupID, MessageID) makes archive writes idempotent: a
// duplicate receive of the same external message is a no-op, not an error.
type MessageLog struct {
	ID              string                 `json:"id" bson:"_id,omitempty"`
	TenantID        string                 `json:"tenant_id" bson:"tenant_id"`
	GroupID         string                 `json:"group_id" bson:"group_id"`
	GroupName       string                 `json:"group_name" bson:"group_name"`
	UserID          int64                  `json:"user_id" bson:"user_id"`
	Username        string                 `json:"username" bson:"username"`
	MessageID       string                 `json:"message_id" bson:"message_id"`
	MessageText     string                 `json:"message_text,omitempty" bson:"message_text,omitempty"`
	MessageType     MessageType            `json:"message_type" bson:"message_type"`
	MediaInfo       map[string]interface{} `json:"media_info,omitempty" bson:"media_info,omitempty"`
	MatchedKeywords []string               `json:"matched_keywords" bson:"matched_keywords"`
	Timestamp       time.Time              `json:"timestamp" bson:"timestamp"`
	IngestedVia     IngestSource           `json:"ingested_via" bson:"ingested_via"`
}
