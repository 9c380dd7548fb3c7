package entity

import (
	"net/http"
	"time"

	"telewatch/lib/validate"
)

type GroupType string

const (
	GroupTypeGroup      GroupType = "group"
	GroupTypeSupergroup GroupType = "supergroup"
	GroupTypeChannel    GroupType = "channel"
)

// Group is a watched Telegram chat. group_id is the external chat
// identifier and is unique within a tenant; soft-deleted via IsActive.
type Group struct {
	ID          string    `json:"id" bson:"_id,omitempty"`
	TenantID    string    `json:"tenant_id" bson:"tenant_id"`
	GroupID     string    `json:"group_id" bson:"group_id" validate:"required"`
	GroupName   string    `json:"group_name" bson:"group_name" validate:"required"`
	GroupType   GroupType `json:"group_type" bson:"group_type" validate:"required,oneof=group supergroup channel"`
	InviteLink  string    `json:"invite_link,omitempty" bson:"invite_link,omitempty"`
	Description string    `json:"description,omitempty" bson:"description,omitempty"`
	IsActive    bool      `json:"is_active" bson:"is_active"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
}

func (g *Group) Bind(_ *http.Request) error {
	return validate.Struct(g)
}

type GroupInput struct {
	GroupID     string    `json:"group_id" validate:"required"`
	GroupName   string    `json:"group_name" validate:"required"`
	GroupType   GroupType `json:"group_type" validate:"required,oneof=group supergroup channel"`
	InviteLink  string    `json:"invite_link,omitempty"`
	Description string    `json:"description,omitempty"`
}

func (g *GroupInput) Bind(_ *http.Request) error {
	return validate.Struct(g)
}
