package entity

import (
	"net/http"
	"time"

	"telewatch/lib/validate"
)

// User is a tenant-scoped application user authenticated solely by their
// Telegram identity. There is no password field: login happens through the
// Telegram widget hash check, so legacy email/password columns have no
// reason to exist here.
type User struct {
	ID         string    `json:"id" bson:"_id,omitempty"`
	TenantID   string    `json:"tenant_id" bson:"tenant_id"`
	TelegramID int64     `json:"telegram_id" bson:"telegram_id"`
	Username   string    `json:"username,omitempty" bson:"username,omitempty"`
	FirstName  string    `json:"first_name" bson:"first_name" validate:"required"`
	LastName   string    `json:"last_name,omitempty" bson:"last_name,omitempty"`
	PhotoURL   string    `json:"photo_url,omitempty" bson:"photo_url,omitempty"`
	Role       Role      `json:"role" bson:"role" validate:"required,oneof=owner admin viewer"`
	IsActive   bool      `json:"is_active" bson:"is_active"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
	LastLogin  time.Time `json:"last_login,omitempty" bson:"last_login,omitempty"`
}

func (u *User) Bind(_ *http.Request) error {
	return validate.Struct(u)
}

// InviteInput is the closed-shape body of POST /users/invite.
type InviteInput struct {
	TelegramID int64  `json:"telegram_id" validate:"required"`
	FirstName  string `json:"first_name" validate:"required"`
	LastName   string `json:"last_name,omitempty"`
	Role       Role   `json:"role" validate:"required,oneof=admin viewer"`
}

func (i *InviteInput) Bind(_ *http.Request) error {
	return validate.Struct(i)
}

// RoleUpdate is the closed-shape body of PUT /users/{id}/role.
type RoleUpdate struct {
	Role Role `json:"role" validate:"required,oneof=owner admin viewer"`
}

func (r *RoleUpdate) Bind(_ *http.Request) error {
	return validate.Struct(r)
}
