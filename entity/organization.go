package entity

import (
	"net/http"
	"time"

	"telewatch/lib/validate"
)

// UsageStats is a snapshot of an organization's resource counts, kept on
// the Organization document so the dashboard can render it without a
// separate round trip. It is written through
// database.RefreshUsageStats; the analytics aggregator does not refresh it.
type UsageStats struct {
	TotalGroups     int `json:"total_groups" bson:"total_groups"`
	TotalWatchUsers int `json:"total_watch_users" bson:"total_watch_users"`
	TotalAccounts   int `json:"total_accounts" bson:"total_accounts"`
	TotalMessages   int `json:"total_messages" bson:"total_messages"`
}

// Organization is the tenant isolation boundary. Created on first
// registration; never deleted.
type Organization struct {
	ID          string     `json:"id" bson:"_id,omitempty"`
	Name        string     `json:"name" bson:"name" validate:"required"`
	Description string     `json:"description,omitempty" bson:"description,omitempty"`
	Plan        Plan       `json:"plan" bson:"plan" validate:"required,oneof=free pro enterprise"`
	UsageStats  UsageStats `json:"usage_stats" bson:"usage_stats"`
	CreatedAt   time.Time  `json:"created_at" bson:"created_at"`
}

func (o *Organization) Bind(_ *http.Request) error {
	return validate.Struct(o)
}

// OrganizationUpdate is the closed-shape body accepted by
// PUT /organizations/current. Kept separate from Organization so only
// these fields can be written; unknown fields in the request body are
// ignored by the JSON decoder, not rejected.
type OrganizationUpdate struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description,omitempty"`
	Plan        Plan   `json:"plan" validate:"required,oneof=free pro enterprise"`
}

func (u *OrganizationUpdate) Bind(_ *http.Request) error {
	return validate.Struct(u)
}
