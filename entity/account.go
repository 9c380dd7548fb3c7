package entity

import (
	"net/http"
	"time"

	"telewatch/lib/validate"
)

type AccountStatus string

const (
	AccountPending  AccountStatus = "pending"
	AccountActive   AccountStatus = "active"
	AccountInactive AccountStatus = "inactive"
	AccountError    AccountStatus = "error"
)

// Account is a Telegram user-account session operated on the tenant's
// behalf. SessionArtifactPath/MetadataArtifactPath point into the
// tenant-partitioned filesystem store; AssignedGroupIDs is a cache of the
// load balancer's last assignment and is reconstructed on restart, never
// treated as the source of truth.
type Account struct {
	ID                   string        `json:"id" bson:"_id,omitempty"`
	TenantID             string        `json:"tenant_id" bson:"tenant_id"`
	Name                 string        `json:"name" bson:"name" validate:"required"`
	SessionArtifactPath  string        `json:"session_artifact_path" bson:"session_artifact_path"`
	MetadataArtifactPath string        `json:"metadata_artifact_path" bson:"metadata_artifact_path"`
	PhoneNumber          string        `json:"phone_number,omitempty" bson:"phone_number,omitempty"`
	Username             string        `json:"username,omitempty" bson:"username,omitempty"`
	FirstName            string        `json:"first_name,omitempty" bson:"first_name,omitempty"`
	LastName             string        `json:"last_name,omitempty" bson:"last_name,omitempty"`
	Status               AccountStatus `json:"status" bson:"status"`
	LastError            string        `json:"last_error,omitempty" bson:"last_error,omitempty"`
	AssignedGroupIDs     []string      `json:"assigned_group_ids" bson:"assigned_group_ids"`
	CreatedAt            time.Time     `json:"created_at" bson:"created_at"`
	LastActivity         time.Time     `json:"last_activity,omitempty" bson:"last_activity,omitempty"`
}

func (a *Account) Bind(_ *http.Request) error {
	return validate.Struct(a)
}

// AccountMetadata is the parsed shape of the uploaded .json artifact.
type AccountMetadata struct {
	PhoneNumber string `json:"phone_number,omitempty"`
	Username    string `json:"username,omitempty"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
}

type AccountUploadInput struct {
	Name string `json:"name" validate:"required"`
}

func (a *AccountUploadInput) Bind(_ *http.Request) error {
	return validate.Struct(a)
}
