package entity

import (
	"net/http"
	"time"

	"telewatch/lib/validate"
)

type DestinationType string

const (
	DestinationChannel DestinationType = "channel"
	DestinationGroup   DestinationType = "group"
	DestinationUser    DestinationType = "user"
)

// Destination is an external chat that matched messages are re-delivered
// to. message_count is the cardinality of its delivered ForwardedMessage
// rows and must always be recomputable from the ledger.
type Destination struct {
	ID              string          `json:"id" bson:"_id,omitempty"`
	TenantID        string          `json:"tenant_id" bson:"tenant_id"`
	DestinationID   string          `json:"destination_id" bson:"destination_id" validate:"required"`
	DestinationName string          `json:"destination_name" bson:"destination_name" validate:"required"`
	DestinationType DestinationType `json:"destination_type" bson:"destination_type" validate:"required,oneof=channel group user"`
	Description     string          `json:"description,omitempty" bson:"description,omitempty"`
	MessageCount    int             `json:"message_count" bson:"message_count"`
	LastForwarded   time.Time       `json:"last_forwarded,omitempty" bson:"last_forwarded,omitempty"`
	IsActive        bool            `json:"is_active" bson:"is_active"`
	CreatedAt       time.Time       `json:"created_at" bson:"created_at"`
}

func (d *Destination) Bind(_ *http.Request) error {
	return validate.Struct(d)
}

type DestinationInput struct {
	DestinationID   string          `json:"destination_id" validate:"required"`
	DestinationName string          `json:"destination_name" validate:"required"`
	DestinationType DestinationType `json:"destination_type" validate:"required,oneof=channel group user"`
	Description     string          `json:"description,omitempty"`
}

func (d *DestinationInput) Bind(_ *http.Request) error {
	return validate.Struct(d)
}
