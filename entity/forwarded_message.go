package entity

import "time"

type ForwardOutcome string

const (
	ForwardDelivered ForwardOutcome = "delivered"
	ForwardFailed    ForwardOutcome = "failed"
)

// FailureReasonDestinationInactive is recorded when a destination went
// inactive between match time and emit time; the row is kept (not
// suppressed) so the ledger stays a complete audit trail.
const FailureReasonDestinationInactive = "destination_inactive"

// ForwardedMessage is an append-only ledger row: every delivery attempt
// resolves to exactly one terminal row here.
type ForwardedMessage struct {
	ID              string         `json:"id" bson:"_id,omitempty"`
	TenantID        string         `json:"tenant_id" bson:"tenant_id"`
	SourceMessageRef string        `json:"source_message_ref" bson:"source_message_ref"`
	Username        string         `json:"username" bson:"username"`
	GroupName       string         `json:"group_name" bson:"group_name"`
	DestinationID   string         `json:"destination_id" bson:"destination_id"`
	// RoutingID correlates this ledger row with the routing-id footer the
	// recipient actually saw; generated once per forward in the pipeline.
	RoutingID       string         `json:"routing_id" bson:"routing_id"`
	ForwardedAt     time.Time      `json:"forwarded_at" bson:"forwarded_at"`
	Outcome         ForwardOutcome `json:"outcome" bson:"outcome"`
	FailureReason   string         `json:"failure_reason,omitempty" bson:"failure_reason,omitempty"`
}
