// Package telegram specifies the contract of the Telegram user-account
// client library. The library itself (the session-based receiver that
// actually speaks the MTProto wire protocol) is an external collaborator
// and out of scope; this package only declares the shapes the supervisor
// depends on so it can be swapped for a real client without touching
// component D.
package telegram

import "context"

// Event is a single incoming update relevant to the filter pipeline.
// Fields mirror entity.MessageLog's source data before it is classified
// and archived.
type Event struct {
	GroupID     string
	GroupName   string
	UserID      int64
	Username    string
	MessageID   string
	Text        string
	Caption     string
	Kind        string
	MediaInfo   map[string]interface{}
	TimestampMs int64
}

// SessionClient is a single authenticated user-account connection. One
// instance backs exactly one Account.
type SessionClient interface {
	// Connect opens the connection using the persisted session artifact
	// at sessionPath. Returns ArtifactInvalid-classified errors for a
	// corrupt or revoked session (never retried by the caller).
	Connect(ctx context.Context, sessionPath string) error
	// Subscribe starts (or updates) delivery of message events for the
	// given external group ids.
	Subscribe(ctx context.Context, groupIDs []string) error
	// Events returns the channel the supervisor reads incoming updates
	// from; closed when the connection drops.
	Events() <-chan Event
	// Healthy reports the connection's liveness without blocking.
	Healthy() bool
	Close(ctx context.Context) error
}

// Factory constructs a new, unconnected SessionClient; production wiring
// supplies the real MTProto-backed implementation, tests supply a fake.
type Factory func() SessionClient
