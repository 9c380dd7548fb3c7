// Package analytics implements the analytics aggregator (component K):
// on-demand rollups over the archive and forwarded-message ledger,
// strictly tenant-scoped.
package analytics

import (
	"context"
	"time"

	"telewatch/entity"
	"telewatch/internal/database"
)

// recentForwardsLimit bounds the recent_forwards rollup to the most
// recent terminal deliveries, not the whole ledger.
const recentForwardsLimit = 20

// Database is the aggregator's store dependency.
type Database interface {
	CountActiveGroups(ctx context.Context, tenantID string) (int64, error)
	CountActiveWatchUsers(ctx context.Context, tenantID string) (int64, error)
	CountActiveDestinations(ctx context.Context, tenantID string) (int64, error)
	CountMessages(ctx context.Context, tenantID string) (int64, error)
	CountMessagesSince(ctx context.Context, tenantID string, since time.Time) (int64, error)
	CountForwarded(ctx context.Context, tenantID string, outcome entity.ForwardOutcome) (int64, error)
	CountForwardedSince(ctx context.Context, tenantID string, since time.Time) (int64, error)
	MessageTypeDistribution(ctx context.Context, tenantID string) (map[entity.MessageType]int64, error)
	TopUsers(ctx context.Context, tenantID string, limit int) ([]struct {
		Username string
		Count    int64
	}, error)
	TopDestinations(ctx context.Context, tenantID string, limit int) ([]struct {
		DestinationID string
		Count         int64
	}, error)
	ListForwarded(ctx context.Context, tenantID string, f database.ForwardedFilter) ([]*entity.ForwardedMessage, error)
}

// Stats is the shape returned by GET /stats.
type Stats struct {
	TotalGroups           int64                        `json:"total_groups"`
	TotalWatchlistUsers   int64                        `json:"total_watchlist_users"`
	TotalDestinations     int64                        `json:"total_destinations"`
	TotalMessages         int64                        `json:"total_messages"`
	MessagesToday         int64                        `json:"messages_today"`
	TotalForwarded        int64                        `json:"total_forwarded"`
	ForwardingSuccessRate float64                      `json:"forwarding_success_rate"`
	ForwardedToday        int64                        `json:"forwarded_today"`
	TopUsers              []UserCount                  `json:"top_users"`
	MessageTypes          map[entity.MessageType]int64 `json:"message_types"`
	TopDestinations       []DestinationCount           `json:"top_destinations"`
	RecentForwards        []*entity.ForwardedMessage   `json:"recent_forwards"`
}

type UserCount struct {
	Username string `json:"username"`
	Count    int64  `json:"count"`
}

type DestinationCount struct {
	DestinationID string `json:"destination_id"`
	Count         int64  `json:"count"`
}

type Aggregator struct {
	db Database
}

func New(db Database) *Aggregator {
	return &Aggregator{db: db}
}

func (a *Aggregator) Compute(ctx context.Context, tenantID string) (*Stats, error) {
	groups, err := a.db.CountActiveGroups(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	watchUsers, err := a.db.CountActiveWatchUsers(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	destinations, err := a.db.CountActiveDestinations(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	totalMessages, err := a.db.CountMessages(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	startOfDay := time.Now().UTC().Truncate(24 * time.Hour)
	messagesToday, err := a.db.CountMessagesSince(ctx, tenantID, startOfDay)
	if err != nil {
		return nil, err
	}

	delivered, err := a.db.CountForwarded(ctx, tenantID, entity.ForwardDelivered)
	if err != nil {
		return nil, err
	}
	failed, err := a.db.CountForwarded(ctx, tenantID, entity.ForwardFailed)
	if err != nil {
		return nil, err
	}
	forwardedToday, err := a.db.CountForwardedSince(ctx, tenantID, startOfDay)
	if err != nil {
		return nil, err
	}

	total := delivered + failed
	var rate float64
	if total > 0 {
		rate = float64(delivered) / float64(total)
	}

	dist, err := a.db.MessageTypeDistribution(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	topUsersRaw, err := a.db.TopUsers(ctx, tenantID, 10)
	if err != nil {
		return nil, err
	}
	topUsers := make([]UserCount, len(topUsersRaw))
	for i, u := range topUsersRaw {
		topUsers[i] = UserCount{Username: u.Username, Count: u.Count}
	}

	topDestRaw, err := a.db.TopDestinations(ctx, tenantID, 10)
	if err != nil {
		return nil, err
	}
	topDest := make([]DestinationCount, len(topDestRaw))
	for i, d := range topDestRaw {
		topDest[i] = DestinationCount{DestinationID: d.DestinationID, Count: d.Count}
	}

	recent, err := a.db.ListForwarded(ctx, tenantID, database.ForwardedFilter{Limit: recentForwardsLimit})
	if err != nil {
		return nil, err
	}

	return &Stats{
		TotalGroups:           groups,
		TotalWatchlistUsers:   watchUsers,
		TotalDestinations:     destinations,
		TotalMessages:         totalMessages,
		MessagesToday:         messagesToday,
		TotalForwarded:        total,
		ForwardingSuccessRate: rate,
		ForwardedToday:        forwardedToday,
		TopUsers:              topUsers,
		MessageTypes:          dist,
		TopDestinations:       topDest,
		RecentForwards:        recent,
	}, nil
}
