package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telewatch/entity"
	"telewatch/internal/database"
)

type fakeDB struct {
	groups, watchUsers, destinations, totalMessages, messagesToday int64
	delivered, failed, forwardedToday                              int64
	dist                                                           map[entity.MessageType]int64
	topUsers                                                       []struct {
		Username string
		Count    int64
	}
	topDest []struct {
		DestinationID string
		Count         int64
	}
	recent []*entity.ForwardedMessage
}

func (f *fakeDB) CountActiveGroups(context.Context, string) (int64, error)      { return f.groups, nil }
func (f *fakeDB) CountActiveWatchUsers(context.Context, string) (int64, error)  { return f.watchUsers, nil }
func (f *fakeDB) CountActiveDestinations(context.Context, string) (int64, error) {
	return f.destinations, nil
}
func (f *fakeDB) CountMessages(context.Context, string) (int64, error) { return f.totalMessages, nil }
func (f *fakeDB) CountMessagesSince(context.Context, string, time.Time) (int64, error) {
	return f.messagesToday, nil
}
func (f *fakeDB) CountForwarded(_ context.Context, _ string, outcome entity.ForwardOutcome) (int64, error) {
	if outcome == entity.ForwardDelivered {
		return f.delivered, nil
	}
	return f.failed, nil
}
func (f *fakeDB) CountForwardedSince(context.Context, string, time.Time) (int64, error) {
	return f.forwardedToday, nil
}
func (f *fakeDB) MessageTypeDistribution(context.Context, string) (map[entity.MessageType]int64, error) {
	return f.dist, nil
}
func (f *fakeDB) TopUsers(context.Context, string, int) ([]struct {
	Username string
	Count    int64
}, error) {
	return f.topUsers, nil
}
func (f *fakeDB) TopDestinations(context.Context, string, int) ([]struct {
	DestinationID string
	Count         int64
}, error) {
	return f.topDest, nil
}
func (f *fakeDB) ListForwarded(_ context.Context, _ string, _ database.ForwardedFilter) ([]*entity.ForwardedMessage, error) {
	return f.recent, nil
}

func TestComputeReturnsSuccessRateAndRecentForwards(t *testing.T) {
	db := &fakeDB{
		delivered: 3,
		failed:    1,
		recent: []*entity.ForwardedMessage{
			{ID: "fm-1", RoutingID: "r-1"},
			{ID: "fm-2", RoutingID: "r-2"},
		},
	}
	a := New(db)

	stats, err := a.Compute(context.Background(), "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.TotalForwarded)
	assert.InDelta(t, 0.75, stats.ForwardingSuccessRate, 0.0001)
	require.Len(t, stats.RecentForwards, 2)
	assert.Equal(t, "fm-1", stats.RecentForwards[0].ID)
}

func TestComputeWithNoForwardsYetHasZeroRate(t *testing.T) {
	db := &fakeDB{}
	a := New(db)

	stats, err := a.Compute(context.Background(), "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.TotalForwarded)
	assert.Equal(t, float64(0), stats.ForwardingSuccessRate)
	assert.Empty(t, stats.RecentForwards)
}
