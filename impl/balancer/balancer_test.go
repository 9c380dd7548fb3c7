package balancer

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telewatch/entity"
)

type fakeDB struct {
	groups       []*entity.Group
	accounts     []*entity.Account
	lastAssigned map[string][]string
}

func (f *fakeDB) ListGroups(_ context.Context, _ string, _ bool) ([]*entity.Group, error) {
	return f.groups, nil
}

func (f *fakeDB) ListActiveAccounts(_ context.Context, _ string) ([]*entity.Account, error) {
	return f.accounts, nil
}

func (f *fakeDB) SetAssignedGroups(_ context.Context, _, accountID string, groupIDs []string) error {
	if f.lastAssigned == nil {
		f.lastAssigned = map[string][]string{}
	}
	f.lastAssigned[accountID] = groupIDs
	return nil
}

type fakeSubscriber struct {
	resubscribed map[string][]string
}

func (f *fakeSubscriber) Resubscribe(_ context.Context, accountID string, groupIDs []string) error {
	if f.resubscribed == nil {
		f.resubscribed = map[string][]string{}
	}
	f.resubscribed[accountID] = groupIDs
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func accounts(ids ...string) []*entity.Account {
	out := make([]*entity.Account, 0, len(ids))
	for _, id := range ids {
		out = append(out, &entity.Account{ID: id})
	}
	return out
}

func groups(ids ...string) []*entity.Group {
	out := make([]*entity.Group, 0, len(ids))
	for _, id := range ids {
		out = append(out, &entity.Group{GroupID: id})
	}
	return out
}

func TestRebalanceDistributesWithinOne(t *testing.T) {
	db := &fakeDB{
		groups:   groups("g1", "g2", "g3", "g4", "g5"),
		accounts: accounts("a1", "a2", "a3"),
	}
	sub := &fakeSubscriber{}
	b := New(db, sub, testLogger())

	assignment, err := b.Rebalance(context.Background(), "tenant-1")
	require.NoError(t, err)
	require.Len(t, assignment, 3)

	counts := make([]int, 0, 3)
	for _, groupIDs := range assignment {
		counts = append(counts, len(groupIDs))
	}
	min, max := counts[0], counts[0]
	for _, c := range counts {
		if c < min {
			min = c
		}
		if c > max {
			max = c
		}
	}
	assert.LessOrEqual(t, max-min, 1)

	total := 0
	for _, c := range counts {
		total += c
	}
	assert.Equal(t, 5, total)
}

func TestRebalanceBreaksTiesByLowerAccountID(t *testing.T) {
	db := &fakeDB{
		groups:   groups("g1"),
		accounts: accounts("a2", "a1", "a3"),
	}
	b := New(db, &fakeSubscriber{}, testLogger())

	assignment, err := b.Rebalance(context.Background(), "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"g1"}, assignment["a1"])
	assert.Empty(t, assignment["a2"])
	assert.Empty(t, assignment["a3"])
}

func TestRebalanceWithNoActiveAccountsReturnsEmptyAssignment(t *testing.T) {
	db := &fakeDB{groups: groups("g1", "g2")}
	b := New(db, &fakeSubscriber{}, testLogger())

	assignment, err := b.Rebalance(context.Background(), "tenant-1")
	require.NoError(t, err)
	assert.Empty(t, assignment)
}

func TestRebalancePersistsAndResubscribes(t *testing.T) {
	db := &fakeDB{
		groups:   groups("g1", "g2"),
		accounts: accounts("a1", "a2"),
	}
	sub := &fakeSubscriber{}
	b := New(db, sub, testLogger())

	_, err := b.Rebalance(context.Background(), "tenant-1")
	require.NoError(t, err)

	assert.Equal(t, db.lastAssigned, sub.resubscribed)
}

func TestRebalanceToleratesNilSubscriber(t *testing.T) {
	db := &fakeDB{groups: groups("g1"), accounts: accounts("a1")}
	b := New(db, nil, testLogger())

	_, err := b.Rebalance(context.Background(), "tenant-1")
	require.NoError(t, err)
}

type fakeHealthFilter struct {
	unhealthy map[string]bool
}

func (f *fakeHealthFilter) IsHealthy(accountID string) bool {
	return !f.unhealthy[accountID]
}

func TestRebalanceExcludesUnhealthyAccountsFromAssignment(t *testing.T) {
	db := &fakeDB{
		groups:   groups("g1", "g2"),
		accounts: accounts("a1", "a2"),
	}
	b := New(db, &fakeSubscriber{}, testLogger())
	b.SetHealthFilter(&fakeHealthFilter{unhealthy: map[string]bool{"a2": true}})

	assignment, err := b.Rebalance(context.Background(), "tenant-1")
	require.NoError(t, err)
	require.Len(t, assignment, 1)
	assert.ElementsMatch(t, []string{"g1", "g2"}, assignment["a1"])
	_, stillAssigned := assignment["a2"]
	assert.False(t, stillAssigned)
}

func TestRebalanceWithAllAccountsUnhealthyReturnsEmptyAssignment(t *testing.T) {
	db := &fakeDB{
		groups:   groups("g1"),
		accounts: accounts("a1"),
	}
	b := New(db, &fakeSubscriber{}, testLogger())
	b.SetHealthFilter(&fakeHealthFilter{unhealthy: map[string]bool{"a1": true}})

	assignment, err := b.Rebalance(context.Background(), "tenant-1")
	require.NoError(t, err)
	assert.Empty(t, assignment)
}
