package health

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telewatch/entity"
)

type fakeDB struct {
	accounts map[string][]*entity.Account
}

func (f *fakeDB) ListActiveAccounts(_ context.Context, tenantID string) ([]*entity.Account, error) {
	return f.accounts[tenantID], nil
}

type fakeSnapshotter struct {
	signals map[string]Signal
}

func (f *fakeSnapshotter) Snapshot(accountID string) Signal {
	return f.signals[accountID]
}

type fakeRestarter struct {
	stopped []string
	started []string
}

func (f *fakeRestarter) Stop(_ context.Context, accountID string) error {
	f.stopped = append(f.stopped, accountID)
	return nil
}

func (f *fakeRestarter) Start(_ context.Context, account *entity.Account) error {
	f.started = append(f.started, account.ID)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTickClassifiesConnectedAccountsHealthy(t *testing.T) {
	db := &fakeDB{accounts: map[string][]*entity.Account{
		"tenant-1": {{ID: "a1"}, {ID: "a2"}},
	}}
	snap := &fakeSnapshotter{signals: map[string]Signal{
		"a1": {Connected: true},
		"a2": {Connected: true},
	}}
	restarter := &fakeRestarter{}
	m, err := New(db, snap, restarter, "@every 1h", testLogger())
	require.NoError(t, err)

	probes := m.Tick(context.Background(), "tenant-1")
	require.Len(t, probes, 2)
	for _, p := range probes {
		assert.Equal(t, StatusHealthy, p.Status)
	}
	assert.Empty(t, restarter.stopped)
	assert.Empty(t, restarter.started)
}

func TestTickRestartsDisconnectedAccounts(t *testing.T) {
	db := &fakeDB{accounts: map[string][]*entity.Account{
		"tenant-1": {{ID: "a1"}},
	}}
	snap := &fakeSnapshotter{signals: map[string]Signal{"a1": {Connected: false}}}
	restarter := &fakeRestarter{}
	m, err := New(db, snap, restarter, "@every 1h", testLogger())
	require.NoError(t, err)

	probes := m.Tick(context.Background(), "tenant-1")
	require.Len(t, probes, 1)
	assert.Equal(t, StatusFailed, probes[0].Status)
	assert.Contains(t, restarter.stopped, "a1")
	assert.Contains(t, restarter.started, "a1")
}

func TestTickClassifiesStaleEventAgeAsDegradedNotFailed(t *testing.T) {
	db := &fakeDB{accounts: map[string][]*entity.Account{
		"tenant-1": {{ID: "a1"}},
	}}
	snap := &fakeSnapshotter{signals: map[string]Signal{
		"a1": {Connected: true, LastEventAge: 20 * time.Minute},
	}}
	restarter := &fakeRestarter{}
	m, err := New(db, snap, restarter, "@every 1h", testLogger())
	require.NoError(t, err)

	probes := m.Tick(context.Background(), "tenant-1")
	require.Len(t, probes, 1)
	assert.Equal(t, StatusDegraded, probes[0].Status)
	assert.Empty(t, restarter.stopped)
}

func TestTickClassifiesRepeatedReconnectsAsDegraded(t *testing.T) {
	db := &fakeDB{accounts: map[string][]*entity.Account{
		"tenant-1": {{ID: "a1"}},
	}}
	snap := &fakeSnapshotter{signals: map[string]Signal{
		"a1": {Connected: true, ReconnectCountInWindow: 4},
	}}
	m, err := New(db, snap, &fakeRestarter{}, "@every 1h", testLogger())
	require.NoError(t, err)

	probes := m.Tick(context.Background(), "tenant-1")
	require.Len(t, probes, 1)
	assert.Equal(t, StatusDegraded, probes[0].Status)
}

func TestTickClassifiesDeepQueueAsDegraded(t *testing.T) {
	db := &fakeDB{accounts: map[string][]*entity.Account{
		"tenant-1": {{ID: "a1"}},
	}}
	snap := &fakeSnapshotter{signals: map[string]Signal{
		"a1": {Connected: true, QueueDepth: 75},
	}}
	m, err := New(db, snap, &fakeRestarter{}, "@every 1h", testLogger())
	require.NoError(t, err)

	probes := m.Tick(context.Background(), "tenant-1")
	require.Len(t, probes, 1)
	assert.Equal(t, StatusDegraded, probes[0].Status)
}

func TestSnapshotReturnsLastTickResult(t *testing.T) {
	db := &fakeDB{accounts: map[string][]*entity.Account{
		"tenant-1": {{ID: "a1"}},
	}}
	snap := &fakeSnapshotter{signals: map[string]Signal{"a1": {Connected: true}}}
	m, err := New(db, snap, &fakeRestarter{}, "@every 1h", testLogger())
	require.NoError(t, err)

	assert.Empty(t, m.Snapshot("tenant-1"))
	m.Tick(context.Background(), "tenant-1")
	assert.Len(t, m.Snapshot("tenant-1"), 1)
}

func TestIsHealthyReflectsLastProbe(t *testing.T) {
	db := &fakeDB{accounts: map[string][]*entity.Account{
		"tenant-1": {{ID: "a1"}, {ID: "a2"}},
	}}
	snap := &fakeSnapshotter{signals: map[string]Signal{
		"a1": {Connected: true},
		"a2": {Connected: false},
	}}
	m, err := New(db, snap, &fakeRestarter{}, "@every 1h", testLogger())
	require.NoError(t, err)

	assert.True(t, m.IsHealthy("a1"))
	assert.True(t, m.IsHealthy("never-probed"))
	m.Tick(context.Background(), "tenant-1")
	assert.True(t, m.IsHealthy("a1"))
	assert.False(t, m.IsHealthy("a2"))
}

func TestTrackTenantRegistersTenantWithoutProbing(t *testing.T) {
	m, err := New(&fakeDB{}, &fakeSnapshotter{}, &fakeRestarter{}, "@every 1h", testLogger())
	require.NoError(t, err)

	m.TrackTenant("tenant-1")
	assert.NotNil(t, m.snapshots)
	_, tracked := m.snapshots["tenant-1"]
	assert.True(t, tracked)
}

func TestNewRejectsInvalidCronSchedule(t *testing.T) {
	_, err := New(&fakeDB{}, &fakeSnapshotter{}, &fakeRestarter{}, "not-a-cron-expression", testLogger())
	require.Error(t, err)
}
