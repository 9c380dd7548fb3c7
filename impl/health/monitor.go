// Package health implements the health monitor (component E): a
// fixed-cadence probe of every active account, classified healthy,
// degraded, or failed.
package health

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"telewatch/entity"
	"telewatch/lib/sl"
)

type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
	StatusFailed   Status = "failed"
)

// degraded thresholds: a connected receiver that trips any one of these
// is still delivering but showing strain, so it is logged and recorded
// in the tenant's probe snapshot rather than restarted; it stays eligible
// for load-balancer assignment.
const (
	degradedEventAgeThreshold   = 15 * time.Minute
	degradedReconnectThreshold  = 3
	degradedQueueDepthThreshold = 50
)

// Signal is one account's raw liveness signal for a tick, reported by
// the supervisor.
type Signal struct {
	Connected              bool
	LastEventAge           time.Duration
	ReconnectCountInWindow int
	QueueDepth             int
}

// Probe is a single account's collected signal for this tick, after
// classification.
type Probe struct {
	AccountID           string
	Connected           bool
	LastEventAge        time.Duration
	ReconnectCountInWin int
	QueueDepth          int
	Status              Status
}

// Database lists the accounts to probe.
type Database interface {
	ListActiveAccounts(ctx context.Context, tenantID string) ([]*entity.Account, error)
}

// Snapshotter reports an account's current liveness signal; implemented
// by the supervisor.
type Snapshotter interface {
	Snapshot(accountID string) Signal
}

// Restarter stops and restarts a failed account's receiver.
type Restarter interface {
	Stop(ctx context.Context, accountID string) error
	Start(ctx context.Context, account *entity.Account) error
}

type Monitor struct {
	db        Database
	snapshot  Snapshotter
	restarter Restarter
	log       *slog.Logger
	cron      *cron.Cron

	mu            sync.RWMutex
	snapshots     map[string][]Probe // tenant id -> latest probes
	accountStatus map[string]Status  // account id -> last classified status, read by the balancer
}

func New(db Database, snapshot Snapshotter, restarter Restarter, schedule string, log *slog.Logger) (*Monitor, error) {
	m := &Monitor{
		db:            db,
		snapshot:      snapshot,
		restarter:     restarter,
		log:           log.With(sl.Module("health")),
		cron:          cron.New(),
		snapshots:     make(map[string][]Probe),
		accountStatus: make(map[string]Status),
	}
	if _, err := m.cron.AddFunc(schedule, func() {
		m.tickAll(context.Background())
	}); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Monitor) Start() { m.cron.Start() }
func (m *Monitor) Stop()  { m.cron.Stop() }

// tickAll is invoked per the configured cron expression; production
// wiring tracks the set of tenants with active accounts and probes each.
func (m *Monitor) tickAll(ctx context.Context) {
	m.mu.RLock()
	tenants := make([]string, 0, len(m.snapshots))
	for t := range m.snapshots {
		tenants = append(tenants, t)
	}
	m.mu.RUnlock()
	for _, tenantID := range tenants {
		m.Tick(ctx, tenantID)
	}
}

// Tick probes every active account of one tenant and classifies it.
// failed triggers a stop+restart; degraded is logged and kept in the
// snapshot but changes no account state and does not exclude the account
// from load-balancer assignment. The analytics rollup does not include
// probe results.
func (m *Monitor) Tick(ctx context.Context, tenantID string) []Probe {
	accounts, err := m.db.ListActiveAccounts(ctx, tenantID)
	if err != nil {
		m.log.With(sl.Err(err), sl.Tenant(tenantID)).Error("list active accounts for probe")
		return nil
	}

	probes := make([]Probe, 0, len(accounts))
	for _, a := range accounts {
		sig := m.snapshot.Snapshot(a.ID)
		p := Probe{
			AccountID:           a.ID,
			Connected:           sig.Connected,
			LastEventAge:        sig.LastEventAge,
			ReconnectCountInWin: sig.ReconnectCountInWindow,
			QueueDepth:          sig.QueueDepth,
			Status:              classify(sig),
		}
		if p.Status == StatusFailed {
			m.log.Warn("account failed probe, restarting", sl.Tenant(tenantID), slog.String("account_id", a.ID))
			_ = m.restarter.Stop(ctx, a.ID)
			if err := m.restarter.Start(ctx, a); err != nil {
				m.log.With(sl.Err(err)).Error("restart failed account")
			}
		} else if p.Status == StatusDegraded {
			m.log.Warn("account degraded", sl.Tenant(tenantID), slog.String("account_id", a.ID),
				slog.Duration("last_event_age", p.LastEventAge), slog.Int("reconnects", p.ReconnectCountInWin),
				slog.Int("queue_depth", p.QueueDepth))
		}
		probes = append(probes, p)
	}

	m.mu.Lock()
	m.snapshots[tenantID] = probes
	for _, p := range probes {
		m.accountStatus[p.AccountID] = p.Status
	}
	m.mu.Unlock()
	return probes
}

// classify turns a raw signal into a Status: a disconnected receiver is
// always failed; a connected one that has gone quiet, reconnected
// repeatedly, or built up backlog beyond threshold is degraded rather
// than failed, since it is still delivering.
func classify(sig Signal) Status {
	if !sig.Connected {
		return StatusFailed
	}
	if sig.ReconnectCountInWindow >= degradedReconnectThreshold ||
		sig.LastEventAge >= degradedEventAgeThreshold ||
		sig.QueueDepth >= degradedQueueDepthThreshold {
		return StatusDegraded
	}
	return StatusHealthy
}

// Snapshot returns the last computed probe set for a tenant, a read-only
// view exposed through core.Core.HealthSnapshot.
func (m *Monitor) Snapshot(tenantID string) []Probe {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Probe, len(m.snapshots[tenantID]))
	copy(out, m.snapshots[tenantID])
	return out
}

// IsHealthy reports whether accountID's last probe was anything but
// failed; an account with no probe yet (just activated, not ticked)
// defaults to healthy so it isn't excluded from assignment before its
// first probe runs. Consumed by the load balancer.
func (m *Monitor) IsHealthy(accountID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	status, ok := m.accountStatus[accountID]
	if !ok {
		return true
	}
	return status != StatusFailed
}

// TrackTenant ensures a tenant participates in the periodic tickAll
// sweep, called the first time an account is activated for it.
func (m *Monitor) TrackTenant(tenantID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.snapshots[tenantID]; !ok {
		m.snapshots[tenantID] = nil
	}
}
