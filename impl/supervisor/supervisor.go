// Package supervisor implements the session client supervisor (component
// D): one long-running receiver per active account, reconnect with
// bounded exponential backoff, and escalation to the account registry on
// unrecoverable failure.
package supervisor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"telewatch/entity"
	"telewatch/impl/health"
	"telewatch/impl/telegram"
	"telewatch/internal/apperr"
	"telewatch/lib/sl"
)

const maxConsecutiveFailures = 6

// reconnectWindow bounds how far back a receiver's reconnect timestamps
// are kept for the health monitor's reconnect_count_in_window signal.
const reconnectWindow = 10 * time.Minute

// Ingester is implemented by the filter pipeline.
type Ingester interface {
	Ingest(ctx context.Context, tenantID, accountID string, ev telegram.Event, via entity.IngestSource) error
}

// Escalator is implemented by the account registry.
type Escalator interface {
	Escalate(ctx context.Context, tenantID, id string, cause error) error
}

type receiver struct {
	cancel context.CancelFunc
	client telegram.SessionClient

	mu          sync.Mutex
	lastEventAt time.Time
	reconnects  []time.Time
}

// recordEvent marks an incoming event as the receiver's latest activity.
func (r *receiver) recordEvent() {
	r.mu.Lock()
	r.lastEventAt = time.Now()
	r.mu.Unlock()
}

// recordReconnect appends a reconnect attempt timestamp, pruning entries
// that have aged out of reconnectWindow.
func (r *receiver) recordReconnect() {
	now := time.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reconnects = append(r.reconnects, now)
	cutoff := now.Add(-reconnectWindow)
	kept := r.reconnects[:0]
	for _, t := range r.reconnects {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	r.reconnects = kept
}

// signal reports the receiver's current liveness signal.
func (r *receiver) signal() health.Signal {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := time.Now().Add(-reconnectWindow)
	count := 0
	for _, t := range r.reconnects {
		if t.After(cutoff) {
			count++
		}
	}
	age := time.Duration(0)
	if !r.lastEventAt.IsZero() {
		age = time.Since(r.lastEventAt)
	}
	return health.Signal{
		Connected:              r.client.Healthy(),
		LastEventAge:           age,
		ReconnectCountInWindow: count,
		QueueDepth:             len(r.client.Events()),
	}
}

type Supervisor struct {
	factory  telegram.Factory
	ingester Ingester
	escalate Escalator
	log      *slog.Logger

	mu        sync.Mutex
	receivers map[string]*receiver // account id -> receiver
}

func New(factory telegram.Factory, ingester Ingester, escalate Escalator, log *slog.Logger) *Supervisor {
	return &Supervisor{
		factory:   factory,
		ingester:  ingester,
		escalate:  escalate,
		log:       log.With(sl.Module("supervisor")),
		receivers: make(map[string]*receiver),
	}
}

// Start opens a connection for account and registers it in the active
// set. A catastrophic artifact error (invalid session, revoked auth)
// returns immediately without retry; the caller (account registry)
// diverts the account to error.
func (s *Supervisor) Start(ctx context.Context, account *entity.Account) error {
	client := s.factory()
	if err := client.Connect(ctx, account.SessionArtifactPath); err != nil {
		return err
	}
	if err := client.Subscribe(ctx, account.AssignedGroupIDs); err != nil {
		_ = client.Close(ctx)
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	r := &receiver{cancel: cancel, client: client, lastEventAt: time.Now()}
	s.mu.Lock()
	s.receivers[account.ID] = r
	s.mu.Unlock()

	go s.run(runCtx, account, r)
	return nil
}

func (s *Supervisor) Stop(ctx context.Context, accountID string) error {
	s.mu.Lock()
	r, ok := s.receivers[accountID]
	delete(s.receivers, accountID)
	s.mu.Unlock()
	if !ok {
		return nil
	}
	r.cancel()
	return r.client.Close(ctx)
}

func (s *Supervisor) Resubscribe(ctx context.Context, accountID string, groupIDs []string) error {
	s.mu.Lock()
	r, ok := s.receivers[accountID]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	return r.client.Subscribe(ctx, groupIDs)
}

// run streams events from r.client, reconnecting on transient failure
// with bounded exponential backoff (starting at 1s, growing 2.5x per
// attempt with jitter, capped at 60s). After maxConsecutiveFailures it
// escalates the account to error and stops; an ArtifactInvalid error from
// a reconnect escalates at once, without further retries.
func (s *Supervisor) run(ctx context.Context, account *entity.Account, r *receiver) {
	failures := 0
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = time.Second
	policy.MaxInterval = 60 * time.Second
	policy.Multiplier = 2.5

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-r.client.Events():
			if !ok {
				failures++
				r.recordReconnect()
				if failures >= maxConsecutiveFailures {
					s.log.Error("account exceeded reconnect threshold", sl.Tenant(account.TenantID), slog.String("account_id", account.ID))
					_ = s.escalate.Escalate(ctx, account.TenantID, account.ID, errReconnectExhausted)
					return
				}
				wait := policy.NextBackOff()
				s.log.Warn("receiver disconnected, reconnecting", sl.Tenant(account.TenantID), slog.Duration("backoff", wait))
				select {
				case <-time.After(wait):
				case <-ctx.Done():
					return
				}
				if err := r.client.Connect(ctx, account.SessionArtifactPath); err != nil {
					s.log.With(sl.Err(err)).Error("reconnect failed")
					if apperr.Is(err, apperr.ArtifactInvalid) {
						_ = s.escalate.Escalate(ctx, account.TenantID, account.ID, err)
						return
					}
					continue
				}
				if err := r.client.Subscribe(ctx, account.AssignedGroupIDs); err != nil {
					s.log.With(sl.Err(err)).Error("resubscribe after reconnect failed")
				}
				continue
			}
			failures = 0
			r.recordEvent()
			if err := s.ingester.Ingest(ctx, account.TenantID, account.ID, ev, entity.IngestSession); err != nil {
				s.log.With(sl.Err(err), sl.Tenant(account.TenantID)).Error("ingest event")
			}
		}
	}
}

// Snapshot reports an account's current liveness signal (connection
// state, event staleness, recent reconnect count, inbound backlog);
// used by the health monitor to classify healthy/degraded/failed.
func (s *Supervisor) Snapshot(accountID string) health.Signal {
	s.mu.Lock()
	r, ok := s.receivers[accountID]
	s.mu.Unlock()
	if !ok {
		return health.Signal{}
	}
	return r.signal()
}

type reconnectExhaustedError struct{}

func (reconnectExhaustedError) Error() string { return "reconnect attempts exhausted" }

var errReconnectExhausted = reconnectExhaustedError{}
