// Package forwarder implements the forwarding engine (component H): one
// single-writer queue and rate-limited delivery worker per destination,
// a bounded-retry policy, and the append-only ForwardedMessage ledger.
package forwarder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"telewatch/entity"
	"telewatch/impl/pipeline"
	"telewatch/internal/apperr"
	"telewatch/lib/sl"
)

// Database is the forwarder's store dependency.
type Database interface {
	GetDestinationByExternalID(ctx context.Context, tenantID, destinationID string) (*entity.Destination, error)
	AppendForwarded(ctx context.Context, row *entity.ForwardedMessage) (*entity.ForwardedMessage, error)
	RecordDelivery(ctx context.Context, tenantID, destinationObjID string, at time.Time) error
}

// Sender delivers one message to one destination via the Bot API
// (sendMessage/copyMessage-equivalent). Implementations classify errors
// as apperr.UpstreamTransient (5xx, 429) or apperr.UpstreamPermanent
// (destination unknown, bot kicked, forbidden).
type Sender interface {
	Deliver(ctx context.Context, destination *entity.Destination, req pipeline.ForwardRequest) error
}

const (
	defaultRatePerMinute = 20
	maxAttempts          = 5
)

type destinationQueue struct {
	ch      chan pipeline.ForwardRequest
	limiter *rate.Limiter
}

type Forwarder struct {
	db             Database
	sender         Sender
	ratePerMinute  int
	log            *slog.Logger
	mu             sync.Mutex
	queues         map[string]*destinationQueue
	shutdown       chan struct{}
	wg             sync.WaitGroup
}

func New(db Database, sender Sender, ratePerMinute int, log *slog.Logger) *Forwarder {
	if ratePerMinute <= 0 {
		ratePerMinute = defaultRatePerMinute
	}
	return &Forwarder{
		db:            db,
		sender:        sender,
		ratePerMinute: ratePerMinute,
		log:           log.With(sl.Module("forwarder")),
		queues:        make(map[string]*destinationQueue),
		shutdown:      make(chan struct{}),
	}
}

// Enqueue resolves the destination and either pushes the request onto its
// single-writer queue or, if the destination went inactive between match
// time and emit time, records an audit failed row immediately rather than
// suppressing it.
func (f *Forwarder) Enqueue(ctx context.Context, req pipeline.ForwardRequest) error {
	dest, err := f.db.GetDestinationByExternalID(ctx, req.TenantID, req.DestinationID)
	if err != nil {
		return err
	}
	if !dest.IsActive {
		_, err := f.db.AppendForwarded(ctx, &entity.ForwardedMessage{
			TenantID:         req.TenantID,
			SourceMessageRef: req.SourceRef,
			Username:         req.Username,
			GroupName:        req.GroupName,
			DestinationID:    req.DestinationID,
			RoutingID:        req.RoutingID,
			Outcome:          entity.ForwardFailed,
			FailureReason:    entity.FailureReasonDestinationInactive,
		})
		return err
	}

	q := f.queueFor(req.DestinationID)
	select {
	case q.ch <- req:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *Forwarder) queueFor(destinationID string) *destinationQueue {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.queues[destinationID]
	if ok {
		return q
	}
	q = &destinationQueue{
		ch:      make(chan pipeline.ForwardRequest, 256),
		limiter: rate.NewLimiter(rate.Limit(float64(f.ratePerMinute)/60.0), f.ratePerMinute),
	}
	f.queues[destinationID] = q
	f.wg.Add(1)
	go f.drain(destinationID, q)
	return q
}

// drain is the single reader for one destination's queue; it preserves
// archive order within that destination.
func (f *Forwarder) drain(destinationID string, q *destinationQueue) {
	defer f.wg.Done()
	for {
		select {
		case req, ok := <-q.ch:
			if !ok {
				return
			}
			f.deliver(context.Background(), req)
		case <-f.shutdown:
			return
		}
	}
}

func (f *Forwarder) deliver(ctx context.Context, req pipeline.ForwardRequest) {
	if err := waitForRate(ctx, f, req); err != nil {
		return
	}

	dest, err := f.db.GetDestinationByExternalID(ctx, req.TenantID, req.DestinationID)
	if err != nil {
		f.log.With(sl.Err(err), sl.Tenant(req.TenantID)).Error("resolve destination for delivery")
		return
	}

	var lastErr error
	attempts := 0
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = time.Second
	policy.MaxInterval = 60 * time.Second

	for attempts < maxAttempts {
		attempts++
		lastErr = f.sender.Deliver(ctx, dest, req)
		if lastErr == nil {
			f.recordOutcome(ctx, req, dest, entity.ForwardDelivered, "")
			return
		}
		if !apperr.Is(lastErr, apperr.UpstreamTransient) {
			break
		}
		select {
		case <-time.After(policy.NextBackOff()):
		case <-ctx.Done():
			lastErr = ctx.Err()
			attempts = maxAttempts
		}
	}
	f.recordOutcome(ctx, req, dest, entity.ForwardFailed, lastErr.Error())
}

func (f *Forwarder) recordOutcome(ctx context.Context, req pipeline.ForwardRequest, dest *entity.Destination, outcome entity.ForwardOutcome, reason string) {
	_, err := f.db.AppendForwarded(ctx, &entity.ForwardedMessage{
		TenantID:         req.TenantID,
		SourceMessageRef: req.SourceRef,
		Username:         req.Username,
		GroupName:        req.GroupName,
		DestinationID:    req.DestinationID,
		RoutingID:        req.RoutingID,
		Outcome:          outcome,
		FailureReason:    reason,
	})
	if err != nil {
		f.log.With(sl.Err(err)).Error("append ledger row")
		return
	}
	if outcome == entity.ForwardDelivered {
		if err := f.db.RecordDelivery(ctx, req.TenantID, dest.ID, time.Now().UTC()); err != nil {
			f.log.With(sl.Err(err)).Error("record delivery on destination")
		}
	}
}

// Shutdown signals the delivery workers to stop and waits, up to the
// grace period, for the deliveries already in progress; requests still
// queued are not delivered. Called from the server's shutdown path.
func (f *Forwarder) Shutdown(grace time.Duration) {
	close(f.shutdown)
	done := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(grace):
	}
}

func waitForRate(ctx context.Context, f *Forwarder, req pipeline.ForwardRequest) error {
	f.mu.Lock()
	q := f.queues[req.DestinationID]
	f.mu.Unlock()
	if q == nil {
		return nil
	}
	return q.limiter.Wait(ctx)
}
