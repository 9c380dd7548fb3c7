// Package core wires the tenant-facing operations together behind one
// facade, the way the teacher's core package fronts Opencart/invoicing
// behind a single struct the HTTP layer depends on. Components
// are setter-injected after construction because several of them depend
// on each other (the supervisor needs the pipeline as an Ingester, the
// pipeline needs the forwarder as an Emitter, the registry needs the
// supervisor as a Starter) and are wired together directly in cmd/server
// before being attached here.
package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"

	"telewatch/entity"
	"telewatch/impl/accounts"
	"telewatch/impl/analytics"
	"telewatch/impl/auth"
	"telewatch/impl/balancer"
	"telewatch/impl/health"
	"telewatch/impl/pipeline"
	"telewatch/internal/apperr"
	"telewatch/internal/database"
	"telewatch/internal/lock"
	"telewatch/lib/sl"
)

// tenantMutationTTL bounds how long a held tenant lock survives a
// crashed holder; mutations themselves complete in well under this.
const tenantMutationTTL = 10 * time.Second

// Bot is the subset of the control-surface bot core needs to expose a
// liveness probe and webhook entrypoint through the HTTP layer.
type Bot interface {
	TestProbe(ctx context.Context) (string, error)
	HandleWebhook(secret string, update *tgbotapi.Update) error
}

// Sender is the forwarding engine's delivery mechanism, reused here so
// the "test a destination" endpoint exercises the exact same Bot API
// path a real forward would.
type Sender interface {
	Deliver(ctx context.Context, destination *entity.Destination, req pipeline.ForwardRequest) error
}

type Core struct {
	db *database.MongoDB

	auth      *auth.Auth
	accounts  *accounts.Registry
	balancer  *balancer.Balancer
	health    *health.Monitor
	analytics *analytics.Aggregator
	bot       Bot
	sender    Sender
	locker    lock.TenantLocker

	log *slog.Logger
}

func New(db *database.MongoDB, log *slog.Logger) *Core {
	return &Core{db: db, log: log.With(sl.Module("core"))}
}

func (c *Core) SetAuth(a *auth.Auth)                 { c.auth = a }
func (c *Core) SetAccounts(r *accounts.Registry)     { c.accounts = r }
func (c *Core) SetBalancer(b *balancer.Balancer)     { c.balancer = b }
func (c *Core) SetHealth(h *health.Monitor)          { c.health = h }
func (c *Core) SetAnalytics(a *analytics.Aggregator) { c.analytics = a }
func (c *Core) SetBot(b Bot)                         { c.bot = b }
func (c *Core) SetSender(s Sender)                   { c.sender = s }
func (c *Core) SetLocker(l lock.TenantLocker)         { c.locker = l }

// withTenantLock serializes one tenant's group/account mutations against
// the balancer's rebalance so two replicas (or a CRUD call racing a
// rebalance triggered by a different one) never interleave writes to the
// same tenant's assignment state.
func (c *Core) withTenantLock(ctx context.Context, tenantID string, fn func() error) error {
	if c.locker == nil {
		return fn()
	}
	unlock, err := c.locker.Lock(ctx, tenantID, tenantMutationTTL)
	if err != nil {
		return apperr.Wrap(apperr.Conflict, "tenant is being modified concurrently", err)
	}
	defer func() {
		if err := unlock(ctx); err != nil {
			c.log.With(sl.Err(err), sl.Tenant(tenantID)).Warn("release tenant lock")
		}
	}()
	return fn()
}

// --- auth ---

func (c *Core) VerifyTelegramLogin(login auth.TelegramLogin) error {
	return c.auth.VerifyTelegramLogin(login)
}

func (c *Core) Register(ctx context.Context, login auth.TelegramLogin, orgName string) (*entity.User, *entity.Organization, error) {
	return c.auth.Register(ctx, login, orgName)
}

func (c *Core) Login(ctx context.Context, login auth.TelegramLogin) (string, *entity.User, error) {
	return c.auth.Login(ctx, login)
}

func (c *Core) VerifyToken(token string) (*auth.Claims, error) {
	return c.auth.VerifyToken(token)
}

// --- organizations ---

func (c *Core) GetOrganization(ctx context.Context, id string) (*entity.Organization, error) {
	return c.db.GetOrganization(ctx, id)
}

func (c *Core) UpdateOrganization(ctx context.Context, id string, upd *entity.OrganizationUpdate) error {
	return c.db.UpdateOrganization(ctx, id, upd)
}

// --- users ---

func (c *Core) ListUsers(ctx context.Context, tenantID string) ([]*entity.User, error) {
	return c.db.ListUsers(ctx, tenantID)
}

func (c *Core) GetUser(ctx context.Context, tenantID, id string) (*entity.User, error) {
	return c.db.GetUser(ctx, tenantID, id)
}

func (c *Core) CreateInvitedUser(ctx context.Context, tenantID string, in *entity.InviteInput) (*entity.User, error) {
	return c.db.CreateInvitedUser(ctx, tenantID, in)
}

func (c *Core) UpdateUserRole(ctx context.Context, tenantID, id string, role entity.Role) error {
	return c.db.UpdateUserRole(ctx, tenantID, id, role)
}

func (c *Core) DeactivateUser(ctx context.Context, tenantID, id string) error {
	return c.db.DeactivateUser(ctx, tenantID, id)
}

// --- groups ---
// every mutation rebalances the tenant's group/account assignment, since
// a group appearing, disappearing, or going inactive changes what the
// supervisor's receivers should be subscribed to.

func (c *Core) CreateGroup(ctx context.Context, tenantID string, in *entity.GroupInput) (*entity.Group, error) {
	var g *entity.Group
	err := c.withTenantLock(ctx, tenantID, func() error {
		created, err := c.db.CreateGroup(ctx, tenantID, in)
		if err != nil {
			return err
		}
		g = created
		c.rebalance(ctx, tenantID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (c *Core) GetGroup(ctx context.Context, tenantID, id string) (*entity.Group, error) {
	return c.db.GetGroup(ctx, tenantID, id)
}

func (c *Core) ListGroups(ctx context.Context, tenantID string, includeInactive bool) ([]*entity.Group, error) {
	return c.db.ListGroups(ctx, tenantID, includeInactive)
}

func (c *Core) UpdateGroup(ctx context.Context, tenantID, id string, in *entity.GroupInput) error {
	return c.withTenantLock(ctx, tenantID, func() error {
		if err := c.db.UpdateGroup(ctx, tenantID, id, in); err != nil {
			return err
		}
		c.rebalance(ctx, tenantID)
		return nil
	})
}

func (c *Core) DeleteGroup(ctx context.Context, tenantID, id string) error {
	return c.withTenantLock(ctx, tenantID, func() error {
		if err := c.db.DeleteGroup(ctx, tenantID, id); err != nil {
			return err
		}
		c.rebalance(ctx, tenantID)
		return nil
	})
}

func (c *Core) rebalance(ctx context.Context, tenantID string) {
	if c.balancer == nil {
		return
	}
	if _, err := c.balancer.Rebalance(ctx, tenantID); err != nil {
		c.log.With(sl.Err(err), sl.Tenant(tenantID)).Error("rebalance after group change")
	}
}

// --- watch users ---

func (c *Core) CreateWatchUser(ctx context.Context, tenantID string, in *entity.WatchUserInput) (*entity.WatchUser, error) {
	return c.db.CreateWatchUser(ctx, tenantID, in)
}

func (c *Core) GetWatchUser(ctx context.Context, tenantID, id string) (*entity.WatchUser, error) {
	return c.db.GetWatchUser(ctx, tenantID, id)
}

func (c *Core) ListWatchUsers(ctx context.Context, tenantID string, includeInactive bool) ([]*entity.WatchUser, error) {
	return c.db.ListWatchUsers(ctx, tenantID, includeInactive)
}

func (c *Core) UpdateWatchUser(ctx context.Context, tenantID, id string, in *entity.WatchUserInput) error {
	return c.db.UpdateWatchUser(ctx, tenantID, id, in)
}

func (c *Core) DeleteWatchUser(ctx context.Context, tenantID, id string) error {
	return c.db.DeleteWatchUser(ctx, tenantID, id)
}

// --- destinations ---

func (c *Core) CreateDestination(ctx context.Context, tenantID string, in *entity.DestinationInput) (*entity.Destination, error) {
	return c.db.CreateDestination(ctx, tenantID, in)
}

func (c *Core) GetDestination(ctx context.Context, tenantID, id string) (*entity.Destination, error) {
	return c.db.GetDestination(ctx, tenantID, id)
}

func (c *Core) ListDestinations(ctx context.Context, tenantID string, includeInactive bool) ([]*entity.Destination, error) {
	return c.db.ListDestinations(ctx, tenantID, includeInactive)
}

func (c *Core) UpdateDestination(ctx context.Context, tenantID, id string, in *entity.DestinationInput) error {
	return c.db.UpdateDestination(ctx, tenantID, id, in)
}

func (c *Core) DeleteDestination(ctx context.Context, tenantID, id string) error {
	return c.db.DeleteDestination(ctx, tenantID, id)
}

// TestDestination sends a probe message through the same delivery path a
// real forward uses, so a 200 here means forwards will actually arrive.
func (c *Core) TestDestination(ctx context.Context, tenantID, id string) error {
	if c.sender == nil {
		return fmt.Errorf("forwarding sender not connected")
	}
	dest, err := c.db.GetDestination(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if !dest.IsActive {
		return apperr.New(apperr.Conflict, "destination is inactive")
	}
	return c.sender.Deliver(ctx, dest, pipeline.ForwardRequest{
		TenantID:      tenantID,
		DestinationID: dest.DestinationID,
		SourceRef:     "telewatch control surface probe",
		Username:      "telewatch",
		GroupName:     "test",
		Timestamp:     time.Now().UTC(),
	})
}

// --- accounts ---

func (c *Core) UploadAccount(ctx context.Context, tenantID, name, sessionName string, session io.Reader, metaName string, meta io.Reader) (*entity.Account, error) {
	return c.accounts.Upload(ctx, tenantID, name, sessionName, session, metaName, meta)
}

func (c *Core) ListAccounts(ctx context.Context, tenantID string) ([]*entity.Account, error) {
	return c.accounts.List(ctx, tenantID)
}

func (c *Core) ActivateAccount(ctx context.Context, tenantID, id string) (*entity.Account, error) {
	var account *entity.Account
	err := c.withTenantLock(ctx, tenantID, func() error {
		a, err := c.accounts.Activate(ctx, tenantID, id)
		if err != nil {
			return err
		}
		account = a
		if c.health != nil {
			c.health.TrackTenant(tenantID)
		}
		c.rebalance(ctx, tenantID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (c *Core) DeactivateAccount(ctx context.Context, tenantID, id string) (*entity.Account, error) {
	var account *entity.Account
	err := c.withTenantLock(ctx, tenantID, func() error {
		a, err := c.accounts.Deactivate(ctx, tenantID, id)
		if err != nil {
			return err
		}
		account = a
		c.rebalance(ctx, tenantID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (c *Core) DeleteAccount(ctx context.Context, tenantID, id string) error {
	return c.accounts.Delete(ctx, tenantID, id)
}

// --- messages & forwarded ledger ---

func (c *Core) ListMessages(ctx context.Context, tenantID string, f database.MessageFilter) ([]*entity.MessageLog, error) {
	return c.db.ListMessages(ctx, tenantID, f)
}

func (c *Core) SearchMessages(ctx context.Context, tenantID, q string) ([]*entity.MessageLog, error) {
	return c.db.SearchMessages(ctx, tenantID, q)
}

func (c *Core) ListForwarded(ctx context.Context, tenantID string, f database.ForwardedFilter) ([]*entity.ForwardedMessage, error) {
	return c.db.ListForwarded(ctx, tenantID, f)
}

// --- analytics ---

func (c *Core) Stats(ctx context.Context, tenantID string) (*analytics.Stats, error) {
	return c.analytics.Compute(ctx, tenantID)
}

// --- health ---

func (c *Core) HealthSnapshot(tenantID string) []health.Probe {
	return c.health.Snapshot(tenantID)
}

// --- bot ---

func (c *Core) TestBot(ctx context.Context) (string, error) {
	if c.bot == nil {
		return "", fmt.Errorf("bot not connected")
	}
	return c.bot.TestProbe(ctx)
}

func (c *Core) HandleTelegramWebhook(secret string, update *tgbotapi.Update) error {
	if c.bot == nil {
		return fmt.Errorf("bot not connected")
	}
	return c.bot.HandleWebhook(secret, update)
}
