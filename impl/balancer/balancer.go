// Package balancer implements the load balancer (component F):
// assignment of a tenant's active groups to its active healthy accounts,
// balanced within ±1 and ties broken by lower id.
package balancer

import (
	"context"
	"log/slog"
	"sort"

	"telewatch/entity"
	"telewatch/lib/sl"
)

// Database is the balancer's store dependency.
type Database interface {
	ListGroups(ctx context.Context, tenantID string, includeInactive bool) ([]*entity.Group, error)
	ListActiveAccounts(ctx context.Context, tenantID string) ([]*entity.Account, error)
	SetAssignedGroups(ctx context.Context, tenantID, accountID string, groupIDs []string) error
}

// Subscriber is implemented by the session client supervisor; rebalance
// instructs it to subscribe/unsubscribe the affected receivers.
type Subscriber interface {
	Resubscribe(ctx context.Context, accountID string, groupIDs []string) error
}

// HealthFilter is implemented by the health monitor; rebalance excludes
// any account it reports unhealthy (failed) from new group assignment.
type HealthFilter interface {
	IsHealthy(accountID string) bool
}

type Balancer struct {
	db     Database
	sub    Subscriber
	health HealthFilter
	log    *slog.Logger
}

func New(db Database, sub Subscriber, log *slog.Logger) *Balancer {
	return &Balancer{db: db, sub: sub, log: log.With(sl.Module("balancer"))}
}

// SetHealthFilter wires the health monitor in after construction; main.go
// builds the balancer before the health monitor exists. A nil filter (the
// zero value) assigns to every active account, unfiltered.
func (b *Balancer) SetHealthFilter(h HealthFilter) {
	b.health = h
}

// Assignment is the recomputed group->account mapping for one tenant.
type Assignment map[string][]string // account id -> group ids

// Rebalance recomputes group assignment for a tenant whenever its Group
// or Account set changes. Every active group is assigned to exactly one
// healthy active account; counts differ by at most 1; ties are broken by
// lower account id.
func (b *Balancer) Rebalance(ctx context.Context, tenantID string) (Assignment, error) {
	groups, err := b.db.ListGroups(ctx, tenantID, false)
	if err != nil {
		return nil, err
	}
	accounts, err := b.db.ListActiveAccounts(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if b.health != nil {
		healthy := accounts[:0]
		for _, a := range accounts {
			if b.health.IsHealthy(a.ID) {
				healthy = append(healthy, a)
			}
		}
		accounts = healthy
	}
	if len(accounts) == 0 {
		return Assignment{}, nil
	}

	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })
	sort.Slice(groups, func(i, j int) bool { return groups[i].GroupID < groups[j].GroupID })

	assignment := make(Assignment, len(accounts))
	for _, a := range accounts {
		assignment[a.ID] = []string{}
	}

	for i, g := range groups {
		accountID := accounts[i%len(accounts)].ID
		assignment[accountID] = append(assignment[accountID], g.GroupID)
	}

	for accountID, groupIDs := range assignment {
		if err := b.db.SetAssignedGroups(ctx, tenantID, accountID, groupIDs); err != nil {
			return nil, err
		}
		if b.sub != nil {
			if err := b.sub.Resubscribe(ctx, accountID, groupIDs); err != nil {
				b.log.With(sl.Err(err), sl.Tenant(tenantID)).Error("resubscribe account after rebalance")
			}
		}
	}

	b.log.Info("rebalanced", sl.Tenant(tenantID), slog.Int("groups", len(groups)), slog.Int("accounts", len(accounts)))
	return assignment, nil
}
