// Package registry ties persisted records to the live platform defaults.
// It owns the reloadable defaults (queue limit, track length, admin list)
// and hands out premium.Policy values bound to the current snapshot, so
// the pure quota engine never reads ambient state.
package registry

import (
	"context"
	"sync"
	"time"

	"github.com/cadencebot/cadence/internal/config"
	"github.com/cadencebot/cadence/internal/store"
	"github.com/cadencebot/cadence/pkg/premium"
	"github.com/rs/zerolog/log"
)

// Registry exposes defaults-aware views over the store.
type Registry struct {
	store *store.Store

	mu       sync.RWMutex
	defaults config.Defaults
	admins   map[string]struct{}
}

// New creates a registry over the store with the given defaults.
func New(st *store.Store, defaults config.Defaults) *Registry {
	r := &Registry{store: st}
	r.SetDefaults(defaults)
	return r
}

// SetDefaults swaps in reloaded platform defaults. Wired to the config
// watcher.
func (r *Registry) SetDefaults(d config.Defaults) {
	admins := make(map[string]struct{}, len(d.AdminIDs))
	for _, id := range d.AdminIDs {
		admins[id] = struct{}{}
	}

	r.mu.Lock()
	r.defaults = d
	r.admins = admins
	r.mu.Unlock()

	log.Debug().
		Int("queue_limit", d.QueueLimit).
		Int("admins", len(d.AdminIDs)).
		Msg("Registry defaults updated")
}

// IsAdmin reports whether the account is a platform administrator.
func (r *Registry) IsAdmin(accountID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.admins[accountID]
	return ok
}

// Policy returns a quota policy bound to the current defaults snapshot.
func (r *Registry) Policy() premium.Policy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return premium.Policy{
		Admins:             premium.AdminSetFunc(r.IsAdmin),
		DefaultQueueLimit:  r.defaults.QueueLimit,
		DefaultTrackLength: r.defaults.TrackLengthLimit,
	}
}

// Store exposes the underlying record store.
func (r *Registry) Store() *store.Store {
	return r.store
}

// TenantPremium reports whether a tenant currently holds an active
// entitlement, with its remaining time.
func (r *Registry) TenantPremium(ctx context.Context, tenantID string) (bool, time.Duration, error) {
	d, err := r.store.TenantData(ctx, tenantID)
	if err != nil {
		return false, 0, err
	}
	now := time.Now().UnixMilli()
	return d.PremiumKeys.IsPremium(now), time.Duration(d.PremiumKeys.RemainingMillis(now)) * time.Millisecond, nil
}

// AccountPremium reports whether an account currently holds an active
// entitlement from its own ledger.
func (r *Registry) AccountPremium(ctx context.Context, accountID string) (bool, time.Duration, error) {
	d, err := r.store.AccountData(ctx, accountID)
	if err != nil {
		return false, 0, err
	}
	now := time.Now().UnixMilli()
	return d.PremiumKeys.IsPremium(now), time.Duration(d.PremiumKeys.RemainingMillis(now)) * time.Millisecond, nil
}

// TenantQuotas describes the limits currently applying to a tenant.
type TenantQuotas struct {
	Premium        bool          `json:"premium"`
	Redeemer       string        `json:"redeemer,omitempty"`
	QueueSizeLimit int           `json:"queueSizeLimit"`
	TrackLengthCap time.Duration `json:"trackLengthCap"`
	DaysSinceAdded int64         `json:"daysSinceAdded,omitempty"`
}

// QuotasForTenant derives the tenant's effective limits from its
// redeemer's pledge. Tenants without a redemption get the free-tier
// defaults.
func (r *Registry) QuotasForTenant(ctx context.Context, tenantID string) (*TenantQuotas, error) {
	policy := r.Policy()

	q := &TenantQuotas{
		QueueSizeLimit: policy.DefaultQueueLimit,
		TrackLengthCap: policy.DefaultTrackLength,
	}

	pt, err := r.store.PremiumTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if pt == nil {
		return q, nil
	}

	premiumNow, _, err := r.TenantPremium(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	acc, err := r.store.PledgeAccount(ctx, pt.Redeemer)
	if err != nil {
		return nil, err
	}

	q.Premium = premiumNow
	q.Redeemer = pt.Redeemer
	q.DaysSinceAdded = pt.DaysSinceAdded(time.Now())
	q.QueueSizeLimit = policy.QueueSizeQuota(pt.Redeemer, acc.PledgeAmount)
	q.TrackLengthCap = policy.TrackLengthQuota(pt.Redeemer, acc.PledgeAmount)
	return q, nil
}

// AccountQuotas describes an account's redemption and playlist quota.
type AccountQuotas struct {
	PledgeAmount       float64 `json:"pledgeAmount"`
	Premium            bool    `json:"premium"`
	TotalTenants       int     `json:"totalTenants"`
	RemainingTenants   int     `json:"remainingTenants"`
	TotalPlaylists     int     `json:"totalPlaylists"`
	RemainingPlaylists int     `json:"remainingPlaylists"`
}

// QuotasForAccount derives an account's quota standing. Remaining values
// are fail-closed: a store failure while counting yields 0, never
// unlimited.
func (r *Registry) QuotasForAccount(ctx context.Context, accountID string) (*AccountQuotas, error) {
	policy := r.Policy()

	acc, err := r.store.PledgeAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	pledge := acc.PledgeAmount
	return &AccountQuotas{
		PledgeAmount:       pledge,
		Premium:            premium.AccountPremium(pledge),
		TotalTenants:       policy.TotalTenantQuota(accountID, pledge),
		RemainingTenants:   policy.RemainingTenantQuota(ctx, r.store, accountID, pledge),
		TotalPlaylists:     policy.TotalPlaylistQuota(accountID, pledge),
		RemainingPlaylists: policy.RemainingPlaylistQuota(ctx, r.store, accountID, pledge),
	}, nil
}
