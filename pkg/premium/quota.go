package premium

import (
	"context"
	"math"
	"time"
)

// Unlimited is the sentinel returned for tiers with no numeric cap.
const Unlimited = math.MaxInt32

// RecordCap is the effectively-unlimited cap applied to record quotas
// (redeemed tenants, playlists) for administrators and premium accounts.
const RecordCap = 99999

// AdminSet answers administrator-membership checks for account IDs.
type AdminSet interface {
	IsAdmin(accountID string) bool
}

// AdminSetFunc adapts a function to the AdminSet interface.
type AdminSetFunc func(accountID string) bool

func (f AdminSetFunc) IsAdmin(accountID string) bool { return f(accountID) }

// RecordCounter enumerates existing redemption records for an account.
// Implementations report failure through the error return; the quota
// engine treats any failure as zero remaining quota.
type RecordCounter interface {
	CountPremiumTenants(ctx context.Context, accountID string) (int, error)
	CountPlaylists(ctx context.Context, accountID string) (int, error)
}

// Policy derives quota tiers from a continuous pledge amount. The zero
// value is usable for pure tier math but denies administrator overrides
// and falls back to zero defaults.
type Policy struct {
	Admins AdminSet

	// DefaultQueueLimit and DefaultTrackLength apply to tenants whose
	// redeemer pledges below the first paid tier.
	DefaultQueueLimit  int
	DefaultTrackLength time.Duration
}

func (p Policy) isAdmin(accountID string) bool {
	return p.Admins != nil && p.Admins.IsAdmin(accountID)
}

// AccountPremium reports whether a pledge amount alone confers premium
// standing on the account. Distinct from Ledger.IsPremium, which tracks
// time-boxed grants.
func AccountPremium(pledge float64) bool {
	return pledge >= 5
}

// QueueSizeQuota returns the tenant queue-size limit for a tenant redeemed
// by the given account.
func (p Policy) QueueSizeQuota(accountID string, pledge float64) int {
	switch {
	case p.isAdmin(accountID) || pledge >= 10:
		return Unlimited
	case pledge >= 5:
		return 500
	default:
		return p.DefaultQueueLimit
	}
}

// TrackLengthQuota returns the per-track length limit for a tenant
// redeemed by the given account.
func (p Policy) TrackLengthQuota(accountID string, pledge float64) time.Duration {
	switch {
	case p.isAdmin(accountID):
		return time.Duration(Unlimited) * time.Millisecond
	case pledge >= 10:
		return 720 * time.Minute
	case pledge >= 5:
		return 360 * time.Minute
	default:
		return p.DefaultTrackLength
	}
}

// TotalTenantQuota returns how many tenants the account may redeem premium
// for in total. At the top tier the base of 5 grows by one per full 3
// currency units pledged above 20.
func (p Policy) TotalTenantQuota(accountID string, pledge float64) int {
	switch {
	case p.isAdmin(accountID):
		return RecordCap
	case pledge >= 20:
		extra := int((pledge - 20) / 3)
		return 5 + extra
	case pledge >= 10:
		return 2
	case pledge >= 5:
		return 1
	default:
		return 0
	}
}

// TotalPlaylistQuota returns how many playlists the account may store.
func (p Policy) TotalPlaylistQuota(accountID string, pledge float64) int {
	if p.isAdmin(accountID) || AccountPremium(pledge) {
		return RecordCap
	}
	return 5
}

// RemainingTenantQuota returns the account's unredeemed tenant quota. The
// result may be negative when existing records exceed a recomputed total
// (a pledge decrease, for instance); callers treat that as zero available.
// When the counter fails, the result is 0, never unlimited, so an outage
// cannot be exploited to over-redeem.
func (p Policy) RemainingTenantQuota(ctx context.Context, counter RecordCounter, accountID string, pledge float64) int {
	n, err := counter.CountPremiumTenants(ctx, accountID)
	if err != nil {
		return 0
	}
	return p.TotalTenantQuota(accountID, pledge) - n
}

// RemainingPlaylistQuota returns the account's unused playlist quota,
// fail-closed like RemainingTenantQuota.
func (p Policy) RemainingPlaylistQuota(ctx context.Context, counter RecordCounter, accountID string, pledge float64) int {
	n, err := counter.CountPlaylists(ctx, accountID)
	if err != nil {
		return 0
	}
	return p.TotalPlaylistQuota(accountID, pledge) - n
}
