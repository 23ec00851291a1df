// Package store persists tenant configuration and entitlement records in
// SQLite. Document-shaped records (tenant configs, grant ledgers) are kept
// as JSON columns so optional sub-records round-trip as omitted fields;
// records the quota engine enumerates (premium tenants, playlists) get
// real columns and indexes.
package store

import (
	"time"

	"github.com/cadencebot/cadence/pkg/perms"
	"github.com/cadencebot/cadence/pkg/premium"
)

// TenantConfig is the per-tenant command-surface configuration document.
type TenantConfig struct {
	ID string `json:"-"`

	Prefix                string `json:"prefix,omitempty"`
	DJRole                string `json:"djRole,omitempty"`
	DJOnlyMode            bool   `json:"djOnlyMode,omitempty"`
	AutoDelete            bool   `json:"autoDelete,omitempty"`
	InvokeDelete          bool   `json:"invokeDelete,omitempty"`
	AutoDeleteDelayMillis int64  `json:"autoDeleteDelay,omitempty"`
	AdminBypass           bool   `json:"adminBypass,omitempty"`

	// CommandOptions and CategoryOptions are keyed by command and
	// category ID. A missing key means the command or category was never
	// configured, which resolution treats as full inheritance.
	CommandOptions  map[string]*perms.Options `json:"options,omitzero"`
	CategoryOptions map[string]*perms.Options `json:"categoryOptions,omitzero"`
}

// CommandOptionsFor returns the command-level record, nil if never
// configured.
func (t *TenantConfig) CommandOptionsFor(commandID string) *perms.Options {
	return t.CommandOptions[commandID]
}

// CategoryOptionsFor returns the category-level record, nil if never
// configured.
func (t *TenantConfig) CategoryOptionsFor(categoryID string) *perms.Options {
	return t.CategoryOptions[categoryID]
}

// EnsureCommandOptions returns the command-level record, creating an
// enabled default on first configuration write.
func (t *TenantConfig) EnsureCommandOptions(commandID string) *perms.Options {
	if t.CommandOptions == nil {
		t.CommandOptions = make(map[string]*perms.Options)
	}
	if t.CommandOptions[commandID] == nil {
		t.CommandOptions[commandID] = perms.NewOptions()
	}
	return t.CommandOptions[commandID]
}

// EnsureCategoryOptions returns the category-level record, creating an
// enabled default on first configuration write.
func (t *TenantConfig) EnsureCategoryOptions(categoryID string) *perms.Options {
	if t.CategoryOptions == nil {
		t.CategoryOptions = make(map[string]*perms.Options)
	}
	if t.CategoryOptions[categoryID] == nil {
		t.CategoryOptions[categoryID] = perms.NewOptions()
	}
	return t.CategoryOptions[categoryID]
}

// Resolve merges the command-level record with its category fallback.
func (t *TenantConfig) Resolve(commandID, categoryID string) *perms.Effective {
	return perms.Resolve(t.CommandOptionsFor(commandID), t.CategoryOptionsFor(categoryID))
}

// TenantData carries a tenant's time-boxed entitlement ledger.
type TenantData struct {
	ID          string         `json:"-"`
	PremiumKeys premium.Ledger `json:"premiumKeys,omitzero"`
}

// AccountData carries an account's time-boxed entitlement ledger.
type AccountData struct {
	ID          string         `json:"-"`
	PremiumKeys premium.Ledger `json:"premiumKeys,omitzero"`
}

// PledgeAccount holds the continuous pledge signal quotas derive from.
// Unknown accounts default to a zero pledge.
type PledgeAccount struct {
	ID           string  `json:"id"`
	PledgeAmount float64 `json:"pledgeAmount"`
}

// PremiumTenant records that an account redeemed premium for a tenant.
type PremiumTenant struct {
	ID          string
	Redeemer    string
	AddedMillis int64
}

// DaysSinceAdded returns full days elapsed since the redemption.
func (p *PremiumTenant) DaysSinceAdded(now time.Time) int64 {
	return int64(now.Sub(time.UnixMilli(p.AddedMillis)) / (24 * time.Hour))
}

// Playlist is the minimal playlist record the quota engine counts.
type Playlist struct {
	ID            string
	Author        string
	Name          string
	CreatedMillis int64
}

// KeyType discriminates what a premium key grants when redeemed.
type KeyType string

const (
	// KeyTenant grants time-boxed premium to a tenant.
	KeyTenant KeyType = "premium"
	// KeyAccount grants time-boxed premium to the redeeming account.
	KeyAccount KeyType = "premium_override"
)

// RedeemerType records what kind of entity consumed a key.
type RedeemerType string

const (
	RedeemedByTenant  RedeemerType = "tenant"
	RedeemedByAccount RedeemerType = "account"
)

// PremiumKey is a single-use entitlement voucher.
type PremiumKey struct {
	ID             string       `json:"id"`
	Type           KeyType      `json:"type"`
	DurationMillis int64        `json:"durationMillis"`
	RedeemerType   RedeemerType `json:"redeemerType,omitempty"`
	RedeemerID     string       `json:"redeemerId,omitempty"`
}

// Redeemed reports whether the key has already been consumed.
func (k *PremiumKey) Redeemed() bool {
	return k.RedeemerID != ""
}
