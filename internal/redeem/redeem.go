// Package redeem implements premium-key issuance and redemption. Keys are
// single-use vouchers: tenant keys grant a tenant time-boxed premium on
// behalf of the redeeming account (consuming that account's tenant
// quota), account keys top up the account's own ledger.
package redeem

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cadencebot/cadence/internal/registry"
	"github.com/cadencebot/cadence/internal/store"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"
)

var (
	// ErrUnknownKey is returned for key IDs that were never issued.
	ErrUnknownKey = errors.New("unknown premium key")
	// ErrKeyRedeemed is returned when a key was already consumed.
	ErrKeyRedeemed = errors.New("premium key already redeemed")
	// ErrQuotaExhausted is returned when the account has no tenant
	// redemptions left. Store failures while counting surface as this
	// error too: quota is fail-closed.
	ErrQuotaExhausted = errors.New("tenant redemption quota exhausted")
)

// Events receives entitlement-change notifications for connected shards.
type Events interface {
	Broadcast(eventType string, data any)
}

// Service owns key issuance and redemption.
type Service struct {
	registry *registry.Registry
	store    *store.Store
	events   Events
	now      func() time.Time
}

// New creates a redemption service. events may be nil.
func New(reg *registry.Registry, events Events) *Service {
	return &Service{
		registry: reg,
		store:    reg.Store(),
		events:   events,
		now:      time.Now,
	}
}

// GenerateKeys issues n fresh unredeemed keys of the given type.
func (s *Service) GenerateKeys(ctx context.Context, n int, keyType store.KeyType, duration time.Duration) ([]store.PremiumKey, error) {
	if n < 1 {
		return nil, fmt.Errorf("key count must be positive, got %d", n)
	}
	if keyType != store.KeyTenant && keyType != store.KeyAccount {
		return nil, fmt.Errorf("unknown key type %q", keyType)
	}

	keys := make([]store.PremiumKey, 0, n)
	for i := 0; i < n; i++ {
		k := store.PremiumKey{
			ID:             ulid.Make().String(),
			Type:           keyType,
			DurationMillis: duration.Milliseconds(),
		}
		if err := s.store.SavePremiumKey(ctx, &k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}

	log.Info().Int("count", n).Str("type", string(keyType)).Dur("duration", duration).Msg("Issued premium keys")
	return keys, nil
}

// Result describes a completed redemption.
type Result struct {
	Key       store.PremiumKey `json:"key"`
	TenantID  string           `json:"tenantId,omitempty"`
	AccountID string           `json:"accountId"`
}

// Redeem consumes a key on behalf of accountID. Tenant keys require
// tenantID and remaining tenant quota; account keys ignore tenantID.
func (s *Service) Redeem(ctx context.Context, keyID, accountID, tenantID string) (*Result, error) {
	key, err := s.store.PremiumKey(ctx, keyID)
	if err != nil {
		return nil, err
	}
	if key == nil {
		redemptionFailures.WithLabelValues("unknown_key").Inc()
		return nil, ErrUnknownKey
	}
	if key.Redeemed() {
		redemptionFailures.WithLabelValues("key_redeemed").Inc()
		return nil, ErrKeyRedeemed
	}

	switch key.Type {
	case store.KeyTenant:
		if err := s.redeemForTenant(ctx, key, accountID, tenantID); err != nil {
			if errors.Is(err, ErrQuotaExhausted) {
				redemptionFailures.WithLabelValues("quota_exhausted").Inc()
			}
			return nil, err
		}
	case store.KeyAccount:
		if err := s.redeemForAccount(ctx, key, accountID); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown key type %q", key.Type)
	}

	if err := s.store.SavePremiumKey(ctx, key); err != nil {
		return nil, err
	}

	res := &Result{Key: *key, AccountID: accountID}
	if key.Type == store.KeyTenant {
		res.TenantID = tenantID
	}

	log.Info().
		Str("key", key.ID).
		Str("type", string(key.Type)).
		Str("account", accountID).
		Str("tenant", res.TenantID).
		Msg("Premium key redeemed")

	redemptionsTotal.WithLabelValues(string(key.Type)).Inc()
	if s.events != nil {
		s.events.Broadcast("entitlement_changed", res)
	}
	return res, nil
}

func (s *Service) redeemForTenant(ctx context.Context, key *store.PremiumKey, accountID, tenantID string) error {
	if tenantID == "" {
		return fmt.Errorf("tenant key %q requires a tenant", key.ID)
	}

	// A tenant with a live redemption by this account only tops up; a new
	// tenant consumes quota first.
	existing, err := s.store.PremiumTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	if existing == nil || existing.Redeemer != accountID {
		acc, err := s.store.PledgeAccount(ctx, accountID)
		if err != nil {
			return err
		}
		remaining := s.registry.Policy().RemainingTenantQuota(ctx, s.store, accountID, acc.PledgeAmount)
		if remaining <= 0 {
			return ErrQuotaExhausted
		}
	}

	nowMillis := s.now().UnixMilli()
	if err := s.store.SavePremiumTenant(ctx, &store.PremiumTenant{
		ID:          tenantID,
		Redeemer:    accountID,
		AddedMillis: nowMillis,
	}); err != nil {
		return err
	}

	data, err := s.store.TenantData(ctx, tenantID)
	if err != nil {
		return err
	}
	data.PremiumKeys.Grant(key.ID, key.DurationMillis, nowMillis)
	if err := s.store.SaveTenantData(ctx, data); err != nil {
		return err
	}

	key.RedeemerType = store.RedeemedByTenant
	key.RedeemerID = tenantID
	return nil
}

func (s *Service) redeemForAccount(ctx context.Context, key *store.PremiumKey, accountID string) error {
	data, err := s.store.AccountData(ctx, accountID)
	if err != nil {
		return err
	}
	data.PremiumKeys.Grant(key.ID, key.DurationMillis, s.now().UnixMilli())
	if err := s.store.SaveAccountData(ctx, data); err != nil {
		return err
	}

	key.RedeemerType = store.RedeemedByAccount
	key.RedeemerID = accountID
	return nil
}

// RevokeTenant removes a tenant's redemption record and revokes the grant
// from its ledger. Administrative operation.
func (s *Service) RevokeTenant(ctx context.Context, tenantID, grantID string) error {
	data, err := s.store.TenantData(ctx, tenantID)
	if err != nil {
		return err
	}
	data.PremiumKeys.Revoke(grantID)
	if err := s.store.SaveTenantData(ctx, data); err != nil {
		return err
	}
	if err := s.store.DeletePremiumTenant(ctx, tenantID); err != nil {
		return err
	}
	if s.events != nil {
		s.events.Broadcast("entitlement_changed", map[string]string{"tenantId": tenantID})
	}
	return nil
}
