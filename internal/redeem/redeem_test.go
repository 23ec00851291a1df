package redeem

import (
	"context"
	"testing"
	"time"

	"github.com/cadencebot/cadence/internal/config"
	"github.com/cadencebot/cadence/internal/registry"
	"github.com/cadencebot/cadence/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedEvent struct {
	eventType string
	data      any
}

type stubEvents struct {
	events []recordedEvent
}

func (s *stubEvents) Broadcast(eventType string, data any) {
	s.events = append(s.events, recordedEvent{eventType, data})
}

func newTestService(t *testing.T) (*Service, *store.Store, *stubEvents) {
	t.Helper()
	st, err := store.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	reg := registry.New(st, config.Defaults{
		QueueLimit:       20,
		TrackLengthLimit: 2 * time.Hour,
	})
	events := &stubEvents{}
	svc := New(reg, events)
	svc.now = func() time.Time { return time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC) }
	return svc, st, events
}

func setPledge(t *testing.T, st *store.Store, accountID string, amount float64) {
	t.Helper()
	require.NoError(t, st.SavePledgeAccount(context.Background(), &store.PledgeAccount{ID: accountID, PledgeAmount: amount}))
}

func TestGenerateKeys(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	keys, err := svc.GenerateKeys(ctx, 3, store.KeyTenant, 30*24*time.Hour)
	require.NoError(t, err)
	require.Len(t, keys, 3)

	seen := map[string]bool{}
	for _, k := range keys {
		assert.False(t, seen[k.ID], "key IDs must be unique")
		seen[k.ID] = true
		assert.Equal(t, store.KeyTenant, k.Type)
		assert.False(t, k.Redeemed())

		stored, err := st.PremiumKey(ctx, k.ID)
		require.NoError(t, err)
		require.NotNil(t, stored)
	}

	_, err = svc.GenerateKeys(ctx, 0, store.KeyTenant, time.Hour)
	require.Error(t, err)
	_, err = svc.GenerateKeys(ctx, 1, store.KeyType("bogus"), time.Hour)
	require.Error(t, err)
}

func TestRedeemUnknownAndReused(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Redeem(ctx, "nope", "acct-1", "tenant-1")
	assert.ErrorIs(t, err, ErrUnknownKey)

	setPledge(t, st, "acct-1", 5)
	keys, err := svc.GenerateKeys(ctx, 1, store.KeyTenant, time.Hour)
	require.NoError(t, err)

	_, err = svc.Redeem(ctx, keys[0].ID, "acct-1", "tenant-1")
	require.NoError(t, err)

	_, err = svc.Redeem(ctx, keys[0].ID, "acct-1", "tenant-1")
	assert.ErrorIs(t, err, ErrKeyRedeemed)
}

func TestRedeemTenantKey(t *testing.T) {
	svc, st, events := newTestService(t)
	ctx := context.Background()
	setPledge(t, st, "acct-1", 5)

	keys, err := svc.GenerateKeys(ctx, 1, store.KeyTenant, 30*24*time.Hour)
	require.NoError(t, err)

	res, err := svc.Redeem(ctx, keys[0].ID, "acct-1", "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, "tenant-1", res.TenantID)
	assert.Equal(t, "acct-1", res.AccountID)

	pt, err := st.PremiumTenant(ctx, "tenant-1")
	require.NoError(t, err)
	require.NotNil(t, pt)
	assert.Equal(t, "acct-1", pt.Redeemer)

	data, err := st.TenantData(ctx, "tenant-1")
	require.NoError(t, err)
	assert.True(t, data.PremiumKeys.IsPremium(svc.now().UnixMilli()))

	key, err := st.PremiumKey(ctx, keys[0].ID)
	require.NoError(t, err)
	assert.True(t, key.Redeemed())
	assert.Equal(t, store.RedeemedByTenant, key.RedeemerType)
	assert.Equal(t, "tenant-1", key.RedeemerID)

	require.Len(t, events.events, 1)
	assert.Equal(t, "entitlement_changed", events.events[0].eventType)
}

func TestRedeemTenantKeyRequiresTenant(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()
	setPledge(t, st, "acct-1", 5)

	keys, err := svc.GenerateKeys(ctx, 1, store.KeyTenant, time.Hour)
	require.NoError(t, err)

	_, err = svc.Redeem(ctx, keys[0].ID, "acct-1", "")
	require.Error(t, err)
}

func TestRedeemTenantQuota(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	// Pledge 5 allows exactly one premium tenant.
	setPledge(t, st, "acct-1", 5)

	keys, err := svc.GenerateKeys(ctx, 3, store.KeyTenant, time.Hour)
	require.NoError(t, err)

	_, err = svc.Redeem(ctx, keys[0].ID, "acct-1", "tenant-1")
	require.NoError(t, err)

	// A second tenant exceeds the quota.
	_, err = svc.Redeem(ctx, keys[1].ID, "acct-1", "tenant-2")
	assert.ErrorIs(t, err, ErrQuotaExhausted)

	// Topping up the already-redeemed tenant does not consume quota.
	_, err = svc.Redeem(ctx, keys[2].ID, "acct-1", "tenant-1")
	require.NoError(t, err)
}

func TestRedeemZeroPledgeHasNoTenantQuota(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	keys, err := svc.GenerateKeys(ctx, 1, store.KeyTenant, time.Hour)
	require.NoError(t, err)

	_, err = svc.Redeem(ctx, keys[0].ID, "acct-1", "tenant-1")
	assert.ErrorIs(t, err, ErrQuotaExhausted)
}

func TestRedeemAccountKey(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	keys, err := svc.GenerateKeys(ctx, 1, store.KeyAccount, 7*24*time.Hour)
	require.NoError(t, err)

	// Account keys need no tenant and no pledge.
	res, err := svc.Redeem(ctx, keys[0].ID, "acct-1", "")
	require.NoError(t, err)
	assert.Empty(t, res.TenantID)

	data, err := st.AccountData(ctx, "acct-1")
	require.NoError(t, err)
	assert.True(t, data.PremiumKeys.IsPremium(svc.now().UnixMilli()))

	key, err := st.PremiumKey(ctx, keys[0].ID)
	require.NoError(t, err)
	assert.Equal(t, store.RedeemedByAccount, key.RedeemerType)
	assert.Equal(t, "acct-1", key.RedeemerID)
}

func TestRevokeTenant(t *testing.T) {
	svc, st, events := newTestService(t)
	ctx := context.Background()
	setPledge(t, st, "acct-1", 5)

	keys, err := svc.GenerateKeys(ctx, 1, store.KeyTenant, time.Hour)
	require.NoError(t, err)
	_, err = svc.Redeem(ctx, keys[0].ID, "acct-1", "tenant-1")
	require.NoError(t, err)

	require.NoError(t, svc.RevokeTenant(ctx, "tenant-1", keys[0].ID))

	pt, err := st.PremiumTenant(ctx, "tenant-1")
	require.NoError(t, err)
	assert.Nil(t, pt)

	data, err := st.TenantData(ctx, "tenant-1")
	require.NoError(t, err)
	assert.NotContains(t, data.PremiumKeys, keys[0].ID)

	// Redeem then revoke both broadcast.
	assert.Len(t, events.events, 2)
}
