package gatekeeper

import (
	"context"
	"errors"
	"testing"

	"github.com/cadencebot/cadence/internal/store"
	"github.com/cadencebot/cadence/pkg/perms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubConfigs struct {
	cfg *store.TenantConfig
	err error
}

func (s stubConfigs) TenantConfig(ctx context.Context, tenantID string) (*store.TenantConfig, error) {
	if s.err != nil {
		return nil, s.err
	}
	cfg := s.cfg
	if cfg == nil {
		cfg = &store.TenantConfig{ID: tenantID}
	}
	return cfg, nil
}

func TestCheckAllowsUnconfiguredTenant(t *testing.T) {
	g := New(stubConfigs{})

	d, err := g.Check(context.Background(), CheckRequest{
		TenantID:  "tenant-1",
		CommandID: "play",
		ChannelID: "chan-1",
		UserID:    "user-1",
	})
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, ReasonAllowed, d.Reason)
	// Nothing configured at either level: every field is inherited.
	assert.True(t, d.Inherited.Toggle)
	assert.True(t, d.Inherited.Channels)
}

func TestCheckDeniesDisabledCommand(t *testing.T) {
	cfg := &store.TenantConfig{ID: "tenant-1"}
	cfg.EnsureCommandOptions("play").Enabled = false
	g := New(stubConfigs{cfg: cfg})

	d, err := g.Check(context.Background(), CheckRequest{TenantID: "tenant-1", CommandID: "play"})
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonCommandDisabled, d.Reason)
	assert.False(t, d.Inherited.Toggle)
}

func TestCheckDenyOrder(t *testing.T) {
	cfg := &store.TenantConfig{ID: "tenant-1"}
	opts := cfg.EnsureCommandOptions("play")
	opts.Channels().Add("chan-1")
	opts.Users().Add("user-1")
	opts.Roles().Add("role-1")
	g := New(stubConfigs{cfg: cfg})

	tests := []struct {
		name string
		req  CheckRequest
		want Reason
	}{
		{"channel checked first", CheckRequest{TenantID: "t", CommandID: "play", ChannelID: "chan-1", UserID: "user-1", RoleIDs: []string{"role-1"}}, ReasonChannelDisabled},
		{"user before role", CheckRequest{TenantID: "t", CommandID: "play", ChannelID: "chan-2", UserID: "user-1", RoleIDs: []string{"role-1"}}, ReasonUserDisabled},
		{"role last", CheckRequest{TenantID: "t", CommandID: "play", ChannelID: "chan-2", UserID: "user-2", RoleIDs: []string{"role-1", "role-2"}}, ReasonRoleDisabled},
		{"clean actor allowed", CheckRequest{TenantID: "t", CommandID: "play", ChannelID: "chan-2", UserID: "user-2", RoleIDs: []string{"role-2"}}, ReasonAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := g.Check(context.Background(), tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Reason)
			assert.Equal(t, tt.want == ReasonAllowed, d.Allowed)
		})
	}
}

func TestCheckFallsBackToCategory(t *testing.T) {
	cfg := &store.TenantConfig{ID: "tenant-1"}
	cfg.EnsureCategoryOptions("music").Channels().Add("chan-1")
	// Command record exists but never touched its channel set.
	cfg.EnsureCommandOptions("play")
	g := New(stubConfigs{cfg: cfg})

	d, err := g.Check(context.Background(), CheckRequest{
		TenantID:   "tenant-1",
		CommandID:  "play",
		CategoryID: "music",
		ChannelID:  "chan-1",
	})
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonChannelDisabled, d.Reason)
	assert.True(t, d.Inherited.Channels)
}

func TestCheckCommandEmptySetOverridesCategory(t *testing.T) {
	cfg := &store.TenantConfig{ID: "tenant-1"}
	cfg.EnsureCategoryOptions("music").Channels().Add("chan-1")
	// Explicitly emptied at the command level: deny nothing.
	cfg.EnsureCommandOptions("play").DisabledChannels = perms.NewSet()
	g := New(stubConfigs{cfg: cfg})

	d, err := g.Check(context.Background(), CheckRequest{
		TenantID:   "tenant-1",
		CommandID:  "play",
		CategoryID: "music",
		ChannelID:  "chan-1",
	})
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.False(t, d.Inherited.Channels)
}

func TestCheckAdminBypass(t *testing.T) {
	cfg := &store.TenantConfig{ID: "tenant-1", AdminBypass: true}
	opts := cfg.EnsureCommandOptions("play")
	opts.Users().Add("user-1")
	g := New(stubConfigs{cfg: cfg})

	// Bypass skips deny sets for tenant admins.
	d, err := g.Check(context.Background(), CheckRequest{
		TenantID: "tenant-1", CommandID: "play", UserID: "user-1", TenantAdmin: true,
	})
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	// A disabled command stays disabled even for admins.
	opts.Enabled = false
	d, err = g.Check(context.Background(), CheckRequest{
		TenantID: "tenant-1", CommandID: "play", UserID: "user-1", TenantAdmin: true,
	})
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonCommandDisabled, d.Reason)

	// Without bypass enabled, admin standing changes nothing.
	opts.Enabled = true
	cfg.AdminBypass = false
	d, err = g.Check(context.Background(), CheckRequest{
		TenantID: "tenant-1", CommandID: "play", UserID: "user-1", TenantAdmin: true,
	})
	require.NoError(t, err)
	assert.Equal(t, ReasonUserDisabled, d.Reason)
}

func TestCheckStoreFailure(t *testing.T) {
	g := New(stubConfigs{err: errors.New("db gone")})

	_, err := g.Check(context.Background(), CheckRequest{TenantID: "tenant-1", CommandID: "play"})
	require.Error(t, err)
}
