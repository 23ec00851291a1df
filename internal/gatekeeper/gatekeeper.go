// Package gatekeeper answers "is this command runnable here, for this
// actor" for the command dispatcher. It loads the tenant's configuration,
// resolves the command-level record against its category fallback and
// checks the invoking actor against the effective deny sets.
package gatekeeper

import (
	"context"

	"github.com/cadencebot/cadence/internal/store"
	"github.com/rs/zerolog/log"
)

// ConfigSource supplies tenant configuration documents.
type ConfigSource interface {
	TenantConfig(ctx context.Context, tenantID string) (*store.TenantConfig, error)
}

// Reason explains why a command was denied.
type Reason string

const (
	ReasonAllowed         Reason = ""
	ReasonCommandDisabled Reason = "command_disabled"
	ReasonChannelDisabled Reason = "channel_disabled"
	ReasonUserDisabled    Reason = "user_disabled"
	ReasonRoleDisabled    Reason = "role_disabled"
)

// CheckRequest describes one command invocation.
type CheckRequest struct {
	TenantID   string   `json:"tenantId"`
	CommandID  string   `json:"commandId"`
	CategoryID string   `json:"categoryId"`
	ChannelID  string   `json:"channelId"`
	UserID     string   `json:"userId"`
	RoleIDs    []string `json:"roleIds"`

	// TenantAdmin marks actors with administrative standing inside the
	// tenant. They skip deny-set checks when the tenant enables admin
	// bypass; the enabled flag still applies to them.
	TenantAdmin bool `json:"tenantAdmin"`
}

// Decision is the outcome of a permission check.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  Reason `json:"reason,omitempty"`

	// Inherited reports, per field, whether the deciding value came from
	// the category level. Configuration UIs surface this as provenance.
	Inherited DecisionProvenance `json:"inherited"`
}

// DecisionProvenance mirrors the resolver's per-field inheritance flags.
type DecisionProvenance struct {
	Toggle   bool `json:"toggle"`
	Channels bool `json:"channels"`
	Users    bool `json:"users"`
	Roles    bool `json:"roles"`
}

// Gatekeeper makes dispatch decisions against stored configuration.
type Gatekeeper struct {
	configs ConfigSource
}

// New creates a gatekeeper over the given configuration source.
func New(configs ConfigSource) *Gatekeeper {
	return &Gatekeeper{configs: configs}
}

// Check resolves the effective permission record for the invocation and
// evaluates the actor against it. Absent configuration at any level is a
// valid state, never an error; only a store failure returns one.
func (g *Gatekeeper) Check(ctx context.Context, req CheckRequest) (Decision, error) {
	cfg, err := g.configs.TenantConfig(ctx, req.TenantID)
	if err != nil {
		checkErrors.Inc()
		return Decision{}, err
	}

	eff := cfg.Resolve(req.CommandID, req.CategoryID)

	d := Decision{
		Inherited: DecisionProvenance{
			Toggle:   eff.InheritToggle(),
			Channels: eff.InheritChannels(),
			Users:    eff.InheritUsers(),
			Roles:    eff.InheritRoles(),
		},
	}

	bypass := req.TenantAdmin && cfg.AdminBypass

	switch {
	case !eff.Enabled():
		d.Reason = ReasonCommandDisabled
	case bypass:
		// Tenant admins skip deny sets when bypass is on.
	case eff.ChannelDisabled(req.ChannelID):
		d.Reason = ReasonChannelDisabled
	case eff.UserDisabled(req.UserID):
		d.Reason = ReasonUserDisabled
	case eff.RoleDisabled(req.RoleIDs...):
		d.Reason = ReasonRoleDisabled
	}

	d.Allowed = d.Reason == ReasonAllowed
	if d.Allowed {
		checksTotal.WithLabelValues("allowed").Inc()
	} else {
		checksTotal.WithLabelValues(string(d.Reason)).Inc()
		log.Debug().
			Str("tenant", req.TenantID).
			Str("command", req.CommandID).
			Str("reason", string(d.Reason)).
			Msg("Command denied")
	}
	return d, nil
}
