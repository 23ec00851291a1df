package perms

// Effective is the read-only merge of a command-level record with its
// category-level fallback. It is computed on demand and never persisted.
// Unlike Options it exposes no mutators, and every returned set is a copy,
// so a caller holding an Effective cannot write through into either source
// record. Accessors resolve each field independently: a present
// command-level value wins, otherwise the category value applies,
// otherwise the default (enabled, deny nothing).
type Effective struct {
	child  *Options
	parent *Options
}

// Resolve merges a command-level record (child) with its category-level
// record (parent). Either or both may be nil, meaning no configuration
// exists at that level. Neither input is mutated.
func Resolve(child, parent *Options) *Effective {
	return &Effective{child: child, parent: parent}
}

// Enabled reports whether the command is enabled. A command-level record
// always decides when present; with no configuration at either level the
// command is enabled.
func (e *Effective) Enabled() bool {
	if e.child != nil {
		return e.child.Enabled
	}
	return e.parent == nil || e.parent.Enabled
}

// InheritToggle reports whether the enabled flag came from the category
// level rather than the command level.
func (e *Effective) InheritToggle() bool {
	return e.child == nil
}

// Channels returns the effective channel deny set.
func (e *Effective) Channels() Set {
	return e.resolveSet(rawChannels)
}

// InheritChannels reports whether the channel deny set came from the
// category level.
func (e *Effective) InheritChannels() bool {
	return e.child == nil || e.child.DisabledChannels == nil
}

// Users returns the effective user deny set.
func (e *Effective) Users() Set {
	return e.resolveSet(rawUsers)
}

// InheritUsers reports whether the user deny set came from the category
// level.
func (e *Effective) InheritUsers() bool {
	return e.child == nil || e.child.DisabledUsers == nil
}

// Roles returns the effective role deny set.
func (e *Effective) Roles() Set {
	return e.resolveSet(rawRoles)
}

// InheritRoles reports whether the role deny set came from the category
// level.
func (e *Effective) InheritRoles() bool {
	return e.child == nil || e.child.DisabledRoles == nil
}

// ChannelDisabled reports whether the command is denied in the channel.
func (e *Effective) ChannelDisabled(channelID string) bool {
	return e.rawResolveSet(rawChannels).Has(channelID)
}

// UserDisabled reports whether the command is denied for the user.
func (e *Effective) UserDisabled(userID string) bool {
	return e.rawResolveSet(rawUsers).Has(userID)
}

// RoleDisabled reports whether any of the member's roles is denied.
func (e *Effective) RoleDisabled(roleIDs ...string) bool {
	return e.rawResolveSet(rawRoles).HasAny(roleIDs...)
}

func rawChannels(o *Options) Set { return o.DisabledChannels }
func rawUsers(o *Options) Set    { return o.DisabledUsers }
func rawRoles(o *Options) Set    { return o.DisabledRoles }

// rawResolveSet applies the per-field fallback: a non-nil command-level
// set wins even when empty, then the category set, then nothing.
func (e *Effective) rawResolveSet(raw func(*Options) Set) Set {
	if e.child != nil {
		if s := raw(e.child); s != nil {
			return s
		}
	}
	if e.parent != nil {
		if s := raw(e.parent); s != nil {
			return s
		}
	}
	return nil
}

func (e *Effective) resolveSet(raw func(*Options) Set) Set {
	if s := e.rawResolveSet(raw); s != nil {
		return s.Copy()
	}
	return Set{}
}
