// Package perms implements per-command permission records and the
// category-fallback resolution used by the command dispatcher.
//
// A command and its category each carry an optional Options record. For
// every field the command-level record either overrides the category or
// inherits from it, tracked independently per field (a command can pin its
// own channel deny list while still inheriting the category's enabled
// flag). Resolution is pure; nothing in this package performs I/O.
package perms

import "encoding/json"

// Set is a collection of string identifiers (channel, user or role IDs).
// It serializes as a JSON object keyed by ID so persisted records stay
// mergeable key-by-key.
type Set map[string]struct{}

// NewSet builds a Set from the given IDs.
func NewSet(ids ...string) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports whether id is in the set. Safe on a nil Set.
func (s Set) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// HasAny reports whether any of the given IDs is in the set.
func (s Set) HasAny(ids ...string) bool {
	for _, id := range ids {
		if s.Has(id) {
			return true
		}
	}
	return false
}

// Add inserts id into the set.
func (s Set) Add(id string) {
	s[id] = struct{}{}
}

// Remove deletes id from the set if present.
func (s Set) Remove(id string) {
	delete(s, id)
}

// Copy returns an independent duplicate. A nil Set copies to nil,
// preserving the absent/empty distinction.
func (s Set) Copy() Set {
	if s == nil {
		return nil
	}
	c := make(Set, len(s))
	for id := range s {
		c[id] = struct{}{}
	}
	return c
}

// Options is the permission record for a single command or category: an
// enabled flag plus three deny sets. A nil deny set means the field was
// never configured at this level, which is distinct from an empty set
// (explicitly configured to deny nothing); the distinction drives
// inheritance in Resolve. The omitzero tags keep nil sets out of the
// persisted document so absence round-trips as an omitted field.
type Options struct {
	Enabled          bool `json:"enabled"`
	DisabledChannels Set  `json:"disabledChannels,omitzero"`
	DisabledUsers    Set  `json:"disabledUsers,omitzero"`
	DisabledRoles    Set  `json:"disabledRoles,omitzero"`
}

// NewOptions returns an enabled record with no deny sets configured.
func NewOptions() *Options {
	return &Options{Enabled: true}
}

// UnmarshalJSON decodes a record, defaulting the enabled flag to true when
// the field is missing from the document.
func (o *Options) UnmarshalJSON(b []byte) error {
	type plain Options
	p := plain{Enabled: true}
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*o = Options(p)
	return nil
}

// Channels returns the channel deny set, materializing it on first use.
// The raw field keeps nil until then, so resolution still sees "never
// configured" for records that were only read.
func (o *Options) Channels() Set {
	if o.DisabledChannels == nil {
		o.DisabledChannels = Set{}
	}
	return o.DisabledChannels
}

// Users returns the user deny set, materializing it on first use.
func (o *Options) Users() Set {
	if o.DisabledUsers == nil {
		o.DisabledUsers = Set{}
	}
	return o.DisabledUsers
}

// Roles returns the role deny set, materializing it on first use.
func (o *Options) Roles() Set {
	if o.DisabledRoles == nil {
		o.DisabledRoles = Set{}
	}
	return o.DisabledRoles
}

// Copy returns a deep, independent duplicate of the record.
func (o *Options) Copy() *Options {
	if o == nil {
		return nil
	}
	return &Options{
		Enabled:          o.Enabled,
		DisabledChannels: o.DisabledChannels.Copy(),
		DisabledUsers:    o.DisabledUsers.Copy(),
		DisabledRoles:    o.DisabledRoles.Copy(),
	}
}
