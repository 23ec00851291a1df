package perms

import "testing"

func TestResolve_Enabled(t *testing.T) {
	disabled := &Options{Enabled: false}
	enabled := &Options{Enabled: true}

	tests := []struct {
		name          string
		child, parent *Options
		want          bool
		wantInherit   bool
	}{
		{name: "no_configuration_defaults_enabled", child: nil, parent: nil, want: true, wantInherit: true},
		{name: "child_disabled_wins_over_parent", child: disabled, parent: enabled, want: false, wantInherit: false},
		{name: "child_enabled_wins_over_parent", child: enabled, parent: disabled, want: true, wantInherit: false},
		{name: "parent_applies_without_child", child: nil, parent: disabled, want: false, wantInherit: true},
		{name: "enabled_parent_without_child", child: nil, parent: enabled, want: true, wantInherit: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Resolve(tt.child, tt.parent)
			if got := e.Enabled(); got != tt.want {
				t.Errorf("Enabled() = %v, want %v", got, tt.want)
			}
			if got := e.InheritToggle(); got != tt.wantInherit {
				t.Errorf("InheritToggle() = %v, want %v", got, tt.wantInherit)
			}
		})
	}
}

func TestResolve_ChannelsFallback(t *testing.T) {
	parent := &Options{Enabled: true, DisabledChannels: NewSet("A", "B")}

	tests := []struct {
		name        string
		child       *Options
		parent      *Options
		want        []string
		wantAbsent  []string
		wantInherit bool
	}{
		{
			name:        "absent_child_set_inherits_parent",
			child:       &Options{Enabled: true},
			parent:      parent,
			want:        []string{"A", "B"},
			wantInherit: true,
		},
		{
			name:        "explicit_empty_child_set_wins",
			child:       &Options{Enabled: true, DisabledChannels: Set{}},
			parent:      parent,
			wantAbsent:  []string{"A", "B"},
			wantInherit: false,
		},
		{
			name:        "child_set_overrides_parent",
			child:       &Options{Enabled: true, DisabledChannels: NewSet("C")},
			parent:      parent,
			want:        []string{"C"},
			wantAbsent:  []string{"A"},
			wantInherit: false,
		},
		{
			name:        "nil_child_inherits_parent",
			child:       nil,
			parent:      parent,
			want:        []string{"A", "B"},
			wantInherit: true,
		},
		{
			name:        "nothing_configured_denies_nothing",
			child:       nil,
			parent:      nil,
			wantAbsent:  []string{"A"},
			wantInherit: true,
		},
		{
			name:        "parent_with_unconfigured_set_denies_nothing",
			child:       nil,
			parent:      &Options{Enabled: true},
			wantAbsent:  []string{"A"},
			wantInherit: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Resolve(tt.child, tt.parent)
			got := e.Channels()
			if len(got) != len(tt.want) {
				t.Errorf("Channels() has %d entries, want %d", len(got), len(tt.want))
			}
			for _, id := range tt.want {
				if !e.ChannelDisabled(id) {
					t.Errorf("ChannelDisabled(%q) = false, want true", id)
				}
			}
			for _, id := range tt.wantAbsent {
				if e.ChannelDisabled(id) {
					t.Errorf("ChannelDisabled(%q) = true, want false", id)
				}
			}
			if got := e.InheritChannels(); got != tt.wantInherit {
				t.Errorf("InheritChannels() = %v, want %v", got, tt.wantInherit)
			}
		})
	}
}

func TestResolve_FieldsResolveIndependently(t *testing.T) {
	// A command overrides only its channel list; everything else still
	// falls back to the category.
	child := &Options{Enabled: true, DisabledChannels: NewSet("C")}
	parent := &Options{
		Enabled:          false,
		DisabledChannels: NewSet("A"),
		DisabledUsers:    NewSet("U"),
		DisabledRoles:    NewSet("R"),
	}

	e := Resolve(child, parent)

	if e.InheritChannels() {
		t.Error("InheritChannels() = true, want false")
	}
	if !e.ChannelDisabled("C") || e.ChannelDisabled("A") {
		t.Error("channel set should come from the child")
	}
	if !e.InheritUsers() || !e.UserDisabled("U") {
		t.Error("user set should fall back to the parent")
	}
	if !e.InheritRoles() || !e.RoleDisabled("R") {
		t.Error("role set should fall back to the parent")
	}
	// The child exists, so the toggle is the child's even though only the
	// channel list was configured.
	if e.InheritToggle() || !e.Enabled() {
		t.Error("enabled flag should come from the child")
	}
}

func TestResolve_RoleDisabledAnyOf(t *testing.T) {
	parent := &Options{Enabled: true, DisabledRoles: NewSet("mod")}
	e := Resolve(nil, parent)

	if !e.RoleDisabled("member", "mod") {
		t.Error("RoleDisabled should match any held role")
	}
	if e.RoleDisabled("member", "dj") {
		t.Error("RoleDisabled matched roles not in the deny set")
	}
	if e.RoleDisabled() {
		t.Error("RoleDisabled with no roles should be false")
	}
}

func TestResolve_ResultIsDetachedFromSources(t *testing.T) {
	child := &Options{Enabled: true, DisabledChannels: NewSet("A")}
	e := Resolve(child, nil)

	// Writing to the resolved view must not reach the source record.
	e.Channels().Add("B")
	if child.DisabledChannels.Has("B") {
		t.Error("mutating the resolved set leaked into the child record")
	}

	// And later source edits must not be visible through an already
	//-returned set.
	got := e.Channels()
	child.DisabledChannels.Add("C")
	if got.Has("C") {
		t.Error("source edit leaked into a previously resolved set")
	}
}
