package auth

import "testing"

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
	}{
		{"super-admin", RoleSuperAdmin},
		{"Super Admin", RoleSuperAdmin},
		{"super_admin", RoleSuperAdmin},
		{"superadmin", RoleSuperAdmin},
		{"secretary", RoleSecretary},
		{" Secretary ", RoleSecretary},
		{"assistant-secretary", RoleAssistantSecretary},
		{"Assistant Secretary", RoleAssistantSecretary},
		{"treasurer", RoleTreasurer},
		{"member", RoleMember},
		{"", RoleUnknown},
		{"janitor", RoleUnknown},
	}
	for _, tt := range tests {
		if got := ParseRole(tt.in); got != tt.want {
			t.Errorf("ParseRole(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseRoleRoundTrip(t *testing.T) {
	for _, r := range []Role{RoleMember, RoleTreasurer, RoleAssistantSecretary, RoleSecretary, RoleSuperAdmin} {
		if got := ParseRole(r.String()); got != r {
			t.Errorf("ParseRole(%q) = %v, want %v", r.String(), got, r)
		}
	}
}

func TestCan(t *testing.T) {
	roles := []Role{RoleUnknown, RoleMember, RoleTreasurer, RoleAssistantSecretary, RoleSecretary, RoleSuperAdmin}
	actions := []Action{ActionViewProfile, ActionSubmitRefund, ActionRegisterMember, ActionEditMember, ActionDeleteMember}

	want := map[Role]map[Action]bool{
		RoleUnknown: {
			ActionViewProfile: true, ActionSubmitRefund: true,
		},
		RoleMember: {
			ActionViewProfile: true, ActionSubmitRefund: true,
		},
		RoleTreasurer: {
			ActionViewProfile: true, ActionSubmitRefund: true,
		},
		RoleAssistantSecretary: {
			ActionViewProfile: true, ActionSubmitRefund: true,
			ActionRegisterMember: true, ActionEditMember: true,
		},
		RoleSecretary: {
			ActionViewProfile: true, ActionSubmitRefund: true,
			ActionRegisterMember: true, ActionEditMember: true,
		},
		RoleSuperAdmin: {
			ActionViewProfile: true, ActionSubmitRefund: true,
			ActionDeleteMember: true,
		},
	}

	for _, r := range roles {
		for _, a := range actions {
			if got := Can(r, a); got != want[r][a] {
				t.Errorf("Can(%v, %v) = %v, want %v", r, a, got, want[r][a])
			}
		}
	}
}

func TestOnlySuperAdminDeletes(t *testing.T) {
	for _, r := range []Role{RoleUnknown, RoleMember, RoleTreasurer, RoleAssistantSecretary, RoleSecretary} {
		if Can(r, ActionDeleteMember) {
			t.Errorf("%v must not delete", r)
		}
	}
}
