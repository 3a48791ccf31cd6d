package auth

import "strings"

// Role is the closed set of console roles known to the backend.
type Role int

const (
	RoleUnknown Role = iota
	RoleMember
	RoleTreasurer
	RoleAssistantSecretary
	RoleSecretary
	RoleSuperAdmin
)

func (r Role) String() string {
	switch r {
	case RoleMember:
		return "member"
	case RoleTreasurer:
		return "treasurer"
	case RoleAssistantSecretary:
		return "assistant-secretary"
	case RoleSecretary:
		return "secretary"
	case RoleSuperAdmin:
		return "super-admin"
	default:
		return "unknown"
	}
}

// ParseRole normalizes the role string the backend returns. Case, spaces,
// underscores and hyphens are ignored, so "Super Admin", "super_admin" and
// "superadmin" all map to RoleSuperAdmin.
func ParseRole(s string) Role {
	key := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '_', '.':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(s)))

	switch key {
	case "superadmin":
		return RoleSuperAdmin
	case "secretary":
		return RoleSecretary
	case "assistantsecretary", "asstsecretary":
		return RoleAssistantSecretary
	case "treasurer":
		return RoleTreasurer
	case "member", "user":
		return RoleMember
	default:
		return RoleUnknown
	}
}

// Action is a gated operation of the member console.
type Action int

const (
	ActionViewProfile Action = iota
	ActionSubmitRefund
	ActionRegisterMember
	ActionEditMember
	ActionDeleteMember
)

func (a Action) String() string {
	switch a {
	case ActionViewProfile:
		return "view-profile"
	case ActionSubmitRefund:
		return "submit-refund"
	case ActionRegisterMember:
		return "register-member"
	case ActionEditMember:
		return "edit-member"
	case ActionDeleteMember:
		return "delete-member"
	default:
		return "unknown"
	}
}

// SecretaryTier reports whether r is secretary or assistant secretary.
func SecretaryTier(r Role) bool {
	switch r {
	case RoleSecretary, RoleAssistantSecretary:
		return true
	case RoleSuperAdmin, RoleTreasurer, RoleMember, RoleUnknown:
		return false
	}
	return false
}

// Can is the single capability check used by handlers and templates.
// Viewing and refunds are open to every signed-in role, including roles the
// console does not recognise. Edit and register belong to the secretary tier
// only; delete belongs to super admin only.
func Can(r Role, a Action) bool {
	switch a {
	case ActionViewProfile, ActionSubmitRefund:
		return true
	case ActionRegisterMember, ActionEditMember:
		return SecretaryTier(r)
	case ActionDeleteMember:
		return r == RoleSuperAdmin
	}
	return false
}
