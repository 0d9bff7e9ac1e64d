package domain

import "time"

// Role is the portal-wide role of a user.
type Role string

const (
	RoleAdmin        Role = "Admin"
	RoleMember       Role = "Member"
	RoleParishPriest Role = "ParishPriest"
	RoleAccountant   Role = "Accountant"
	RoleCouncil      Role = "Council"
)

// GroupLeaderRoleName is the group-scoped role name that grants leader
// privileges within that group.
const GroupLeaderRoleName = "Trưởng nhóm"

// GroupRole binds a user to a role within one group.
type GroupRole struct {
	GroupID  string `json:"groupId"`
	RoleName string `json:"roleName"`
}

// User represents a portal user.
type User struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Email      string      `json:"email"`
	Role       Role        `json:"role"`
	GroupRoles []GroupRole `json:"listGroupRole"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// Actor is the acting user passed explicitly to every service operation.
// It carries everything permission checks need so services never consult
// ambient session state.
type Actor struct {
	UserID     string
	Name       string
	Role       Role
	GroupRoles []GroupRole
}

// IsCouncil reports whether the actor may decide requests.
func (a Actor) IsCouncil() bool {
	return a.Role == RoleCouncil || a.Role == RoleAdmin
}

// IsGroupLeader reports whether the actor leads the given group.
func (a Actor) IsGroupLeader(groupID string) bool {
	for _, gr := range a.GroupRoles {
		if gr.GroupID == groupID && gr.RoleName == GroupLeaderRoleName {
			return true
		}
	}
	return false
}

// BoardRoleFor resolves the actor's board role within a group.
func (a Actor) BoardRoleFor(groupID string) BoardRole {
	if a.IsGroupLeader(groupID) {
		return BoardRoleLeader
	}
	return BoardRoleMember
}

// AuthClaims represents the validated bearer-token claims.
type AuthClaims struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Iat   int64  `json:"iat"`
	Exp   int64  `json:"exp"`
}

// GroupMember is one roster entry used when assigning tasks.
type GroupMember struct {
	UserID   string `json:"user_id"`
	Name     string `json:"name"`
	RoleName string `json:"role_name"`
}
