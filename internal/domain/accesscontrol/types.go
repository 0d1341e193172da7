package accesscontrol

import "time"

// Permission is an immutable catalog entry, seeded once at install time and
// never mutated by tenants.
type Permission struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"` // "resource:action"
	Category    string `json:"category"`
	Resource    string `json:"resource"`
	Action      string `json:"action"`
	Description string `json:"description,omitempty"`
}

// Role is owned by one organization, except system roles which are shared
// read-only templates (OrganizationID is nil for those). A numerically lower
// HierarchyLevel means higher authority.
type Role struct {
	ID             int64        `json:"id"`
	OrganizationID *int64       `json:"organization_id,omitempty"`
	Name           string       `json:"name"`
	Description    string       `json:"description,omitempty"`
	HierarchyLevel int          `json:"hierarchy_level"`
	IsSystemRole   bool         `json:"is_system_role"`
	IsSuperAdmin   bool         `json:"is_super_admin"`
	Permissions    []Permission `json:"permissions,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// UserRoleAssignment binds one active role to a user within one organization.
// At most one row per (user, organization) is active at a time.
type UserRoleAssignment struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	RoleID         int64     `json:"role_id"`
	OrganizationID int64     `json:"organization_id"`
	AssignedBy     int64     `json:"assigned_by"`
	AssignedAt     time.Time `json:"assigned_at"`
	IsActive       bool      `json:"is_active"`
}

// Membership is one row of "which organizations can this user see, and as
// what". It is the shape GET /organizations returns.
type Membership struct {
	OrganizationID   int64  `json:"organization_id"`
	OrganizationName string `json:"organization_name"`
	RoleID           int64  `json:"role_id"`
	RoleName         string `json:"role_name"`
	HierarchyLevel   int    `json:"hierarchy_level"`
}
