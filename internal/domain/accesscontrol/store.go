package accesscontrol

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lendbook/internal/authz"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrRoleNotFound       = errors.New("role not found")
	ErrPermissionNotFound = errors.New("permission not found")
	ErrDuplicateRole      = errors.New("a role with that name already exists in this organization")
	ErrInvalidHierarchy   = errors.New("hierarchy level must be positive")
	ErrRoleInUse          = errors.New("role has active assignments and cannot be deleted")
	ErrSystemRole         = errors.New("system roles cannot be modified")
	ErrNoAssignment       = errors.New("user has no active role in this organization")
)

const queryTimeout = 5 * time.Second

type Store interface {
	ListPermissions(ctx context.Context) ([]Permission, error)
	ListPermissionNames(ctx context.Context) ([]string, error)
	ListRoles(ctx context.Context, orgID int64) ([]Role, error)
	GetRole(ctx context.Context, orgID, roleID int64) (*Role, error)
	CreateRole(ctx context.Context, role *Role, permissionIDs []int64) error
	UpdateRolePermissions(ctx context.Context, orgID, roleID int64, permissionIDs []int64) (*Role, error)
	DeleteRole(ctx context.Context, orgID, roleID int64) error
	AssignRole(ctx context.Context, a *UserRoleAssignment) error
	RemoveRole(ctx context.Context, userID, orgID int64) error
	GetActiveAssignment(ctx context.Context, userID, orgID int64) (*UserRoleAssignment, error)
	GetPermissionsView(ctx context.Context, userID, orgID int64) (*authz.PermissionsView, error)
	ListMemberships(ctx context.Context, userID int64) ([]Membership, error)
	ListAssignedUserIDs(ctx context.Context, roleID int64) ([]int64, error)
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Store {
	return &Repository{db: db}
}

func (r *Repository) ListPermissions(ctx context.Context) ([]Permission, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
        SELECT id, name, category, resource, action, COALESCE(description, '')
        FROM permissions
        ORDER BY category, resource, action
    `
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.Resource, &p.Action, &p.Description); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

func (r *Repository) ListPermissionNames(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := r.db.Query(ctx, `SELECT name FROM permissions`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// ListRoles returns the organization's own roles plus the shared system
// templates.
func (r *Repository) ListRoles(ctx context.Context, orgID int64) ([]Role, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
        SELECT id, organization_id, name, COALESCE(description, ''),
               hierarchy_level, is_system_role, is_super_admin, created_at, updated_at
        FROM roles
        WHERE organization_id = $1 OR is_system_role = TRUE
        ORDER BY hierarchy_level, name
    `
	rows, err := r.db.Query(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(
			&role.ID, &role.OrganizationID, &role.Name, &role.Description,
			&role.HierarchyLevel, &role.IsSystemRole, &role.IsSuperAdmin,
			&role.CreatedAt, &role.UpdatedAt,
		); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (r *Repository) GetRole(ctx context.Context, orgID, roleID int64) (*Role, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
        SELECT id, organization_id, name, COALESCE(description, ''),
               hierarchy_level, is_system_role, is_super_admin, created_at, updated_at
        FROM roles
        WHERE id = $1 AND (organization_id = $2 OR is_system_role = TRUE)
    `
	var role Role
	err := r.db.QueryRow(ctx, query, roleID, orgID).Scan(
		&role.ID, &role.OrganizationID, &role.Name, &role.Description,
		&role.HierarchyLevel, &role.IsSystemRole, &role.IsSuperAdmin,
		&role.CreatedAt, &role.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRoleNotFound
		}
		return nil, err
	}

	perms, err := r.rolePermissions(ctx, role.ID)
	if err != nil {
		return nil, err
	}
	role.Permissions = perms
	return &role, nil
}

func (r *Repository) rolePermissions(ctx context.Context, roleID int64) ([]Permission, error) {
	query := `
        SELECT p.id, p.name, p.category, p.resource, p.action, COALESCE(p.description, '')
        FROM permissions p
        JOIN role_permissions rp ON rp.permission_id = p.id
        WHERE rp.role_id = $1
        ORDER BY p.category, p.resource, p.action
    `
	rows, err := r.db.Query(ctx, query, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.Resource, &p.Action, &p.Description); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

func (r *Repository) CreateRole(ctx context.Context, role *Role, permissionIDs []int64) error {
	if role.HierarchyLevel <= 0 {
		return ErrInvalidHierarchy
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
        INSERT INTO roles (organization_id, name, description, hierarchy_level)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at, updated_at
    `
	err = tx.QueryRow(ctx, query,
		role.OrganizationID, role.Name, role.Description, role.HierarchyLevel,
	).Scan(&role.ID, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateRole
		}
		return err
	}

	if err := replacePermissions(ctx, tx, role.ID, permissionIDs); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// UpdateRolePermissions replaces the role's full permission set atomically.
func (r *Repository) UpdateRolePermissions(ctx context.Context, orgID, roleID int64, permissionIDs []int64) (*Role, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var isSystem bool
	err = tx.QueryRow(ctx,
		`SELECT is_system_role FROM roles WHERE id = $1 AND (organization_id = $2 OR is_system_role = TRUE)`,
		roleID, orgID,
	).Scan(&isSystem)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRoleNotFound
		}
		return nil, err
	}
	if isSystem {
		return nil, ErrSystemRole
	}

	if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, roleID); err != nil {
		return nil, err
	}
	if err := replacePermissions(ctx, tx, roleID, permissionIDs); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `UPDATE roles SET updated_at = NOW() WHERE id = $1`, roleID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return r.GetRole(ctx, orgID, roleID)
}

func replacePermissions(ctx context.Context, tx pgx.Tx, roleID int64, permissionIDs []int64) error {
	for _, pid := range permissionIDs {
		tag, err := tx.Exec(ctx, `
            INSERT INTO role_permissions (role_id, permission_id)
            SELECT $1, id FROM permissions WHERE id = $2
        `, roleID, pid)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: id=%d", ErrPermissionNotFound, pid)
		}
	}
	return nil
}

// DeleteRole refuses to remove a role that any active assignment still
// references; the role and the assignments are left unchanged.
func (r *Repository) DeleteRole(ctx context.Context, orgID, roleID int64) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var isSystem bool
	err = tx.QueryRow(ctx,
		`SELECT is_system_role FROM roles WHERE id = $1 AND organization_id = $2`,
		roleID, orgID,
	).Scan(&isSystem)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrRoleNotFound
		}
		return err
	}
	if isSystem {
		return ErrSystemRole
	}

	var inUse bool
	err = tx.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM user_role_assignments
            WHERE role_id = $1 AND is_active = TRUE
        )
    `, roleID).Scan(&inUse)
	if err != nil {
		return err
	}
	if inUse {
		return ErrRoleInUse
	}

	if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, roleID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM roles WHERE id = $1`, roleID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// AssignRole deactivates any prior active assignment for (user, organization)
// and inserts the new one in the same transaction, so exactly one assignment
// is active per pair even under concurrent writers. The schema backs this
// with a partial unique index.
func (r *Repository) AssignRole(ctx context.Context, a *UserRoleAssignment) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var exists bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM roles WHERE id = $1 AND (organization_id = $2 OR is_system_role = TRUE))`,
		a.RoleID, a.OrganizationID,
	).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return ErrRoleNotFound
	}

	_, err = tx.Exec(ctx, `
        UPDATE user_role_assignments
        SET is_active = FALSE
        WHERE user_id = $1 AND organization_id = $2 AND is_active = TRUE
    `, a.UserID, a.OrganizationID)
	if err != nil {
		return err
	}

	err = tx.QueryRow(ctx, `
        INSERT INTO user_role_assignments (user_id, role_id, organization_id, assigned_by)
        VALUES ($1, $2, $3, $4)
        RETURNING id, assigned_at
    `, a.UserID, a.RoleID, a.OrganizationID, a.AssignedBy).Scan(&a.ID, &a.AssignedAt)
	if err != nil {
		return err
	}
	a.IsActive = true

	return tx.Commit(ctx)
}

func (r *Repository) RemoveRole(ctx context.Context, userID, orgID int64) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
        UPDATE user_role_assignments
        SET is_active = FALSE
        WHERE user_id = $1 AND organization_id = $2 AND is_active = TRUE
    `, userID, orgID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoAssignment
	}
	return nil
}

func (r *Repository) GetActiveAssignment(ctx context.Context, userID, orgID int64) (*UserRoleAssignment, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	// Newest first guards against pre-index data with more than one active
	// row.
	query := `
        SELECT id, user_id, role_id, organization_id, assigned_by, assigned_at, is_active
        FROM user_role_assignments
        WHERE user_id = $1 AND organization_id = $2 AND is_active = TRUE
        ORDER BY assigned_at DESC
        LIMIT 1
    `
	var a UserRoleAssignment
	err := r.db.QueryRow(ctx, query, userID, orgID).Scan(
		&a.ID, &a.UserID, &a.RoleID, &a.OrganizationID, &a.AssignedBy, &a.AssignedAt, &a.IsActive,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoAssignment
		}
		return nil, err
	}
	return &a, nil
}

// GetPermissionsView projects (assignment, role, permissions) into the flat
// view the authorization checks consume. It is recomputed per call; the
// caller may cache it.
func (r *Repository) GetPermissionsView(ctx context.Context, userID, orgID int64) (*authz.PermissionsView, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
        SELECT r.id, r.name, r.hierarchy_level, r.is_super_admin
        FROM user_role_assignments ura
        JOIN roles r ON r.id = ura.role_id
        WHERE ura.user_id = $1 AND ura.organization_id = $2 AND ura.is_active = TRUE
        ORDER BY ura.assigned_at DESC
        LIMIT 1
    `
	view := &authz.PermissionsView{
		UserID:         userID,
		OrganizationID: orgID,
		Permissions:    map[string]bool{},
	}
	err := r.db.QueryRow(ctx, query, userID, orgID).Scan(
		&view.RoleID, &view.RoleName, &view.HierarchyLevel, &view.IsSuperAdmin,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoAssignment
		}
		return nil, err
	}

	rows, err := r.db.Query(ctx, `
        SELECT p.name
        FROM permissions p
        JOIN role_permissions rp ON rp.permission_id = p.id
        WHERE rp.role_id = $1
    `, view.RoleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		view.Permissions[name] = true
	}
	return view, rows.Err()
}

func (r *Repository) ListMemberships(ctx context.Context, userID int64) ([]Membership, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
        SELECT o.id, o.name, r.id, r.name, r.hierarchy_level
        FROM user_role_assignments ura
        JOIN organizations o ON o.id = ura.organization_id
        JOIN roles r ON r.id = ura.role_id
        WHERE ura.user_id = $1 AND ura.is_active = TRUE
        ORDER BY o.name
    `
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var memberships []Membership
	for rows.Next() {
		var m Membership
		if err := rows.Scan(
			&m.OrganizationID, &m.OrganizationName, &m.RoleID, &m.RoleName, &m.HierarchyLevel,
		); err != nil {
			return nil, err
		}
		memberships = append(memberships, m)
	}
	return memberships, rows.Err()
}

// ListAssignedUserIDs returns users whose active assignment references the
// role, used to invalidate exactly their cached permission views after a
// role-permission update.
func (r *Repository) ListAssignedUserIDs(ctx context.Context, roleID int64) ([]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := r.db.Query(ctx, `
        SELECT user_id FROM user_role_assignments
        WHERE role_id = $1 AND is_active = TRUE
    `, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
