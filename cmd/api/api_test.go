package main

import (
	"context"
	"errors"
	"time"

	"lendbook/internal/authz"
	"lendbook/internal/domain/accesscontrol"
	"lendbook/internal/store"

	"go.uber.org/zap"
)

func newTestApp() *application {
	return &application{
		logger: zap.NewNop().Sugar(),
	}
}

func ownerView() *authz.PermissionsView {
	return &authz.PermissionsView{
		UserID:         1,
		OrganizationID: 1,
		RoleID:         1,
		RoleName:       "Owner",
		HierarchyLevel: 1,
		Permissions:    map[string]bool{},
		IsSuperAdmin:   true,
	}
}

// stubAccess overrides only the methods a test exercises; anything else
// panics through the embedded nil interface.
type stubAccess struct {
	accesscontrol.Store

	role                 *accesscontrol.Role
	createRoleErr        error
	updatePermissionsErr error
	assignments          []accesscontrol.UserRoleAssignment
}

func (s *stubAccess) CreateRole(ctx context.Context, role *accesscontrol.Role, permissionIDs []int64) error {
	return s.createRoleErr
}

func (s *stubAccess) UpdateRolePermissions(ctx context.Context, orgID, roleID int64, permissionIDs []int64) (*accesscontrol.Role, error) {
	return nil, s.updatePermissionsErr
}

func (s *stubAccess) GetRole(ctx context.Context, orgID, roleID int64) (*accesscontrol.Role, error) {
	if s.role == nil {
		return nil, accesscontrol.ErrRoleNotFound
	}
	return s.role, nil
}

func (s *stubAccess) AssignRole(ctx context.Context, a *accesscontrol.UserRoleAssignment) error {
	s.assignments = append(s.assignments, *a)
	return nil
}

type stubUsers struct {
	created *store.User
	deleted []int64
}

func (s *stubUsers) GetByID(context.Context, int64) (*store.User, error) {
	return nil, store.ErrNotFound
}

func (s *stubUsers) GetByEmail(context.Context, string) (*store.User, error) {
	return nil, store.ErrNotFound
}

func (s *stubUsers) CreateAndInvite(_ context.Context, user *store.User, _ string, _ time.Duration) error {
	user.ID = 101
	s.created = user
	return nil
}

func (s *stubUsers) Activate(context.Context, string) error { return nil }

func (s *stubUsers) UpdateRefreshToken(context.Context, int64, string) error { return nil }

func (s *stubUsers) ClearRefreshToken(context.Context, int64) error { return nil }

func (s *stubUsers) ListByOrganization(context.Context, int64) ([]store.StaffMember, error) {
	return nil, nil
}

func (s *stubUsers) Delete(_ context.Context, userID int64) error {
	s.deleted = append(s.deleted, userID)
	return nil
}

type failingMailer struct{}

func (failingMailer) Send(templateFile, username, email string, data any) (int, error) {
	return 0, errors.New("smtp unreachable")
}
