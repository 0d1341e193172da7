package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"lendbook/internal/domain/accesscontrol"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func TestCreateRoleUnknownPermissionIsBadRequest(t *testing.T) {
	app := newTestApp()
	app.access = &stubAccess{
		createRoleErr: fmt.Errorf("%w: id=%d", accesscontrol.ErrPermissionNotFound, 99),
	}

	body := `{"name":"Collections","hierarchy_level":3,"permission_ids":[99]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/roles", strings.NewReader(body))
	req = req.WithContext(context.WithValue(req.Context(), viewCtx, ownerView()))

	rr := httptest.NewRecorder()
	app.createRoleHandler(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCreateRoleDuplicateNameIsConflict(t *testing.T) {
	app := newTestApp()
	app.access = &stubAccess{createRoleErr: accesscontrol.ErrDuplicateRole}

	body := `{"name":"Collections","hierarchy_level":3}`
	req := httptest.NewRequest(http.MethodPost, "/v1/roles", strings.NewReader(body))
	req = req.WithContext(context.WithValue(req.Context(), viewCtx, ownerView()))

	rr := httptest.NewRecorder()
	app.createRoleHandler(rr, req)

	require.Equal(t, http.StatusConflict, rr.Code)
}

func TestUpdateRolePermissionsUnknownPermissionIsBadRequest(t *testing.T) {
	app := newTestApp()
	app.access = &stubAccess{
		updatePermissionsErr: fmt.Errorf("%w: id=%d", accesscontrol.ErrPermissionNotFound, 12),
	}

	body := `{"permission_ids":[12]}`
	req := httptest.NewRequest(http.MethodPut, "/v1/roles/5/permissions", strings.NewReader(body))

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("roleID", "5")
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	ctx = context.WithValue(ctx, viewCtx, ownerView())
	req = req.WithContext(ctx)

	rr := httptest.NewRecorder()
	app.updateRolePermissionsHandler(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
}
