package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"lendbook/internal/domain/accesscontrol"
	"lendbook/internal/store"

	"github.com/stretchr/testify/require"
)

func TestInviteStaffRollsBackWhenEmailFails(t *testing.T) {
	users := &stubUsers{}
	access := &stubAccess{
		role: &accesscontrol.Role{ID: 3, Name: "Cashier", HierarchyLevel: 4},
	}

	app := newTestApp()
	app.store = store.Storage{Users: users}
	app.access = access
	app.mailer = failingMailer{}

	body := `{"first_name":"Bikash","last_name":"Shrestha","email":"bikash@example.com","phone":"9807654321","role_id":3}`
	req := httptest.NewRequest(http.MethodPost, "/v1/users/invite", strings.NewReader(body))

	ctx := context.WithValue(req.Context(), viewCtx, ownerView())
	ctx = context.WithValue(ctx, userCtx, &store.User{ID: 1})
	req = req.WithContext(ctx)

	rr := httptest.NewRecorder()
	app.inviteStaffHandler(rr, req)

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.Len(t, access.assignments, 1)
	// The account is removed so a retried invite does not collide on email.
	require.NotNil(t, users.created)
	require.Equal(t, []int64{users.created.ID}, users.deleted)
}
