package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"lendbook/internal/store"

	"github.com/stretchr/testify/require"
)

func TestRegisterUserRollsBackWhenEmailFails(t *testing.T) {
	users := &stubUsers{}
	app := newTestApp()
	app.store = store.Storage{Users: users}
	app.mailer = failingMailer{}

	body := `{"first_name":"Asha","last_name":"Rai","email":"asha@example.com","phone":"9801234567","password":"strongpass1"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/authentication/user", strings.NewReader(body))

	rr := httptest.NewRecorder()
	app.registerUserHandler(rr, req)

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	// The created row is gone, so the same email can register again.
	require.NotNil(t, users.created)
	require.Equal(t, []int64{users.created.ID}, users.deleted)
}
