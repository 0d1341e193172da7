package main

import (
	"net/http"

	"lendbook/internal/domain/accesscontrol"
)

// listPermissionsHandler godoc
//
//	@Summary		List the permission catalog
//	@Description	Returns every permission grouped by category. The catalog is fixed at install time; tenants cannot add to it.
//	@Tags			roles
//	@Produce		json
//	@Success		200	{object}	map[string][]accesscontrol.Permission
//	@Failure		500	{object}	error
//	@Security		ApiKeyAuth
//	@Router			/permissions [get]
func (app *application) listPermissionsHandler(w http.ResponseWriter, r *http.Request) {
	perms, err := app.access.ListPermissions(r.Context())
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	grouped := make(map[string][]accesscontrol.Permission)
	for _, p := range perms {
		grouped[p.Category] = append(grouped[p.Category], p)
	}

	if err := app.jsonResponse(w, http.StatusOK, grouped); err != nil {
		app.internalServerError(w, r, err)
	}
}
