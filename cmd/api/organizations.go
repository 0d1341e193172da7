package main

import (
	"errors"
	"fmt"
	"net/http"

	"lendbook/internal/domain/accesscontrol"
	"lendbook/internal/store"
	"lendbook/internal/tenant"
)

// listOrganizationsHandler godoc
//
//	@Summary		List accessible organizations
//	@Description	Returns every organization the user holds an active role in, with the role.
//	@Tags			organizations
//	@Produce		json
//	@Success		200	{array}	accesscontrol.Membership
//	@Failure		500	{object}	error
//	@Security		ApiKeyAuth
//	@Router			/organizations [get]
func (app *application) listOrganizationsHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	memberships, err := app.access.ListMemberships(r.Context(), user.ID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, memberships); err != nil {
		app.internalServerError(w, r, err)
	}
}

type CreateOrganizationPayload struct {
	Name string `json:"name" validate:"required,min=2,max=120"`
}

// createOrganizationHandler godoc
//
//	@Summary		Create an organization
//	@Description	Creates an organization owned by the caller and assigns them the Owner role.
//	@Tags			organizations
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		CreateOrganizationPayload	true	"Organization"
//	@Success		201		{object}	store.Organization
//	@Failure		400		{object}	error
//	@Failure		409		{object}	error
//	@Failure		500		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/organizations [post]
func (app *application) createOrganizationHandler(w http.ResponseWriter, r *http.Request) {
	var payload CreateOrganizationPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	user := getUserFromContext(r)
	ctx := r.Context()

	org := &store.Organization{
		Name:    payload.Name,
		OwnerID: user.ID,
	}
	if err := app.store.Organizations.Create(ctx, org); err != nil {
		switch err {
		case store.ErrConflict:
			app.conflictResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	ownerRole, err := app.findSystemRole(r, org.ID, "Owner")
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	err = app.access.AssignRole(ctx, &accesscontrol.UserRoleAssignment{
		UserID:         user.ID,
		RoleID:         ownerRole.ID,
		OrganizationID: org.ID,
		AssignedBy:     user.ID,
	})
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusCreated, org); err != nil {
		app.internalServerError(w, r, err)
	}
}

func (app *application) findSystemRole(r *http.Request, orgID int64, name string) (*accesscontrol.Role, error) {
	roles, err := app.access.ListRoles(r.Context(), orgID)
	if err != nil {
		return nil, err
	}
	for i := range roles {
		if roles[i].IsSystemRole && roles[i].Name == name {
			return &roles[i], nil
		}
	}
	return nil, fmt.Errorf("system role %q is not seeded", name)
}

type TenantContextResponse struct {
	State   string          `json:"state"`
	Context *tenant.Context `json:"context,omitempty"`
}

// currentOrganizationHandler godoc
//
//	@Summary		Resolve the active organization
//	@Description	Resolves the session's tenant context: a still-valid persisted selection wins, otherwise the first accessible organization.
//	@Tags			organizations
//	@Produce		json
//	@Success		200	{object}	TenantContextResponse
//	@Failure		404	{object}	error	"No accessible organizations"
//	@Failure		500	{object}	error
//	@Security		ApiKeyAuth
//	@Router			/organizations/current [get]
func (app *application) currentOrganizationHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	resolver := app.tenantResolver()
	tc, err := resolver.Resolve(r.Context(), user.ID)
	if err != nil {
		switch {
		case errors.Is(err, tenant.ErrNoOrganizations):
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	response := TenantContextResponse{
		State:   resolver.State().String(),
		Context: tc,
	}
	if err := app.jsonResponse(w, http.StatusOK, response); err != nil {
		app.internalServerError(w, r, err)
	}
}

type SwitchOrganizationPayload struct {
	OrganizationID int64 `json:"organization_id" validate:"required"`
}

// switchOrganizationHandler godoc
//
//	@Summary		Switch the active organization
//	@Description	Moves the session to another accessible organization. All cached data of the outgoing tenant is invalidated before the switch completes.
//	@Tags			organizations
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		SwitchOrganizationPayload	true	"Target organization"
//	@Success		200		{object}	TenantContextResponse
//	@Failure		400		{object}	error
//	@Failure		403		{object}	error	"Not a member of the target organization"
//	@Failure		500		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/organizations/switch [post]
func (app *application) switchOrganizationHandler(w http.ResponseWriter, r *http.Request) {
	var payload SwitchOrganizationPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	user := getUserFromContext(r)

	resolver := app.tenantResolver()
	tc, err := resolver.Switch(r.Context(), user.ID, payload.OrganizationID)
	if err != nil {
		switch {
		case errors.Is(err, tenant.ErrNotMember):
			app.forbiddenResponse(w, r)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	response := TenantContextResponse{
		State:   resolver.State().String(),
		Context: tc,
	}
	if err := app.jsonResponse(w, http.StatusOK, response); err != nil {
		app.internalServerError(w, r, err)
	}
}
