package main

import (
	"errors"
	"net/http"
	"strconv"

	"lendbook/internal/domain/accesscontrol"

	"github.com/go-chi/chi/v5"
)

// listRolesHandler godoc
//
//	@Summary		List roles
//	@Description	Returns the organization's roles plus the shared system templates, ordered by hierarchy level.
//	@Tags			roles
//	@Produce		json
//	@Success		200	{array}	accesscontrol.Role
//	@Failure		500	{object}	error
//	@Security		ApiKeyAuth
//	@Router			/roles [get]
func (app *application) listRolesHandler(w http.ResponseWriter, r *http.Request) {
	view := getViewFromContext(r)

	roles, err := app.access.ListRoles(r.Context(), view.OrganizationID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, roles); err != nil {
		app.internalServerError(w, r, err)
	}
}

// getRoleHandler godoc
//
//	@Summary		Get one role
//	@Description	Returns the role with its granted permissions.
//	@Tags			roles
//	@Produce		json
//	@Param			roleID	path		int	true	"Role ID"
//	@Success		200		{object}	accesscontrol.Role
//	@Failure		404		{object}	error
//	@Failure		500		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/roles/{roleID} [get]
func (app *application) getRoleHandler(w http.ResponseWriter, r *http.Request) {
	view := getViewFromContext(r)

	roleID, err := strconv.ParseInt(chi.URLParam(r, "roleID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	role, err := app.access.GetRole(r.Context(), view.OrganizationID, roleID)
	if err != nil {
		switch err {
		case accesscontrol.ErrRoleNotFound:
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, role); err != nil {
		app.internalServerError(w, r, err)
	}
}

type CreateRolePayload struct {
	Name           string  `json:"name" validate:"required,min=2,max=60"`
	Description    string  `json:"description" validate:"max=255"`
	HierarchyLevel int     `json:"hierarchy_level" validate:"required,min=1"`
	PermissionIDs  []int64 `json:"permission_ids"`
}

// createRoleHandler godoc
//
//	@Summary		Create a custom role
//	@Description	Creates an organization-owned role with an initial permission set. The role cannot carry more authority than the caller's own.
//	@Tags			roles
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		CreateRolePayload	true	"Role definition"
//	@Success		201		{object}	accesscontrol.Role
//	@Failure		400		{object}	error
//	@Failure		403		{object}	error
//	@Failure		409		{object}	error	"Duplicate role name"
//	@Failure		500		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/roles [post]
func (app *application) createRoleHandler(w http.ResponseWriter, r *http.Request) {
	var payload CreateRolePayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	view := getViewFromContext(r)

	// A role editor cannot mint authority above or equal to their own.
	if !view.IsSuperAdmin && payload.HierarchyLevel <= view.HierarchyLevel {
		app.forbiddenResponse(w, r)
		return
	}

	orgID := view.OrganizationID
	role := &accesscontrol.Role{
		OrganizationID: &orgID,
		Name:           payload.Name,
		Description:    payload.Description,
		HierarchyLevel: payload.HierarchyLevel,
	}

	err := app.access.CreateRole(r.Context(), role, payload.PermissionIDs)
	if err != nil {
		// The store wraps ErrPermissionNotFound with the offending id, so
		// match with errors.Is rather than equality.
		switch {
		case errors.Is(err, accesscontrol.ErrInvalidHierarchy):
			app.badRequestResponse(w, r, err)
		case errors.Is(err, accesscontrol.ErrDuplicateRole):
			app.conflictResponse(w, r, err)
		case errors.Is(err, accesscontrol.ErrPermissionNotFound):
			app.badRequestResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if err := app.jsonResponse(w, http.StatusCreated, role); err != nil {
		app.internalServerError(w, r, err)
	}
}

type UpdateRolePermissionsPayload struct {
	PermissionIDs []int64 `json:"permission_ids" validate:"required"`
}

// updateRolePermissionsHandler godoc
//
//	@Summary		Replace a role's permissions
//	@Description	Atomically replaces the role's permission set. Cached permission views of everyone holding the role are invalidated so the change is visible on the next request.
//	@Tags			roles
//	@Accept			json
//	@Produce		json
//	@Param			roleID	path		int								true	"Role ID"
//	@Param			payload	body		UpdateRolePermissionsPayload	true	"New permission set"
//	@Success		200		{object}	accesscontrol.Role
//	@Failure		400		{object}	error
//	@Failure		403		{object}	error	"System roles cannot be modified"
//	@Failure		404		{object}	error
//	@Failure		500		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/roles/{roleID}/permissions [put]
func (app *application) updateRolePermissionsHandler(w http.ResponseWriter, r *http.Request) {
	var payload UpdateRolePermissionsPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	view := getViewFromContext(r)

	roleID, err := strconv.ParseInt(chi.URLParam(r, "roleID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	ctx := r.Context()

	role, err := app.access.UpdateRolePermissions(ctx, view.OrganizationID, roleID, payload.PermissionIDs)
	if err != nil {
		switch {
		case errors.Is(err, accesscontrol.ErrRoleNotFound):
			app.notFoundResponse(w, r, err)
		case errors.Is(err, accesscontrol.ErrSystemRole):
			app.forbiddenResponse(w, r)
		case errors.Is(err, accesscontrol.ErrPermissionNotFound):
			app.badRequestResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	// Everyone holding this role sees the new permission set on their next
	// request, not after a TTL expiry.
	userIDs, err := app.access.ListAssignedUserIDs(ctx, roleID)
	if err != nil {
		app.logger.Warnw("listing role holders for cache invalidation failed", "role_id", roleID, "error", err)
	} else if err := app.permissions.InvalidateUsers(ctx, view.OrganizationID, userIDs); err != nil {
		app.logger.Warnw("permissions cache invalidation failed", "role_id", roleID, "error", err)
	}

	if err := app.jsonResponse(w, http.StatusOK, role); err != nil {
		app.internalServerError(w, r, err)
	}
}

// deleteRoleHandler godoc
//
//	@Summary		Delete a custom role
//	@Description	Deletes an organization-owned role. Roles with active assignments cannot be deleted; system roles never can.
//	@Tags			roles
//	@Produce		json
//	@Param			roleID	path		int		true	"Role ID"
//	@Success		204		{string}	string	"No Content"
//	@Failure		403		{object}	error
//	@Failure		404		{object}	error
//	@Failure		409		{object}	error	"Role has active assignments"
//	@Failure		500		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/roles/{roleID} [delete]
func (app *application) deleteRoleHandler(w http.ResponseWriter, r *http.Request) {
	view := getViewFromContext(r)

	roleID, err := strconv.ParseInt(chi.URLParam(r, "roleID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.access.DeleteRole(r.Context(), view.OrganizationID, roleID)
	if err != nil {
		switch err {
		case accesscontrol.ErrRoleNotFound:
			app.notFoundResponse(w, r, err)
		case accesscontrol.ErrSystemRole:
			app.forbiddenResponse(w, r)
		case accesscontrol.ErrRoleInUse:
			app.conflictResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
