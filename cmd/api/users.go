package main

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"lendbook/internal/authz"
	"lendbook/internal/domain/accesscontrol"
	"lendbook/internal/mailer"
	"lendbook/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// listStaffHandler godoc
//
//	@Summary		List staff
//	@Description	Returns the organization's staff with their active roles.
//	@Tags			users
//	@Produce		json
//	@Success		200	{array}	store.StaffMember
//	@Failure		500	{object}	error
//	@Security		ApiKeyAuth
//	@Router			/users [get]
func (app *application) listStaffHandler(w http.ResponseWriter, r *http.Request) {
	view := getViewFromContext(r)

	staff, err := app.store.Users.ListByOrganization(r.Context(), view.OrganizationID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, staff); err != nil {
		app.internalServerError(w, r, err)
	}
}

type InviteStaffPayload struct {
	FirstName string `json:"first_name" validate:"required,max=50"`
	LastName  string `json:"last_name" validate:"required,max=50"`
	Email     string `json:"email" validate:"required,email,max=255"`
	Phone     string `json:"phone" validate:"required,min=7,max=15"`
	RoleID    int64  `json:"role_id" validate:"required"`
}

// inviteStaffHandler godoc
//
//	@Summary		Invite a staff member
//	@Description	Creates an inactive account, assigns the given role in this organization, and emails an activation link. The granted role must carry less authority than the caller's own.
//	@Tags			users
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		InviteStaffPayload	true	"Staff details"
//	@Success		201		{object}	store.User
//	@Failure		400		{object}	error
//	@Failure		403		{object}	error
//	@Failure		500		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/users/invite [post]
func (app *application) inviteStaffHandler(w http.ResponseWriter, r *http.Request) {
	var payload InviteStaffPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	view := getViewFromContext(r)
	actor := getUserFromContext(r)
	ctx := r.Context()

	role, err := app.access.GetRole(ctx, view.OrganizationID, payload.RoleID)
	if err != nil {
		switch err {
		case accesscontrol.ErrRoleNotFound:
			app.badRequestResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}
	if !view.IsSuperAdmin && role.HierarchyLevel <= view.HierarchyLevel {
		app.forbiddenResponse(w, r)
		return
	}

	user := &store.User{
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Email:     payload.Email,
		Phone:     payload.Phone,
	}
	// Invited staff set their password during activation; seed an unusable one.
	if err := user.Password.Set(uuid.New().String()); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	plainToken := uuid.New().String()

	err = app.store.Users.CreateAndInvite(ctx, user, hashToken(plainToken), app.config.mail.exp)
	if err != nil {
		switch err {
		case store.ErrDuplicateEmail, store.ErrDuplicatePhone:
			app.badRequestResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	err = app.access.AssignRole(ctx, &accesscontrol.UserRoleAssignment{
		UserID:         user.ID,
		RoleID:         role.ID,
		OrganizationID: view.OrganizationID,
		AssignedBy:     actor.ID,
	})
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	activationURL := fmt.Sprintf("%s/confirm?token=%s", app.config.frontendURL, plainToken)
	vars := struct {
		Username      string
		ActivationURL string
	}{
		Username:      user.FirstName,
		ActivationURL: activationURL,
	}

	status, err := app.mailer.Send(mailer.StaffInvitationTemplate, user.FirstName, user.Email, vars)
	if err != nil {
		app.logger.Errorw("error sending invitation email", "error", err)

		// Roll back the account so a retried invite does not hit the
		// duplicate-email constraint. The role assignment cascades.
		if err := app.store.Users.Delete(ctx, user.ID); err != nil {
			app.logger.Errorw("error deleting invited user", "error", err)
		}

		app.internalServerError(w, r, err)
		return
	}
	app.logger.Infow("invitation email sent", "status code", status)

	if err := app.jsonResponse(w, http.StatusCreated, user); err != nil {
		app.internalServerError(w, r, err)
	}
}

type AssignRolePayload struct {
	RoleID int64 `json:"role_id" validate:"required"`
}

// assignRoleHandler godoc
//
//	@Summary		Assign a role to a user
//	@Description	Replaces the user's active role in this organization. The caller must be allowed to manage the target and cannot grant authority above or equal to their own.
//	@Tags			users
//	@Accept			json
//	@Produce		json
//	@Param			userID	path		int					true	"Target user ID"
//	@Param			payload	body		AssignRolePayload	true	"Role to assign"
//	@Success		200		{object}	accesscontrol.UserRoleAssignment
//	@Failure		400		{object}	error
//	@Failure		403		{object}	error
//	@Failure		500		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/users/{userID}/assign-role [post]
func (app *application) assignRoleHandler(w http.ResponseWriter, r *http.Request) {
	var payload AssignRolePayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	targetID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	view := getViewFromContext(r)
	actor := getUserFromContext(r)
	ctx := r.Context()

	target, err := app.managementTarget(r, targetID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	if !authz.CanManageUser(view, target) {
		app.forbiddenResponse(w, r)
		return
	}

	role, err := app.access.GetRole(ctx, view.OrganizationID, payload.RoleID)
	if err != nil {
		switch err {
		case accesscontrol.ErrRoleNotFound:
			app.badRequestResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}
	if !view.IsSuperAdmin && role.HierarchyLevel <= view.HierarchyLevel {
		app.forbiddenResponse(w, r)
		return
	}

	assignment := &accesscontrol.UserRoleAssignment{
		UserID:         targetID,
		RoleID:         role.ID,
		OrganizationID: view.OrganizationID,
		AssignedBy:     actor.ID,
	}
	if err := app.access.AssignRole(ctx, assignment); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.permissions.Invalidate(ctx, targetID, view.OrganizationID); err != nil {
		app.logger.Warnw("permissions cache invalidation failed", "user_id", targetID, "error", err)
	}

	if err := app.jsonResponse(w, http.StatusOK, assignment); err != nil {
		app.internalServerError(w, r, err)
	}
}

// removeRoleHandler godoc
//
//	@Summary		Remove a user's role
//	@Description	Deactivates the user's active role assignment in this organization, cutting their access on the next request.
//	@Tags			users
//	@Produce		json
//	@Param			userID	path		int		true	"Target user ID"
//	@Success		204		{string}	string	"No Content"
//	@Failure		403		{object}	error
//	@Failure		404		{object}	error
//	@Failure		500		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/users/{userID}/role [delete]
func (app *application) removeRoleHandler(w http.ResponseWriter, r *http.Request) {
	targetID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	view := getViewFromContext(r)
	ctx := r.Context()

	target, err := app.managementTarget(r, targetID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	if !authz.CanManageUser(view, target) {
		app.forbiddenResponse(w, r)
		return
	}

	err = app.access.RemoveRole(ctx, targetID, view.OrganizationID)
	if err != nil {
		switch {
		case errors.Is(err, accesscontrol.ErrNoAssignment):
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if err := app.permissions.Invalidate(ctx, targetID, view.OrganizationID); err != nil {
		app.logger.Warnw("permissions cache invalidation failed", "user_id", targetID, "error", err)
	}

	w.WriteHeader(http.StatusNoContent)
}

// managementTarget describes the target user for a management check. A user
// without an active assignment reads as roleless, which the check denies for
// everyone except super admins.
func (app *application) managementTarget(r *http.Request, targetID int64) (authz.Target, error) {
	view := getViewFromContext(r)

	targetView, err := app.access.GetPermissionsView(r.Context(), targetID, view.OrganizationID)
	if err != nil {
		if errors.Is(err, accesscontrol.ErrNoAssignment) {
			return authz.Target{HasRole: false}, nil
		}
		return authz.Target{}, err
	}
	return authz.Target{HasRole: true, HierarchyLevel: targetView.HierarchyLevel}, nil
}
