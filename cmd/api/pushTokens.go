package main

import (
	"net/http"

	"lendbook/internal/store"
)

type PushTokenPayload struct {
	Token    string `json:"token" validate:"required"`
	Platform string `json:"platform" validate:"required,oneof=ios android"`
}

// registerPushTokenHandler godoc
//
//	@Summary		Register a push token
//	@Description	Registers or refreshes an Expo push token for the caller's device.
//	@Tags			notifications
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		PushTokenPayload	true	"Device token"
//	@Success		204		{string}	string				"No Content"
//	@Failure		400		{object}	error
//	@Failure		500		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/push-tokens [post]
func (app *application) registerPushTokenHandler(w http.ResponseWriter, r *http.Request) {
	var payload PushTokenPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	user := getUserFromContext(r)

	if err := app.store.PushTokens.Upsert(r.Context(), user.ID, payload.Token, payload.Platform); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type DeletePushTokenPayload struct {
	Token string `json:"token" validate:"required"`
}

// deletePushTokenHandler godoc
//
//	@Summary		Delete a push token
//	@Tags			notifications
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		DeletePushTokenPayload	true	"Device token"
//	@Success		204		{string}	string					"No Content"
//	@Failure		404		{object}	error
//	@Failure		500		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/push-tokens [delete]
func (app *application) deletePushTokenHandler(w http.ResponseWriter, r *http.Request) {
	var payload DeletePushTokenPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	user := getUserFromContext(r)

	err := app.store.PushTokens.Delete(r.Context(), user.ID, payload.Token)
	if err != nil {
		switch err {
		case store.ErrNotFound:
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
