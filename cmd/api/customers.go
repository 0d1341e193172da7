package main

import (
	"net/http"
	"strconv"

	"lendbook/internal/store"

	"github.com/go-chi/chi/v5"
)

type CreateCustomerPayload struct {
	FirstName  string `json:"first_name" validate:"required,max=50"`
	LastName   string `json:"last_name" validate:"required,max=50"`
	Phone      string `json:"phone" validate:"required,min=7,max=15"`
	Email      string `json:"email" validate:"omitempty,email,max=255"`
	Address    string `json:"address" validate:"max=255"`
	NationalID string `json:"national_id" validate:"max=50"`
}

// createCustomerHandler godoc
//
//	@Summary		Create a customer
//	@Tags			customers
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		CreateCustomerPayload	true	"Customer details"
//	@Success		201		{object}	store.Customer
//	@Failure		400		{object}	error
//	@Failure		409		{object}	error	"Duplicate national ID or phone"
//	@Failure		500		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/customers [post]
func (app *application) createCustomerHandler(w http.ResponseWriter, r *http.Request) {
	var payload CreateCustomerPayload
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

	customer := &store.Customer{
		OrganizationID: view.OrganizationID,
		FirstName:      payload.FirstName,
		LastName:       payload.LastName,
		Phone:          payload.Phone,
		Email:          payload.Email,
		Address:        payload.Address,
		NationalID:     payload.NationalID,
		CreatedBy:      actor.ID,
	}

	if err := app.store.Customers.Create(r.Context(), customer); err != nil {
		switch err {
		case store.ErrConflict:
			app.conflictResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if err := app.jsonResponse(w, http.StatusCreated, customer); err != nil {
		app.internalServerError(w, r, err)
	}
}

// listCustomersHandler godoc
//
//	@Summary		List customers
//	@Description	Lists the organization's customers, optionally filtered by a name or phone search.
//	@Tags			customers
//	@Produce		json
//	@Param			search	query		string	false	"Name or phone search"
//	@Param			limit	query		int		false	"Page size (max 100)"
//	@Param			offset	query		int		false	"Offset"
//	@Success		200		{array}		store.Customer
//	@Failure		500		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/customers [get]
func (app *application) listCustomersHandler(w http.ResponseWriter, r *http.Request) {
	view := getViewFromContext(r)

	filter := store.CustomerFilter{
		Search: r.URL.Query().Get("search"),
		Limit:  parseIntQuery(r, "limit"),
		Offset: parseIntQuery(r, "offset"),
	}

	customers, err := app.store.Customers.List(r.Context(), view.OrganizationID, filter)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, customers); err != nil {
		app.internalServerError(w, r, err)
	}
}

// getCustomerHandler godoc
//
//	@Summary		Get a customer
//	@Tags			customers
//	@Produce		json
//	@Param			customerID	path		int	true	"Customer ID"
//	@Success		200			{object}	store.Customer
//	@Failure		404			{object}	error
//	@Failure		500			{object}	error
//	@Security		ApiKeyAuth
//	@Router			/customers/{customerID} [get]
func (app *application) getCustomerHandler(w http.ResponseWriter, r *http.Request) {
	view := getViewFromContext(r)

	customerID, err := strconv.ParseInt(chi.URLParam(r, "customerID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	customer, err := app.store.Customers.GetByID(r.Context(), view.OrganizationID, customerID)
	if err != nil {
		switch err {
		case store.ErrNotFound:
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, customer); err != nil {
		app.internalServerError(w, r, err)
	}
}

// updateCustomerHandler godoc
//
//	@Summary		Update a customer
//	@Tags			customers
//	@Accept			json
//	@Produce		json
//	@Param			customerID	path		int						true	"Customer ID"
//	@Param			payload		body		CreateCustomerPayload	true	"Customer details"
//	@Success		200			{object}	store.Customer
//	@Failure		400			{object}	error
//	@Failure		404			{object}	error
//	@Failure		500			{object}	error
//	@Security		ApiKeyAuth
//	@Router			/customers/{customerID} [put]
func (app *application) updateCustomerHandler(w http.ResponseWriter, r *http.Request) {
	var payload CreateCustomerPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	view := getViewFromContext(r)

	customerID, err := strconv.ParseInt(chi.URLParam(r, "customerID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	customer := &store.Customer{
		ID:             customerID,
		OrganizationID: view.OrganizationID,
		FirstName:      payload.FirstName,
		LastName:       payload.LastName,
		Phone:          payload.Phone,
		Email:          payload.Email,
		Address:        payload.Address,
		NationalID:     payload.NationalID,
	}

	if err := app.store.Customers.Update(r.Context(), customer); err != nil {
		switch err {
		case store.ErrNotFound:
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, customer); err != nil {
		app.internalServerError(w, r, err)
	}
}

// deleteCustomerHandler godoc
//
//	@Summary		Delete a customer
//	@Description	Deletes a customer. Customers with active loans cannot be deleted.
//	@Tags			customers
//	@Produce		json
//	@Param			customerID	path		int		true	"Customer ID"
//	@Success		204			{string}	string	"No Content"
//	@Failure		404			{object}	error
//	@Failure		409			{object}	error	"Customer has active loans"
//	@Failure		500			{object}	error
//	@Security		ApiKeyAuth
//	@Router			/customers/{customerID} [delete]
func (app *application) deleteCustomerHandler(w http.ResponseWriter, r *http.Request) {
	view := getViewFromContext(r)

	customerID, err := strconv.ParseInt(chi.URLParam(r, "customerID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.store.Customers.Delete(r.Context(), view.OrganizationID, customerID)
	if err != nil {
		switch err {
		case store.ErrNotFound:
			app.notFoundResponse(w, r, err)
		case store.ErrConflict:
			app.conflictResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func parseIntQuery(r *http.Request, key string) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return 0
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed < 0 {
		return 0
	}
	return parsed
}
