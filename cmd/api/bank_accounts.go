package main

import (
	"net/http"
	"strconv"

	"lendbook/internal/store"

	"github.com/go-chi/chi/v5"
)

type BankAccountPayload struct {
	Name          string `json:"name" validate:"required,max=120"`
	BankName      string `json:"bank_name" validate:"required,max=120"`
	AccountNumber string `json:"account_number" validate:"required,max=40"`
	Balance       int64  `json:"balance" validate:"min=0"`
}

// createBankAccountHandler godoc
//
//	@Summary		Create a bank account
//	@Tags			bank-accounts
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		BankAccountPayload	true	"Bank account"
//	@Success		201		{object}	store.BankAccount
//	@Failure		400		{object}	error
//	@Failure		409		{object}	error	"Duplicate account number"
//	@Failure		500		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/bank-accounts [post]
func (app *application) createBankAccountHandler(w http.ResponseWriter, r *http.Request) {
	var payload BankAccountPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	view := getViewFromContext(r)

	account := &store.BankAccount{
		OrganizationID: view.OrganizationID,
		Name:           payload.Name,
		BankName:       payload.BankName,
		AccountNumber:  payload.AccountNumber,
		Balance:        payload.Balance,
	}

	if err := app.store.BankAccounts.Create(r.Context(), account); err != nil {
		switch err {
		case store.ErrConflict:
			app.conflictResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if err := app.jsonResponse(w, http.StatusCreated, account); err != nil {
		app.internalServerError(w, r, err)
	}
}

// listBankAccountsHandler godoc
//
//	@Summary		List bank accounts
//	@Tags			bank-accounts
//	@Produce		json
//	@Success		200	{array}	store.BankAccount
//	@Failure		500	{object}	error
//	@Security		ApiKeyAuth
//	@Router			/bank-accounts [get]
func (app *application) listBankAccountsHandler(w http.ResponseWriter, r *http.Request) {
	view := getViewFromContext(r)

	accounts, err := app.store.BankAccounts.List(r.Context(), view.OrganizationID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, accounts); err != nil {
		app.internalServerError(w, r, err)
	}
}

// getBankAccountHandler godoc
//
//	@Summary		Get a bank account
//	@Tags			bank-accounts
//	@Produce		json
//	@Param			accountID	path		int	true	"Account ID"
//	@Success		200			{object}	store.BankAccount
//	@Failure		404			{object}	error
//	@Failure		500			{object}	error
//	@Security		ApiKeyAuth
//	@Router			/bank-accounts/{accountID} [get]
func (app *application) getBankAccountHandler(w http.ResponseWriter, r *http.Request) {
	view := getViewFromContext(r)

	accountID, err := strconv.ParseInt(chi.URLParam(r, "accountID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	account, err := app.store.BankAccounts.GetByID(r.Context(), view.OrganizationID, accountID)
	if err != nil {
		switch err {
		case store.ErrNotFound:
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, account); err != nil {
		app.internalServerError(w, r, err)
	}
}

// updateBankAccountHandler godoc
//
//	@Summary		Update a bank account
//	@Tags			bank-accounts
//	@Accept			json
//	@Produce		json
//	@Param			accountID	path		int					true	"Account ID"
//	@Param			payload		body		BankAccountPayload	true	"Bank account"
//	@Success		200			{object}	store.BankAccount
//	@Failure		400			{object}	error
//	@Failure		404			{object}	error
//	@Failure		500			{object}	error
//	@Security		ApiKeyAuth
//	@Router			/bank-accounts/{accountID} [put]
func (app *application) updateBankAccountHandler(w http.ResponseWriter, r *http.Request) {
	var payload BankAccountPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	view := getViewFromContext(r)

	accountID, err := strconv.ParseInt(chi.URLParam(r, "accountID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	account := &store.BankAccount{
		ID:             accountID,
		OrganizationID: view.OrganizationID,
		Name:           payload.Name,
		BankName:       payload.BankName,
		AccountNumber:  payload.AccountNumber,
		Balance:        payload.Balance,
	}

	if err := app.store.BankAccounts.Update(r.Context(), account); err != nil {
		switch err {
		case store.ErrNotFound:
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, account); err != nil {
		app.internalServerError(w, r, err)
	}
}

// deleteBankAccountHandler godoc
//
//	@Summary		Delete a bank account
//	@Description	Deletes a bank account. Accounts referenced by transactions cannot be deleted.
//	@Tags			bank-accounts
//	@Produce		json
//	@Param			accountID	path		int		true	"Account ID"
//	@Success		204			{string}	string	"No Content"
//	@Failure		404			{object}	error
//	@Failure		409			{object}	error	"Account has transactions"
//	@Failure		500			{object}	error
//	@Security		ApiKeyAuth
//	@Router			/bank-accounts/{accountID} [delete]
func (app *application) deleteBankAccountHandler(w http.ResponseWriter, r *http.Request) {
	view := getViewFromContext(r)

	accountID, err := strconv.ParseInt(chi.URLParam(r, "accountID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.store.BankAccounts.Delete(r.Context(), view.OrganizationID, accountID)
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
