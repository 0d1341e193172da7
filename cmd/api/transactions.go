package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"lendbook/internal/store"

	"github.com/go-chi/chi/v5"
)

type CreateTransactionPayload struct {
	BankAccountID *int64 `json:"bank_account_id"`
	Type          string `json:"type" validate:"required,oneof=income expense"`
	Category      string `json:"category" validate:"required,max=60"`
	Amount        int64  `json:"amount" validate:"required,min=1"`
	Description   string `json:"description" validate:"max=500"`
	OccurredAt    string `json:"occurred_at" validate:"omitempty"`
}

// createTransactionHandler godoc
//
//	@Summary		Record an income or expense
//	@Description	Records a transaction. When a bank account is given its balance moves by the transaction amount in the same database transaction.
//	@Tags			transactions
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		CreateTransactionPayload	true	"Transaction"
//	@Success		201		{object}	store.Transaction
//	@Failure		400		{object}	error
//	@Failure		404		{object}	error	"Bank account not found in this organization"
//	@Failure		500		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/transactions [post]
func (app *application) createTransactionHandler(w http.ResponseWriter, r *http.Request) {
	var payload CreateTransactionPayload
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

	occurredAt := time.Now()
	if payload.OccurredAt != "" {
		var err error
		occurredAt, err = time.Parse(time.RFC3339, payload.OccurredAt)
		if err != nil {
			app.badRequestResponse(w, r, err)
			return
		}
	}

	tx := &store.Transaction{
		OrganizationID: view.OrganizationID,
		BankAccountID:  payload.BankAccountID,
		Type:           payload.Type,
		Category:       payload.Category,
		Amount:         payload.Amount,
		Description:    payload.Description,
		OccurredAt:     occurredAt,
		CreatedBy:      actor.ID,
	}

	if err := app.store.Transactions.Create(r.Context(), tx); err != nil {
		switch {
		case errors.Is(err, store.ErrValidation):
			app.badRequestResponse(w, r, err)
		case errors.Is(err, store.ErrNotFound):
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if err := app.jsonResponse(w, http.StatusCreated, tx); err != nil {
		app.internalServerError(w, r, err)
	}
}

// listTransactionsHandler godoc
//
//	@Summary		List transactions
//	@Tags			transactions
//	@Produce		json
//	@Param			type		query		string	false	"income or expense"
//	@Param			category	query		string	false	"Category filter"
//	@Param			from		query		string	false	"RFC3339 lower bound"
//	@Param			to			query		string	false	"RFC3339 upper bound"
//	@Param			limit		query		int		false	"Page size (max 100)"
//	@Param			offset		query		int		false	"Offset"
//	@Success		200			{array}		store.Transaction
//	@Failure		500			{object}	error
//	@Security		ApiKeyAuth
//	@Router			/transactions [get]
func (app *application) listTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	view := getViewFromContext(r)

	filter := store.TransactionFilter{
		Type:     r.URL.Query().Get("type"),
		Category: r.URL.Query().Get("category"),
		Limit:    parseIntQuery(r, "limit"),
		Offset:   parseIntQuery(r, "offset"),
	}
	if raw := r.URL.Query().Get("from"); raw != "" {
		if from, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.From = from
		}
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		if to, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.To = to
		}
	}

	transactions, err := app.store.Transactions.List(r.Context(), view.OrganizationID, filter)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, transactions); err != nil {
		app.internalServerError(w, r, err)
	}
}

// transactionSummaryHandler godoc
//
//	@Summary		Income and expense summary
//	@Description	Totals income and expenses over the given window, broken down by category. Defaults to the current month.
//	@Tags			transactions
//	@Produce		json
//	@Param			from	query		string	false	"RFC3339 lower bound"
//	@Param			to		query		string	false	"RFC3339 upper bound"
//	@Success		200		{object}	store.TransactionSummary
//	@Failure		500		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/transactions/summary [get]
func (app *application) transactionSummaryHandler(w http.ResponseWriter, r *http.Request) {
	view := getViewFromContext(r)

	now := time.Now()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	to := now

	if raw := r.URL.Query().Get("from"); raw != "" {
		if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
			from = parsed
		}
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
			to = parsed
		}
	}

	summary, err := app.store.Transactions.Summary(r.Context(), view.OrganizationID, from, to)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, summary); err != nil {
		app.internalServerError(w, r, err)
	}
}

// deleteTransactionHandler godoc
//
//	@Summary		Delete a transaction
//	@Description	Deletes a transaction and reverses its effect on the linked bank account balance.
//	@Tags			transactions
//	@Produce		json
//	@Param			transactionID	path		int		true	"Transaction ID"
//	@Success		204				{string}	string	"No Content"
//	@Failure		404				{object}	error
//	@Failure		500				{object}	error
//	@Security		ApiKeyAuth
//	@Router			/transactions/{transactionID} [delete]
func (app *application) deleteTransactionHandler(w http.ResponseWriter, r *http.Request) {
	view := getViewFromContext(r)

	txID, err := strconv.ParseInt(chi.URLParam(r, "transactionID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.store.Transactions.Delete(r.Context(), view.OrganizationID, txID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
