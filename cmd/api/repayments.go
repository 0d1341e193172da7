package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"lendbook/internal/store"

	"github.com/go-chi/chi/v5"
)

type RecordRepaymentPayload struct {
	Amount int64  `json:"amount" validate:"required,min=1"`
	Method string `json:"method" validate:"max=30"`
	Notes  string `json:"notes" validate:"max=500"`
	PaidAt string `json:"paid_at" validate:"omitempty"`
}

// recordRepaymentHandler godoc
//
//	@Summary		Record a repayment
//	@Description	Records a repayment against an active loan. The amount is applied to the oldest unpaid installments first and the outstanding balance shrinks accordingly; when it reaches zero the loan closes.
//	@Tags			repayments
//	@Accept			json
//	@Produce		json
//	@Param			loanID	path		int						true	"Loan ID"
//	@Param			payload	body		RecordRepaymentPayload	true	"Repayment"
//	@Success		201		{object}	store.Repayment
//	@Failure		400		{object}	error
//	@Failure		404		{object}	error
//	@Failure		409		{object}	error	"Loan is not active"
//	@Failure		500		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/loans/{loanID}/repayments [post]
func (app *application) recordRepaymentHandler(w http.ResponseWriter, r *http.Request) {
	var payload RecordRepaymentPayload
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

	loanID, err := strconv.ParseInt(chi.URLParam(r, "loanID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	paidAt := time.Now()
	if payload.PaidAt != "" {
		paidAt, err = time.Parse(time.RFC3339, payload.PaidAt)
		if err != nil {
			app.badRequestResponse(w, r, err)
			return
		}
	}

	repayment := &store.Repayment{
		OrganizationID: view.OrganizationID,
		LoanID:         loanID,
		Amount:         payload.Amount,
		Method:         payload.Method,
		Notes:          payload.Notes,
		ReceivedBy:     actor.ID,
		PaidAt:         paidAt,
	}

	if err := app.store.Repayments.Record(r.Context(), repayment); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			app.notFoundResponse(w, r, err)
		case errors.Is(err, store.ErrLoanNotActive):
			app.conflictResponse(w, r, err)
		case errors.Is(err, store.ErrValidation):
			app.badRequestResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if err := app.jsonResponse(w, http.StatusCreated, repayment); err != nil {
		app.internalServerError(w, r, err)
	}
}

// listRepaymentsHandler godoc
//
//	@Summary		List a loan's repayments
//	@Tags			repayments
//	@Produce		json
//	@Param			loanID	path		int	true	"Loan ID"
//	@Success		200		{array}		store.Repayment
//	@Failure		500		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/loans/{loanID}/repayments [get]
func (app *application) listRepaymentsHandler(w http.ResponseWriter, r *http.Request) {
	view := getViewFromContext(r)

	loanID, err := strconv.ParseInt(chi.URLParam(r, "loanID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	repayments, err := app.store.Repayments.ListByLoan(r.Context(), view.OrganizationID, loanID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, repayments); err != nil {
		app.internalServerError(w, r, err)
	}
}
