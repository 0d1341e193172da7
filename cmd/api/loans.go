package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"lendbook/internal/store"

	"github.com/go-chi/chi/v5"
)

type CreateLoanPayload struct {
	CustomerID      int64  `json:"customer_id" validate:"required"`
	PrincipalAmount int64  `json:"principal_amount" validate:"required,min=1"`
	InterestRateBPS int    `json:"interest_rate_bps" validate:"min=0,max=100000"`
	TermMonths      int    `json:"term_months" validate:"required,min=1,max=360"`
	Method          string `json:"method" validate:"required,oneof=flat declining_balance"`
}

// createLoanHandler godoc
//
//	@Summary		Create a loan application
//	@Description	Creates a loan in pending state. Amounts are in minor currency units (e.g. paisa); interest is in basis points.
//	@Tags			loans
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		CreateLoanPayload	true	"Loan application"
//	@Success		201		{object}	store.Loan
//	@Failure		400		{object}	error
//	@Failure		404		{object}	error	"Customer not found in this organization"
//	@Failure		500		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/loans [post]
func (app *application) createLoanHandler(w http.ResponseWriter, r *http.Request) {
	var payload CreateLoanPayload
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

	reference, err := app.loanRefs.Generate(view.OrganizationID, time.Now().UnixMilli())
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	loan := &store.Loan{
		OrganizationID:  view.OrganizationID,
		CustomerID:      payload.CustomerID,
		Reference:       reference,
		PrincipalAmount: payload.PrincipalAmount,
		InterestRateBPS: payload.InterestRateBPS,
		TermMonths:      payload.TermMonths,
		Method:          payload.Method,
		CreatedBy:       actor.ID,
	}

	if err := app.store.Loans.Create(r.Context(), loan); err != nil {
		switch err {
		case store.ErrNotFound:
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if err := app.jsonResponse(w, http.StatusCreated, loan); err != nil {
		app.internalServerError(w, r, err)
	}
}

// listLoansHandler godoc
//
//	@Summary		List loans
//	@Tags			loans
//	@Produce		json
//	@Param			status		query		string	false	"Filter by status"
//	@Param			customer_id	query		int		false	"Filter by customer"
//	@Param			limit		query		int		false	"Page size (max 100)"
//	@Param			offset		query		int		false	"Offset"
//	@Success		200			{array}		store.Loan
//	@Failure		500			{object}	error
//	@Security		ApiKeyAuth
//	@Router			/loans [get]
func (app *application) listLoansHandler(w http.ResponseWriter, r *http.Request) {
	view := getViewFromContext(r)

	filter := store.LoanFilter{
		Status: r.URL.Query().Get("status"),
		Limit:  parseIntQuery(r, "limit"),
		Offset: parseIntQuery(r, "offset"),
	}
	if raw := r.URL.Query().Get("customer_id"); raw != "" {
		if customerID, err := strconv.ParseInt(raw, 10, 64); err == nil {
			filter.CustomerID = customerID
		}
	}

	loans, err := app.store.Loans.List(r.Context(), view.OrganizationID, filter)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, loans); err != nil {
		app.internalServerError(w, r, err)
	}
}

// getLoanHandler godoc
//
//	@Summary		Get a loan
//	@Tags			loans
//	@Produce		json
//	@Param			loanID	path		int	true	"Loan ID"
//	@Success		200		{object}	store.Loan
//	@Failure		404		{object}	error
//	@Failure		500		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/loans/{loanID} [get]
func (app *application) getLoanHandler(w http.ResponseWriter, r *http.Request) {
	view := getViewFromContext(r)

	loanID, err := strconv.ParseInt(chi.URLParam(r, "loanID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	loan, err := app.store.Loans.GetByID(r.Context(), view.OrganizationID, loanID)
	if err != nil {
		switch err {
		case store.ErrNotFound:
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, loan); err != nil {
		app.internalServerError(w, r, err)
	}
}

// approveLoanHandler godoc
//
//	@Summary		Approve a loan
//	@Description	Moves a pending loan to approved, recording who approved it.
//	@Tags			loans
//	@Produce		json
//	@Param			loanID	path		int	true	"Loan ID"
//	@Success		200		{object}	store.Loan
//	@Failure		404		{object}	error
//	@Failure		409		{object}	error	"Loan is not pending"
//	@Failure		500		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/loans/{loanID}/approve [post]
func (app *application) approveLoanHandler(w http.ResponseWriter, r *http.Request) {
	view := getViewFromContext(r)
	actor := getUserFromContext(r)

	loanID, err := strconv.ParseInt(chi.URLParam(r, "loanID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	ctx := r.Context()

	err = app.store.Loans.Approve(ctx, view.OrganizationID, loanID, actor.ID)
	if err != nil {
		app.loanTransitionError(w, r, err)
		return
	}

	loan, err := app.store.Loans.GetByID(ctx, view.OrganizationID, loanID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, loan); err != nil {
		app.internalServerError(w, r, err)
	}
}

// disburseLoanHandler godoc
//
//	@Summary		Disburse a loan
//	@Description	Moves an approved loan to active, generates the repayment schedule, and sets the outstanding balance to principal plus computed interest.
//	@Tags			loans
//	@Produce		json
//	@Param			loanID	path		int	true	"Loan ID"
//	@Success		200		{object}	store.Loan
//	@Failure		404		{object}	error
//	@Failure		409		{object}	error	"Loan is not approved"
//	@Failure		500		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/loans/{loanID}/disburse [post]
func (app *application) disburseLoanHandler(w http.ResponseWriter, r *http.Request) {
	view := getViewFromContext(r)

	loanID, err := strconv.ParseInt(chi.URLParam(r, "loanID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	ctx := r.Context()

	loan, err := app.store.Loans.GetByID(ctx, view.OrganizationID, loanID)
	if err != nil {
		switch err {
		case store.ErrNotFound:
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	disbursedAt := time.Now()

	installments, err := store.GenerateSchedule(
		loan.PrincipalAmount,
		loan.InterestRateBPS,
		loan.TermMonths,
		loan.Method,
		disbursedAt,
	)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.store.Loans.Disburse(ctx, view.OrganizationID, loanID, disbursedAt, installments)
	if err != nil {
		app.loanTransitionError(w, r, err)
		return
	}

	loan, err = app.store.Loans.GetByID(ctx, view.OrganizationID, loanID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, loan); err != nil {
		app.internalServerError(w, r, err)
	}
}

type UpdateLoanStatusPayload struct {
	Status string `json:"status" validate:"required,oneof=closed defaulted"`
}

// updateLoanStatusHandler godoc
//
//	@Summary		Close or default a loan
//	@Description	Moves an active loan to closed or defaulted.
//	@Tags			loans
//	@Accept			json
//	@Produce		json
//	@Param			loanID	path		int						true	"Loan ID"
//	@Param			payload	body		UpdateLoanStatusPayload	true	"Target status"
//	@Success		200		{object}	store.Loan
//	@Failure		400		{object}	error
//	@Failure		404		{object}	error
//	@Failure		409		{object}	error	"Loan is not active"
//	@Failure		500		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/loans/{loanID}/status [patch]
func (app *application) updateLoanStatusHandler(w http.ResponseWriter, r *http.Request) {
	var payload UpdateLoanStatusPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	view := getViewFromContext(r)

	loanID, err := strconv.ParseInt(chi.URLParam(r, "loanID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	ctx := r.Context()

	err = app.store.Loans.UpdateStatus(ctx, view.OrganizationID, loanID, store.LoanStatusActive, payload.Status)
	if err != nil {
		app.loanTransitionError(w, r, err)
		return
	}

	loan, err := app.store.Loans.GetByID(ctx, view.OrganizationID, loanID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, loan); err != nil {
		app.internalServerError(w, r, err)
	}
}

// deleteLoanHandler godoc
//
//	@Summary		Delete a pending loan
//	@Description	Deletes a loan application. Only pending loans can be deleted.
//	@Tags			loans
//	@Produce		json
//	@Param			loanID	path		int		true	"Loan ID"
//	@Success		204		{string}	string	"No Content"
//	@Failure		404		{object}	error
//	@Failure		409		{object}	error	"Loan is past pending"
//	@Failure		500		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/loans/{loanID} [delete]
func (app *application) deleteLoanHandler(w http.ResponseWriter, r *http.Request) {
	view := getViewFromContext(r)

	loanID, err := strconv.ParseInt(chi.URLParam(r, "loanID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.store.Loans.Delete(r.Context(), view.OrganizationID, loanID)
	if err != nil {
		app.loanTransitionError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// getLoanScheduleHandler godoc
//
//	@Summary		Get a loan's repayment schedule
//	@Tags			loans
//	@Produce		json
//	@Param			loanID	path		int	true	"Loan ID"
//	@Success		200		{array}		store.ScheduleEntry
//	@Failure		404		{object}	error
//	@Failure		500		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/loans/{loanID}/schedule [get]
func (app *application) getLoanScheduleHandler(w http.ResponseWriter, r *http.Request) {
	view := getViewFromContext(r)

	loanID, err := strconv.ParseInt(chi.URLParam(r, "loanID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	entries, err := app.store.Loans.GetSchedule(r.Context(), view.OrganizationID, loanID)
	if err != nil {
		switch err {
		case store.ErrNotFound:
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, entries); err != nil {
		app.internalServerError(w, r, err)
	}
}

func (app *application) loanTransitionError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		app.notFoundResponse(w, r, err)
	case errors.Is(err, store.ErrInvalidTransition):
		app.conflictResponse(w, r, err)
	default:
		app.internalServerError(w, r, err)
	}
}
