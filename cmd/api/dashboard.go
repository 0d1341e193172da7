package main

import (
	"encoding/json"
	"net/http"

	"lendbook/internal/authz"
	"lendbook/internal/store"
)

const dashboardCacheKey = "dashboard:overview"

// dashboardHandler godoc
//
//	@Summary		Dashboard overview
//	@Description	Returns the operational counters for the active organization. Financial figures (portfolio outstanding, income, expenses) are zeroed for callers without dashboard:view_financials.
//	@Tags			dashboard
//	@Produce		json
//	@Success		200	{object}	store.DashboardOverview
//	@Failure		500	{object}	error
//	@Security		ApiKeyAuth
//	@Router			/dashboard [get]
func (app *application) dashboardHandler(w http.ResponseWriter, r *http.Request) {
	view := getViewFromContext(r)
	ctx := r.Context()

	// The full overview is cached per tenant; the permission-based redaction
	// happens below, after the cache, so one entry serves every caller.
	var overview *store.DashboardOverview
	if cached, ok, err := app.tenants.Get(ctx, view.OrganizationID, dashboardCacheKey); err != nil {
		app.logger.Warnw("tenant cache read failed", "org_id", view.OrganizationID, "error", err)
	} else if ok {
		var decoded store.DashboardOverview
		if err := json.Unmarshal(cached, &decoded); err == nil {
			overview = &decoded
		}
	}

	if overview == nil {
		var err error
		overview, err = app.store.Dashboard.Overview(ctx, view.OrganizationID)
		if err != nil {
			app.internalServerError(w, r, err)
			return
		}
		if payload, err := json.Marshal(overview); err == nil {
			if err := app.tenants.Set(ctx, view.OrganizationID, dashboardCacheKey, payload); err != nil {
				app.logger.Warnw("tenant cache write failed", "org_id", view.OrganizationID, "error", err)
			}
		}
	}

	if !authz.HasPermission(view, authz.PermDashboardViewFinancials) {
		redacted := *overview
		redacted.PortfolioOutstanding = 0
		redacted.IncomeThisMonth = 0
		redacted.ExpenseThisMonth = 0
		overview = &redacted
	}

	if err := app.jsonResponse(w, http.StatusOK, overview); err != nil {
		app.internalServerError(w, r, err)
	}
}
